// Package apperr defines the typed rejection kinds surfaced by the scan
// pipeline. Every rejection carries a machine-readable kind plus a one-line
// message for the client.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	Unauthenticated        Kind = "UNAUTHENTICATED"
	BadRequest             Kind = "BAD_REQUEST"
	LocationRequired       Kind = "LOCATION_REQUIRED"
	MockLocationDetected   Kind = "MOCK_LOCATION_DETECTED"
	QRInvalid              Kind = "QR_INVALID"
	DeviceIDRequired       Kind = "DEVICE_ID_REQUIRED"
	DeviceNotAuthorized    Kind = "DEVICE_NOT_AUTHORIZED"
	DuplicateCheckIn       Kind = "DUPLICATE_CHECK_IN"
	DuplicateCheckOut      Kind = "DUPLICATE_CHECK_OUT"
	CheckOutWithoutCheckIn Kind = "CHECK_OUT_WITHOUT_CHECK_IN"
	NoActiveSession        Kind = "NO_ACTIVE_SESSION"
	NotFound               Kind = "NOT_FOUND"
	Internal               Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf extracts the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps a kind to the status code the handlers respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return fiber.StatusUnauthorized
	case BadRequest, LocationRequired, MockLocationDetected, DeviceIDRequired:
		return fiber.StatusBadRequest
	case QRInvalid, NotFound:
		return fiber.StatusNotFound
	case DeviceNotAuthorized:
		return fiber.StatusForbidden
	case DuplicateCheckIn, DuplicateCheckOut, CheckOutWithoutCheckIn:
		return fiber.StatusConflict
	case NoActiveSession:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
