// Package timebase converts instants to and from the organization's civil
// calendar. The calendar is fixed at UTC+5:30 (IST); day-boundary math shifts
// into that offset, floors there, and shifts back, so results never depend on
// the host machine timezone.
package timebase

import "time"

var ist = time.FixedZone("IST", 5*3600+30*60)

// Location returns the organization's fixed civil timezone.
func Location() *time.Location {
	return ist
}

// StartOfCivilDay returns the instant at 00:00:00 IST of t's civil day.
func StartOfCivilDay(t time.Time) time.Time {
	local := t.In(ist)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, ist)
}

// EndOfCivilDay returns the last representable instant of t's civil day.
func EndOfCivilDay(t time.Time) time.Time {
	return StartOfCivilDay(t).Add(24*time.Hour - time.Nanosecond)
}

// DayWindow returns [StartOfCivilDay(t), EndOfCivilDay(t)].
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := StartOfCivilDay(t)
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

func SameCivilDay(a, b time.Time) bool {
	return StartOfCivilDay(a).Equal(StartOfCivilDay(b))
}

// Stamp is the human-facing rendering of an instant.
type Stamp struct {
	ISO      string `json:"iso"`
	Readable string `json:"readable"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

func Format(t time.Time) Stamp {
	local := t.In(ist)
	return Stamp{
		ISO:      local.Format(time.RFC3339),
		Readable: local.Format("02 Jan 2006, 15:04"),
		Date:     local.Format("2006-01-02"),
		Time:     local.Format("15:04"),
	}
}

// DateKey renders the civil date of t as "2006-01-02".
func DateKey(t time.Time) string {
	return t.In(ist).Format("2006-01-02")
}
