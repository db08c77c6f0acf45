package models

// Response shapes shared by the swagger annotations and the handlers.

type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Kind    string `json:"kind" example:"BAD_REQUEST"`
	Message string `json:"message" example:"token and scan_type are required"`
}

type LoginSuccessResponse struct {
	Message      string `json:"message" example:"login successful"`
	Token        string `json:"token" example:"v2.local.Ft9QcxZhJXEYyb7-bMM..."`
	UserID       string `json:"user_id" example:"507f1f77bcf86cd799439011"`
	Role         string `json:"role" example:"worker"`
	IsFirstLogin bool   `json:"is_first_login" example:"true"`
}

type RegisterSuccessResponse struct {
	Message string `json:"message" example:"user registered"`
	UserID  string `json:"user_id" example:"507f1f77bcf86cd799439011"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}
