package dto

import (
	"time"

	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned with 201 Created.
type RegisterResponse struct {
	Success   bool      `json:"success"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   string `json:"expiresIn"`
}

// ProfileResponse describes the authenticated caller.
type ProfileResponse struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Errors []apperrors.FieldError `json:"errors"`
}
