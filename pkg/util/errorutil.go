package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes identify the kind of a DomainError. Callers branch on Code, never on Message.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeSecretUnavailable  = "SECRET_UNAVAILABLE"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInternal           = "internal server error"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Fields     []FieldError
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status}
}

func NewValidationError(fields ...FieldError) error {
	return &DomainError{
		Code:       CodeValidation,
		Message:    "validation failed",
		HTTPStatus: http.StatusBadRequest,
		Fields:     fields,
	}
}

func NewInvalidJSON() error {
	return NewDomainError(CodeInvalidJSON, "Invalid JSON", http.StatusBadRequest)
}

func NewAlreadyExists(message string) error {
	return NewDomainError(CodeAlreadyExists, message, http.StatusConflict)
}

// NewInvalidCredentials always carries the same message so unknown accounts and wrong
// passwords are indistinguishable.
func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, msgInvalidCredentials, http.StatusUnauthorized)
}

func NewAccountLocked(message string) error {
	return NewDomainError(CodeAccountLocked, message, http.StatusForbidden)
}

func NewInvalidToken(err error) error {
	return &DomainError{Code: CodeInvalidToken, Message: "invalid token", HTTPStatus: http.StatusUnauthorized, Err: err}
}

func NewSecretUnavailable(err error) error {
	return &DomainError{Code: CodeSecretUnavailable, Message: msgInternal, HTTPStatus: http.StatusInternalServerError, Err: err}
}

func NewStoreUnavailable(err error) error {
	return &DomainError{Code: CodeStoreUnavailable, Message: msgInternal, HTTPStatus: http.StatusInternalServerError, Err: err}
}

func NewNotFound(message string) error {
	return NewDomainError(CodeNotFound, message, http.StatusNotFound)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    msgInternal,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    msgInternal,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err (or anything it wraps) is a DomainError of the given kind.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// Body renders the public error payload. Wrapped causes are never included.
func (e *DomainError) Body() []FieldError {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	return []FieldError{{Message: e.Message}}
}
