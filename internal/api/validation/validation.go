// Package validation checks request payloads before they reach the auth service.
package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/credential-service/internal/api/dto"
	"github.com/spec-kit/credential-service/internal/domain"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

const (
	// MinPasswordLength counts characters, not bytes.
	MinPasswordLength = 8

	MsgInvalidEmail     = "Invalid email format"
	MsgPasswordTooShort = "Password must be at least 8 characters"
	MsgPasswordRequired = "Password is required"
)

// Register normalises req.Email in place and reports every failing field.
func Register(req *dto.RegisterRequest) error {
	var fields []apperrors.FieldError

	req.Email = domain.NormalizeEmail(req.Email)
	if !IsEmail(req.Email) {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: MsgInvalidEmail})
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		fields = append(fields, apperrors.FieldError{Field: "password", Message: MsgPasswordTooShort})
	}

	if len(fields) > 0 {
		return apperrors.NewValidationError(fields...)
	}
	return nil
}

// Login normalises req.Email in place and reports every failing field.
func Login(req *dto.LoginRequest) error {
	var fields []apperrors.FieldError

	req.Email = domain.NormalizeEmail(req.Email)
	if !IsEmail(req.Email) {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: MsgInvalidEmail})
	}
	if req.Password == "" {
		fields = append(fields, apperrors.FieldError{Field: "password", Message: MsgPasswordRequired})
	}

	if len(fields) > 0 {
		return apperrors.NewValidationError(fields...)
	}
	return nil
}

// IsEmail accepts a bare addr-spec with a dotted domain, e.g. "a@b.com".
// Display names ("Ann <a@b.com>") and whitespace are rejected.
func IsEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	domainPart := email[at+1:]
	dot := strings.LastIndex(domainPart, ".")
	return dot > 0 && dot < len(domainPart)-1
}
