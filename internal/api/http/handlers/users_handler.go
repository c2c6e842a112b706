package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/credential-service/internal/api/dto"
	"github.com/spec-kit/credential-service/internal/api/validation"
	"github.com/spec-kit/credential-service/internal/auth"
	"github.com/spec-kit/credential-service/internal/service"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// UsersHandler exposes the register, login and profile endpoints.
type UsersHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, logger *zap.Logger) *UsersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsersHandler{auth: authService, logger: logger}
}

// Register handles POST /register and POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := validation.Register(&req); err != nil {
		return err
	}
	h.logger.Info("register_attempt", zap.String("email", req.Email))

	reg, err := h.auth.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}

	h.logger.Info("register_success", zap.String("email", reg.Email), zap.String("user_id", reg.UserID))
	return c.Status(http.StatusCreated).JSON(dto.RegisterResponse{
		Success:   true,
		UserID:    reg.UserID,
		Email:     reg.Email,
		CreatedAt: reg.CreatedAt,
	})
}

// Login handles POST /login and POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := validation.Login(&req); err != nil {
		return err
	}
	h.logger.Info("login_attempt", zap.String("email", req.Email))

	token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.logger.Info("login_success", zap.String("email", req.Email))
	return c.JSON(dto.LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
	})
}

// Me handles GET /auth/me for a caller that passed the auth middleware.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewInvalidToken(errors.New("missing claims"))
	}

	user, err := h.auth.Profile(c.UserContext(), claims.UserID())
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

// decodeBody reads a JSON body into dst. An empty body leaves dst zero-valued so the
// validators report the missing fields. A value of the wrong JSON type becomes a field error.
func decodeBody(c *fiber.Ctx, dst any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	err := c.App().Config().JSONDecoder(body, dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return apperrors.NewValidationError(apperrors.FieldError{Message: "Expected object"})
		}
		return apperrors.NewValidationError(apperrors.FieldError{Field: typeErr.Field, Message: "Expected string, received " + typeErr.Value})
	}
	return apperrors.NewInvalidJSON()
}
