package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/collabedit/docsync/internal/api/metrics"
	"github.com/collabedit/docsync/internal/core/domain"
	"github.com/collabedit/docsync/internal/core/ports"
)

const invalidCredentialsMessage = "Invalid credentials"

type AuthHandler struct {
	verifier ports.CredentialVerifier
}

func NewAuthHandler(verifier ports.CredentialVerifier) *AuthHandler {
	return &AuthHandler{verifier: verifier}
}

// Login checks a username/password pair. No token or session is issued; the
// caller only learns whether the pair was accepted.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials with action=login"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  loginResponse
// @Failure      422   {object}  loginResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	return h.login(c, req)
}

func (h *AuthHandler) login(c echo.Context, req loginRequest) error {
	if err := c.Validate(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return c.JSON(http.StatusUnprocessableEntity, loginResponse{Message: err.Error()})
	}

	user, err := h.verifier.Verify(c.Request().Context(), req.Username, req.Password)
	switch {
	case err == nil:
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultAccepted).Inc()
		return c.JSON(http.StatusOK, loginResponse{Success: true, User: user})
	case errors.Is(err, domain.ErrInvalidCredentials):
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return c.JSON(http.StatusUnauthorized, loginResponse{Message: invalidCredentialsMessage})
	default:
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
}
