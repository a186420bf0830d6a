package echo

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	app "github.com/mohammadpnp/wiki-auth/internal/application/auth"
	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/remote"
)

// Authenticator is the negotiation surface the login endpoint drives.
type Authenticator interface {
	BeginAuthentication(ctx context.Context, req app.LoginRequest) (app.Result, error)
	TestUserExists(ctx context.Context, username string) (bool, error)
}

// ProfileImporter materializes a local account from an authenticated remote
// session.
type ProfileImporter interface {
	CompleteAccountCreation(ctx context.Context, client app.RemoteClient, account *domain.Account) error
}

type AuthHandler struct {
	negotiator Authenticator
	importer   ProfileImporter
	accounts   domain.AccountStore
	logger     logrus.FieldLogger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type passwordResetBody struct {
	Required bool `json:"required"`
	Hard     bool `json:"hard"`
}

type loginResponseBody struct {
	Username      string            `json:"username"`
	PasswordReset passwordResetBody `json:"password_reset"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func NewAuthHandler(negotiator Authenticator, importer ProfileImporter, accounts domain.AccountStore, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		negotiator: negotiator,
		importer:   importer,
		accounts:   accounts,
		logger:     logger,
	}
}

// Login delegates the credential to the remote wiki and, on success,
// materializes the local account and runs the profile import.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "invalid request body",
		}})
	}

	ctx := c.Request().Context()

	result, err := h.negotiator.BeginAuthentication(ctx, app.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		var transportErr *remote.TransportError
		var protocolErr *remote.ProtocolError
		if errors.As(err, &transportErr) || errors.As(err, &protocolErr) || errors.Is(err, remote.ErrNotConfigured) {
			h.logger.WithError(err).Error("remote wiki unreachable or misbehaving")
			return c.JSON(http.StatusBadGateway, apiResponse{Error: &errorBody{
				Code:    "remote_misconfigured",
				Message: "the remote wiki could not be reached",
			}})
		}
		h.logger.WithError(err).Error("authentication negotiation failed")
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "authentication could not be completed",
		}})
	}

	switch result.Status {
	case app.StatusAbstain:
		return c.JSON(http.StatusUnauthorized, apiResponse{Error: &errorBody{
			Code:    "not_handled",
			Message: "this account is not handled by remote authentication",
		}})
	case app.StatusFail:
		return c.JSON(http.StatusUnauthorized, apiResponse{Error: &errorBody{
			Code:    "auth_failed",
			Message: result.Message,
		}})
	}

	if !result.StubImported {
		account, err := h.materializeAccount(c, result.Username)
		if err != nil {
			h.logger.WithError(err).WithField("username", result.Username).
				Error("failed to materialize local account")
			return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
				Code:    "internal_error",
				Message: "account could not be created locally",
			}})
		}
		if err := h.importer.CompleteAccountCreation(ctx, result.Session, account); err != nil {
			// The user is authenticated regardless; a failed import is
			// recoverable on a later login.
			h.logger.WithError(err).WithField("username", result.Username).
				Error("profile import failed")
		}
	}

	return c.JSON(http.StatusOK, apiResponse{Data: loginResponseBody{
		Username: result.Username,
		PasswordReset: passwordResetBody{
			Required: result.PasswordReset.Required,
			Hard:     result.PasswordReset.Hard,
		},
	}})
}

func (h *AuthHandler) materializeAccount(c echo.Context, username string) (*domain.Account, error) {
	ctx := c.Request().Context()

	account, err := h.accounts.FindByName(ctx, username)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	return h.accounts.Create(ctx, username)
}

// UserExists reports whether a username is already claimed on the remote
// wiki, so the host can block colliding local registrations.
func (h *AuthHandler) UserExists(c echo.Context) error {
	username := c.QueryParam("username")
	if username == "" {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "username is required",
		}})
	}

	exists, err := h.negotiator.TestUserExists(c.Request().Context(), username)
	if err != nil {
		h.logger.WithError(err).Error("remote existence check failed")
		return c.JSON(http.StatusBadGateway, apiResponse{Error: &errorBody{
			Code:    "remote_misconfigured",
			Message: "the remote wiki could not be reached",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: map[string]bool{"exists": exists}})
}
