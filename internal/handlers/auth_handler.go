package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/auth"
)

// AuthServiceInterface defines the methods needed from the auth service
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Logout(ctx context.Context, token string)
}

// AuthHandler handles account registration and login HTTP requests
type AuthHandler struct {
	authService AuthServiceInterface
	logger      arbor.ILogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthServiceInterface, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterHandler handles POST /api/auth/register - creates a new account
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			WriteError(w, http.StatusConflict, "Email is already registered")
			return
		}
		h.logger.Warn().Err(err).Msg("Registration rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().Str("email", user.Email).Msg("Account registered")

	WriteJSON(w, http.StatusCreated, map[string]string{
		"status": "success",
		"email":  user.Email,
	})
}

// LoginHandler handles POST /api/auth/login - issues a session token
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			WriteError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error().Err(err).Msg("Login failed")
		WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.logger.Info().Str("email", session.Email).Msg("Session issued")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"token":      session.Token,
		"email":      session.Email,
		"expires_at": session.ExpiresAt,
	})
}

// LogoutHandler handles POST /api/auth/logout - revokes a session token
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	token := bearerToken(r)
	if token == "" {
		WriteError(w, http.StatusBadRequest, "Missing bearer token")
		return
	}

	h.authService.Logout(r.Context(), token)
	WriteSuccess(w, "Logged out")
}
