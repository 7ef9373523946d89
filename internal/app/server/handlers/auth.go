package handlers

import (
	"context"
	"net/http"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"github.com/IdiegeA21/chat-app/internal/core/services"
	"github.com/IdiegeA21/chat-app/pkg/logging"
	"github.com/IdiegeA21/chat-app/pkg/middleware"
)

type UserService interface {
	Register(ctx context.Context, username, email, password string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Logout(ctx context.Context, userID int64) error
	Profile(ctx context.Context, userID int64) (*domain.User, error)
}

type AuthHandler struct {
	users UserService
}

func NewAuthHandler(users UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, "auth handler - register", err)
		return
	}
	logging.FromContext(r.Context()).InfoContext(r.Context(), "auth handler - register - success", logging.User(res.User.ID))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, "auth handler - login", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	if err := h.users.Logout(r.Context(), user.ID); err != nil {
		writeDomainError(w, r, "auth handler - logout", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	profile, err := h.users.Profile(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, "auth handler - profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}
