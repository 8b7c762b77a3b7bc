package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/vodnik/internal/account"
	"github.com/erazemk/vodnik/internal/auth"
	"github.com/erazemk/vodnik/internal/store"
)

// AuthHandler handles login and the current user.
type AuthHandler struct {
	Accounts  *account.Query
	JWTSecret string
	TokenTTL  time.Duration
}

type loginRequest struct {
	UserID   string `json:"user_id" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type meResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// accountError maps account lookup failures to a response.
func accountError(w http.ResponseWriter, err error, notFound int) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, notFound, "invalid credentials")
	case errors.Is(err, store.ErrUnavailable):
		jsonError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		slog.Error("account lookup", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.Accounts.VerifyLogin(r.Context(), req.UserID, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("login failed", "user_id", req.UserID, "remote", r.RemoteAddr)
		}
		accountError(w, err, http.StatusUnauthorized)
		return
	}
	if !ok {
		slog.Warn("login failed", "user_id", req.UserID, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	name, err := h.Accounts.FullName(r.Context(), req.UserID)
	if err != nil {
		accountError(w, err, http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, req.UserID, name, h.TokenTTL)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user logged in", "user_id", req.UserID)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, UserID: req.UserID, Name: name})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	name, err := h.Accounts.FullName(r.Context(), claims.UserID)
	if err != nil {
		accountError(w, err, http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, meResponse{UserID: claims.UserID, Name: name})
}
