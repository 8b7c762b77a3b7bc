package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/erazemk/vodnik/internal/favorites"
)

// FavoritesHandler manages the caller's favorites.
type FavoritesHandler struct {
	Favorites *favorites.Service
}

type favoritesRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,max=500,dive,required,max=255"`
}

type favoritesResponse struct {
	ItemIDs []string `json:"item_ids"`
}

// List handles GET /api/favorites.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	items, err := h.Favorites.Items(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("listing favorites", "user_id", claims.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list favorites")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Add handles POST /api/favorites.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "add", h.Favorites.Add)
}

// Remove handles DELETE /api/favorites.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "remove", h.Favorites.Remove)
}

func (h *FavoritesHandler) update(w http.ResponseWriter, r *http.Request, op string, apply func(ctx context.Context, userID string, itemIDs []string) error) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req favoritesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := apply(r.Context(), claims.UserID, req.ItemIDs); err != nil {
		slog.Error("updating favorites", "op", op, "user_id", claims.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update favorites")
		return
	}

	ids, err := h.Favorites.IDs(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("listing favorites", "user_id", claims.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list favorites")
		return
	}

	slog.Info("favorites updated", "op", op, "user_id", claims.UserID, "count", len(req.ItemIDs))
	jsonResponse(w, http.StatusOK, favoritesResponse{ItemIDs: ids})
}
