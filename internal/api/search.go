package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/erazemk/vodnik/internal/favorites"
	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/search"
)

// SearchHandler serves provider searches annotated with the caller's
// favorites.
type SearchHandler struct {
	Orchestrator *search.Orchestrator
	Favorites    *favorites.Service
}

type searchQuery struct {
	Lat  float64 `validate:"latitude"`
	Lon  float64 `validate:"longitude"`
	Term string  `validate:"max=200"`
}

type searchResult struct {
	model.Item
	Favorite bool `json:"favorite"`
}

func parseSearchQuery(r *http.Request) (searchQuery, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return searchQuery{}, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return searchQuery{}, errors.New("lon must be a number")
	}

	sq := searchQuery{Lat: lat, Lon: lon, Term: q.Get("term")}
	if err := validateStruct(&sq); err != nil {
		return searchQuery{}, err
	}
	return sq, nil
}

// Search handles GET /api/search?lat=&lon=&term=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	sq, err := parseSearchQuery(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.Orchestrator.Search(r.Context(), sq.Lat, sq.Lon, sq.Term)
	if err != nil {
		slog.Error("search failed", "error", err, "request_id", RequestID(r.Context()))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			jsonError(w, http.StatusServiceUnavailable, "search provider temporarily unavailable")
			return
		}
		jsonError(w, http.StatusBadGateway, "search provider failed")
		return
	}

	ids, err := h.Favorites.IDs(r.Context(), claims.UserID)
	if err != nil {
		slog.Warn("loading favorites for search", "error", err)
		ids = nil
	}
	fav := make(map[string]bool, len(ids))
	for _, id := range ids {
		fav[id] = true
	}

	results := make([]searchResult, 0, len(items))
	for _, item := range items {
		results = append(results, searchResult{Item: item, Favorite: fav[item.ItemID]})
	}
	jsonResponse(w, http.StatusOK, results)
}
