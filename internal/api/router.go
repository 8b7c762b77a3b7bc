package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/erazemk/vodnik/internal/account"
	"github.com/erazemk/vodnik/internal/favorites"
	"github.com/erazemk/vodnik/internal/metrics"
	"github.com/erazemk/vodnik/internal/search"
)

// Deps are the services the API is built on.
type Deps struct {
	Accounts  *account.Query
	Favorites *favorites.Service
	Search    *search.Orchestrator
	Metrics   *metrics.Metrics

	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
}

// NewRouter creates the API router with all endpoints registered and the
// request id, logging and CORS middleware applied.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Accounts: d.Accounts, JWTSecret: d.JWTSecret, TokenTTL: d.TokenTTL}
	searchHandler := &SearchHandler{Orchestrator: d.Search, Favorites: d.Favorites}
	favoritesHandler := &FavoritesHandler{Favorites: d.Favorites}

	authMW := AuthMiddleware(d.JWTSecret)

	// Public.
	mux.HandleFunc("GET /healthz", Health)
	mux.HandleFunc("POST /api/login", authHandler.Login)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// Authenticated routes.
	mux.Handle("GET /api/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("GET /api/search", authMW(http.HandlerFunc(searchHandler.Search)))
	mux.Handle("GET /api/favorites", authMW(http.HandlerFunc(favoritesHandler.List)))
	mux.Handle("POST /api/favorites", authMW(http.HandlerFunc(favoritesHandler.Add)))
	mux.Handle("DELETE /api/favorites", authMW(http.HandlerFunc(favoritesHandler.Remove)))

	var handler http.Handler = mux
	if len(d.CORSOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
			ExposedHeaders:   []string{RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		})(handler)
	}
	handler = LoggingMiddleware(d.Metrics)(handler)
	return RequestIDMiddleware(handler)
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
