package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vodnik/internal/account"
	"github.com/erazemk/vodnik/internal/db"
	"github.com/erazemk/vodnik/internal/favorites"
	"github.com/erazemk/vodnik/internal/metrics"
	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/search"
	"github.com/erazemk/vodnik/internal/store"
)

const testJWTSecret = "test-secret"

type fakeProvider struct {
	items []model.Item
	err   error
}

func (f *fakeProvider) Search(context.Context, float64, float64, string) ([]model.Item, error) {
	return f.items, f.err
}

type testEnv struct {
	server   *httptest.Server
	store    *store.SQLite
	provider *fakeProvider
	token    string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewSQLite(db.NewTestDB(t))
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, model.User{
		UserID: "u1", FirstName: "Ann", LastName: "Lee", Password: "secret",
	}))

	provider := &fakeProvider{}
	m := metrics.New()
	router := NewRouter(Deps{
		Accounts:    account.NewQuery(s),
		Favorites:   favorites.NewService(s),
		Search:      search.New(provider, s, m),
		Metrics:     m,
		JWTSecret:   testJWTSecret,
		CORSOrigins: []string{"http://app.test"},
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, store: s, provider: provider}
	env.token = env.login(t, "u1", "secret")
	return env
}

func (e *testEnv) login(t *testing.T, userID, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/login", "", map[string]string{"user_id": userID, "password": password})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"wrong password", map[string]string{"user_id": "u1", "password": "wrong"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"user_id": "u2", "password": "secret"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"user_id": "u1"}, http.StatusBadRequest},
		{"unknown field", map[string]string{"user_id": "u1", "password": "secret", "role": "admin"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/login", "", tt.body)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestLoginReturnsName(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/login", "", map[string]string{"user_id": "u1", "password": "secret"})
	body := decode[loginResponse](t, resp)
	assert.Equal(t, "u1", body.UserID)
	assert.Equal(t, "Ann Lee", body.Name)
}

func TestLoginStoreUnavailable(t *testing.T) {
	router := NewRouter(Deps{
		Accounts:  account.NewQuery(store.NewSQLite(nil)),
		JWTSecret: testJWTSecret,
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"user_id":"u1","password":"secret"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMe(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/api/me", env.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[meResponse](t, resp)
	assert.Equal(t, meResponse{UserID: "u1", Name: "Ann Lee"}, body)
}

func TestUnauthenticated(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/api/me", "/api/favorites", "/api/search?lat=1&lon=1"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp = env.do(t, http.MethodGet, path, "garbage", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestSearchMarksFavorites(t *testing.T) {
	env := setupTestServer(t)
	env.provider.items = []model.Item{
		{ItemID: "A", Name: "Jazz"},
		{ItemID: "B", Name: "Rock"},
		{ItemID: "A", Name: "Jazz again"},
	}
	require.NoError(t, env.store.AddFavorites(context.Background(), "u1", []string{"B"}))

	resp := env.do(t, http.MethodGet, "/api/search?lat=40.7&lon=-74&term=jazz", env.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decode[[]searchResult](t, resp)

	require.Len(t, results, 3)
	assert.Equal(t, "A", results[0].ItemID)
	assert.False(t, results[0].Favorite)
	assert.True(t, results[1].Favorite)
	assert.Equal(t, "Jazz again", results[2].Name)

	stored, err := env.store.GetItem(context.Background(), "A")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Jazz", stored.Name)
}

func TestSearchBadQuery(t *testing.T) {
	env := setupTestServer(t)

	for _, q := range []string{"", "?lat=abc&lon=1", "?lat=91&lon=0", "?lat=0&lon=181"} {
		resp := env.do(t, http.MethodGet, "/api/search"+q, env.token, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestSearchProviderFailure(t *testing.T) {
	env := setupTestServer(t)
	env.provider.err = errors.New("upstream down")

	resp := env.do(t, http.MethodGet, "/api/search?lat=0&lon=0", env.token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestFavoritesLifecycle(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		_, err := env.store.SaveItem(ctx, model.Item{ItemID: id, Name: "Item " + id, Categories: []string{"Music"}})
		require.NoError(t, err)
	}

	resp := env.do(t, http.MethodPost, "/api/favorites", env.token, map[string]any{"item_ids": []string{"b", "a", "orphan"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ids := decode[favoritesResponse](t, resp)
	assert.Equal(t, []string{"a", "b", "orphan"}, ids.ItemIDs)

	resp = env.do(t, http.MethodGet, "/api/favorites", env.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[[]model.Item](t, resp)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ItemID)
	assert.Equal(t, []string{"Music"}, items[0].Categories)

	resp = env.do(t, http.MethodDelete, "/api/favorites", env.token, map[string]any{"item_ids": []string{"a", "orphan"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ids = decode[favoritesResponse](t, resp)
	assert.Equal(t, []string{"b"}, ids.ItemIDs)
}

func TestFavoritesValidation(t *testing.T) {
	env := setupTestServer(t)

	for _, body := range []any{
		map[string]any{},
		map[string]any{"item_ids": []string{}},
		map[string]any{"item_ids": []string{""}},
	} {
		resp := env.do(t, http.MethodPost, "/api/favorites", env.token, body)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/metrics", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vodnik_http_requests_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := setupTestServer(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/api/favorites", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
}
