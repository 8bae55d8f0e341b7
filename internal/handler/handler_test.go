package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"urlshort/internal/handler"
	"urlshort/internal/service"
	"urlshort/internal/storetest"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := storetest.NewMemStore()
	links := service.NewLinks(store)
	users := service.NewUsers(store, nil)
	return handler.NewHandler(links, users, "").Routes()
}

func doJSON(t *testing.T, router http.Handler, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(handler.APIKeyHeader, apiKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

type accountBody struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	APIKey   string `json:"apiKey"`
}

type shortenBody struct {
	ShortURL  string `json:"shortUrl"`
	ShortCode string `json:"shortCode"`
}

type historyItem struct {
	ID          string `json:"id"`
	OriginalURL string `json:"originalUrl"`
	ShortCode   string `json:"shortCode"`
	ClickCount  int64  `json:"clickCount"`
}

func register(t *testing.T, router http.Handler, username, email, password string) accountBody {
	t.Helper()
	rec := doJSON(t, router, "POST", "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[accountBody](t, rec)
}

func TestRegisterLoginFlow(t *testing.T) {
	router := newTestRouter(t)

	alice := register(t, router, "alice", "alice@x.com", "secret1")
	require.Len(t, alice.APIKey, 32)

	rec := doJSON(t, router, "POST", "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, alice.APIKey, decode[accountBody](t, rec).APIKey)
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnonymousShortenAndRedirect(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/url", "", map[string]string{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[shortenBody](t, rec)
	require.Len(t, body.ShortCode, 7)
	require.True(t, strings.HasSuffix(body.ShortURL, "/"+body.ShortCode))

	req := httptest.NewRequest("GET", "/"+body.ShortCode, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "https://example.com", rr.Header().Get("Location"))
}

func TestShortenInvalidURL(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/url", "", map[string]string{"url": "not-a-url"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRedirectUnknownCode(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/nothere", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedirectIncrementsClickCount(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice", "alice@x.com", "secret1")

	rec := doJSON(t, router, "POST", "/api/url", alice.APIKey, map[string]string{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	code := decode[shortenBody](t, rec).ShortCode

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/"+code, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusFound, rr.Code)
	}

	rec = doJSON(t, router, "GET", "/api/url/history", alice.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]historyItem](t, rec)
	require.Len(t, history, 1)
	require.Equal(t, int64(2), history[0].ClickCount)
}

func TestHistoryRequiresAPIKey(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/url/history", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "GET", "/api/url/history", "bogus-key", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryAndDeletes(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice", "alice@x.com", "secret1")
	bob := register(t, router, "bob", "bob@x.com", "secret1")

	for _, u := range []string{"https://a.example", "https://b.example"} {
		rec := doJSON(t, router, "POST", "/api/url", alice.APIKey, map[string]string{"url": u})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, "GET", "/api/url/history", alice.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]historyItem](t, rec)
	require.Len(t, history, 2)
	// Newest first.
	require.Equal(t, "https://b.example", history[0].OriginalURL)
	require.Equal(t, "https://a.example", history[1].OriginalURL)

	// Bob cannot delete Alice's link; it looks nonexistent to him.
	rec = doJSON(t, router, "DELETE", "/api/url/history/"+history[0].ID, bob.APIKey, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, "DELETE", "/api/url/history/"+history[0].ID, alice.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/api/url/history", alice.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]historyItem](t, rec), 1)

	// Malformed id is indistinguishable from a missing link.
	rec = doJSON(t, router, "DELETE", "/api/url/history/not-a-uuid", alice.APIKey, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Clearing history succeeds, and again on an empty history.
	rec = doJSON(t, router, "DELETE", "/api/url/history", alice.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, "DELETE", "/api/url/history", alice.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/api/url/history", alice.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]historyItem](t, rec))
}

func TestUpdateAccount(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice", "alice@x.com", "secret1")
	register(t, router, "bob", "bob@x.com", "secret1")

	rec := doJSON(t, router, "PUT", "/api/account", "", map[string]string{
		"username": "alice2", "email": "alice@x.com",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "PUT", "/api/account", alice.APIKey, map[string]string{
		"username": "", "email": "alice@x.com",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "PUT", "/api/account", alice.APIKey, map[string]string{
		"username": "alice", "email": "alice@x.com", "newPassword": "tiny",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "PUT", "/api/account", alice.APIKey, map[string]string{
		"username": "bob", "email": "alice@x.com",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, "PUT", "/api/account", alice.APIKey, map[string]string{
		"username": "alice2", "email": "alice2@x.com", "newPassword": "newsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice2", decode[accountBody](t, rec).Username)

	rec = doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"username": "alice2", "password": "newsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
