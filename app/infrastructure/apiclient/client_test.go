package apiclient_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"careertrack.dev/careertrack-go/app/domain/session"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/utils/httpclients"
)

// backend is a hand-driven replacement for the real API: every /api request
// checks the bearer token against the current good token, and /refresh
// rotates it.
type backend struct {
	mu           sync.Mutex
	goodToken    string
	refreshCalls atomic.Int64
	dataCalls    atomic.Int64
	srv          *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{goodToken: "token-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		time.Sleep(30 * time.Millisecond) // let concurrent 401 handlers pile onto this refresh
		b.mu.Lock()
		b.goodToken = "token-2"
		token := b.goodToken
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(session.Tokens{Access: token, Refresh: "refresh-2"})
	})
	mux.HandleFunc("GET /api/v1/things", func(w http.ResponseWriter, r *http.Request) {
		b.dataCalls.Add(1)
		b.mu.Lock()
		good := b.goodToken
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+good {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
			return
		}
		json.NewEncoder(w).Encode(apiclient.Page[string]{Results: []string{"a", "b"}, Count: 2})
	})
	mux.HandleFunc("POST /api/v1/things", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "validation failed",
			"field_errors": map[string][]string{
				"title": {"title is required"},
			},
		})
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func newClient(t *testing.T, b *backend, access string) *apiclient.Client {
	t.Helper()
	restyClient := httpclients.NewClient("test").SetBaseURL(b.srv.URL)
	sess := session.New(restyClient, "/api/v1/auth/refresh", nil)
	if err := sess.SetTokens(session.Tokens{Access: access, Refresh: "refresh-1"}); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	return apiclient.New(restyClient, sess)
}

func TestGetWithValidToken(t *testing.T) {
	b := newBackend(t)
	api := newClient(t, b, "token-1")

	var page apiclient.Page[string]
	if err := api.Get(t.Context(), "/api/v1/things", nil, &page); err != nil {
		t.Fatalf("get: %v", err)
	}
	if page.Count != 2 || len(page.Results) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if got := b.refreshCalls.Load(); got != 0 {
		t.Fatalf("no refresh expected, got %d", got)
	}
}

func TestExpiredTokenRefreshedAndRetriedOnce(t *testing.T) {
	b := newBackend(t)
	api := newClient(t, b, "stale-token")

	var page apiclient.Page[string]
	if err := api.Get(t.Context(), "/api/v1/things", nil, &page); err != nil {
		t.Fatalf("get after refresh: %v", err)
	}
	if page.Count != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected 1 refresh, got %d", got)
	}
	// Original 401 plus the single retry.
	if got := b.dataCalls.Load(); got != 2 {
		t.Fatalf("expected 2 data requests, got %d", got)
	}
	if api.Session().AccessToken() != "token-2" {
		t.Fatal("session should carry the refreshed token")
	}
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	b := newBackend(t)
	api := newClient(t, b, "stale-token")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var page apiclient.Page[string]
			errs[i] = api.Get(t.Context(), "/api/v1/things", nil, &page)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("concurrent 401s must share one refresh, got %d", got)
	}
}

func TestSecond401SurfacesAuthError(t *testing.T) {
	// A backend that always 401s the data endpoint, even after refresh.
	mux := http.NewServeMux()
	var refreshCalls atomic.Int64
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(session.Tokens{Access: "new-token", Refresh: "new-refresh"})
	})
	mux.HandleFunc("GET /api/v1/things", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	restyClient := httpclients.NewClient("test").SetBaseURL(srv.URL)
	sess := session.New(restyClient, "/api/v1/auth/refresh", nil)
	sess.SetTokens(session.Tokens{Access: "a", Refresh: "r"})
	api := apiclient.New(restyClient, sess)

	err := api.Get(t.Context(), "/api/v1/things", nil, nil)
	var authErr *apiclient.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh attempt, got %d", got)
	}
	if sess.Authenticated() {
		t.Fatal("session should be torn down after the retry also 401s")
	}
}

func TestValidationErrorBodyParsed(t *testing.T) {
	b := newBackend(t)
	api := newClient(t, b, "token-1")

	err := api.Post(t.Context(), "/api/v1/things", map[string]string{}, nil)
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "validation failed" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	if msgs := apiErr.FieldErrors["title"]; len(msgs) != 1 || msgs[0] != "title is required" {
		t.Fatalf("unexpected field errors %v", apiErr.FieldErrors)
	}
}

func TestErrorWithoutBodyFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	restyClient := httpclients.NewClient("test").SetBaseURL(srv.URL)
	sess := session.New(restyClient, "/refresh", nil)
	sess.SetTokens(session.Tokens{Access: "a", Refresh: "r"})
	api := apiclient.New(restyClient, sess)

	err := api.Get(t.Context(), "/anything", nil, nil)
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Message, "Bad Gateway") {
		t.Fatalf("expected status-text fallback, got %q", apiErr.Message)
	}
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	restyClient := httpclients.NewClient("test").SetBaseURL("http://127.0.0.1:1")
	sess := session.New(restyClient, "/refresh", nil)
	sess.SetTokens(session.Tokens{Access: "a", Refresh: "r"})
	api := apiclient.New(restyClient, sess)

	err := api.Get(t.Context(), "/api/v1/things", nil, nil)
	var netErr *apiclient.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}
