package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"careertrack.dev/careertrack-go/app/domain/session"
	"careertrack.dev/careertrack-go/app/utils/httpclients"
)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func refreshServer(t *testing.T, calls *atomic.Int64, fail bool) *httptest.Server {
	t.Helper()
	rotated := session.Tokens{
		Access:  mintToken(t, time.Now().Add(time.Hour)),
		Refresh: "rotated-refresh",
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/auth/refresh" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "refresh token revoked"})
			return
		}
		var body struct {
			Refresh string `json:"refresh"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Refresh == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		time.Sleep(20 * time.Millisecond) // hold the request so waiters pile up
		json.NewEncoder(w).Encode(rotated)
	}))
}

func TestRefreshSharedAcrossConcurrentCallers(t *testing.T) {
	var calls atomic.Int64
	srv := refreshServer(t, &calls, false)
	defer srv.Close()

	client := httpclients.NewClient("test").SetBaseURL(srv.URL)
	s := session.New(client, "/api/v1/auth/refresh", nil)
	if err := s.SetTokens(session.Tokens{Access: "old", Refresh: "valid-refresh"}); err != nil {
		t.Fatalf("set tokens: %v", err)
	}

	var wg sync.WaitGroup
	accessed := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			access, err := s.Refresh(context.Background())
			if err != nil {
				t.Errorf("refresh %d: %v", i, err)
				return
			}
			accessed[i] = access
		}(i)
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh request, got %d", got)
	}
	for i := 1; i < len(accessed); i++ {
		if accessed[i] != accessed[0] {
			t.Fatal("all waiters should receive the same access token")
		}
	}
	if s.AccessToken() != accessed[0] {
		t.Fatal("session should hold the refreshed access token")
	}
}

func TestRefreshFailureTearsDownSession(t *testing.T) {
	var calls atomic.Int64
	srv := refreshServer(t, &calls, true)
	defer srv.Close()

	client := httpclients.NewClient("test").SetBaseURL(srv.URL)
	s := session.New(client, "/api/v1/auth/refresh", nil)
	s.SetTokens(session.Tokens{Access: "old", Refresh: "revoked"})

	var hookRuns atomic.Int64
	s.OnTeardown(func() { hookRuns.Add(1) })

	if _, err := s.Refresh(context.Background()); !errors.Is(err, session.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if s.Authenticated() {
		t.Fatal("session should be unauthenticated after a failed refresh")
	}
	if got := hookRuns.Load(); got != 1 {
		t.Fatalf("teardown hook should run once, ran %d times", got)
	}

	// Teardown is idempotent; a second call must not re-run hooks.
	s.Teardown()
	if got := hookRuns.Load(); got != 1 {
		t.Fatalf("hooks re-ran on second teardown: %d", got)
	}
}

func TestRefreshWithoutRefreshTokenExpires(t *testing.T) {
	client := httpclients.NewClient("test")
	s := session.New(client, "/api/v1/auth/refresh", nil)
	if _, err := s.Refresh(context.Background()); !errors.Is(err, session.ErrExpired) {
		t.Fatalf("expected ErrExpired for empty session, got %v", err)
	}
}

func TestExpiresAtReadsClaimWithoutVerification(t *testing.T) {
	client := httpclients.NewClient("test")
	s := session.New(client, "/refresh", nil)

	exp := time.Now().Add(45 * time.Minute).Truncate(time.Second)
	s.SetTokens(session.Tokens{Access: mintToken(t, exp), Refresh: "r"})

	got, ok := s.ExpiresAt()
	if !ok {
		t.Fatal("expected an expiry claim")
	}
	if !got.Equal(exp) {
		t.Fatalf("expected expiry %v, got %v", exp, got)
	}

	s.SetTokens(session.Tokens{Access: "not-a-jwt", Refresh: "r"})
	if _, ok := s.ExpiresAt(); ok {
		t.Fatal("malformed token should not yield an expiry")
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := session.OpenBoltStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("empty store should report ErrNoSession, got %v", err)
	}

	tokens := session.Tokens{Access: "a-token", Refresh: "r-token"}
	if err := store.Save(tokens); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen: tokens survive the process boundary.
	store, err = session.OpenBoltStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != tokens {
		t.Fatalf("expected %+v, got %+v", tokens, loaded)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("cleared store should report ErrNoSession, got %v", err)
	}
}

func TestInitHydratesFromStore(t *testing.T) {
	store := session.NewMemoryStore()
	store.Save(session.Tokens{Access: "persisted-access", Refresh: "persisted-refresh"})

	client := httpclients.NewClient("test")
	s := session.New(client, "/refresh", store)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if s.AccessToken() != "persisted-access" {
		t.Fatalf("expected hydrated access token, got %q", s.AccessToken())
	}

	// A fresh session over an empty store starts unauthenticated.
	empty := session.New(client, "/refresh", session.NewMemoryStore())
	if err := empty.Init(); err != nil {
		t.Fatalf("init empty: %v", err)
	}
	if empty.Authenticated() {
		t.Fatal("empty store should leave the session unauthenticated")
	}
}
