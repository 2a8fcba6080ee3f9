package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
	"resty.dev/v3"

	"careertrack.dev/careertrack-go/app/utils/logger"
)

// ErrExpired reports that the session could not be refreshed and has been
// torn down. Callers must re-authenticate.
var ErrExpired = errors.New("session: expired")

// Tokens is the access/refresh pair issued by the backend.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Session owns the token pair for one authenticated user. It is passed
// explicitly to the API client at construction rather than living in a
// package-level singleton.
type Session struct {
	mu       sync.RWMutex
	tokens   Tokens
	store    Store
	client   *resty.Client
	path     string
	sf       singleflight.Group
	hooks    []func()
	torndown bool
}

// New creates a session that refreshes tokens against refreshPath on the
// given client. The store may be nil for sessions that should not persist.
func New(client *resty.Client, refreshPath string, store Store) *Session {
	return &Session{
		client: client,
		path:   refreshPath,
		store:  store,
	}
}

// Init hydrates the token pair from the persistent store. A missing stored
// session is not an error; the session simply starts unauthenticated.
func (s *Session) Init() error {
	if s.store == nil {
		return nil
	}
	tokens, err := s.store.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tokens = tokens
	s.torndown = false
	s.mu.Unlock()
	return nil
}

// SetTokens installs a new token pair, persisting it when a store is
// configured. Used after login and after every successful refresh.
func (s *Session) SetTokens(tokens Tokens) error {
	s.mu.Lock()
	s.tokens = tokens
	s.torndown = false
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Save(tokens)
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != ""
}

// ExpiresAt reads the expiry claim from the access token without verifying
// the signature. Signature validation is the backend's job; the client only
// needs the timestamp to know when a refresh is coming.
func (s *Session) ExpiresAt() (time.Time, bool) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Refresh exchanges the refresh token for a new pair and returns the new
// access token. Concurrent callers share a single refresh request: the
// first 401 triggers the POST, every other waiter blocks on the same
// in-flight call. On failure the session is torn down and all waiters get
// ErrExpired.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	access, err, _ := s.sf.Do("refresh", func() (any, error) {
		return s.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return access.(string), nil
}

func (s *Session) doRefresh(ctx context.Context) (string, error) {
	s.mu.RLock()
	refresh := s.tokens.Refresh
	s.mu.RUnlock()
	if strings.TrimSpace(refresh) == "" {
		s.Teardown()
		return "", ErrExpired
	}

	var tokens Tokens
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(refreshRequest{Refresh: refresh}).
		SetResult(&tokens).
		Post(s.path)
	if err != nil {
		return "", fmt.Errorf("session: refresh request: %w", err)
	}
	if resp.IsError() || tokens.Access == "" {
		s.Teardown()
		return "", ErrExpired
	}
	if tokens.Refresh == "" {
		// Backend did not rotate the refresh token; keep the old one.
		tokens.Refresh = refresh
	}
	if err := s.SetTokens(tokens); err != nil {
		logger.GetLogger().Warnf("session: persisting refreshed tokens: %v", err)
	}
	return tokens.Access, nil
}

// OnTeardown registers a hook that runs once when the session ends, either
// by explicit logout or by a failed refresh.
func (s *Session) OnTeardown(fn func()) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Teardown clears tokens and persisted state and fires teardown hooks.
// Calling it twice is safe; hooks run only on the first call.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.torndown {
		s.mu.Unlock()
		return
	}
	s.torndown = true
	s.tokens = Tokens{}
	hooks := make([]func(), len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Clear(); err != nil {
			logger.GetLogger().Warnf("session: clearing stored tokens: %v", err)
		}
	}
	for _, hook := range hooks {
		hook()
	}
}

// Close releases the persistent store, leaving stored tokens intact.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
