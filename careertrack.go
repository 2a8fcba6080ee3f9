// Package careertrack is the Go client for the CareerTrack job-application
// tracking API. It wraps the REST backend in typed resource services backed
// by a stale-while-revalidate query cache, so consumers read cached
// snapshots and submit changes through mutations that keep the cache
// coherent.
package careertrack

import (
	"time"

	"resty.dev/v3"

	"careertrack.dev/careertrack-go/app/domain/account"
	"careertrack.dev/careertrack-go/app/domain/application"
	"careertrack.dev/careertrack-go/app/domain/assist"
	"careertrack.dev/careertrack-go/app/domain/common"
	"careertrack.dev/careertrack-go/app/domain/company"
	"careertrack.dev/careertrack-go/app/domain/interview"
	"careertrack.dev/careertrack-go/app/domain/note"
	"careertrack.dev/careertrack-go/app/domain/notification"
	"careertrack.dev/careertrack-go/app/domain/resume"
	"careertrack.dev/careertrack-go/app/domain/session"
	"careertrack.dev/careertrack-go/app/domain/webhook"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
	"careertrack.dev/careertrack-go/app/utils/httpclients"
)

const refreshPath = "/api/v1/auth/refresh"

type Config struct {
	// BaseURL of the CareerTrack backend, e.g. https://api.careertrack.dev.
	BaseURL string

	// SessionPath is the bolt file for persisted tokens. Empty means the
	// session lives in memory only.
	SessionPath string

	// Timeout bounds every HTTP request. Zero keeps the default.
	Timeout time.Duration

	// StaleAfter is the default cache freshness window.
	StaleAfter time.Duration

	// GCGrace is how long unwatched cache entries linger.
	GCGrace time.Duration
}

// Client bundles the session, the HTTP layer, the query cache, and one
// service per API resource.
type Client struct {
	Session *session.Session
	API     *apiclient.Client
	Cache   *cache.Store

	Applications  *application.Service
	Companies     *company.Service
	Interviews    *interview.Service
	Notes         *note.Service
	Resumes       *resume.Service
	Notifications *notification.Service
	Webhooks      *webhook.Service
	Account       *account.Service
	Assist        *assist.Service

	httpClient *resty.Client
}

func New(cfg Config) (*Client, error) {
	httpClient := httpclients.NewClient("careertrack-go")
	httpClient.SetBaseURL(cfg.BaseURL)
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	var store session.Store
	if cfg.SessionPath != "" {
		boltStore, err := session.OpenBoltStore(cfg.SessionPath)
		if err != nil {
			return nil, common.NewError(err, "185af6b6-681f-4a46-8572-e5827f41b20b")
		}
		store = boltStore
	} else {
		store = session.NewMemoryStore()
	}

	sess := session.New(httpClient, refreshPath, store)
	if err := sess.Init(); err != nil {
		return nil, common.NewError(err, "c8642941-e1e5-4fa1-b828-35efe736fa4d")
	}

	api := apiclient.New(httpClient, sess)
	cacheStore := cache.NewStore(cache.Options{
		DefaultStaleAfter: cfg.StaleAfter,
		GCGrace:           cfg.GCGrace,
		FetchTimeout:      cfg.Timeout,
	})

	return &Client{
		Session:       sess,
		API:           api,
		Cache:         cacheStore,
		Applications:  application.NewService(api, cacheStore),
		Companies:     company.NewService(api, cacheStore),
		Interviews:    interview.NewService(api, cacheStore),
		Notes:         note.NewService(api, cacheStore),
		Resumes:       resume.NewService(api, cacheStore),
		Notifications: notification.NewService(api, cacheStore),
		Webhooks:      webhook.NewService(api, cacheStore),
		Account:       account.NewService(api, cacheStore, sess),
		Assist:        assist.NewService(api),
		httpClient:    httpClient,
	}, nil
}

// Close releases the cache, the session store, and the HTTP client.
// Persisted tokens survive; use Account.Logout to end the session itself.
func (c *Client) Close() error {
	c.Cache.Close()
	err := c.Session.Close()
	if closeErr := c.httpClient.Close(); err == nil {
		err = closeErr
	}
	return err
}
