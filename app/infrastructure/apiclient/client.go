package apiclient

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"resty.dev/v3"

	"careertrack.dev/careertrack-go/app/domain/session"
)

// Page is the pagination envelope every list endpoint returns. It is cached
// verbatim under the list's resource key.
type Page[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
}

// Client issues typed requests against the backend REST API. It owns no
// state beyond its session reference; the bearer token is attached to every
// outgoing request and a single shared refresh handles 401s.
type Client struct {
	client  *resty.Client
	session *session.Session
}

func New(restyClient *resty.Client, sess *session.Session) *Client {
	return &Client{
		client:  restyClient,
		session: sess,
	}
}

// Session exposes the session the client was built with.
func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) Get(ctx context.Context, path string, params map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body any, out any) error {
	attemptToken := c.session.AccessToken()
	resp, errBody, err := c.attempt(ctx, method, path, params, body, out, attemptToken)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		// Another request may have refreshed the pair while ours was in
		// flight; reuse its token before triggering a refresh of our own.
		token := c.session.AccessToken()
		if token == "" || token == attemptToken {
			var refreshErr error
			token, refreshErr = c.session.Refresh(ctx)
			if refreshErr != nil {
				return &AuthError{Err: refreshErr}
			}
		}
		resp, errBody, err = c.attempt(ctx, method, path, params, body, out, token)
		if err != nil {
			return &NetworkError{Err: err}
		}
		if resp.StatusCode() == http.StatusUnauthorized {
			c.session.Teardown()
			return &AuthError{Err: session.ErrExpired}
		}
	}

	if resp.IsError() {
		return newAPIError(resp.StatusCode(), errBody)
	}
	return nil
}

// attempt runs one request. A fresh resty request is built per attempt so
// the 401 retry does not reuse consumed state.
func (c *Client) attempt(ctx context.Context, method, path string, params map[string]string, body any, out any, token string) (*resty.Response, APIError, error) {
	var errBody APIError
	req := c.client.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetError(&errBody)
	if token != "" {
		req.SetAuthToken(token)
	}
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	return resp, errBody, err
}
