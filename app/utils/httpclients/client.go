package httpclients

import (
	"time"

	"resty.dev/v3"
)

const defaultTimeout = 20 * time.Second

// NewClient creates a resty client with the shared defaults. The name is
// attached to outgoing requests so backend logs can tell callers apart.
func NewClient(name string) *resty.Client {
	client := resty.New()
	client.SetTimeout(defaultTimeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("X-Client-Name", name)
	return client
}
