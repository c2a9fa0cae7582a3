package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// BaseURLResolver yields the API root that endpoints are appended to.
type BaseURLResolver interface {
	BaseURL(ctx context.Context) (string, error)
}

// StaticBaseURL is a fixed API root.
type StaticBaseURL string

func (s StaticBaseURL) BaseURL(context.Context) (string, error) {
	if s == "" {
		return "", errors.New("empty api base url")
	}
	return strings.TrimRight(string(s), "/"), nil
}

// RemoteBaseURL looks the API root up from a config endpoint answering
// {"apiBaseUrl": "..."}.
type RemoteBaseURL struct {
	ConfigURL string
	Client    *http.Client
}

func (r RemoteBaseURL) BaseURL(ctx context.Context) (string, error) {
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.ConfigURL, nil)
	if err != nil {
		return "", fmt.Errorf("build config request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch config %s: %w", r.ConfigURL, err)
	}
	var out struct {
		APIBaseURL string `json:"apiBaseUrl"`
	}
	if err := DecodeJSON(resp, &out); err != nil {
		return "", fmt.Errorf("fetch config %s: %w", r.ConfigURL, err)
	}
	if out.APIBaseURL == "" {
		return "", fmt.Errorf("config %s: apiBaseUrl missing", r.ConfigURL)
	}
	return strings.TrimRight(out.APIBaseURL, "/"), nil
}

// CachedBaseURL remembers the first successful resolution. Failures are not
// cached; the next call resolves again.
//
// Concurrent callers share one in-flight resolution. Each caller waits only as
// long as its own context allows; the shared resolution runs detached from any
// single caller's cancellation.
type CachedBaseURL struct {
	next  BaseURLResolver
	group singleflight.Group
	value atomic.Pointer[string]
}

func Cached(next BaseURLResolver) *CachedBaseURL {
	return &CachedBaseURL{next: next}
}

func (c *CachedBaseURL) BaseURL(ctx context.Context) (string, error) {
	if v := c.value.Load(); v != nil {
		return *v, nil
	}
	ch := c.group.DoChan("base-url", func() (any, error) {
		if v := c.value.Load(); v != nil {
			return *v, nil
		}
		url, err := c.next.BaseURL(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		c.value.Store(&url)
		return url, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}
