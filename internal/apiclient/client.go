// Package apiclient issues requests to the storefront REST API, attaching the
// session's bearer token and refreshing it once on 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"time"

	"noor-storefront/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// RefreshEndpoint exchanges a refresh token for a new access token.
const RefreshEndpoint = "/auth/token/refresh/"

const DefaultTimeout = 5 * time.Second

// TokenStore is the part of the session the pipeline reads and updates.
type TokenStore interface {
	Tokens() (access, refresh string)
	SetAccessToken(token string)
	ClearAuth()
}

type Config struct {
	BaseURL BaseURLResolver
	Tokens  TokenStore
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Timeout bounds every attempt, refresh included. Defaults to DefaultTimeout.
	Timeout time.Duration
	Logger  *log.Logger
}

type Client struct {
	baseURL BaseURLResolver
	tokens  TokenStore
	logger  *log.Logger

	// credentialed keeps cookies across calls; anonymous sends none.
	credentialed *http.Client
	anonymous    *http.Client

	refreshes singleflight.Group
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == nil {
		return nil, errors.New("apiclient: base url resolver required")
	}
	if cfg.Tokens == nil {
		cfg.Tokens = noTokens{}
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("apiclient: cookie jar: %w", err)
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		tokens:       cfg.Tokens,
		logger:       cfg.Logger,
		credentialed: &http.Client{Transport: cfg.Transport, Timeout: cfg.Timeout, Jar: jar},
		anonymous:    &http.Client{Transport: cfg.Transport, Timeout: cfg.Timeout},
	}, nil
}

type requestOptions struct {
	requiresAuth bool
	headers      http.Header
}

type Option func(*requestOptions)

// Anonymous sends the request without bearer token or cookies and skips the
// refresh protocol.
func Anonymous() Option {
	return func(o *requestOptions) { o.requiresAuth = false }
}

// WithHeader sets a request header. It overrides the defaults.
func WithHeader(key, value string) Option {
	return func(o *requestOptions) { o.headers.Set(key, value) }
}

// Do sends one logical request. On a 401 for an authenticated request with a
// refresh token present it refreshes the access token once and retries once.
// If the refresh fails the session is cleared and the original 401 response is
// returned with its body intact. The caller closes the returned body.
func (c *Client) Do(ctx context.Context, method, endpoint string, body []byte, opts ...Option) (*http.Response, error) {
	o := requestOptions{requiresAuth: true, headers: make(http.Header)}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := c.baseURL.BaseURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve api base url: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set("X-Request-ID", uuid.NewString())
	for k, v := range o.headers {
		header[k] = v
	}

	access, refresh := c.tokens.Tokens()
	client := c.anonymous
	if o.requiresAuth {
		client = c.credentialed
		if access != "" {
			header.Set("Authorization", "Bearer "+access)
		}
	}

	url := base + endpoint
	resp, err := c.send(ctx, client, method, url, header, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !o.requiresAuth || refresh == "" {
		return resp, nil
	}

	original := c.buffered(resp)
	newAccess, err := c.refreshAccess(ctx, base, refresh)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			original.Body.Close()
			return nil, ctxErr
		}
		return original, nil
	}
	original.Body.Close()

	header.Set("Authorization", "Bearer "+newAccess)
	return c.send(ctx, client, method, url, header, body)
}

func (c *Client) Get(ctx context.Context, endpoint string, opts ...Option) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, nil, opts...)
}

func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...Option) (*http.Response, error) {
	return c.withJSON(ctx, http.MethodPost, endpoint, body, opts)
}

func (c *Client) Put(ctx context.Context, endpoint string, body any, opts ...Option) (*http.Response, error) {
	return c.withJSON(ctx, http.MethodPut, endpoint, body, opts)
}

func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts ...Option) (*http.Response, error) {
	return c.withJSON(ctx, http.MethodPatch, endpoint, body, opts)
}

func (c *Client) Delete(ctx context.Context, endpoint string, opts ...Option) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, opts...)
}

func (c *Client) withJSON(ctx context.Context, method, endpoint string, body any, opts []Option) (*http.Response, error) {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, endpoint, err)
		}
	}
	return c.Do(ctx, method, endpoint, raw, opts...)
}

func (c *Client) send(ctx context.Context, client *http.Client, method, url string, header http.Header, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = header.Clone()

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Printf("apiclient: request failed method=%s url=%s request_id=%s err=%v", method, url, header.Get("X-Request-ID"), err)
		return nil, fmt.Errorf("%s %s: %w: %w", method, url, domain.ErrUnavailable, err)
	}
	return resp, nil
}

// refreshAccess shares one refresh among all callers holding the same refresh
// token. The shared refresh is not cancelled when one waiter gives up.
func (c *Client) refreshAccess(ctx context.Context, base, refresh string) (string, error) {
	ch := c.refreshes.DoChan(refresh, func() (any, error) {
		access, err := c.refresh(context.WithoutCancel(ctx), base, refresh)
		if err != nil {
			c.logger.Printf("apiclient: token refresh failed, clearing session err=%v", err)
			// A new login may have replaced the pair while the refresh ran.
			if _, current := c.tokens.Tokens(); current == refresh {
				c.tokens.ClearAuth()
			}
			return "", err
		}
		c.tokens.SetAccessToken(access)
		return access, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) refresh(ctx context.Context, base, refresh string) (string, error) {
	body, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return "", err
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.send(ctx, c.credentialed, http.MethodPost, base+RefreshEndpoint, header, body)
	if err != nil {
		return "", err
	}
	var out struct {
		Access string `json:"access"`
	}
	if err := DecodeJSON(resp, &out); err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	if out.Access == "" {
		return "", errors.New("refresh: response carries no access token")
	}
	return out.Access, nil
}

// buffered reads up to maxErrorBody of resp's body into memory so it stays
// readable after the connection is reused. A failed read keeps what arrived.
func (c *Client) buffered(resp *http.Response) *http.Response {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		c.logger.Printf("apiclient: buffer unauthorized body url=%s read=%d err=%v", resp.Request.URL, len(data), err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.ContentLength = int64(len(data))
	return resp
}

type noTokens struct{}

func (noTokens) Tokens() (string, string) { return "", "" }
func (noTokens) SetAccessToken(string)    {}
func (noTokens) ClearAuth()               {}
