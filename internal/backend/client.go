// Package backend is the HTTP client of the store backend API. Every call
// carries the session token and goes through a shared rate limiter.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const csrfCookie = "csrftoken"

// TokenSource provides the current session token, empty when logged out.
type TokenSource interface {
	Token() string
}

type Options struct {
	BaseURL           string
	AuthScheme        string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Tokens            TokenSource
	// OnUnauthorized runs before a 401/403 is returned to the caller.
	OnUnauthorized func(ctx context.Context)
	HTTPClient     *http.Client
}

type Client struct {
	baseURL        *url.URL
	scheme         string
	http           *http.Client
	tokens         TokenSource
	limiter        *rate.Limiter
	onUnauthorized func(ctx context.Context)
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	scheme := opts.AuthScheme
	if scheme == "" {
		scheme = "Token"
	}

	return &Client{
		baseURL:        base,
		scheme:         scheme,
		http:           httpClient,
		tokens:         opts.Tokens,
		limiter:        rate.NewLimiter(limit, burst),
		onUnauthorized: opts.OnUnauthorized,
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// csrfToken reads the CSRF cookie the backend set on a previous response.
func (c *Client) csrfToken() string {
	if c.http.Jar == nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == csrfCookie {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", c.scheme+" "+tok)
	}
	if csrf := c.csrfToken(); csrf != "" {
		req.Header.Set("X-CSRFToken", csrf)
	}
	return req, nil
}

// do performs one call and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, method, path, body, out, true)
}

// send performs the request. A 401/403 runs the OnUnauthorized hook only when
// the call was made on behalf of the current session.
func (c *Client) send(ctx context.Context, method, path string, body, out any, sessionBound bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	log := logrus.WithFields(logrus.Fields{"method": method, "path": path})
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("Backend request failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, data)
		if errors.Is(apiErr, ErrUnauthorized) && sessionBound && c.onUnauthorized != nil {
			log.Info("Backend rejected session token")
			c.onUnauthorized(ctx)
		} else {
			log.WithField("cause", apiErr.Message).Debug("Backend returned an error")
		}
		return apiErr
	}
	log.Debug("Backend request done")

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return nil
}
