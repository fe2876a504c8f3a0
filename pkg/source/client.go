package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/mindmap/pkg/cache"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/observability"
)

const httpTimeout = 60 * time.Second

// ClientOption configures the HTTP-backed generator and asker.
type ClientOption func(*client)

// WithHTTPClient replaces the default client (60s timeout).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *client) { c.http = h }
}

// WithCache caches responses. The default caches nothing.
func WithCache(ch cache.Cache, ttl time.Duration) ClientOption {
	return func(c *client) { c.cache, c.ttl = ch, ttl }
}

// WithHeaders adds headers to every request, e.g. Authorization.
func WithHeaders(h map[string]string) ClientOption {
	return func(c *client) { c.headers = h }
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *client) { c.attempts, c.delay = attempts, delay }
}

// client provides shared HTTP functionality: caching, retry and common
// request headers.
type client struct {
	endpoint string
	http     *http.Client
	cache    cache.Cache
	ttl      time.Duration
	keyer    cache.Keyer
	headers  map[string]string
	attempts int
	delay    time.Duration
}

func newClient(endpoint string, ttl time.Duration, opts []ClientOption) *client {
	c := &client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: httpTimeout},
		cache:    cache.NewNullCache(),
		ttl:      ttl,
		keyer:    cache.NewDefaultKeyer(),
		attempts: 3,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cached returns the cached value for key or runs fetch with retry and
// caches what it decoded into v.
func (c *client) cached(ctx context.Context, keyType, key string, v any, fetch func() error) error {
	hooks := observability.Cache()
	if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
		if json.Unmarshal(data, v) == nil {
			hooks.OnCacheHit(ctx, keyType)
			return nil
		}
	}
	hooks.OnCacheMiss(ctx, keyType)

	if err := cache.Retry(ctx, c.attempts, c.delay, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, key, data, c.ttl) == nil {
			hooks.OnCacheSet(ctx, keyType, len(data))
		}
	}
	return nil
}

// post sends in as JSON and decodes the JSON response into out.
func (c *client) post(ctx context.Context, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return mmerrors.Wrap(mmerrors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return mmerrors.Wrap(mmerrors.ErrCodeTimeout, err, "request %s", host)
		}
		return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(out); err != nil {
		return mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "decode response from %s", host)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return mmerrors.New(mmerrors.ErrCodeNotFound, "status %d", code)
	case code == http.StatusTooManyRequests || code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", cache.ErrNetwork, code))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return mmerrors.New(mmerrors.ErrCodeNetwork, "status %d: %s", code, bytes.TrimSpace(msg))
	}
}
