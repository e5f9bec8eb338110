// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is a rate-limited HTTP client. Every request waits on the
// shared limiter so concurrent harvest passes stay within the source's
// tolerance.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

func NewClient(timeout time.Duration, perSecond float64, burst int, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
		userAgent: userAgent,
	}
}

func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// Get fetches url respecting the rate limit.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}
