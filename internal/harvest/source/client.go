// internal/harvest/source/client.go

// Package source is the HTTP edge of the harvester: it knows the URL
// shapes and request headers the content site expects and classifies
// transport failures into the shared error taxonomy. Everything above
// this package works with raw bytes or parsed documents.
package source

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"resto-harvester/internal/common/errors"
	httpclient "resto-harvester/internal/common/http"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/common/observability"
)

// Options configure one source client.
type Options struct {
	// BaseURL is the site root, e.g. "https://www.yelp.com".
	BaseURL string
	// SortBy orders listing search results. Defaults to review_count
	// so the densest businesses surface first.
	SortBy string
	// ReviewPageSize is the feed page size, used to derive the Referer
	// of follow-up feed requests.
	ReviewPageSize int
}

// Client fetches landing, listing, feed and menu pages.
type Client struct {
	http   *httpclient.Client
	obs    *observability.Observability
	logger logger.Logger

	baseURL  string
	sortBy   string
	pageSize int
}

func NewClient(httpClient *httpclient.Client, obs *observability.Observability, log logger.Logger, opts Options) *Client {
	if opts.SortBy == "" {
		opts.SortBy = "review_count"
	}
	if opts.ReviewPageSize <= 0 {
		opts.ReviewPageSize = 20
	}
	return &Client{
		http:     httpClient,
		obs:      obs,
		logger:   log,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		sortBy:   opts.SortBy,
		pageSize: opts.ReviewPageSize,
	}
}

// FeedURL builds the review-feed URL for one business at the given
// absolute offset. Offsets must be multiples of the feed page size.
func FeedURL(businessURL string, start int) string {
	return strings.TrimRight(businessURL, "/") +
		"/review_feed?rl=en&sort_by=date_desc&q=&start=" + strconv.Itoa(start)
}

// FetchFeedPage fetches one raw review-feed page. It satisfies the
// review harvester's Transport interface.
func (c *Client) FetchFeedPage(ctx context.Context, businessURL string, start int) ([]byte, error) {
	businessURL = c.absolute(businessURL)
	req, err := http.NewRequest(http.MethodGet, FeedURL(businessURL, start), nil)
	if err != nil {
		return nil, errors.NewFetchFailedError(businessURL, err)
	}

	// The feed endpoint only answers requests that look like the
	// site's own in-page pagination.
	req.Header.Set("x-requested-by-react", "true")
	req.Header.Set("x-requested-with", "XMLHttpRequest")
	if start > 0 {
		req.Header.Set("Referer", FeedURL(businessURL, start-c.pageSize))
	}

	return c.fetch(ctx, req)
}

// ListingURL builds the search-snippet URL listing restaurants for a
// location at the given result offset.
func (c *Client) ListingURL(location string, start int) string {
	return c.baseURL + "/search/snippet" +
		"?cflt=restaurants" +
		"&find_loc=" + url.QueryEscape(location) +
		"&sortby=" + c.sortBy +
		"&start=" + strconv.Itoa(start) +
		"&request_origin=user"
}

// FetchListingPage fetches one raw listing search page for a location.
func (c *Client) FetchListingPage(ctx context.Context, location string, start int) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.ListingURL(location, start), nil)
	if err != nil {
		return nil, errors.NewFetchFailedError(location, err)
	}

	req.Header.Set("Referer", c.baseURL+"/search"+
		"?cflt=restaurants"+
		"&find_desc="+
		"&find_loc="+url.QueryEscape(location)+
		"&sortby="+c.sortBy+
		"&start="+strconv.Itoa(start))

	return c.fetch(ctx, req)
}

// FetchLandingPage fetches a business landing page as HTML.
func (c *Client) FetchLandingPage(ctx context.Context, businessURL string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, c.absolute(businessURL), nil)
	if err != nil {
		return "", errors.NewFetchFailedError(businessURL, err)
	}
	body, err := c.fetch(ctx, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchMenuPage fetches a hosted menu page as HTML.
func (c *Client) FetchMenuPage(ctx context.Context, menuURL string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, c.absolute(menuURL), nil)
	if err != nil {
		return "", errors.NewFetchFailedError(menuURL, err)
	}
	body, err := c.fetch(ctx, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// absolute resolves site-relative paths, which is how listing results
// and hosted-menu links reference their pages.
func (c *Client) absolute(pageURL string) string {
	if strings.HasPrefix(pageURL, "/") {
		return c.baseURL + pageURL
	}
	return pageURL
}

// fetch performs one request, classifies the outcome and records the
// fetch metrics.
func (c *Client) fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	reqURL := req.URL.String()
	started := time.Now()

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			c.record(ctx, started, "timeout")
			return nil, errors.NewFetchTimeoutError(reqURL)
		}
		c.record(ctx, started, "error")
		return nil, errors.NewFetchFailedError(reqURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable:
		c.record(ctx, started, "blocked")
		c.logger.Warn("Fetch blocked by source", map[string]interface{}{
			"url":        reqURL,
			"statusCode": resp.StatusCode,
		})
		return nil, errors.NewFetchBlockedError(reqURL, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		c.record(ctx, started, "error")
		return nil, errors.NewFetchFailedError(reqURL,
			stderrors.New("unexpected status "+strconv.Itoa(resp.StatusCode)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(ctx, started, "error")
		return nil, errors.NewFetchFailedError(reqURL, err)
	}

	c.record(ctx, started, "ok")
	return body, nil
}

func (c *Client) record(ctx context.Context, started time.Time, status string) {
	if c.obs == nil {
		return
	}
	c.obs.RecordPageFetched(ctx, status)
	c.obs.RecordFetchDuration(ctx, time.Since(started), status)
}
