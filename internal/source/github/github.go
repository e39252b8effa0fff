// Package github implements the tag source for repositories hosted on
// GitHub, via the REST tags API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ghdepup/ghdepup/internal/source"
)

const (
	// DefaultURL is the GitHub REST API root.
	DefaultURL = "https://api.github.com"

	// defaultPerPage is the number of tags fetched per API page.
	defaultPerPage = 100

	// maxPages bounds pagination to avoid runaway requests against
	// repositories with enormous tag histories.
	maxPages = 50

	// maxJSONResponseBytes caps JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

// ErrUpstreamDown is returned when GitHub answers with server errors or a
// circuit breaker refuses the request.
var ErrUpstreamDown = errors.New("hosting service unavailable")

func init() {
	source.Register("github", DefaultURL, func(baseURL, token string) source.TagSource {
		return New(WithBaseURL(baseURL), WithToken(token))
	})
}

// Client queries the GitHub tags API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	perPage    int
	maxRetries int
	baseDelay  time.Duration
	breakers   *breakerSet
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, useful for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithBaseURL overrides the API root, primarily for test servers and
// GitHub Enterprise installations.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithToken sets an access token for authenticated requests.
// Authenticated requests have a higher rate limit (5000/hour vs 60/hour).
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxRetries sets the maximum retry attempts per page request.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff between retries.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// New creates a Client with sensible defaults: the public API root,
// 3 retries with 500ms base delay, DNS-cached transport.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: defaultHTTPClient(),
		baseURL:    DefaultURL,
		userAgent:  "ghdepup/1.0",
		perPage:    defaultPerPage,
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		breakers:   newBreakerSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tagEntry is the JSON wire format of one element of the tags API response.
type tagEntry struct {
	Name string `json:"name"`
}

// Tags yields the tag names of a project, following pagination lazily:
// each page is fetched only once the previous page's tags have been
// consumed. Stopping the iteration early abandons remaining pages.
func (c *Client) Tags(ctx context.Context, project string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		pageURL := fmt.Sprintf("%s/repos/%s/tags?per_page=%d", c.baseURL, project, c.perPage)

		for page := 0; page < maxPages && pageURL != ""; page++ {
			tags, next, err := c.listPage(ctx, pageURL, project)
			if err != nil {
				yield("", err)
				return
			}
			for _, tag := range tags {
				if !yield(tag, nil) {
					return
				}
			}
			pageURL = next
		}
	}
}

// listPage fetches one page of tags with retry and circuit breaking.
// Rate limits and server errors are retried with exponential backoff and
// 10% jitter; anything else aborts immediately.
func (c *Client) listPage(ctx context.Context, pageURL, project string) ([]string, string, error) {
	host := hostOf(pageURL)
	breaker := c.breakers.get(host)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			delay += time.Duration(float64(delay) * (rand.Float64() * 0.1))

			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(delay):
			}
		}

		if !breaker.Ready() {
			return nil, "", fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
		}

		var tags []string
		var next string
		err := breaker.Call(func() error {
			var callErr error
			tags, next, callErr = c.doListPage(ctx, pageURL, project)
			return callErr
		}, 0)
		if err == nil {
			return tags, next, nil
		}

		lastErr = err
		if !retryable(err) {
			return nil, "", err
		}
	}

	return nil, "", lastErr
}

// retryable reports whether a page fetch failure is worth retrying.
func retryable(err error) bool {
	var rl *source.RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var he *source.HTTPError
	if errors.As(err, &he) {
		return he.StatusCode >= 500 || he.StatusCode == http.StatusTooManyRequests
	}
	return errors.Is(err, ErrUpstreamDown)
}

func (c *Client) doListPage(ctx context.Context, pageURL, project string) ([]string, string, error) {
	resp, err := c.doRequest(ctx, pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("listing tags for %s: %w", project, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return nil, "", err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// Decoded below.
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", &source.NotFoundError{Host: "github", Project: project}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", &source.RateLimitError{}
	default:
		return nil, "", &source.HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	var entries []tagEntry
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes))
	if err := decoder.Decode(&entries); err != nil {
		return nil, "", fmt.Errorf("listing tags for %s: decoding response: %w", project, err)
	}

	tags := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			tags = append(tags, e.Name)
		}
	}

	return tags, parseLinkHeader(resp.Header.Get("Link")), nil
}

// doRequest executes a GET with the common GitHub API headers. The auth
// token is only attached when the request targets the configured API host,
// so it cannot leak to third parties through pagination URLs.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	if c.token != "" && hostOf(reqURL) == hostOf(c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// checkRateLimit inspects the X-RateLimit-* headers and returns a
// RateLimitError when the remaining quota is zero, regardless of status
// code (GitHub answers 403 for exhausted quotas).
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return &source.RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// parseLinkHeader extracts the URL for the "next" page from a Link header.
// Returns an empty string if no next page exists.
//
// Example: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	if header == "" {
		return ""
	}

	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.IndexByte(part, '<')
		end := strings.IndexByte(part, '>')
		if start < 0 || end < 0 || end <= start+1 {
			continue
		}
		return part[start+1 : end]
	}
	return ""
}

// hostOf extracts the host from a URL for breaker grouping and the auth
// header guard. Unparseable URLs fall back to the raw string.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
