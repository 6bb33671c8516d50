package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the ADS search API endpoint.
	BaseURL = "https://api.adsabs.harvard.edu/v1/search/query"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit is 5 requests per second, well inside the ADS daily quota.
	RateLimit = 5.0

	// DefaultRows is the page size requested from the API.
	DefaultRows = 200

	// maxConcurrentPages caps in-flight page fetches during pagination.
	maxConcurrentPages = 4

	// errorBodyLimit bounds how much of an error response body is kept.
	errorBodyLimit = 512
)

// TokenEnvVar names the environment variable holding the API token.
const TokenEnvVar = "ADS_API_TOKEN"

// Client is a rate-limited HTTP client for the ADS search API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	baseURL    string
	rows       int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the API token for authenticated requests.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithRows sets the page size used for pagination.
func WithRows(rows int) ClientOption {
	return func(c *Client) {
		if rows > 0 {
			c.rows = rows
		}
	}
}

// NewClient creates a new ADS search API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		rows:       DefaultRows,
	}

	// Check for a token in the environment
	if token := os.Getenv(TokenEnvVar); token != "" {
		c.token = token
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	}
	if resp.StatusCode == 429 {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return nil
}

// Search fetches a single page of results starting at the given offset.
func (c *Client) Search(ctx context.Context, query string, start int) (*SearchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("fl", SearchFields)
	q.Set("rows", strconv.Itoa(c.rows))
	q.Set("start", strconv.Itoa(start))
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: parsing search results: %v", ErrInvalidResponse, err)
	}

	return &sr.Response, nil
}

// SearchAll fetches every page of results for a query. Pages after the first
// are requested concurrently; each request still waits on the shared rate
// limiter. Documents come back in result order.
func (c *Client) SearchAll(ctx context.Context, query string) ([]Document, error) {
	first, err := c.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, first.NumFound)
	docs = append(docs, first.Docs...)

	pageSize := len(first.Docs)
	if pageSize == 0 || len(docs) >= first.NumFound {
		return docs, nil
	}

	var starts []int
	for start := pageSize; start < first.NumFound; start += pageSize {
		starts = append(starts, start)
	}

	pages := make([][]Document, len(starts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPages)
	for i, start := range starts {
		g.Go(func() error {
			res, err := c.Search(gctx, query, start)
			if err != nil {
				return fmt.Errorf("page at offset %d: %w", start, err)
			}
			pages[i] = res.Docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, page := range pages {
		docs = append(docs, page...)
	}
	return docs, nil
}
