// Package s2 is the Semantic Scholar Graph API source of papers and
// citations.
package s2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/paper"
)

const (
	// Name is the registry name of this source.
	Name = "semanticscholar"

	// BaseURL is the Semantic Scholar Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultBaseDelay matches the public limit of 100 requests per five minutes.
	DefaultBaseDelay = 3 * time.Second

	// MinBaseDelay bounds the delay derived from a requests-per-second setting.
	MinBaseDelay = 10 * time.Millisecond

	// MaxCitationsPerRequest is the largest page the citations endpoint serves.
	MaxCitationsPerRequest = 1000

	// PaperFields are the fields requested for every paper.
	PaperFields = "title,year,authors,externalIds,citationCount,url"
)

// Client is an HTTP client for the Semantic Scholar Graph API. It does not
// pace itself; callers gate every request.
type Client struct {
	httpClient        *http.Client
	apiKey            string
	baseURL           string
	requestsPerSecond float64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithRequestsPerSecond sets the request rate granted to the API key. It has
// no effect without a key.
func WithRequestsPerSecond(rps float64) ClientOption {
	return func(c *Client) {
		c.requestsPerSecond = rps
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
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// NewClient creates a new Semantic Scholar client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: database.DefaultTimeout},
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory builds a client from database credentials.
func Factory(creds database.Credentials) database.Adapter {
	return NewClient(WithAPIKey(creds.APIKey), WithRequestsPerSecond(creds.RequestsPerSecond))
}

// Register adds the Semantic Scholar source to r.
func Register(r *database.Registry) {
	r.Register(Name, Factory)
}

// Name implements database.Adapter.
func (c *Client) Name() string {
	return Name
}

// BaseDelay is 3s for anonymous use. With an API key and a configured
// request rate it is 1/rate, but never below MinBaseDelay.
func (c *Client) BaseDelay() time.Duration {
	if c.apiKey == "" || c.requestsPerSecond <= 0 {
		return DefaultBaseDelay
	}
	d := time.Duration(float64(time.Second) / c.requestsPerSecond)
	if d < MinBaseDelay {
		return MinBaseDelay
	}
	return d
}

// FetchPaper fetches the metadata of one paper.
func (c *Client) FetchPaper(ctx context.Context, id paper.Identifier) (paper.Paper, error) {
	apiID, err := APIPaperID(id)
	if err != nil {
		return paper.Paper{}, err
	}

	params := url.Values{"fields": {PaperFields}}
	var result s2Paper
	if err := c.get(ctx, "/paper/"+escapeID(apiID), params, id.String(), &result); err != nil {
		return paper.Paper{}, err
	}
	if result.PaperID == "" {
		return paper.Paper{}, fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}

	return mapPaper(result)
}

// FetchCitations fetches one page of at most limit papers citing p, in API
// order. The cursor is the offset into the citation listing. Page sizes
// above MaxCitationsPerRequest are capped. Citing papers without a
// supported identifier are dropped.
func (c *Client) FetchCitations(ctx context.Context, p paper.Paper, cursor string, limit int) (database.CitationPage, error) {
	if limit <= 0 {
		return database.CitationPage{}, nil
	}
	apiID, err := APIPaperID(p.ID)
	if err != nil {
		return database.CitationPage{}, err
	}
	offset := 0
	if cursor != "" {
		if offset, err = strconv.Atoi(cursor); err != nil || offset < 0 {
			return database.CitationPage{}, fmt.Errorf("invalid citation offset %q", cursor)
		}
	}
	if limit > MaxCitationsPerRequest {
		limit = MaxCitationsPerRequest
	}

	params := url.Values{
		"fields": {PaperFields},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
	var result citationsResponse
	if err := c.get(ctx, "/paper/"+escapeID(apiID)+"/citations", params, p.ID.String(), &result); err != nil {
		return database.CitationPage{}, err
	}
	if result.Data == nil {
		return database.CitationPage{}, fmt.Errorf("%w: citations of %s: missing data", database.ErrInvalidResponse, p.ID)
	}

	page := database.CitationPage{Citing: make([]paper.Paper, 0, len(result.Data))}
	for _, item := range result.Data {
		if item.CitingPaper == nil || item.CitingPaper.PaperID == "" {
			continue
		}
		citing, err := mapPaper(*item.CitingPaper)
		if err != nil {
			continue
		}
		page.Citing = append(page.Citing, citing)
	}
	if result.Next != nil && *result.Next > offset {
		page.Next = strconv.Itoa(*result.Next)
	}
	return page, nil
}

// escapeID escapes a prefixed id for use as one path segment. Slashes in
// DOIs are kept; the API accepts them unescaped.
func escapeID(apiID string) string {
	return strings.ReplaceAll(url.PathEscape(apiID), "%2F", "/")
}

// get performs one GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, paperID string, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", database.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := database.CheckStatus(Name, resp.StatusCode, paperID); err != nil {
		return withServerMessage(err, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", database.ErrInvalidResponse, path, err)
	}
	return nil
}

// withServerMessage attaches the message of an S2 error body to err.
func withServerMessage(err error, resp *http.Response) error {
	var body errorResponse
	if json.NewDecoder(resp.Body).Decode(&body) != nil {
		return err
	}
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w (%s)", err, msg)
}
