// Package openalex is the OpenAlex works API source of papers and
// citations. OpenAlex is DOI-centric: only doi identifiers can be looked up,
// and citing works without a DOI are dropped.
package openalex

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
	Name = "openalex"

	// BaseURL is the OpenAlex API base URL.
	BaseURL = "https://api.openalex.org"

	// DefaultBaseDelay keeps within the polite pool's 10 requests per second.
	DefaultBaseDelay = 100 * time.Millisecond

	// MaxCitationsPerRequest is the largest page the works endpoint serves.
	MaxCitationsPerRequest = 200

	// WorkURLPrefix starts the canonical url of every OpenAlex work.
	WorkURLPrefix = "https://openalex.org/"

	// WorkFields limits responses to the fields the graph uses.
	WorkFields = "id,doi,display_name,publication_year,cited_by_count,authorships"
)

// Client is an HTTP client for the OpenAlex works API. It does not pace
// itself; callers gate every request.
type Client struct {
	httpClient *http.Client
	email      string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEmail sets the mailto address that grants polite pool access.
func WithEmail(email string) ClientOption {
	return func(c *Client) {
		c.email = email
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// NewClient creates a new OpenAlex client.
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
	return NewClient(WithEmail(creds.Email))
}

// Register adds the OpenAlex source to r.
func Register(r *database.Registry) {
	r.Register(Name, Factory)
}

// Name implements database.Adapter.
func (c *Client) Name() string {
	return Name
}

// BaseDelay implements database.Adapter.
func (c *Client) BaseDelay() time.Duration {
	return DefaultBaseDelay
}

// FetchPaper fetches the work registered for a doi.
func (c *Client) FetchPaper(ctx context.Context, id paper.Identifier) (paper.Paper, error) {
	if id.Kind() != paper.KindDOI {
		return paper.Paper{}, fmt.Errorf("%w: %s", database.ErrUnsupportedID, id)
	}

	var w work
	path := "/works/doi:" + escapeDOI(id.Value())
	if err := c.get(ctx, path, url.Values{"select": {WorkFields}}, id.String(), &w); err != nil {
		return paper.Paper{}, err
	}

	return mapWork(w)
}

// FetchCitations fetches one page of at most limit works citing p. The cites
// filter needs the OpenAlex work id, which is read from the paper url set by
// FetchPaper; a paper without it yields database.ErrNeedsLookup. Cursor
// paging is used, so the cursor is opaque. Page sizes above
// MaxCitationsPerRequest are capped.
func (c *Client) FetchCitations(ctx context.Context, p paper.Paper, cursor string, limit int) (database.CitationPage, error) {
	if limit <= 0 {
		return database.CitationPage{}, nil
	}
	if p.ID.Kind() != paper.KindDOI {
		return database.CitationPage{}, fmt.Errorf("%w: %s", database.ErrUnsupportedID, p.ID)
	}
	workID := workIDFromURL(p.URL)
	if workID == "" {
		return database.CitationPage{}, fmt.Errorf("%w: no OpenAlex work id for %s", database.ErrNeedsLookup, p.ID)
	}
	if limit > MaxCitationsPerRequest {
		limit = MaxCitationsPerRequest
	}
	if cursor == "" {
		cursor = "*"
	}

	params := url.Values{
		"filter":   {"cites:" + workID},
		"per-page": {strconv.Itoa(limit)},
		"cursor":   {cursor},
		"select":   {WorkFields},
	}
	var result listResponse
	if err := c.get(ctx, "/works", params, p.ID.String(), &result); err != nil {
		return database.CitationPage{}, err
	}
	if result.Results == nil {
		return database.CitationPage{}, fmt.Errorf("%w: citations of %s: missing results", database.ErrInvalidResponse, p.ID)
	}

	page := database.CitationPage{Citing: make([]paper.Paper, 0, len(result.Results))}
	for _, w := range result.Results {
		citing, err := mapWork(w)
		if err != nil {
			continue
		}
		page.Citing = append(page.Citing, citing)
	}
	if result.Meta.NextCursor != nil && len(result.Results) > 0 {
		page.Next = *result.Meta.NextCursor
	}
	return page, nil
}

// mapWork converts a work into the domain model. The work url keeps the
// OpenAlex work id for later citation requests.
func mapWork(w work) (paper.Paper, error) {
	doi := strings.TrimSpace(w.DOI)
	if doi == "" {
		return paper.Paper{}, fmt.Errorf("%w: work %s has no DOI", database.ErrInvalidResponse, w.ID)
	}
	id, err := paper.NewIdentifier(paper.KindDOI, doi)
	if err != nil {
		return paper.Paper{}, fmt.Errorf("%w: work %s: %v", database.ErrInvalidResponse, w.ID, err)
	}

	p, err := paper.New([]paper.Identifier{id}, w.DisplayName)
	if err != nil {
		return paper.Paper{}, err
	}
	p.Year = w.PublicationYear
	p.URL = w.ID
	if w.CitedByCount != nil {
		p.CitationCount = paper.IntPtr(*w.CitedByCount)
	}
	for _, a := range w.Authorships {
		if author, ok := paper.ParseAuthor(a.Author.DisplayName); ok {
			p.Authors = append(p.Authors, author)
		}
	}
	return p, nil
}

// workIDFromURL returns the work id of an OpenAlex work url such as
// https://openalex.org/W2741809807, or "" for any other url.
func workIDFromURL(u string) string {
	if !strings.HasPrefix(u, WorkURLPrefix) {
		return ""
	}
	id := strings.TrimPrefix(u, WorkURLPrefix)
	if !strings.HasPrefix(id, "W") || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// escapeDOI escapes a doi for use in a path, keeping its slashes.
func escapeDOI(doi string) string {
	return strings.ReplaceAll(url.PathEscape(doi), "%2F", "/")
}

// get performs one GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, paperID string, out any) error {
	if c.email != "" {
		params.Set("mailto", c.email)
	}
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", database.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := database.CheckStatus(Name, resp.StatusCode, paperID); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: parsing OpenAlex response: %v", database.ErrInvalidResponse, err)
	}
	return nil
}
