// Package database defines the capability interface every scholarly
// database source implements, the shared error taxonomy, and a registry of
// named sources.
package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/matsen/citegraph/internal/paper"
)

// DefaultTimeout is the default HTTP request timeout for adapters.
const DefaultTimeout = 10 * time.Second

// Adapter fetches papers and their citations from one remote source.
// Implementations perform at most one HTTP request per call and never pace
// themselves; pacing is the caller's job.
type Adapter interface {
	// Name identifies the source, e.g. "semanticscholar".
	Name() string

	// BaseDelay is the idle time the source asks for between two requests.
	BaseDelay() time.Duration

	// FetchPaper returns the metadata of one paper.
	FetchPaper(ctx context.Context, id paper.Identifier) (paper.Paper, error)

	// FetchCitations returns one page of at most limit papers citing p, in
	// the order the source reports them. An empty cursor starts at the
	// beginning; the returned page's Next continues the listing.
	FetchCitations(ctx context.Context, p paper.Paper, cursor string, limit int) (CitationPage, error)
}

// CitationPage is one page of a citation listing.
type CitationPage struct {
	Citing []paper.Paper
	// Next is the cursor of the following page, empty when the source has
	// no more citations.
	Next string
}

// Credentials carries per-source settings loaded from the database config.
type Credentials struct {
	APIKey            string  `yaml:"api_key,omitempty"`
	Email             string  `yaml:"email,omitempty"`
	RequestsPerSecond float64 `yaml:"api_requests_per_second,omitempty"`
}

// ErrUnknownDatabase is returned by Open for a name nobody registered.
var ErrUnknownDatabase = errors.New("unknown database")

// Factory builds an adapter from its credentials.
type Factory func(creds Credentials) Adapter

// Registry maps source names to adapter factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named source. Registering the same name twice replaces
// the earlier factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names returns the registered source names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the adapter registered under name.
func (r *Registry) Open(name string, creds Credentials) (Adapter, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownDatabase, name, r.Names())
	}
	return f(creds), nil
}
