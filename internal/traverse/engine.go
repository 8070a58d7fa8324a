// Package traverse builds a citation graph by level-synchronous
// breadth-first expansion from a root paper. Every network request passes
// the politeness gate and is reported to the error monitor; answers that
// the cache already holds never touch the network.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/matsen/citegraph/internal/breaker"
	"github.com/matsen/citegraph/internal/cache"
	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/exclude"
	"github.com/matsen/citegraph/internal/paper"
)

// Gate paces requests. *politeness.Limiter implements it.
type Gate interface {
	Wait(ctx context.Context) error
}

// Store is the part of the cache the engine uses. *cache.Store implements it.
type Store interface {
	Get(id paper.Identifier) (cache.Record, bool)
	PutPaper(p paper.Paper)
	PutCitations(id paper.Identifier, limit int, citing []paper.Identifier) cache.Record
	Persist() error
}

// Options bound a traversal.
type Options struct {
	// MaxDepth is the deepest level that is added to the graph. 0 yields
	// just the root.
	MaxDepth int
	// MaxCitations caps the citing papers requested per paper.
	MaxCitations int
	// Exclude lists papers that are kept as sinks and never expanded.
	Exclude *exclude.Set
}

// Validate checks the bounds.
func (o Options) Validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0, got %d", o.MaxDepth)
	}
	if o.MaxCitations < 0 {
		return fmt.Errorf("max citations per paper must be >= 0, got %d", o.MaxCitations)
	}
	return nil
}

// Engine runs traversals. It is strictly sequential and not safe for
// concurrent use.
type Engine struct {
	db      database.Adapter
	store   Store
	gate    Gate
	monitor *breaker.Monitor
	opts    Options
	logger  *slog.Logger
}

// New creates an engine. A nil logger discards logs.
func New(db database.Adapter, store Store, gate Gate, monitor *breaker.Monitor, opts Options, logger *slog.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		db:      db,
		store:   store,
		gate:    gate,
		monitor: monitor,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Run expands the citation graph of root. On a suspected block it returns
// the partial graph together with a *breaker.BlockSuspectedError; all data
// fetched so far is already persisted. A root unknown to the database is
// an error wrapping database.ErrNotFound.
func (e *Engine) Run(ctx context.Context, root paper.Identifier) (*Graph, error) {
	g := newGraph()

	rootPaper, _, err := e.resolve(ctx, g, root, true)
	if err != nil {
		return g, err
	}
	g.Root = rootPaper.ID

	current := []paper.Paper{rootPaper}
	g.add(rootPaper, 0, e.opts.Exclude.ContainsPaper(rootPaper))

	for level := 0; level < e.opts.MaxDepth; level++ {
		e.logger.Info("expanding level", "level", level, "papers", len(current))

		var frontier []paper.Identifier
		queued := make(map[paper.Identifier]bool)

		for _, p := range current {
			if e.opts.Exclude.ContainsPaper(p) {
				e.logger.Debug("not expanding excluded paper", "paper", p.ID)
				continue
			}

			citing, err := e.citations(ctx, g, p)
			if err != nil {
				return g, err
			}
			for _, id := range citing {
				id = e.canonical(id)
				g.edges.Add(paper.Edge{Citing: id, Cited: p.ID})
				if !g.Has(id) && !queued[id] {
					queued[id] = true
					frontier = append(frontier, id)
				}
			}
		}

		if len(frontier) == 0 {
			e.logger.Info("no new papers, stopping early", "level", level)
			break
		}

		next := make([]paper.Paper, 0, len(frontier))
		for _, id := range frontier {
			p, found, err := e.resolve(ctx, g, id, false)
			if err != nil {
				return g, err
			}
			if !found {
				p = paper.Paper{ID: id}
			}
			if p.ID != id {
				// the database knows the paper under another primary identifier
				g.edges.Rename(id, p.ID)
			}
			if g.Has(p.ID) {
				continue
			}
			g.add(p, level+1, e.opts.Exclude.ContainsPaper(p))
			next = append(next, p)
		}
		current = next
	}

	e.logger.Info("traversal finished",
		"root", g.Root,
		"papers", g.Len(),
		"edges", len(g.Edges()),
		"requests", g.Stats.Requests,
		"cache_hits", g.Stats.CacheHits)
	return g, nil
}

// canonical maps id to the primary identifier the cache stores it under.
func (e *Engine) canonical(id paper.Identifier) paper.Identifier {
	if rec, ok := e.store.Get(id); ok {
		return rec.ID
	}
	return id
}

// resolve returns the metadata of id, from the cache when present. found is
// false when the database does not know the paper or the request failed
// without tripping the monitor. Any failure to fetch the root is an error;
// an unknown root wraps database.ErrNotFound.
func (e *Engine) resolve(ctx context.Context, g *Graph, id paper.Identifier, root bool) (p paper.Paper, found bool, err error) {
	if rec, ok := e.store.Get(id); ok && rec.HasMetadata() {
		g.Stats.CacheHits++
		return rec.Paper, true, nil
	}

	p, err = e.fetchPaper(ctx, g, id)
	if err != nil {
		if root {
			return paper.Paper{}, false, fmt.Errorf("fetching root paper %s: %w", id, err)
		}
		return paper.Paper{}, false, e.failed(g, id, err)
	}
	if err := e.store.Persist(); err != nil {
		return p, true, err
	}
	return p, true, nil
}

// fetchPaper requests the metadata of id through the gate and caches it
// without persisting.
func (e *Engine) fetchPaper(ctx context.Context, g *Graph, id paper.Identifier) (paper.Paper, error) {
	if err := e.gate.Wait(ctx); err != nil {
		return paper.Paper{}, err
	}
	g.Stats.Requests++
	e.logger.Debug("fetching paper", "database", e.db.Name(), "paper", id)

	p, err := e.db.FetchPaper(ctx, id)
	if err != nil {
		return paper.Paper{}, err
	}
	e.monitor.Success()
	e.store.PutPaper(p)
	return p, nil
}

// citations returns the citing identifiers of p, at most MaxCitations.
func (e *Engine) citations(ctx context.Context, g *Graph, p paper.Paper) ([]paper.Identifier, error) {
	limit := e.opts.MaxCitations
	if limit == 0 {
		return nil, nil
	}
	if p.KnownUncited() {
		e.logger.Debug("skipping paper without citations", "paper", p)
		return nil, nil
	}

	if rec, ok := e.store.Get(p.ID); ok && rec.Covers(limit) {
		g.Stats.CacheHits++
		return rec.CitationsUpTo(limit), nil
	}

	citing, err := e.fetchCitations(ctx, g, p, limit)
	if errors.Is(err, database.ErrNeedsLookup) {
		e.logger.Debug("looking up paper before fetching citations", "paper", p.ID, "reason", err)
		var fresh paper.Paper
		if fresh, err = e.fetchPaper(ctx, g, p.ID); err == nil {
			citing, err = e.fetchCitations(ctx, g, fresh, limit)
		}
	}
	if err != nil {
		if err := e.failed(g, p.ID, err); err != nil {
			return nil, err
		}
		if database.IsNotFound(err) {
			// the database has nothing for this paper at any limit
			e.store.PutCitations(p.ID, limit, nil)
			return nil, e.store.Persist()
		}
		return nil, nil
	}

	ids := make([]paper.Identifier, 0, len(citing))
	for _, c := range citing {
		e.store.PutPaper(c)
		ids = append(ids, c.ID)
	}
	e.store.PutCitations(p.ID, limit, ids)
	if err := e.store.Persist(); err != nil {
		return nil, err
	}

	e.logger.Info("fetched citations", "paper", p, "count", len(ids))
	return ids, nil
}

// fetchCitations collects up to limit citing papers, page by page, with one
// gated request per page. It stops early only when the database reports no
// further page, so the result is the complete answer for limit.
func (e *Engine) fetchCitations(ctx context.Context, g *Graph, p paper.Paper, limit int) ([]paper.Paper, error) {
	var citing []paper.Paper
	cursor := ""
	for len(citing) < limit {
		if err := e.gate.Wait(ctx); err != nil {
			return nil, err
		}
		g.Stats.Requests++
		e.logger.Debug("fetching citations", "database", e.db.Name(), "paper", p.ID, "limit", limit, "have", len(citing))

		page, err := e.db.FetchCitations(ctx, p, cursor, limit-len(citing))
		if err != nil {
			return nil, err
		}
		e.monitor.Success()

		citing = append(citing, page.Citing...)
		if page.Next == "" || page.Next == cursor {
			break
		}
		cursor = page.Next
	}
	if len(citing) > limit {
		citing = citing[:limit]
	}
	return citing, nil
}

// failed classifies a request error. It returns nil when the traversal can
// go on without the answer: the paper is unknown to the database, or the
// request failed transiently and the monitor did not trip.
func (e *Engine) failed(g *Graph, id paper.Identifier, err error) error {
	switch {
	case database.IsNotFound(err):
		e.logger.Info("paper not found", "database", e.db.Name(), "paper", id, "error", err)
		g.Stats.NotFound = append(g.Stats.NotFound, id)
		return nil
	case !database.IsTransient(err):
		return err
	}

	g.Stats.Failures++
	if tripErr := e.monitor.Failure(id, err); tripErr != nil {
		var blocked *breaker.BlockSuspectedError
		if errors.As(tripErr, &blocked) {
			e.logger.Error("suspected block, aborting", "paper", id, "consecutive_errors", blocked.Consecutive)
		}
		return tripErr
	}
	e.logger.Warn("request failed, skipping", "paper", id, "consecutive_errors", e.monitor.Consecutive(), "error", err)
	return nil
}
