package traverse

import (
	"github.com/matsen/citegraph/internal/paper"
)

// Graph is the result of a traversal: papers annotated with their level,
// and the citation edges between them.
type Graph struct {
	Root  paper.Identifier
	Stats Stats

	papers   []paper.Paper
	index    map[paper.Identifier]int
	levels   map[paper.Identifier]int
	excluded map[paper.Identifier]bool
	edges    *paper.EdgeSet
}

// Stats counts what a traversal did.
type Stats struct {
	// Requests is the number of requests sent to the database.
	Requests int `json:"requests"`
	// CacheHits counts metadata and citation lookups answered by the cache.
	CacheHits int `json:"cache_hits"`
	// Failures counts requests that failed transiently and were skipped.
	Failures int `json:"failures"`
	// NotFound lists identifiers the database did not know.
	NotFound []paper.Identifier `json:"not_found,omitempty"`
}

func newGraph() *Graph {
	return &Graph{
		index:    make(map[paper.Identifier]int),
		levels:   make(map[paper.Identifier]int),
		excluded: make(map[paper.Identifier]bool),
		edges:    paper.NewEdgeSet(),
	}
}

// add records p at level, keeping the smaller level if p is already known.
func (g *Graph) add(p paper.Paper, level int, excluded bool) {
	if i, ok := g.index[p.ID]; ok {
		if g.papers[i].Title == "" && p.Title != "" {
			g.papers[i] = p
		}
		if level < g.levels[p.ID] {
			g.levels[p.ID] = level
		}
		return
	}
	g.index[p.ID] = len(g.papers)
	g.papers = append(g.papers, p)
	g.levels[p.ID] = level
	if excluded {
		g.excluded[p.ID] = true
	}
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id paper.Identifier) bool {
	_, ok := g.index[id]
	return ok
}

// Len returns the number of papers.
func (g *Graph) Len() int {
	return len(g.papers)
}

// Papers returns all papers ordered by level, then by discovery.
func (g *Graph) Papers() []paper.Paper {
	return g.papers
}

// Paper returns the paper with the given identifier.
func (g *Graph) Paper(id paper.Identifier) (paper.Paper, bool) {
	i, ok := g.index[id]
	if !ok {
		return paper.Paper{}, false
	}
	return g.papers[i], true
}

// Level returns the BFS distance of id from the root.
func (g *Graph) Level(id paper.Identifier) (int, bool) {
	level, ok := g.levels[id]
	return level, ok
}

// MaxLevel returns the deepest level reached, or -1 for an empty graph.
func (g *Graph) MaxLevel() int {
	deepest := -1
	for _, level := range g.levels {
		if level > deepest {
			deepest = level
		}
	}
	return deepest
}

// Excluded reports whether id is in the graph only as an unexpanded sink
// because it was excluded.
func (g *Graph) Excluded(id paper.Identifier) bool {
	return g.excluded[id]
}

// Edges returns the citation edges in insertion order.
func (g *Graph) Edges() []paper.Edge {
	return g.edges.Edges()
}
