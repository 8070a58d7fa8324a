package viz

import (
	"math"

	"github.com/matsen/citegraph/internal/paper"
)

// Source is the traversal result being rendered. *traverse.Graph
// implements it.
type Source interface {
	Len() int
	Has(id paper.Identifier) bool
	Papers() []paper.Paper
	Level(id paper.Identifier) (int, bool)
	Excluded(id paper.Identifier) bool
	Edges() []paper.Edge
}

// levelColors colors nodes by their distance from the root. Levels beyond
// the palette reuse its last color.
var levelColors = []string{
	"#D62728", // root
	"#FF7F0E",
	"#2CA02C",
	"#1F77B4",
	"#9467BD",
	"#8C564B",
	"#7F7F7F",
}

// Node sizes in pixels.
const (
	minNodeSize   = 20.0
	nodeSizeScale = 15.0
)

// BuildGraph converts a traversal result into render data. Nodes keep the
// level order of the traversal.
func BuildGraph(g Source) *GraphData {
	data := &GraphData{
		Nodes: make([]Node, 0, g.Len()),
		Edges: make([]Edge, 0, len(g.Edges())),
	}

	for _, p := range g.Papers() {
		level, _ := g.Level(p.ID)
		data.Nodes = append(data.Nodes, newPaperNode(p, level, g.Excluded(p.ID)))
	}

	for _, e := range g.Edges() {
		if !g.Has(e.Citing) || !g.Has(e.Cited) {
			continue
		}
		data.Edges = append(data.Edges, Edge{
			Source: e.Citing.String(),
			Target: e.Cited.String(),
		})
	}

	return data
}

// newPaperNode creates a visualization node from a paper.
func newPaperNode(p paper.Paper, level int, excluded bool) Node {
	nodeType := NodeTypePaper
	if excluded {
		nodeType = NodeTypeExcluded
	}
	return Node{
		ID:            p.ID.String(),
		Type:          nodeType,
		Label:         p.String(),
		Level:         level,
		Color:         LevelColor(level),
		Size:          NodeSize(p.CitationCount),
		Title:         p.Title,
		Authors:       p.AuthorsString(false),
		Year:          p.Year,
		CitationCount: p.CitationCount,
		URL:           p.URL,
	}
}

// LevelColor returns the fill color for a level.
func LevelColor(level int) string {
	if level < 0 {
		level = 0
	}
	if level >= len(levelColors) {
		level = len(levelColors) - 1
	}
	return levelColors[level]
}

// NodeSize grows with log10(citations + 2); unknown counts get the
// smallest size.
func NodeSize(citationCount *int) float64 {
	if citationCount == nil || *citationCount < 0 {
		return minNodeSize
	}
	return minNodeSize + nodeSizeScale*(math.Log10(float64(*citationCount)+2)-math.Log10(2))
}
