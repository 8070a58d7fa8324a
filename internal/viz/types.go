// Package viz renders a citation graph as a self-contained interactive HTML
// page.
package viz

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node types.
const (
	NodeTypePaper    = "paper"
	NodeTypeExcluded = "excluded"
)

// Node represents a paper in the graph.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "paper" or "excluded"

	// Display
	Label string  `json:"label"`
	Level int     `json:"level"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`

	// Tooltip fields
	Title         string `json:"title,omitempty"`
	Authors       string `json:"authors,omitempty"` // Formatted string "A, B and C"
	Year          int    `json:"year,omitempty"`
	CitationCount *int   `json:"citationCount,omitempty"`
	URL           string `json:"url,omitempty"`
}

// Edge points from the citing to the cited paper.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}
