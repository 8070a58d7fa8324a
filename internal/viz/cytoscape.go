package viz

import (
	"encoding/json"
	"fmt"
)

// element is one Cytoscape.js node or edge: a data object plus
// space-separated style classes.
type element struct {
	Data    any    `json:"data"`
	Classes string `json:"classes,omitempty"`
}

type edgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// elements is the Cytoscape.js grouped elements format.
type elements struct {
	Nodes []element `json:"nodes"`
	Edges []element `json:"edges"`
}

// ToCytoscapeJSON converts GraphData to the Cytoscape.js elements JSON. The
// root node gets class "root", excluded papers class "excluded".
func (g *GraphData) ToCytoscapeJSON() (string, error) {
	els := elements{
		Nodes: make([]element, 0, len(g.Nodes)),
		Edges: make([]element, 0, len(g.Edges)),
	}

	for _, n := range g.Nodes {
		el := element{Data: n}
		switch {
		case n.Level == 0:
			el.Classes = "root"
		case n.Type == NodeTypeExcluded:
			el.Classes = "excluded"
		}
		els.Nodes = append(els.Nodes, el)
	}

	// citation edges form a set, so source and target identify an edge
	for _, e := range g.Edges {
		els.Edges = append(els.Edges, element{Data: edgeData{
			ID:     e.Source + "->" + e.Target,
			Source: e.Source,
			Target: e.Target,
		}})
	}

	out, err := json.Marshal(els)
	if err != nil {
		return "", fmt.Errorf("marshaling graph elements: %w", err)
	}
	return string(out), nil
}
