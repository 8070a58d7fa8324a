package viz

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matsen/citegraph/internal/paper"
)

// fakeSource is a hand-built traversal result.
type fakeSource struct {
	papers   []paper.Paper
	levels   map[paper.Identifier]int
	excluded map[paper.Identifier]bool
	edges    []paper.Edge
}

func (f *fakeSource) Len() int              { return len(f.papers) }
func (f *fakeSource) Papers() []paper.Paper { return f.papers }
func (f *fakeSource) Edges() []paper.Edge   { return f.edges }

func (f *fakeSource) Has(id paper.Identifier) bool {
	_, ok := f.levels[id]
	return ok
}

func (f *fakeSource) Level(id paper.Identifier) (int, bool) {
	l, ok := f.levels[id]
	return l, ok
}

func (f *fakeSource) Excluded(id paper.Identifier) bool { return f.excluded[id] }

func doi(v string) paper.Identifier {
	return paper.MustIdentifier(paper.KindDOI, v)
}

func sampleSource() *fakeSource {
	root := paper.Paper{
		ID:            doi("10.1/root"),
		Title:         "Root <paper>",
		Authors:       []paper.Author{{First: "Ada", Last: "Lovelace"}, {Last: "Babbage"}, {Last: "Boole"}},
		Year:          1843,
		CitationCount: paper.IntPtr(2),
	}
	a := paper.Paper{ID: doi("10.1/a"), Title: "A", CitationCount: paper.IntPtr(0)}
	b := paper.Paper{ID: doi("10.1/b"), Title: "B"}
	return &fakeSource{
		papers: []paper.Paper{root, a, b},
		levels: map[paper.Identifier]int{root.ID: 0, a.ID: 1, b.ID: 1},
		excluded: map[paper.Identifier]bool{
			b.ID: true,
		},
		edges: []paper.Edge{
			{Citing: a.ID, Cited: root.ID},
			{Citing: b.ID, Cited: root.ID},
			{Citing: doi("10.1/outside"), Cited: root.ID},
		},
	}
}

func TestBuildGraph(t *testing.T) {
	data := BuildGraph(sampleSource())

	if len(data.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(data.Nodes))
	}
	if len(data.Edges) != 2 {
		t.Fatalf("got %d edges, want 2 (edges to unknown papers dropped)", len(data.Edges))
	}

	root := data.Nodes[0]
	if root.ID != "doi::10.1/root" {
		t.Errorf("root ID = %q", root.ID)
	}
	if root.Label != "Lovelace et al. 1843" {
		t.Errorf("root Label = %q", root.Label)
	}
	if root.Authors != "Ada Lovelace, Babbage and Boole" {
		t.Errorf("root Authors = %q", root.Authors)
	}
	if root.Color != LevelColor(0) || root.Level != 0 {
		t.Errorf("root Color/Level = %q/%d", root.Color, root.Level)
	}

	if data.Nodes[1].Type != NodeTypePaper {
		t.Errorf("a Type = %q, want %q", data.Nodes[1].Type, NodeTypePaper)
	}
	if data.Nodes[2].Type != NodeTypeExcluded {
		t.Errorf("b Type = %q, want %q", data.Nodes[2].Type, NodeTypeExcluded)
	}

	e := data.Edges[0]
	if e.Source != "doi::10.1/a" || e.Target != "doi::10.1/root" {
		t.Errorf("edge = %s -> %s, want citing -> cited", e.Source, e.Target)
	}
}

func TestNodeSize(t *testing.T) {
	if got := NodeSize(nil); got != minNodeSize {
		t.Errorf("NodeSize(nil) = %v, want %v", got, minNodeSize)
	}
	if got := NodeSize(paper.IntPtr(0)); got != minNodeSize {
		t.Errorf("NodeSize(0) = %v, want %v", got, minNodeSize)
	}
	small := NodeSize(paper.IntPtr(10))
	large := NodeSize(paper.IntPtr(10000))
	if !(minNodeSize < small && small < large) {
		t.Errorf("sizes not increasing: %v, %v", small, large)
	}
}

func TestLevelColor(t *testing.T) {
	last := levelColors[len(levelColors)-1]
	tests := []struct {
		level int
		want  string
	}{
		{-1, levelColors[0]},
		{0, levelColors[0]},
		{1, levelColors[1]},
		{len(levelColors) + 3, last},
	}
	for _, tt := range tests {
		if got := LevelColor(tt.level); got != tt.want {
			t.Errorf("LevelColor(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestToCytoscapeJSON(t *testing.T) {
	out, err := BuildGraph(sampleSource()).ToCytoscapeJSON()
	if err != nil {
		t.Fatalf("ToCytoscapeJSON: %v", err)
	}

	var got struct {
		Nodes []struct {
			Data    Node   `json:"data"`
			Classes string `json:"classes"`
		} `json:"nodes"`
		Edges []struct {
			Data edgeData `json:"data"`
		} `json:"edges"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got.Nodes) != 3 || len(got.Edges) != 2 {
		t.Fatalf("got %d nodes / %d edges", len(got.Nodes), len(got.Edges))
	}

	wantClasses := []string{"root", "", "excluded"}
	for i, n := range got.Nodes {
		if n.Classes != wantClasses[i] {
			t.Errorf("node %s classes = %q, want %q", n.Data.ID, n.Classes, wantClasses[i])
		}
	}
	if id := got.Edges[0].Data.ID; id != "doi::10.1/a->doi::10.1/root" {
		t.Errorf("edge ID = %q", id)
	}
}

func TestGenerateHTML(t *testing.T) {
	page, err := GenerateHTML(BuildGraph(sampleSource()), HTMLOptions{Layout: "circle", Title: "Lovelace et al. 1843"})
	if err != nil {
		t.Fatalf("GenerateHTML: %v", err)
	}

	for _, want := range []string{
		"<title>Lovelace et al. 1843</title>",
		`const layout = "circle"`,
		"3 papers, 2 citations",
		"level 1 (2)",
		"cytoscape.min.js",
		"doi::10.1/root",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "Root <paper>") {
		t.Error("title was not escaped inside the script")
	}
}

func TestGenerateHTML_Empty(t *testing.T) {
	page, err := GenerateHTML(&GraphData{}, DefaultOptions())
	if err != nil {
		t.Fatalf("GenerateHTML: %v", err)
	}
	if !strings.Contains(page, "No graph data") {
		t.Error("empty page missing placeholder")
	}
}

func TestGenerateHTML_Errors(t *testing.T) {
	if _, err := GenerateHTML(nil, DefaultOptions()); err == nil {
		t.Error("expected error for nil graph")
	}
	if _, err := GenerateHTML(&GraphData{}, HTMLOptions{Layout: "spiral"}); err == nil {
		t.Error("expected error for invalid layout")
	}
}

func TestLayoutToCytoscape(t *testing.T) {
	tests := map[string]string{
		"":       "cose",
		"force":  "cose",
		"circle": "circle",
		"grid":   "grid",
	}
	for in, want := range tests {
		if got := layoutToCytoscape(in); got != want {
			t.Errorf("layoutToCytoscape(%q) = %q, want %q", in, got, want)
		}
	}
}
