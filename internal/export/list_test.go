package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matsen/citegraph/internal/paper"
)

type fakeSource struct {
	papers []paper.Paper
	levels map[paper.Identifier]int
}

func (f *fakeSource) Papers() []paper.Paper { return f.papers }

func (f *fakeSource) Level(id paper.Identifier) (int, bool) {
	l, ok := f.levels[id]
	return l, ok
}

func doi(v string) paper.Identifier {
	return paper.MustIdentifier(paper.KindDOI, v)
}

// sampleSource lists a level-2 paper before a level-1 one to check ordering.
func sampleSource() *fakeSource {
	root, _ := paper.New([]paper.Identifier{doi("10.1/root"), paper.MustIdentifier(paper.KindArXiv, "2106.15928")}, "Root, with comma")
	root.Authors = []paper.Author{{First: "Ada", Last: "Lovelace"}, {First: "Charles", Last: "Babbage"}}
	root.Year = 2021
	root.CitationCount = paper.IntPtr(2)
	root.URL = "https://example.org/root"

	deep := paper.Paper{ID: doi("10.1/deep"), Title: "Deep"}
	near := paper.Paper{ID: doi("10.1/near"), Title: "Near", Year: 2022, CitationCount: paper.IntPtr(0)}

	return &fakeSource{
		papers: []paper.Paper{root, deep, near},
		levels: map[paper.Identifier]int{root.ID: 0, deep.ID: 2, near.ID: 1},
	}
}

func TestRowsOrderedByLevel(t *testing.T) {
	rows := Rows(sampleSource())

	var got []string
	for _, r := range rows {
		got = append(got, r.ID)
	}
	want := []string{"doi::10.1/root", "doi::10.1/near", "doi::10.1/deep"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Rows() order = %v, want %v", got, want)
	}
	if rows[0].Authors != "Ada Lovelace and Charles Babbage" {
		t.Errorf("Authors = %q", rows[0].Authors)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleSource(), FormatCSV); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want header + 3", len(records))
	}
	if strings.Join(records[0], ",") != "level,id,title,authors,year,citation_count,url" {
		t.Errorf("header = %v", records[0])
	}

	root := records[1]
	if root[0] != "0" || root[2] != "Root, with comma" || root[4] != "2021" || root[5] != "2" {
		t.Errorf("root record = %v", root)
	}

	near := records[2]
	if near[5] != "0" {
		t.Errorf("known zero count should be written, got %q", near[5])
	}

	deep := records[3]
	if deep[4] != "" || deep[5] != "" {
		t.Errorf("unknown year and count should be empty, got %v", deep)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleSource(), FormatJSON); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0]["id"] != "doi::10.1/root" || got[0]["citation_count"] != float64(2) {
		t.Errorf("root entry = %v", got[0])
	}
	if got[2]["citation_count"] != nil {
		t.Errorf("unknown citation count should be null, got %v", got[2]["citation_count"])
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleSource(), "xml"); err == nil {
		t.Error("Write() should reject unknown formats")
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, &fakeSource{}, FormatJSON); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON list = %q, want []", buf.String())
	}
}
