// Package export writes the papers of a traversal as a level-ordered list.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/matsen/citegraph/internal/paper"
)

// Supported list formats.
const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatBibTeX = "bibtex"
)

// CSVHeader is the first line of a CSV list.
var CSVHeader = []string{"level", "id", "title", "authors", "year", "citation_count", "url"}

// Source is the traversal result being exported. *traverse.Graph
// implements it.
type Source interface {
	Papers() []paper.Paper
	Level(id paper.Identifier) (int, bool)
}

// Row is one paper of the list.
type Row struct {
	Level         int    `json:"level"`
	ID            string `json:"id"`
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Year          int    `json:"year,omitempty"`
	CitationCount *int   `json:"citation_count"`
	URL           string `json:"url,omitempty"`

	paper paper.Paper
}

// Rows returns the papers of g ordered by level. Papers on the same level
// keep their discovery order.
func Rows(g Source) []Row {
	papers := g.Papers()
	rows := make([]Row, 0, len(papers))
	for _, p := range papers {
		level, _ := g.Level(p.ID)
		rows = append(rows, Row{
			Level:         level,
			ID:            p.ID.String(),
			Title:         p.Title,
			Authors:       p.AuthorsString(false),
			Year:          p.Year,
			CitationCount: p.CitationCount,
			URL:           p.URL,
			paper:         p,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Level < rows[j].Level
	})
	return rows
}

// Write writes the list of g to w in the given format.
func Write(w io.Writer, g Source, format string) error {
	rows := Rows(g)
	switch format {
	case "", FormatCSV:
		return WriteCSV(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	case FormatBibTeX:
		return WriteBibTeX(w, rows)
	default:
		return fmt.Errorf("unknown list format %q", format)
	}
}

// WriteCSV writes rows as CSV with CSVHeader. Unknown years and citation
// counts are left empty.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Level),
			r.ID,
			r.Title,
			r.Authors,
			optionalInt(r.Year),
			"",
			r.URL,
		}
		if r.CitationCount != nil {
			record[5] = strconv.Itoa(*r.CitationCount)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding json list: %w", err)
	}
	return nil
}

func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
