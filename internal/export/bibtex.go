package export

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/matsen/citegraph/internal/paper"
)

// ToBibTeX converts one row to a BibTeX entry under the given key.
func ToBibTeX(r Row, key string) string {
	p := r.paper
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", determineEntryType(p), key))

	if len(p.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(p.Authors)))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(p.Title)))

	if p.Year > 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", p.Year))
	}

	for _, id := range p.ExternalIDs {
		switch id.Kind() {
		case paper.KindDOI:
			b.WriteString(fmt.Sprintf("  doi = {%s},\n", id.Value()))
		case paper.KindArXiv:
			b.WriteString(fmt.Sprintf("  eprint = {%s},\n", id.Value()))
			b.WriteString("  archiveprefix = {arXiv},\n")
		}
	}

	if p.URL != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", p.URL))
	}

	b.WriteString(fmt.Sprintf("  citegraph_id = {%s},\n", escapeLatex(r.ID)))
	b.WriteString(fmt.Sprintf("  citegraph_level = {%d},\n", r.Level))

	b.WriteString("}\n")

	return b.String()
}

// WriteBibTeX writes rows as BibTeX entries keyed "LastYear", with a
// letter suffix when keys collide.
func WriteBibTeX(w io.Writer, rows []Row) error {
	keys := newKeySet()
	for i, r := range rows {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, ToBibTeX(r, keys.next(r.paper))); err != nil {
			return fmt.Errorf("writing bibtex entry %s: %w", r.ID, err)
		}
	}
	return nil
}

// determineEntryType returns the BibTeX entry type for a paper.
func determineEntryType(p paper.Paper) string {
	for _, id := range p.ExternalIDs {
		// dblp keys of proceedings papers start with "conf/"
		if id.Kind() == paper.KindDBLP && strings.HasPrefix(id.Value(), "conf/") {
			return "inproceedings"
		}
	}
	return "article"
}

// keySet hands out unique citation keys.
type keySet struct {
	used map[string]int
}

func newKeySet() *keySet {
	return &keySet{used: make(map[string]int)}
}

func (k *keySet) next(p paper.Paper) string {
	base := citationKey(p)
	n := k.used[base]
	k.used[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s%c", base, 'a'+rune(n-1)%26)
}

// citationKey builds "LastYear" from the first author, falling back to
// the identifier value.
func citationKey(p paper.Paper) string {
	var raw string
	if len(p.Authors) > 0 {
		raw = p.Authors[0].Last
		if p.Year > 0 {
			raw += fmt.Sprint(p.Year)
		}
	} else {
		raw = p.ID.Value()
	}

	key := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, raw)
	if key == "" {
		return "paper"
	}
	return key
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []paper.Author) string {
	var formatted []string
	for _, a := range authors {
		if a.First != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", escapeLatex(a.Last), escapeLatex(a.First)))
		} else {
			formatted = append(formatted, escapeLatex(a.Last))
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
