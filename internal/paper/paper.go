// Package paper defines the core domain types of the citation graph:
// identifiers, papers, authors and citation edges.
package paper

import (
	"fmt"
	"strings"
)

// Author represents a paper author.
type Author struct {
	First string `json:"first"` // First/given name(s)
	Last  string `json:"last"`  // Last/family name
}

// Name returns "First Last", or just the last name when no first name is known.
func (a Author) Name() string {
	if a.First == "" {
		return a.Last
	}
	return a.First + " " + a.Last
}

// Paper is one publication. Two papers are the same paper iff their
// identifiers are equal; metadata never takes part in identity.
type Paper struct {
	ID          Identifier   `json:"id"`
	ExternalIDs []Identifier `json:"external_ids,omitempty"`
	Title       string       `json:"title"`
	Authors     []Author     `json:"authors,omitempty"`
	Year        int          `json:"year,omitempty"`
	URL         string       `json:"url,omitempty"`

	// CitationCount is the total reported by the database, nil if unknown.
	CitationCount *int `json:"citation_count,omitempty"`
}

// New builds a paper from its known external ids. The primary identifier is
// the first id whose kind comes first in Kinds. Returns an error when no
// usable id is given.
func New(ids []Identifier, title string) (Paper, error) {
	ordered := OrderIDs(ids)
	if len(ordered) == 0 {
		return Paper{}, fmt.Errorf("%w: paper %q has no supported external id", ErrInvalidIdentifier, title)
	}
	return Paper{ID: ordered[0], ExternalIDs: ordered, Title: title}, nil
}

// OrderIDs drops zero and duplicate identifiers and sorts the rest by kind
// priority, keeping the first id seen per kind.
func OrderIDs(ids []Identifier) []Identifier {
	byKind := make(map[Kind]Identifier, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, seen := byKind[id.kind]; !seen {
			byKind[id.kind] = id
		}
	}

	ordered := make([]Identifier, 0, len(byKind))
	for _, k := range Kinds {
		if id, ok := byKind[k]; ok {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

// Same reports whether p and o denote the same publication.
func (p Paper) Same(o Paper) bool {
	return p.ID == o.ID
}

// HasID reports whether id is the primary or one of the external ids of p.
func (p Paper) HasID(id Identifier) bool {
	if p.ID == id {
		return true
	}
	for _, ext := range p.ExternalIDs {
		if ext == id {
			return true
		}
	}
	return false
}

// KnownUncited reports whether the database said nobody cites this paper.
func (p Paper) KnownUncited() bool {
	return p.CitationCount != nil && *p.CitationCount == 0
}

// AuthorsString renders the author list as "A, B and C". With short set, only
// last names are used and more than two authors collapse to "A et al.".
func (p Paper) AuthorsString(short bool) string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if short {
			names = append(names, a.Last)
		} else {
			names = append(names, a.Name())
		}
	}

	switch {
	case len(names) > 2 && short:
		return names[0] + " et al."
	case len(names) > 2:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	case len(names) == 2:
		return names[0] + " and " + names[1]
	case len(names) == 1:
		return names[0]
	default:
		return ""
	}
}

// String returns a short label such as "Haas et al. 2017".
func (p Paper) String() string {
	label := p.AuthorsString(true)
	if label == "" {
		label = p.ID.String()
	}
	if p.Year > 0 {
		return fmt.Sprintf("%s %d", label, p.Year)
	}
	return label
}

// IntPtr returns a pointer to v, for populating CitationCount.
func IntPtr(v int) *int {
	return &v
}
