// Package exclude parses the set of papers whose citations must never be fetched.
package exclude

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matsen/citegraph/internal/paper"
)

// CommentPrefix marks a comment line in an exclusion file.
const CommentPrefix = "#"

// Set is a set of excluded identifiers. The zero value is not usable; a nil
// *Set excludes nothing.
type Set struct {
	ids   map[paper.Identifier]struct{}
	order []paper.Identifier
}

// New creates a set from the given identifiers.
func New(ids ...paper.Identifier) *Set {
	s := &Set{ids: make(map[paper.Identifier]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set.
func (s *Set) Add(id paper.Identifier) {
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

// Contains reports whether id is excluded.
func (s *Set) Contains(id paper.Identifier) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// ContainsPaper reports whether any identifier of p is excluded.
func (s *Set) ContainsPaper(p paper.Paper) bool {
	if s.Contains(p.ID) {
		return true
	}
	for _, id := range p.ExternalIDs {
		if s.Contains(id) {
			return true
		}
	}
	return false
}

// Len returns the number of excluded identifiers.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns the identifiers in insertion order.
func (s *Set) IDs() []paper.Identifier {
	if s == nil {
		return nil
	}
	return s.order
}

// Parse reads one "kind::value" per line. Blank lines and lines starting
// with "#" are skipped. The first malformed line is reported with its number.
func Parse(r io.Reader) (*Set, error) {
	s := New()
	scanner := bufio.NewScanner(r)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}

		id, err := paper.ParseIdentifier(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		s.Add(id)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclusion list: %w", err)
	}

	return s, nil
}

// ReadFile parses an exclusion file.
func ReadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening exclusion file: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing exclusion file %s: %w", path, err)
	}
	return s, nil
}

// FromArgs builds a set from command-line values. Each value is either an
// inline "kind::value" identifier or the path to an exclusion file.
func FromArgs(values []string) (*Set, error) {
	s := New()
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if strings.Contains(v, paper.Separator) {
			if _, err := os.Stat(v); err != nil {
				id, err := paper.ParseIdentifier(v)
				if err != nil {
					return nil, err
				}
				s.Add(id)
				continue
			}
		}

		fromFile, err := ReadFile(v)
		if err != nil {
			return nil, err
		}
		for _, id := range fromFile.IDs() {
			s.Add(id)
		}
	}
	return s, nil
}
