package paper

// Edge is a directed citation: Citing cites Cited.
type Edge struct {
	Citing Identifier `json:"citing"`
	Cited  Identifier `json:"cited"`
}

// EdgeSet is an insertion-ordered set of edges.
type EdgeSet struct {
	order []Edge
	seen  map[Edge]struct{}
}

// NewEdgeSet creates an empty edge set.
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{seen: make(map[Edge]struct{})}
}

// Add inserts e and reports whether it was new.
func (s *EdgeSet) Add(e Edge) bool {
	if _, ok := s.seen[e]; ok {
		return false
	}
	s.seen[e] = struct{}{}
	s.order = append(s.order, e)
	return true
}

// Has reports whether e is in the set.
func (s *EdgeSet) Has(e Edge) bool {
	_, ok := s.seen[e]
	return ok
}

// Len returns the number of edges.
func (s *EdgeSet) Len() int {
	return len(s.order)
}

// Edges returns the edges in insertion order. The slice must not be modified.
func (s *EdgeSet) Edges() []Edge {
	return s.order
}

// Rename replaces from by to in every edge. Edges that become equal collapse
// into the earliest one.
func (s *EdgeSet) Rename(from, to Identifier) {
	order := s.order
	s.order = make([]Edge, 0, len(order))
	s.seen = make(map[Edge]struct{}, len(order))
	for _, e := range order {
		if e.Citing == from {
			e.Citing = to
		}
		if e.Cited == from {
			e.Cited = to
		}
		s.Add(e)
	}
}
