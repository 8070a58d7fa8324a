package cache

import (
	"time"

	"github.com/matsen/citegraph/internal/paper"
)

// Record is the persisted unit of the cache: a paper, the citation limit
// used the last time its citations were fetched, and the citing papers known
// so far.
type Record struct {
	ID    paper.Identifier `json:"id"`
	Paper paper.Paper      `json:"paper"`

	// FetchedLimit is nil until the citations of this paper were fetched.
	FetchedLimit *int `json:"fetched_limit,omitempty"`

	// Citations lists citing papers in the order the database returned them.
	Citations []paper.Identifier `json:"citations,omitempty"`
}

// HasMetadata reports whether the record carries paper metadata.
func (r Record) HasMetadata() bool {
	return !r.Paper.ID.IsZero()
}

// Covers reports whether the cached citations are authoritative for a
// request with the given limit, so no fetch is needed.
func (r Record) Covers(limit int) bool {
	return r.FetchedLimit != nil && *r.FetchedLimit >= limit
}

// CitationsUpTo returns at most limit cached citing identifiers.
func (r Record) CitationsUpTo(limit int) []paper.Identifier {
	if limit < len(r.Citations) {
		return r.Citations[:limit]
	}
	return r.Citations
}

func (r Record) clone() Record {
	c := r
	if r.FetchedLimit != nil {
		c.FetchedLimit = paper.IntPtr(*r.FetchedLimit)
	}
	if r.Citations != nil {
		c.Citations = append([]paper.Identifier(nil), r.Citations...)
	}
	if r.Paper.CitationCount != nil {
		c.Paper.CitationCount = paper.IntPtr(*r.Paper.CitationCount)
	}
	if r.Paper.ExternalIDs != nil {
		c.Paper.ExternalIDs = append([]paper.Identifier(nil), r.Paper.ExternalIDs...)
	}
	if r.Paper.Authors != nil {
		c.Paper.Authors = append([]paper.Author(nil), r.Paper.Authors...)
	}
	return c
}

// merge folds incoming into r. Metadata already known is kept. The fetched
// limit becomes the maximum of both, and the citation lists are united,
// ordered by whichever side was fetched with the larger limit.
func (r *Record) merge(incoming Record) {
	if !r.HasMetadata() && incoming.HasMetadata() {
		r.Paper = incoming.Paper
	}

	if incoming.FetchedLimit == nil {
		return
	}

	if r.FetchedLimit == nil || *incoming.FetchedLimit >= *r.FetchedLimit {
		r.Citations = unionIDs(incoming.Citations, r.Citations)
		r.FetchedLimit = paper.IntPtr(*incoming.FetchedLimit)
		return
	}
	r.Citations = unionIDs(r.Citations, incoming.Citations)
}

// unionIDs returns first followed by the ids of second not already present.
func unionIDs(first, second []paper.Identifier) []paper.Identifier {
	seen := make(map[paper.Identifier]bool, len(first)+len(second))
	out := make([]paper.Identifier, 0, len(first)+len(second))
	for _, list := range [][]paper.Identifier{first, second} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// RunInfo describes one traversal run that wrote to the cache.
type RunInfo struct {
	ID      string         `json:"id,omitempty"`
	Creator string         `json:"creator"`
	Version string         `json:"version"`
	Time    time.Time      `json:"time"`
	Root    string         `json:"root"`
	Options map[string]any `json:"options,omitempty"`
}

// Snapshot is the full durable state exchanged with a Backend.
type Snapshot struct {
	Version int
	Runs    []RunInfo
	Records []Record
}
