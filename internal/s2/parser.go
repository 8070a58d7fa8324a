package s2

import (
	"fmt"

	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/paper"
)

// Identifier prefixes understood by the Semantic Scholar paper endpoints.
var identifierPrefixes = map[paper.Kind]string{
	paper.KindDOI:      "DOI:",
	paper.KindArXiv:    "ARXIV:",
	paper.KindCorpusID: "CorpusId:",
}

// APIPaperID formats id the way the S2 paper endpoints expect it, e.g.
// DOI:10.1038/nature12373 or CorpusId:215416146. dblp keys cannot be looked
// up directly and yield database.ErrUnsupportedID.
func APIPaperID(id paper.Identifier) (string, error) {
	prefix, ok := identifierPrefixes[id.Kind()]
	if !ok {
		return "", fmt.Errorf("%w: %s", database.ErrUnsupportedID, id)
	}
	return prefix + id.Value(), nil
}
