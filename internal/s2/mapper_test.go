package s2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citegraph/internal/database"
)

func TestMapExternalIDsSkipsMalformed(t *testing.T) {
	corpus := int64(7)
	ids := mapExternalIDs(externalIDs{DOI: "  ", DBLP: "journals/x/Y21", CorpusID: &corpus})

	require.Len(t, ids, 2)
	assert.Equal(t, "dblp::journals/x/Y21", ids[0].String())
	assert.Equal(t, "corpusid::7", ids[1].String())
}

func TestMapPaperWithoutIDs(t *testing.T) {
	_, err := mapPaper(s2Paper{PaperID: "abc", Title: "orphan"})
	assert.ErrorIs(t, err, database.ErrInvalidResponse)
}

func TestMapAuthorsDropsBlankNames(t *testing.T) {
	authors := mapAuthors([]s2Author{{Name: "Ada Lovelace"}, {Name: ""}, {Name: "Euclid"}})

	require.Len(t, authors, 2)
	assert.Equal(t, "Lovelace", authors[0].Last)
	assert.Equal(t, "Euclid", authors[1].Last)
}
