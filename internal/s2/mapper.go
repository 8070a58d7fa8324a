package s2

import (
	"fmt"
	"strconv"

	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/paper"
)

// PaperBaseURL is used to link papers that come without a url.
const PaperBaseURL = "https://www.semanticscholar.org/paper/"

// mapPaper converts an S2 paper into the domain model.
func mapPaper(p s2Paper) (paper.Paper, error) {
	ids := mapExternalIDs(p.ExternalIDs)
	out, err := paper.New(ids, p.Title)
	if err != nil {
		return paper.Paper{}, fmt.Errorf("%w: S2 paper %s: %v", database.ErrInvalidResponse, p.PaperID, err)
	}

	out.Authors = mapAuthors(p.Authors)
	if p.Year != nil {
		out.Year = *p.Year
	}
	if p.CitationCount != nil {
		out.CitationCount = paper.IntPtr(*p.CitationCount)
	}
	out.URL = p.URL
	if out.URL == "" && p.PaperID != "" {
		out.URL = PaperBaseURL + p.PaperID
	}
	return out, nil
}

// mapExternalIDs collects the identifiers of the supported kinds. Malformed
// values are skipped.
func mapExternalIDs(ext externalIDs) []paper.Identifier {
	var ids []paper.Identifier
	add := func(kind paper.Kind, value string) {
		if value == "" {
			return
		}
		if id, err := paper.NewIdentifier(kind, value); err == nil {
			ids = append(ids, id)
		}
	}

	add(paper.KindDOI, ext.DOI)
	add(paper.KindDBLP, ext.DBLP)
	add(paper.KindArXiv, ext.ArXiv)
	if ext.CorpusID != nil {
		add(paper.KindCorpusID, strconv.FormatInt(*ext.CorpusID, 10))
	}
	return ids
}

// mapAuthors converts S2 authors to domain authors.
func mapAuthors(s2Authors []s2Author) []paper.Author {
	authors := make([]paper.Author, 0, len(s2Authors))
	for _, a := range s2Authors {
		if author, ok := paper.ParseAuthor(a.Name); ok {
			authors = append(authors, author)
		}
	}
	return authors
}
