package s2

// s2Paper is a paper as returned by the Semantic Scholar Graph API.
type s2Paper struct {
	PaperID       string      `json:"paperId"`
	ExternalIDs   externalIDs `json:"externalIds"`
	Title         string      `json:"title"`
	Authors       []s2Author  `json:"authors"`
	Year          *int        `json:"year"`
	URL           string      `json:"url"`
	CitationCount *int        `json:"citationCount"`
}

// externalIDs contains the external identifiers S2 knows for a paper.
// Kinds the graph does not use (PubMed, MAG, ACL) are ignored.
type externalIDs struct {
	DOI      string `json:"DOI,omitempty"`
	DBLP     string `json:"DBLP,omitempty"`
	ArXiv    string `json:"ArXiv,omitempty"`
	CorpusID *int64 `json:"CorpusId,omitempty"`
}

// s2Author represents an author from the Semantic Scholar API.
type s2Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// citationsResponse is the response from the citations endpoint.
type citationsResponse struct {
	Offset int  `json:"offset"`
	Next   *int `json:"next,omitempty"`
	Data   []struct {
		CitingPaper *s2Paper `json:"citingPaper"`
	} `json:"data"`
}

// errorResponse is the body S2 sends with 4xx responses.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
