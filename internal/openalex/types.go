package openalex

// OpenAlex API JSON structures.
type listResponse struct {
	Meta    listMeta `json:"meta"`
	Results []work   `json:"results"`
}

type listMeta struct {
	Count      int     `json:"count"`
	PerPage    int     `json:"per_page"`
	NextCursor *string `json:"next_cursor"`
}

type work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	CitedByCount    *int         `json:"cited_by_count"`
	Authorships     []authorship `json:"authorships"`
}

type authorship struct {
	Author author `json:"author"`
}

type author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
