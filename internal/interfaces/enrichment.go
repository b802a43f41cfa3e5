package interfaces

import "context"

// CompanyFacts is what an enrichment lookup could establish about a
// company. Empty fields mean the source had nothing; lookups never invent
// values.
type CompanyFacts struct {
	About                string `json:"about,omitempty"`
	Website              string `json:"website,omitempty"`
	HeadquartersLocation string `json:"headquarters_location,omitempty"`
	Industry             string `json:"industry,omitempty"`
	Founded              string `json:"founded,omitempty"`
	EmployeeCount        int    `json:"employee_count,omitempty"`
	Source               string `json:"source"`
}

// WikiLookup resolves company facts from Wikipedia/Wikidata.
type WikiLookup interface {
	Lookup(ctx context.Context, companyName string) (*CompanyFacts, error)
}

// SearchResult is one ordered web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// ErrSearchQuotaExceeded is a soft skip: the daily search cap was hit.
type ErrSearchQuotaExceeded struct{}

func (ErrSearchQuotaExceeded) Error() string { return "daily search quota exceeded" }

// SearchService performs a web search. Implementations are stateless
// request/response and do no retries.
type SearchService interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// Page is a fetched HTML page with a capped body.
type Page struct {
	StatusCode int
	FinalURL   string
	Body       string
	Truncated  bool
}

// PageFetcher fetches a URL with configured timeout, user agent and body
// cap, following at most the configured number of same-host redirects.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}
