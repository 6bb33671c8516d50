// Package ads provides a client for the NASA ADS search API.
package ads

// AbstractBaseURL prefixes a bibcode to form the public abstract page link.
const AbstractBaseURL = "https://ui.adsabs.harvard.edu/abs/"

// Document represents one bibliographic record returned by the search API.
// Solr array fields keep their array shape; first-element access goes
// through the helper methods.
type Document struct {
	ID          string   `json:"id"`
	Bibcode     string   `json:"bibcode"`
	Title       []string `json:"title,omitempty"`
	FirstAuthor string   `json:"first_author,omitempty"`
	Author      []string `json:"author,omitempty"`
	Aff         []string `json:"aff,omitempty"`
	Year        string   `json:"year,omitempty"`
	Identifier  []string `json:"identifier,omitempty"`
	Journal     string   `json:"journal,omitempty"`
	Volume      string   `json:"volume,omitempty"`
	Pub         string   `json:"pub,omitempty"`
	Page        []string `json:"page,omitempty"`
	Issue       string   `json:"issue,omitempty"`
	Pubdate     string   `json:"pubdate,omitempty"` // YYYY-MM-DD, day usually 00
}

// TitleText returns the first title entry, or "" when absent.
func (d Document) TitleText() string {
	if len(d.Title) == 0 {
		return ""
	}
	return d.Title[0]
}

// PageText returns the first page entry, or "" when absent.
func (d Document) PageText() string {
	if len(d.Page) == 0 {
		return ""
	}
	return d.Page[0]
}

// AbstractURL returns the public abstract page for the document.
func (d Document) AbstractURL() string {
	return AbstractBaseURL + d.Bibcode
}

// PubYear returns the year component of the publication date.
func (d Document) PubYear() string {
	for i := 0; i < len(d.Pubdate); i++ {
		if d.Pubdate[i] == '-' {
			return d.Pubdate[:i]
		}
	}
	return d.Pubdate
}

// SearchResult is one page of search results.
type SearchResult struct {
	NumFound int        `json:"numFound"`
	Start    int        `json:"start"`
	Docs     []Document `json:"docs"`
}

// searchResponse is the envelope the search endpoint wraps results in.
type searchResponse struct {
	Response SearchResult `json:"response"`
}
