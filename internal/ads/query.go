package ads

import (
	"fmt"

	"github.com/rsaa/lunations/internal/lunation"
)

// DefaultQuery scopes every search to the university's affiliation.
const DefaultQuery = `aff:"Australian National University"`

// SearchFields are the Solr fields requested for every document.
const SearchFields = "id,first_author,author,aff,title,year,bibcode,identifier,journal,volume,pub,page,issue,pubdate"

// MonthQuery builds the search expression for one lunation: refereed papers
// with a matching publication date, plus preprints whose arXiv identifier
// carries the lunation's YYMM prefix.
func MonthQuery(affiliation string, l lunation.Lunation) string {
	if affiliation == "" {
		affiliation = DefaultQuery
	}
	return fmt.Sprintf(`%s AND ((property:refereed AND pubdate:%04d-%02d) OR identifier:"%02d%02d.*")`,
		affiliation, l.Year, l.Month, l.Year%100, l.Month)
}
