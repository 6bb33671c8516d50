// Package digest renders the monthly executive summary of new articles.
package digest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rsaa/lunations/internal/ads"
	"github.com/rsaa/lunations/internal/affiliation"
)

const (
	// MaxFullAuthorList is the longest author list rendered in full.
	// Longer lists keep the first author and the school's authors and
	// elide the runs in between.
	MaxFullAuthorList = 50

	// noMatchOrder sorts articles without a school author to the end.
	noMatchOrder = 1000
)

// Article pairs a document with the school authors found on it.
type Article struct {
	Doc     ads.Document
	Matches []affiliation.Match
}

// firstMatchIndex is the author-list position of the first school author.
func (a Article) firstMatchIndex() int {
	if len(a.Matches) == 0 {
		return noMatchOrder
	}
	return a.Matches[0].Index
}

// formatAuthor renders one author name, highlighting school authors.
func formatAuthor(name string, matched bool) string {
	if matched {
		return "*" + strings.ToUpper(name) + "*"
	}
	return name
}

// FormatAuthors renders the author list for one article. Lists up to
// MaxFullAuthorList names print in full; longer lists keep the first author
// and every school author, collapse each skipped run to "...", close with
// "et al." when the tail was skipped, and report how many names were elided.
func FormatAuthors(doc ads.Document, matches []affiliation.Match) string {
	matched := make(map[int]bool, len(matches))
	for _, m := range matches {
		matched[m.Index] = true
	}

	authors := doc.Author
	if len(authors) <= MaxFullAuthorList {
		parts := make([]string, len(authors))
		for i, name := range authors {
			parts[i] = formatAuthor(name, matched[i])
		}
		return strings.Join(parts, "; ")
	}

	var parts []string
	skip, totalSkip := 0, 0
	for i, name := range authors {
		switch {
		case i == 0:
			parts = append(parts, formatAuthor(name, matched[i]))
		case matched[i]:
			if skip > 0 {
				parts = append(parts, "...")
				skip = 0
			}
			parts = append(parts, formatAuthor(name, true))
		default:
			skip++
			totalSkip++
		}
	}
	if skip > 0 {
		parts = append(parts, "et al.")
	}

	return strings.Join(parts, "; ") + fmt.Sprintf(" (%d authors not shown)", totalSkip)
}

// FormatArticle renders one numbered digest entry as an HTML fragment.
// Articles without a volume are marked "in press".
func FormatArticle(n int, a Article) string {
	doc := a.Doc

	volume := doc.Volume
	if volume == "" {
		volume = "in press"
	}
	issue := ""
	if doc.Issue != "" {
		issue = ", " + doc.Issue
	}
	page := ""
	if p := doc.PageText(); p != "" {
		page = ", " + p
	}

	return fmt.Sprintf(`%d. <a href="%s">%s</a><br>%s, %s, %s%s%s (%s).<br>`,
		n, doc.AbstractURL(), doc.TitleText(), FormatAuthors(doc, a.Matches),
		doc.Pub, volume, issue, page, doc.PubYear())
}

// Order returns the articles sorted so papers led by a school author come
// first. The sort is stable, so ties keep their search-result order.
func Order(articles []Article) []Article {
	out := make([]Article, len(articles))
	copy(out, articles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].firstMatchIndex() < out[j].firstMatchIndex()
	})
	return out
}

// Render produces the digest body: numbered entries joined by newlines.
func Render(articles []Article) string {
	lines := make([]string, len(articles))
	for i, a := range articles {
		lines[i] = FormatArticle(i+1, a)
	}
	return strings.Join(lines, "\n")
}
