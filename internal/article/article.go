// Package article defines the article document and its Markdown
// frontmatter serialization.
package article

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultAuthor is used when a publish request omits the author.
const DefaultAuthor = "Serpmax Team"

// Article is the unit of content published to the site.
type Article struct {
	Title       string
	Description string
	// Date is an ISO 8601 calendar date (YYYY-MM-DD).
	Date     string
	Slug     string
	Keywords []string
	Author   string
	// Image is an optional featured image URL.
	Image     string
	Content   string
	Published bool
}

// ApplyDefaults fills optional fields: today's date, the default author.
func (a *Article) ApplyDefaults(now time.Time) {
	if a.Date == "" {
		a.Date = now.Format("2006-01-02")
	}
	if a.Author == "" {
		a.Author = DefaultAuthor
	}
}

// MissingFields returns the names of required fields that are empty, in a
// fixed order so error messages are stable.
func (a Article) MissingFields() []string {
	var missing []string
	if a.Title == "" {
		missing = append(missing, "title")
	}
	if a.Description == "" {
		missing = append(missing, "description")
	}
	if a.Slug == "" {
		missing = append(missing, "slug")
	}
	if a.Content == "" {
		missing = append(missing, "content")
	}
	return missing
}

// Document serializes the article as a frontmatter header block followed by
// a blank line and the body. Embedded quotes in string fields are escaped so
// the header stays parseable; the image key is omitted entirely when absent.
func (a Article) Document() []byte {
	keywords := a.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	// json.Marshal cannot fail for a []string.
	keywordsJSON, _ := json.Marshal(keywords)

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", a.Title)
	fmt.Fprintf(&b, "description: %q\n", a.Description)
	fmt.Fprintf(&b, "date: %q\n", a.Date)
	fmt.Fprintf(&b, "slug: %q\n", a.Slug)
	fmt.Fprintf(&b, "keywords: %s\n", keywordsJSON)
	fmt.Fprintf(&b, "author: %q\n", a.Author)
	if a.Image != "" {
		fmt.Fprintf(&b, "image: %q\n", a.Image)
	}
	fmt.Fprintf(&b, "published: %t\n", a.Published)
	b.WriteString("---\n\n")
	b.WriteString(a.Content)
	return []byte(b.String())
}
