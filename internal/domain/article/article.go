package article

import (
	"fmt"
	"strings"
)

// Article is a fetched document (immutable value object).
type Article struct {
	title         string
	abstract      string
	year          int
	citationCount int
	url           string
}

// New validates and creates an Article. A missing or non-string abstract is passed as "".
func New(title, abstract string, year, citationCount int, url string) (Article, error) {
	if strings.TrimSpace(title) == "" {
		return Article{}, fmt.Errorf("article title is required")
	}
	if citationCount < 0 {
		return Article{}, fmt.Errorf("citation count must be non-negative, got %d", citationCount)
	}
	return Article{
		title:         title,
		abstract:      abstract,
		year:          year,
		citationCount: citationCount,
		url:           url,
	}, nil
}

// Reconstruct creates an Article without validation (storage hydration).
func Reconstruct(title, abstract string, year, citationCount int, url string) Article {
	return Article{title: title, abstract: abstract, year: year, citationCount: citationCount, url: url}
}

// Title returns the article title.
func (a *Article) Title() string { return a.title }

// Abstract returns the abstract, "" when the provider had none.
func (a *Article) Abstract() string { return a.abstract }

// Year returns the publication year.
func (a *Article) Year() int { return a.year }

// CitationCount returns the number of citations reported by the provider.
func (a *Article) CitationCount() int { return a.citationCount }

// URL returns the canonical article link.
func (a *Article) URL() string { return a.url }

// IsEmpty reports whether the article has no usable abstract.
func (a *Article) IsEmpty() bool {
	return strings.TrimSpace(a.abstract) == ""
}

// Text returns the text used for tokenization: title and abstract.
func (a *Article) Text() string {
	return a.title + " " + a.abstract
}

// Titles returns the titles of the articles at the given indexes.
func Titles(articles []Article, indexes []int) []string {
	out := make([]string, 0, len(indexes))
	for _, i := range indexes {
		if i >= 0 && i < len(articles) {
			out = append(out, articles[i].title)
		}
	}
	return out
}

// FilterNonEmpty returns the articles that have a usable abstract.
func FilterNonEmpty(articles []Article) []Article {
	out := make([]Article, 0, len(articles))
	for i := range articles {
		if !articles[i].IsEmpty() {
			out = append(out, articles[i])
		}
	}
	return out
}
