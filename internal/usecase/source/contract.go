package source

import (
	"context"

	"github.com/kailas-cloud/litmap/internal/domain/article"
)

// Fetcher is the capability every article provider implements: one page of
// results for query starting at offset.
type Fetcher interface {
	Fetch(ctx context.Context, query string, limit, offset int) ([]article.Article, error)
}

// ProgressFunc receives the running total after every page.
type ProgressFunc func(fetched, amount int)
