package request

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/litmap/internal/domain"
)

// Source names an article provider.
type Source string

const (
	// SourceSemanticScholar is the single-call JSON search API.
	SourceSemanticScholar Source = "semantic-scholar"
	// SourcePubMed is the two-call search-then-fetch XML API.
	SourcePubMed Source = "pub-med"
)

// ParseSource validates a provider name.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceSemanticScholar, SourcePubMed:
		return Source(s), nil
	default:
		return "", fmt.Errorf("%w: unknown source %q", domain.ErrValidation, s)
	}
}

// MinClusters is the smallest cluster count a cut accepts.
const MinClusters = 2

// Search is a validated search request (value object).
type Search struct {
	query        string
	amount       int
	source       Source
	excludeEmpty bool
}

// NewSearch validates and creates a Search. maxAmount bounds the article count.
func NewSearch(query string, amount int, source string, excludeEmpty bool, maxAmount int) (Search, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Search{}, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}
	if amount < 1 || (maxAmount > 0 && amount > maxAmount) {
		return Search{}, domain.NewRangeError("articles", amount, 1, maxAmount)
	}
	src, err := ParseSource(source)
	if err != nil {
		return Search{}, err
	}
	return Search{query: query, amount: amount, source: src, excludeEmpty: excludeEmpty}, nil
}

// Query returns the free-text query.
func (s Search) Query() string { return s.query }

// Amount returns the requested article count.
func (s Search) Amount() int { return s.amount }

// Source returns the provider name.
func (s Search) Source() Source { return s.source }

// ExcludeEmpty reports whether articles without an abstract are dropped.
func (s Search) ExcludeEmpty() bool { return s.excludeEmpty }

// Cluster holds validated clustering parameters (value object).
type Cluster struct {
	clusters int
	prettify bool
	apiToken string
}

// NewCluster validates and creates clustering parameters. The upper bound of
// clusters depends on the document count and is checked by WithinDocuments.
func NewCluster(clusters int, prettify bool, apiToken string) (Cluster, error) {
	if clusters < MinClusters {
		return Cluster{}, domain.NewRangeError("clusters", clusters, MinClusters, clusters)
	}
	return Cluster{clusters: clusters, prettify: prettify, apiToken: apiToken}, nil
}

// Clusters returns the requested cluster count k.
func (c Cluster) Clusters() int { return c.clusters }

// Prettify reports whether labels should be refined by a language model.
func (c Cluster) Prettify() bool { return c.prettify }

// APIToken returns the completion API token supplied by the caller.
func (c Cluster) APIToken() string { return c.apiToken }

// WithinDocuments checks 2 <= k <= n.
func (c Cluster) WithinDocuments(n int) error {
	if c.clusters < MinClusters || c.clusters > n {
		return domain.NewRangeError("clusters", c.clusters, MinClusters, n)
	}
	return nil
}

// ParseCount parses a raw numeric parameter such as a cluster or article count.
func ParseCount(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrValidation, field, raw)
	}
	return n, nil
}
