package pipeline

import (
	"context"

	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	"github.com/kailas-cloud/litmap/internal/repository/session"
	clusteruc "github.com/kailas-cloud/litmap/internal/usecase/cluster"
	"github.com/kailas-cloud/litmap/internal/usecase/source"
	"github.com/kailas-cloud/litmap/internal/usecase/vectorize"
)

// ArticleSource fetches the documents of a search.
type ArticleSource interface {
	Fetch(ctx context.Context, req request.Search, onProgress source.ProgressFunc) ([]article.Article, error)
}

// VectorTable provides the word-vector table, loading it on first use.
type VectorTable interface {
	Get(ctx context.Context) (vectorize.Table, error)
}

// Tokenizer splits document text into normalized word tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Projector reduces embeddings to 2D points.
type Projector interface {
	Project(ctx context.Context, vectors [][]float64) ([]projection.Point, error)
}

// TreeBuilder builds the agglomerative clustering tree over projected points.
type TreeBuilder interface {
	Build(ctx context.Context, points []projection.Point) (cluster.Tree, error)
}

// TreeBuilderFunc adapts a function to TreeBuilder.
type TreeBuilderFunc func(ctx context.Context, points []projection.Point) (cluster.Tree, error)

// Build calls f.
func (f TreeBuilderFunc) Build(ctx context.Context, points []projection.Point) (cluster.Tree, error) {
	return f(ctx, points)
}

// Clusterer cuts the tree and extracts keywords off the caller's goroutine.
type Clusterer interface {
	Clusterize(ctx context.Context, req clusteruc.Request) (clusteruc.Response, error)
}

// Refiner replaces keyword labels with generated phrases, best effort.
type Refiner interface {
	Refine(ctx context.Context, labels []string, titles [][]string, apiToken string) ([]string, bool)
}

// SessionStore persists the latest search result.
type SessionStore interface {
	Save(ctx context.Context, snap session.Snapshot) error
	Load(ctx context.Context) (session.Snapshot, error)
}
