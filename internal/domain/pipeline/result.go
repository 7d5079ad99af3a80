package pipeline

import (
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
	"github.com/kailas-cloud/litmap/internal/domain/request"
)

// SearchResult is the immutable output of one search and the input of every
// reclusterize call against it.
type SearchResult struct {
	Request    request.Search
	Generation uint64
	Documents  []article.Article
	Tokens     [][]string
	Embeddings [][]float64
	Projection []projection.Point
	Tree       cluster.Tree
}

// Len returns the number of documents.
func (r *SearchResult) Len() int { return len(r.Documents) }

// ClusterizeResult is the output of one reclusterize call.
type ClusterizeResult struct {
	Params     request.Cluster
	Assignment cluster.Assignment
	Keywords   [][]string
	Labels     []string
	Centroids  []projection.Point
	Refined    bool
}

// K returns the number of clusters.
func (r *ClusterizeResult) K() int { return len(r.Labels) }
