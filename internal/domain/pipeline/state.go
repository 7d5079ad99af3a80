package pipeline

import (
	"fmt"

	"github.com/kailas-cloud/litmap/internal/domain/request"
)

// Tag identifies an orchestrator state.
type Tag string

// State tags.
const (
	TagIdle       Tag = "not_searched"
	TagSearching  Tag = "searching"
	TagReady      Tag = "ready_for_clustering"
	TagClustering Tag = "clustering"
	TagClustered  Tag = "clustered"
)

// State is one case of the orchestrator state variant. The set of cases is closed.
type State interface {
	Tag() Tag
	state()
}

// Idle means no search has run yet.
type Idle struct{}

// Searching means a search is in flight.
type Searching struct {
	Request request.Search
}

// Ready holds a search result waiting to be clustered. Params is nil until the
// caller has chosen clustering parameters.
type Ready struct {
	Search *SearchResult
	Params *request.Cluster
}

// Clustering means a reclusterize call is in flight.
type Clustering struct {
	Search *SearchResult
	Params request.Cluster
}

// Clustered holds the latest clusterize result.
type Clustered struct {
	Search *SearchResult
	Params request.Cluster
	Result *ClusterizeResult
}

func (Idle) Tag() Tag       { return TagIdle }
func (Searching) Tag() Tag  { return TagSearching }
func (Ready) Tag() Tag      { return TagReady }
func (Clustering) Tag() Tag { return TagClustering }
func (Clustered) Tag() Tag  { return TagClustered }

func (Idle) state()       {}
func (Searching) state()  {}
func (Ready) state()      {}
func (Clustering) state() {}
func (Clustered) state()  {}

// Handlers has one function per state case. Every field must be set.
type Handlers[T any] struct {
	Idle       func(Idle) T
	Searching  func(Searching) T
	Ready      func(Ready) T
	Clustering func(Clustering) T
	Clustered  func(Clustered) T
}

// Match dispatches s to the handler of its case. It panics if a handler is
// missing, so an incomplete Handlers value fails on first use in tests.
func Match[T any](s State, h Handlers[T]) T {
	if h.Idle == nil || h.Searching == nil || h.Ready == nil || h.Clustering == nil || h.Clustered == nil {
		panic("pipeline: Match requires a handler for every state")
	}
	switch v := s.(type) {
	case Idle:
		return h.Idle(v)
	case Searching:
		return h.Searching(v)
	case Ready:
		return h.Ready(v)
	case Clustering:
		return h.Clustering(v)
	case Clustered:
		return h.Clustered(v)
	default:
		panic(fmt.Sprintf("pipeline: unknown state %T", s))
	}
}

// SearchOf returns the search result held by s, if any.
func SearchOf(s State) *SearchResult {
	return Match(s, Handlers[*SearchResult]{
		Idle:       func(Idle) *SearchResult { return nil },
		Searching:  func(Searching) *SearchResult { return nil },
		Ready:      func(r Ready) *SearchResult { return r.Search },
		Clustering: func(c Clustering) *SearchResult { return c.Search },
		Clustered:  func(c Clustered) *SearchResult { return c.Search },
	})
}

// ParamsOf returns the clustering parameters held by s, if any.
func ParamsOf(s State) *request.Cluster {
	return Match(s, Handlers[*request.Cluster]{
		Idle:       func(Idle) *request.Cluster { return nil },
		Searching:  func(Searching) *request.Cluster { return nil },
		Ready:      func(r Ready) *request.Cluster { return r.Params },
		Clustering: func(c Clustering) *request.Cluster { return &c.Params },
		Clustered:  func(c Clustered) *request.Cluster { return &c.Params },
	})
}

// ResultOf returns the clusterize result held by s, if any.
func ResultOf(s State) *ClusterizeResult {
	if c, ok := s.(Clustered); ok {
		return c.Result
	}
	return nil
}

// IsStable reports whether s is not an in-flight state.
func IsStable(s State) bool {
	switch s.Tag() {
	case TagSearching, TagClustering:
		return false
	default:
		return true
	}
}
