package litmap

import (
	"context"

	"github.com/kailas-cloud/litmap/internal/config"
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/pipeline"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	healthuc "github.com/kailas-cloud/litmap/internal/usecase/health"
)

// --- pipelineUseCase mock ---

type mockPipeline struct {
	state pipeline.State

	searchFn  func(ctx context.Context, req request.Search) (*pipeline.SearchResult, error)
	clusterFn func(ctx context.Context, params request.Cluster) (*pipeline.ClusterizeResult, error)
	params    []request.Cluster
	paramsErr error
}

func (m *mockPipeline) Search(ctx context.Context, req request.Search) (*pipeline.SearchResult, error) {
	return m.searchFn(ctx, req)
}

func (m *mockPipeline) Reclusterize(ctx context.Context, params request.Cluster) (*pipeline.ClusterizeResult, error) {
	return m.clusterFn(ctx, params)
}

func (m *mockPipeline) SetParams(params request.Cluster) error {
	m.params = append(m.params, params)
	return m.paramsErr
}

func (m *mockPipeline) State() pipeline.State {
	if m.state == nil {
		return pipeline.Idle{}
	}
	return m.state
}

// --- healthUseCase mock ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- fixtures ---

func testDefaults() config.ClusteringConfig {
	var cfg config.Config
	cfg.ApplyDefaults()
	return cfg.Clustering
}

func newTestClient(p *mockPipeline) *Client {
	return &Client{pipeline: p, health: &mockHealth{}, defaults: testDefaults()}
}

func sampleSearch() *pipeline.SearchResult {
	return &pipeline.SearchResult{
		Generation: 1,
		Documents: []article.Article{
			article.Reconstruct("Protein folding", "enzymes", 2020, 4, "https://example.org/1"),
			article.Reconstruct("Galaxy survey", "redshift", 2019, 2, "https://example.org/2"),
			article.Reconstruct("Enzyme kinetics", "binding", 2021, 0, "https://example.org/3"),
		},
		Projection: []projection.Point{{X: 0, Y: 1}, {X: 5, Y: 5}, {X: 0, Y: 2}},
	}
}

func sampleResult() *pipeline.ClusterizeResult {
	return &pipeline.ClusterizeResult{
		Assignment: cluster.Assignment{0, 1, 0},
		Keywords:   [][]string{{"protein", "enzyme"}, {"galaxy"}},
		Labels:     []string{"protein, enzyme", "galaxy"},
		Centroids:  []projection.Point{{X: 0, Y: 1.5}, {X: 5, Y: 5}},
	}
}
