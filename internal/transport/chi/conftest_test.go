package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/pipeline"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	"github.com/kailas-cloud/litmap/internal/progress"
	healthuc "github.com/kailas-cloud/litmap/internal/usecase/health"
)

// --- Mocks ---

type mockPipeline struct {
	mu sync.Mutex

	state    pipeline.State
	progress *progress.Tracker

	searchErr    error
	searches     []request.Search
	searched     chan struct{}
	params       []request.Cluster
	reclusterRes *pipeline.ClusterizeResult
	setParamsErr error
	reclusterErr error
}

func newMockPipeline() *mockPipeline {
	return &mockPipeline{
		state:    pipeline.Idle{},
		progress: progress.New(),
		searched: make(chan struct{}, 4),
	}
}

func (m *mockPipeline) Search(_ context.Context, req request.Search) (*pipeline.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, req)
	m.searched <- struct{}{}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	res := sampleSearch()
	res.Request = req
	m.state = pipeline.Ready{Search: res}
	return res, nil
}

func (m *mockPipeline) Reclusterize(_ context.Context, params request.Cluster) (*pipeline.ClusterizeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, params)
	if m.reclusterErr != nil {
		return nil, m.reclusterErr
	}
	return m.reclusterRes, nil
}

func (m *mockPipeline) SetParams(params request.Cluster) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, params)
	if m.setParamsErr != nil {
		return m.setParamsErr
	}
	if search := pipeline.SearchOf(m.state); search != nil {
		m.state = pipeline.Ready{Search: search, Params: &params}
	}
	return nil
}

func (m *mockPipeline) State() pipeline.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockPipeline) Progress() *progress.Tracker { return m.progress }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Fixtures ---

func sampleSearch() *pipeline.SearchResult {
	return &pipeline.SearchResult{
		Generation: 3,
		Documents: []article.Article{
			article.Reconstruct("Protein folding", "enzymes", 2020, 4, "https://example.org/1"),
			article.Reconstruct("Galaxy survey", "redshift", 2019, 2, "https://example.org/2"),
			article.Reconstruct("Enzyme kinetics", "binding", 2021, 0, "https://example.org/3"),
		},
		Projection: []projection.Point{{X: 0, Y: 1}, {X: 5, Y: 5}, {X: 0, Y: 2}},
	}
}

func sampleClusters() *pipeline.ClusterizeResult {
	params, _ := request.NewCluster(2, false, "secret-token")
	return &pipeline.ClusterizeResult{
		Params:     params,
		Assignment: cluster.Assignment{0, 1, 0},
		Keywords:   [][]string{{"protein", "enzyme"}, {"galaxy"}},
		Labels:     []string{"protein, enzyme", "galaxy"},
		Centroids:  []projection.Point{{X: 0, Y: 1.5}, {X: 5, Y: 5}},
	}
}

func clusteredState() pipeline.State {
	res := sampleClusters()
	return pipeline.Clustered{Search: sampleSearch(), Params: res.Params, Result: res}
}

func newTestRouter(t *testing.T, p *mockPipeline, pingErr error) http.Handler {
	t.Helper()
	health := healthuc.New(&mockPinger{err: pingErr}, nil)
	srv := NewServer(p, health, Defaults{
		Articles:    100,
		MaxArticles: 1000,
		Source:      "semantic-scholar",
		Clusters:    10,
	}, zap.NewNop())
	return NewRouter(srv, nil, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var errBoom = errors.New("boom")
