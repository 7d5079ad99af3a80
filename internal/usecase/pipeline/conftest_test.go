package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	"github.com/kailas-cloud/litmap/internal/progress"
	"github.com/kailas-cloud/litmap/internal/repository/session"
	clusteruc "github.com/kailas-cloud/litmap/internal/usecase/cluster"
	"github.com/kailas-cloud/litmap/internal/usecase/hclust"
	"github.com/kailas-cloud/litmap/internal/usecase/source"
	"github.com/kailas-cloud/litmap/internal/usecase/vectorize"
)

// --- Mocks ---

// fakeSource serves a fixed corpus. The query "fail" errors, the query
// "slow" blocks until release is closed.
type fakeSource struct {
	docs    []article.Article
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newFakeSource(docs []article.Article) *fakeSource {
	return &fakeSource{docs: docs, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (f *fakeSource) Fetch(ctx context.Context, req request.Search, onProgress source.ProgressFunc) ([]article.Article, error) {
	f.calls.Add(1)
	switch req.Query() {
	case "fail":
		return nil, domain.ErrProvider
	case "empty":
		return nil, nil
	case "slow":
		f.started <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	n := min(req.Amount(), len(f.docs))
	if onProgress != nil {
		onProgress(n, req.Amount())
	}
	return append([]article.Article(nil), f.docs[:n]...), nil
}

type fakeTable struct {
	table vectorize.Table
}

func (f *fakeTable) Get(_ context.Context) (vectorize.Table, error) { return f.table, nil }

type fieldsTokenizer struct{}

func (fieldsTokenizer) Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// countingProjector scales the 2D embeddings so both topics land far apart.
type countingProjector struct {
	calls atomic.Int32
}

func (p *countingProjector) Project(_ context.Context, vectors [][]float64) ([]projection.Point, error) {
	p.calls.Add(1)
	out := make([]projection.Point, len(vectors))
	for i, v := range vectors {
		out[i] = projection.Point{X: v[0]*10 + float64(i)*0.01, Y: v[1] * 10}
	}
	return out, nil
}

// countingClusterer delegates to the real cutter. After hold, every call
// signals started and blocks until release is closed.
type countingClusterer struct {
	inner   *clusteruc.Service
	calls   atomic.Int32
	held    atomic.Bool
	started chan struct{}
	release chan struct{}
}

func newCountingClusterer() *countingClusterer {
	return &countingClusterer{
		inner:   clusteruc.New(zap.NewNop()),
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
}

func (c *countingClusterer) hold() { c.held.Store(true) }

func (c *countingClusterer) Clusterize(ctx context.Context, req clusteruc.Request) (clusteruc.Response, error) {
	c.calls.Add(1)
	if c.held.Load() {
		c.started <- struct{}{}
		select {
		case <-c.release:
		case <-ctx.Done():
			return clusteruc.Response{}, ctx.Err()
		}
	}
	return c.inner.Clusterize(ctx, req)
}

type fakeRefiner struct {
	mu     sync.Mutex
	titles [][]string
	token  string
}

func (f *fakeRefiner) Refine(_ context.Context, labels []string, titles [][]string, apiToken string) ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = titles
	f.token = apiToken
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = "Refined " + l
	}
	return out, true
}

type fakeSession struct {
	mu    sync.Mutex
	snap  *session.Snapshot
	saves int
	err   error
}

func (f *fakeSession) Save(_ context.Context, snap session.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.snap = &snap
	return f.err
}

func (f *fakeSession) Load(_ context.Context) (session.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return session.Snapshot{}, f.err
	}
	if f.snap == nil {
		return session.Snapshot{}, domain.ErrNotFound
	}
	return *f.snap, nil
}

// --- Fixtures ---

func testCorpus() []article.Article {
	return []article.Article{
		article.Reconstruct("Protein folding", "enzyme protein structure", 2020, 1, ""),
		article.Reconstruct("Galaxy survey", "galaxy redshift stars", 2019, 2, ""),
		article.Reconstruct("Enzyme kinetics", "protein enzyme binding", 2021, 3, ""),
		article.Reconstruct("Star formation", "stars galaxy dust", 2018, 4, ""),
		article.Reconstruct("Protein design", "protein structure enzyme", 2022, 5, ""),
		article.Reconstruct("Redshift catalogue", "galaxy redshift survey", 2017, 6, ""),
	}
}

type harness struct {
	svc       *Service
	source    *fakeSource
	projector *countingProjector
	clusterer *countingClusterer
	refiner   *fakeRefiner
	session   *fakeSession
}

func newHarness(t *testing.T, debounce time.Duration) *harness {
	t.Helper()
	table, err := vectorize.NewTable(map[string][]float32{
		"protein": {1, 0}, "enzyme": {1, 0}, "folding": {1, 0}, "structure": {1, 0},
		"galaxy": {0, 1}, "redshift": {0, 1}, "stars": {0, 1}, "star": {0, 1},
	})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	h := &harness{
		source:    newFakeSource(testCorpus()),
		projector: &countingProjector{},
		clusterer: newCountingClusterer(),
		refiner:   &fakeRefiner{},
		session:   &fakeSession{},
	}
	h.svc = New(Deps{
		Source:    h.source,
		Table:     &fakeTable{table: table},
		Tokenizer: fieldsTokenizer{},
		Projector: h.projector,
		Trees:     TreeBuilderFunc(hclust.Ward),
		Clusterer: h.clusterer,
		Refiner:   h.refiner,
		Session:   h.session,
		Progress:  progress.New(),
		Logger:    zap.NewNop(),
	}, Config{Keywords: 3, Debounce: debounce})
	t.Cleanup(h.svc.Close)
	return h
}

func searchReq(t *testing.T, query string, amount int) request.Search {
	t.Helper()
	req, err := request.NewSearch(query, amount, "semantic-scholar", false, 100)
	if err != nil {
		t.Fatalf("search request: %v", err)
	}
	return req
}

func clusterParams(t *testing.T, k int, prettify bool) request.Cluster {
	t.Helper()
	p, err := request.NewCluster(k, prettify, "")
	if err != nil {
		t.Fatalf("cluster params: %v", err)
	}
	return p
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func isSuperseded(err error) bool { return errors.Is(err, domain.ErrSuperseded) }
