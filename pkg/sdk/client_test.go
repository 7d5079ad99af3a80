package litmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/pipeline"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	healthuc "github.com/kailas-cloud/litmap/internal/usecase/health"
)

func TestNew_NoVectors(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no vectors location provided")
	}
}

func TestNew_InvalidProjection(t *testing.T) {
	_, err := New(context.Background(), WithVectors("w2v.json"), WithProjection("umap"))
	if err == nil {
		t.Fatal("expected error for unsupported projection")
	}
}

func TestNew_Memory(t *testing.T) {
	c, err := New(context.Background(), WithVectors("w2v.json"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if c.State() != string(pipeline.TagIdle) {
		t.Errorf("state: got %q", c.State())
	}
	if h := c.Health(context.Background()); h.Status != "ok" {
		t.Errorf("health: got %+v", h)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithRedis("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "redis" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("redis option: %+v", cfg)
	}

	WithVectors("https://example.org/w2v.json").apply(cfg)
	WithProjection("tsne").apply(cfg)
	WithCompletion("key", "http://localhost:1234/v1", "gpt-4o-mini").apply(cfg)
	WithKeywords(3).apply(cfg)
	WithDebounce(time.Second).apply(cfg)
	WithSessionTTL(time.Hour).apply(cfg)
	WithSourceKeys("s2", "pm").apply(cfg)

	got, err := buildConfig(cfg)
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if got.Projection.Method != "tsne" || got.Clustering.Keywords != 3 || got.Clustering.DebounceMs != 1000 {
		t.Errorf("unexpected config: %+v", got)
	}
	if got.Session.TTLSec != 3600 || got.Refine.Model != "gpt-4o-mini" || got.Sources.PubMed.APIKey != "pm" {
		t.Errorf("unexpected config: %+v", got)
	}
	if got.Refine.Temperature != 0.9 {
		t.Errorf("defaults not applied: temperature %v", got.Refine.Temperature)
	}

	cfg2 := &clientConfig{}
	logger := slog.Default()
	WithLogger(logger).apply(cfg2)
	if cfg2.logger != logger {
		t.Error("expected logger to be set")
	}
	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg2)
	if cfg2.metricsReg != reg {
		t.Error("expected registerer to be set")
	}
}

func TestSearch_Defaults(t *testing.T) {
	var got request.Search
	p := &mockPipeline{searchFn: func(_ context.Context, req request.Search) (*pipeline.SearchResult, error) {
		got = req
		return sampleSearch(), nil
	}}
	c := newTestClient(p)

	sum, err := c.Search(context.Background(), "enzymes", SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.Amount() != 100 || got.Source() != request.SourceSemanticScholar {
		t.Errorf("defaults not applied: %d %q", got.Amount(), got.Source())
	}
	if sum.Documents != 3 || sum.Query != "enzymes" {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestSearch_Validation(t *testing.T) {
	p := &mockPipeline{searchFn: func(context.Context, request.Search) (*pipeline.SearchResult, error) {
		t.Fatal("pipeline must not be called")
		return nil, nil
	}}
	c := newTestClient(p)

	if _, err := c.Search(context.Background(), "", SearchOptions{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty query: got %v", err)
	}
	if _, err := c.Search(context.Background(), "q", SearchOptions{Articles: 5000}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("too many articles: got %v", err)
	}
}

func TestSearch_ProviderError(t *testing.T) {
	p := &mockPipeline{searchFn: func(context.Context, request.Search) (*pipeline.SearchResult, error) {
		return nil, fmt.Errorf("fetch articles: %w", ErrProvider)
	}}
	_, err := newTestClient(p).Search(context.Background(), "q", SearchOptions{})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestCluster(t *testing.T) {
	var got request.Cluster
	p := &mockPipeline{clusterFn: func(_ context.Context, params request.Cluster) (*pipeline.ClusterizeResult, error) {
		got = params
		return sampleResult(), nil
	}}
	c := newTestClient(p)

	clusters, err := c.Cluster(context.Background(), 2, ClusterOptions{Prettify: true, APIToken: "tok"})
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if got.Clusters() != 2 || !got.Prettify() || got.APIToken() != "tok" {
		t.Errorf("unexpected params: %d %v %q", got.Clusters(), got.Prettify(), got.APIToken())
	}
	if len(clusters) != 2 {
		t.Fatalf("clusters: got %d", len(clusters))
	}
	if !reflect.DeepEqual(clusters[0].Documents, []int{0, 2}) || clusters[0].Y != 1.5 {
		t.Errorf("unexpected cluster 0: %+v", clusters[0])
	}
}

func TestCluster_InvalidK(t *testing.T) {
	c := newTestClient(&mockPipeline{})
	if _, err := c.Cluster(context.Background(), 1, ClusterOptions{}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestAnalyze_UsesDefaultClusters(t *testing.T) {
	var k int
	p := &mockPipeline{
		searchFn: func(context.Context, request.Search) (*pipeline.SearchResult, error) {
			return sampleSearch(), nil
		},
		clusterFn: func(_ context.Context, params request.Cluster) (*pipeline.ClusterizeResult, error) {
			k = params.Clusters()
			return sampleResult(), nil
		},
	}
	if _, err := newTestClient(p).Analyze(context.Background(), "q", SearchOptions{}, 0); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if k != 10 {
		t.Errorf("k: got %d, want 10", k)
	}
}

func TestAnalyze_SearchErrorStops(t *testing.T) {
	p := &mockPipeline{
		searchFn: func(context.Context, request.Search) (*pipeline.SearchResult, error) {
			return nil, ErrSuperseded
		},
		clusterFn: func(context.Context, request.Cluster) (*pipeline.ClusterizeResult, error) {
			t.Fatal("cluster must not run after a failed search")
			return nil, nil
		},
	}
	if _, err := newTestClient(p).Analyze(context.Background(), "q", SearchOptions{}, 3); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
}

func TestSetParams(t *testing.T) {
	p := &mockPipeline{}
	c := newTestClient(p)

	if err := c.SetParams(4, ClusterOptions{}); err != nil {
		t.Fatalf("set params: %v", err)
	}
	if len(p.params) != 1 || p.params[0].Clusters() != 4 {
		t.Errorf("params not forwarded: %v", p.params)
	}
	if err := c.SetParams(0, ClusterOptions{}); err == nil {
		t.Error("expected error for k=0")
	}

	p.paramsErr = domain.NewRangeError("clusters", 9, 2, 3)
	if err := c.SetParams(9, ClusterOptions{}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestDocumentsAndClusters(t *testing.T) {
	p := &mockPipeline{}
	c := newTestClient(p)

	if c.Documents() != nil || c.Clusters() != nil {
		t.Fatal("expected nil before any search")
	}

	p.state = pipeline.Ready{Search: sampleSearch()}
	docs := c.Documents()
	if len(docs) != 3 || docs[1].Cluster != -1 || docs[1].X != 5 {
		t.Errorf("unexpected documents: %+v", docs)
	}

	p.state = pipeline.Clustered{Search: sampleSearch(), Result: sampleResult()}
	docs = c.Documents()
	if docs[1].Cluster != 1 || docs[2].Cluster != 0 {
		t.Errorf("unexpected assignment: %+v", docs)
	}
	if got := c.Clusters(); len(got) != 2 || got[1].Label != "galaxy" {
		t.Errorf("unexpected clusters: %+v", got)
	}
	if c.State() != string(pipeline.TagClustered) {
		t.Errorf("state: got %q", c.State())
	}
}

func TestHealth(t *testing.T) {
	c := &Client{health: &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"session": healthuc.CheckError},
	}}}

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["session"] != "error" {
		t.Errorf("unexpected health: %+v", h)
	}
}
