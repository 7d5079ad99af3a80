package litmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/app"
	"github.com/kailas-cloud/litmap/internal/config"
	"github.com/kailas-cloud/litmap/internal/domain/pipeline"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	healthuc "github.com/kailas-cloud/litmap/internal/usecase/health"
)

// pipelineUseCase is the orchestrator surface the Client needs. Swapped in tests.
type pipelineUseCase interface {
	Search(ctx context.Context, req request.Search) (*pipeline.SearchResult, error)
	Reclusterize(ctx context.Context, params request.Cluster) (*pipeline.ClusterizeResult, error)
	SetParams(params request.Cluster) error
	State() pipeline.State
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the litmap SDK entry point.
type Client struct {
	pipeline pipelineUseCase
	health   healthUseCase
	defaults config.ClusteringConfig
	closer   func()
	obs      *observer
}

// New creates a Client. The provided context bounds the session store
// readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{driver: "memory"}
	for _, o := range opts {
		o.apply(cc)
	}
	if cc.vectors == "" {
		return nil, errors.New("litmap: word vectors required (use WithVectors)")
	}

	cfg, err := buildConfig(cc)
	if err != nil {
		return nil, err
	}
	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	// Internal components log through zap; SDK callers get slog via the observer.
	a, err := app.Build(ctx, cfg, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("litmap: %w", err)
	}
	return &Client{
		pipeline: a.Pipeline,
		health:   a.Health,
		defaults: cfg.Clustering,
		closer:   a.Close,
		obs:      obs,
	}, nil
}

// buildConfig maps options onto the service configuration so both share
// defaults and validation.
func buildConfig(cc *clientConfig) (config.Config, error) {
	cfg := config.Config{
		HTTP: config.HTTPConfig{Port: 8080}, // unused, keeps Validate happy
		Session: config.SessionConfig{
			Driver:   cc.driver,
			Addrs:    cc.addrs,
			Password: cc.password,
			TTLSec:   int(cc.ttl / time.Second),
		},
		Vectors:    config.VectorsConfig{Location: cc.vectors},
		Projection: config.ProjectionConfig{Method: cc.projection},
		Clustering: config.ClusteringConfig{
			Keywords:   cc.keywords,
			DebounceMs: int(cc.debounce / time.Millisecond),
		},
		Refine: config.RefineConfig{
			APIKey:  cc.completionKey,
			BaseURL: cc.completionURL,
			Model:   cc.completionModel,
		},
	}
	cfg.Sources.SemanticScholar.APIKey = cc.semanticScholarKey
	cfg.Sources.PubMed.APIKey = cc.pubMedKey

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("litmap: %w", err)
	}
	return cfg, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Search fetches, embeds and projects the articles matching query. It
// replaces any previous search result.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (_ SearchSummary, err error) {
	done := c.obs.begin("search", slog.String("query", query))
	defer func() { done(err) }()

	req, err := c.searchRequest(query, opts)
	if err != nil {
		return SearchSummary{}, err
	}
	res, err := c.pipeline.Search(ctx, req)
	if err != nil {
		return SearchSummary{}, fmt.Errorf("search: %w", err)
	}
	return SearchSummary{
		Query:      req.Query(),
		Source:     string(req.Source()),
		Generation: res.Generation,
		Documents:  res.Len(),
	}, nil
}

// Cluster cuts the current search result into k clusters.
func (c *Client) Cluster(ctx context.Context, k int, opts ClusterOptions) (_ []Cluster, err error) {
	done := c.obs.begin("cluster", slog.Int("k", k))
	defer func() { done(err) }()

	params, err := request.NewCluster(k, opts.Prettify, opts.APIToken)
	if err != nil {
		return nil, err
	}
	res, err := c.pipeline.Reclusterize(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	return clustersFromResult(res), nil
}

// SetParams schedules a debounced recluster with k clusters. The result is
// read back through Clusters. A k above the current document count fails
// with ErrOutOfRange and keeps the previous clusters.
func (c *Client) SetParams(k int, opts ClusterOptions) error {
	params, err := request.NewCluster(k, opts.Prettify, opts.APIToken)
	if err != nil {
		return err
	}
	return c.pipeline.SetParams(params)
}

// Analyze runs Search then Cluster. k <= 0 uses the configured default.
func (c *Client) Analyze(ctx context.Context, query string, opts SearchOptions, k int) ([]Cluster, error) {
	if _, err := c.Search(ctx, query, opts); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = c.defaults.DefaultClusters
	}
	return c.Cluster(ctx, k, ClusterOptions{})
}

// State returns the pipeline state name, e.g. "clustered".
func (c *Client) State() string {
	return string(c.pipeline.State().Tag())
}

// Clusters returns the latest clusters, nil before the first clustering.
func (c *Client) Clusters() []Cluster {
	res := pipeline.ResultOf(c.pipeline.State())
	if res == nil {
		return nil
	}
	return clustersFromResult(res)
}

// Documents returns the articles of the current search result.
func (c *Client) Documents() []Document {
	st := c.pipeline.State()
	search := pipeline.SearchOf(st)
	if search == nil {
		return nil
	}
	var assignment []int
	if res := pipeline.ResultOf(st); res != nil {
		assignment = res.Assignment
	}

	out := make([]Document, search.Len())
	for i := range search.Documents {
		doc := &search.Documents[i]
		out[i] = Document{
			Title:         doc.Title(),
			Abstract:      doc.Abstract(),
			Year:          doc.Year(),
			CitationCount: doc.CitationCount(),
			URL:           doc.URL(),
			Cluster:       -1,
		}
		if i < len(search.Projection) {
			out[i].X, out[i].Y = search.Projection[i].X, search.Projection[i].Y
		}
		if i < len(assignment) {
			out[i].Cluster = assignment[i]
		}
	}
	return out
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

func (c *Client) searchRequest(query string, opts SearchOptions) (request.Search, error) {
	amount := opts.Articles
	if amount == 0 {
		amount = c.defaults.DefaultArticles
	}
	source := opts.Source
	if source == "" {
		source = c.defaults.DefaultSource
	}
	return request.NewSearch(query, amount, source, opts.ExcludeEmpty, c.defaults.MaxArticles)
}

func clustersFromResult(res *pipeline.ClusterizeResult) []Cluster {
	members := res.Assignment.Members(res.K())
	out := make([]Cluster, res.K())
	for id := range out {
		out[id] = Cluster{
			ID:        id,
			Label:     res.Labels[id],
			Keywords:  append([]string(nil), res.Keywords[id]...),
			Documents: members[id],
		}
		if id < len(res.Centroids) {
			out[id].X, out[id].Y = res.Centroids[id].X, res.Centroids[id].Y
		}
	}
	return out
}
