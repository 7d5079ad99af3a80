// Package pipeline sequences the analysis stages behind a tagged state machine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/pipeline"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	"github.com/kailas-cloud/litmap/internal/logger"
	"github.com/kailas-cloud/litmap/internal/metrics"
	"github.com/kailas-cloud/litmap/internal/progress"
	"github.com/kailas-cloud/litmap/internal/repository/session"
	clusteruc "github.com/kailas-cloud/litmap/internal/usecase/cluster"
	"github.com/kailas-cloud/litmap/internal/usecase/keywords"
	"github.com/kailas-cloud/litmap/internal/usecase/source"
	"github.com/kailas-cloud/litmap/internal/usecase/vectorize"
)

// Deps are the stages the orchestrator drives. Refiner and Session are optional.
type Deps struct {
	Source    ArticleSource
	Table     VectorTable
	Tokenizer Tokenizer
	Projector Projector
	Trees     TreeBuilder
	Clusterer Clusterer
	Refiner   Refiner
	Session   SessionStore
	Progress  *progress.Tracker
	Logger    *zap.Logger
}

// Config holds orchestrator settings.
type Config struct {
	Keywords int           // keywords per cluster
	Debounce time.Duration // coalescing window of SetParams
}

// Service is the pipeline orchestrator. Stages never run under its lock.
type Service struct {
	deps Deps
	cfg  Config

	mu         sync.Mutex
	state      pipeline.State
	stable     pipeline.State // last stable state, restored on failure
	generation uint64         // bumped by every search
	clusterSeq uint64         // bumped by every clustering start and param change
	params     *request.Cluster

	saveMu sync.Mutex

	debounce *debouncer
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// New creates an orchestrator in the Idle state.
func New(deps Deps, cfg Config) *Service {
	if deps.Progress == nil {
		deps.Progress = progress.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Keywords <= 0 {
		cfg.Keywords = 5
	}
	s := &Service{
		deps:   deps,
		cfg:    cfg,
		state:  pipeline.Idle{},
		stable: pipeline.Idle{},
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	s.debounce = newDebouncer(cfg.Debounce, s.reclusterizeLatest)
	return s
}

// Close cancels pending debounced work.
func (s *Service) Close() {
	s.debounce.Stop()
	s.bgCancel()
}

// State returns the current state.
func (s *Service) State() pipeline.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Params returns the latest clustering parameters, nil if none were set.
func (s *Service) Params() *request.Cluster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Progress returns the step tracker of the running call.
func (s *Service) Progress() *progress.Tracker {
	return s.deps.Progress
}

// setState must be called with mu held.
func (s *Service) setState(st pipeline.State) {
	s.state = st
	if pipeline.IsStable(st) {
		s.stable = st
	}
}

// Search fetches, embeds and projects the documents of req. When clustering
// parameters are already known, the result is clustered right away.
func (s *Service) Search(ctx context.Context, req request.Search) (*pipeline.SearchResult, error) {
	log := logger.Or(ctx, s.deps.Logger)
	start := time.Now()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.clusterSeq++
	prev := s.stable
	s.setState(pipeline.Searching{Request: req})
	s.mu.Unlock()

	s.deps.Progress.Reset()
	log.Info("Search started",
		zap.String("query", req.Query()),
		zap.String("source", string(req.Source())),
		zap.Int("articles", req.Amount()),
		zap.Uint64("generation", gen),
	)

	result, err := s.runSearch(ctx, req, gen)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		metrics.SearchesTotal.WithLabelValues("stale").Inc()
		log.Info("Stale search result dropped", zap.Uint64("generation", gen))
		return nil, fmt.Errorf("search %d: %w", gen, domain.ErrSuperseded)
	}
	if err != nil {
		s.setState(prev)
		s.mu.Unlock()
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		log.Warn("Search failed", zap.Error(err))
		return nil, err
	}
	s.mu.Unlock()

	s.save(ctx, result, gen)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		metrics.SearchesTotal.WithLabelValues("stale").Inc()
		return nil, fmt.Errorf("search %d: %w", gen, domain.ErrSuperseded)
	}
	params := s.params
	s.setState(pipeline.Ready{Search: result, Params: params})
	s.mu.Unlock()

	metrics.SearchesTotal.WithLabelValues("success").Inc()
	log.Info("Search finished",
		zap.Int("documents", result.Len()),
		zap.Duration("took", time.Since(start)),
	)

	if params != nil && result.Len() > 0 {
		if _, err := s.Reclusterize(ctx, *params); err != nil {
			log.Warn("Automatic reclusterize failed", zap.Error(err))
		}
	}
	return result, nil
}

func (s *Service) runSearch(ctx context.Context, req request.Search, gen uint64) (*pipeline.SearchResult, error) {
	var (
		docs  []article.Article
		table vectorize.Table
	)

	fetchStep := s.deps.Progress.Step(source.ProgressMessage(0, req.Amount()))
	tableStep := s.deps.Progress.Step("Loading word vectors")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer metrics.ObserveStage("fetch", time.Now())
		var err error
		docs, err = s.deps.Source.Fetch(gctx, req, func(fetched, amount int) {
			fetchStep.SetMessage(source.ProgressMessage(fetched, amount))
		})
		if err != nil {
			return fmt.Errorf("fetch articles: %w", err)
		}
		fetchStep.Complete()
		return nil
	})
	g.Go(func() error {
		defer metrics.ObserveStage("vectors", time.Now())
		var err error
		table, err = s.deps.Table.Get(gctx)
		if err != nil {
			return fmt.Errorf("load word vectors: %w", err)
		}
		tableStep.Complete()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	step := s.deps.Progress.Step("Tokenizing articles")
	started := time.Now()
	tokens := make([][]string, len(docs))
	for i := range docs {
		tokens[i] = s.deps.Tokenizer.Tokenize(docs[i].Text())
	}
	metrics.ObserveStage("tokenize", started)
	step.Complete()

	step = s.deps.Progress.Step("Embedding articles")
	started = time.Now()
	embeddings := vectorize.EmbedAll(tokens, table)
	metrics.ObserveStage("embed", started)
	step.Complete()

	step = s.deps.Progress.Step("Projecting embeddings")
	started = time.Now()
	points, err := s.deps.Projector.Project(ctx, embeddings)
	if err != nil {
		return nil, fmt.Errorf("project embeddings: %w", err)
	}
	metrics.ObserveStage("project", started)
	step.Complete()

	step = s.deps.Progress.Step("Building cluster tree")
	started = time.Now()
	var tree cluster.Tree
	if len(points) > 0 {
		tree, err = s.deps.Trees.Build(ctx, points)
		if err != nil {
			return nil, fmt.Errorf("build cluster tree: %w", err)
		}
	}
	metrics.ObserveStage("tree", started)
	step.Complete()

	return &pipeline.SearchResult{
		Request:    req,
		Generation: gen,
		Documents:  docs,
		Tokens:     tokens,
		Embeddings: embeddings,
		Projection: points,
		Tree:       tree,
	}, nil
}

// save stores the result unless a newer search already started. Failures
// are logged only.
func (s *Service) save(ctx context.Context, result *pipeline.SearchResult, gen uint64) {
	if s.deps.Session == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	current := gen == s.generation
	s.mu.Unlock()
	if !current {
		return
	}

	err := s.deps.Session.Save(ctx, session.Snapshot{
		Documents:  result.Documents,
		Tokens:     result.Tokens,
		Projection: result.Projection,
		Tree:       result.Tree,
	})
	if err != nil {
		logger.Or(ctx, s.deps.Logger).Warn("Failed to save session", zap.Error(err))
	}
}

// Reclusterize cuts the current search result into params.Clusters() groups.
// It never fetches or projects again.
func (s *Service) Reclusterize(ctx context.Context, params request.Cluster) (*pipeline.ClusterizeResult, error) {
	log := logger.Or(ctx, s.deps.Logger)

	s.mu.Lock()
	search := pipeline.SearchOf(s.state)
	if search == nil {
		s.mu.Unlock()
		return nil, domain.ErrNoSearchResult
	}
	if err := params.WithinDocuments(search.Len()); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.clusterSeq++
	seq := s.clusterSeq
	prev := s.stable
	s.params = &params
	s.setState(pipeline.Clustering{Search: search, Params: params})
	s.mu.Unlock()

	s.deps.Progress.Reset()
	start := time.Now()

	result, err := s.runClusterize(ctx, search, params)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.clusterSeq {
		metrics.ReclusterizeTotal.WithLabelValues("superseded").Inc()
		log.Info("Superseded clustering result dropped", zap.Int("clusters", params.Clusters()))
		return nil, fmt.Errorf("reclusterize: %w", domain.ErrSuperseded)
	}
	if err != nil {
		s.setState(prev)
		metrics.ReclusterizeTotal.WithLabelValues("error").Inc()
		log.Warn("Reclusterize failed", zap.Int("clusters", params.Clusters()), zap.Error(err))
		return nil, err
	}

	s.setState(pipeline.Clustered{Search: search, Params: params, Result: result})
	metrics.ReclusterizeTotal.WithLabelValues("success").Inc()
	log.Info("Reclusterize finished",
		zap.Int("clusters", params.Clusters()),
		zap.Bool("refined", result.Refined),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

func (s *Service) runClusterize(
	ctx context.Context,
	search *pipeline.SearchResult,
	params request.Cluster,
) (*pipeline.ClusterizeResult, error) {
	k := params.Clusters()

	step := s.deps.Progress.Step(fmt.Sprintf("Clustering into %d groups", k))
	resp, err := s.deps.Clusterer.Clusterize(ctx, clusteruc.Request{
		Tree:       search.Tree,
		K:          k,
		Projection: search.Projection,
		Tokens:     search.Tokens,
		Keywords:   s.cfg.Keywords,
	})
	if err != nil {
		return nil, fmt.Errorf("clusterize: %w", err)
	}
	step.Complete()

	labels := make([]string, k)
	for i := range labels {
		labels[i] = keywords.Label(resp.Keywords[i])
	}
	result := &pipeline.ClusterizeResult{
		Params:     params,
		Assignment: resp.Assignment,
		Keywords:   resp.Keywords,
		Labels:     labels,
		Centroids:  clusteruc.Centroids(search.Projection, resp.Assignment, k),
	}

	if params.Prettify() && s.deps.Refiner != nil {
		step := s.deps.Progress.Step("Refining cluster labels")
		members := resp.Assignment.Members(k)
		titles := make([][]string, k)
		for i, m := range members {
			titles[i] = article.Titles(search.Documents, m)
		}
		result.Labels, result.Refined = s.deps.Refiner.Refine(ctx, labels, titles, params.APIToken())
		step.Complete()
	}
	return result, nil
}

// SetParams records new clustering parameters and schedules a debounced
// reclusterize. An in-flight clustering is not cancelled; its result is
// dropped and the state stays Ready with the new parameters.
//
// When a search result exists, params are checked against its document
// count first; a RangeError leaves state and parameters untouched.
func (s *Service) SetParams(params request.Cluster) error {
	s.mu.Lock()
	search := pipeline.SearchOf(s.state)
	if search != nil {
		if err := params.WithinDocuments(search.Len()); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.params = &params
	s.clusterSeq++
	if search != nil {
		s.setState(pipeline.Ready{Search: search, Params: &params})
	}
	s.mu.Unlock()

	s.debounce.Trigger()
	return nil
}

func (s *Service) reclusterizeLatest() {
	s.mu.Lock()
	params := s.params
	s.mu.Unlock()
	if params == nil {
		return
	}

	_, err := s.Reclusterize(s.bgCtx, *params)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoSearchResult), errors.Is(err, domain.ErrSuperseded):
		s.deps.Logger.Debug("Debounced reclusterize skipped", zap.Error(err))
	default:
		s.deps.Logger.Warn("Debounced reclusterize failed", zap.Error(err))
	}
}

// Restore loads the cached session into Ready so clustering works without a
// new search. It only applies while no search has run.
func (s *Service) Restore(ctx context.Context) error {
	if s.deps.Session == nil {
		return domain.ErrNotFound
	}
	snap, err := s.deps.Session.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Tag() != pipeline.TagIdle {
		return fmt.Errorf("restore session: %w", domain.ErrSuperseded)
	}
	s.generation++
	result := &pipeline.SearchResult{
		Generation: s.generation,
		Documents:  snap.Documents,
		Tokens:     snap.Tokens,
		Projection: snap.Projection,
		Tree:       snap.Tree,
	}
	s.setState(pipeline.Ready{Search: result, Params: s.params})

	s.deps.Logger.Info("Session restored", zap.Int("documents", result.Len()))
	return nil
}
