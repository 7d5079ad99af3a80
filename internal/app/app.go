// Package app wires the pipeline, its stages and the session store from a
// Config. It is shared by the CLI and the SDK.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/config"
	"github.com/kailas-cloud/litmap/internal/db"
	"github.com/kailas-cloud/litmap/internal/db/memory"
	dbRedis "github.com/kailas-cloud/litmap/internal/db/redis"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	"github.com/kailas-cloud/litmap/internal/metrics"
	"github.com/kailas-cloud/litmap/internal/progress"
	"github.com/kailas-cloud/litmap/internal/repository/session"
	openaiTransport "github.com/kailas-cloud/litmap/internal/transport/openai"
	"github.com/kailas-cloud/litmap/internal/transport/pubmed"
	"github.com/kailas-cloud/litmap/internal/transport/semanticscholar"
	"github.com/kailas-cloud/litmap/internal/transport/vectors"
	clusteruc "github.com/kailas-cloud/litmap/internal/usecase/cluster"
	"github.com/kailas-cloud/litmap/internal/usecase/hclust"
	healthuc "github.com/kailas-cloud/litmap/internal/usecase/health"
	pipelineuc "github.com/kailas-cloud/litmap/internal/usecase/pipeline"
	"github.com/kailas-cloud/litmap/internal/usecase/projection"
	"github.com/kailas-cloud/litmap/internal/usecase/refine"
	"github.com/kailas-cloud/litmap/internal/usecase/source"
	"github.com/kailas-cloud/litmap/internal/usecase/vectorize"
)

// App is the composition root.
type App struct {
	Store    db.Store
	Pipeline *pipelineuc.Service
	Health   *healthuc.Service
}

// Build creates every component described by cfg. The caller must Close the App.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterPipelineMetrics()

	store, err := newStore(ctx, cfg.Session, logger)
	if err != nil {
		return nil, err
	}
	sessions := session.New(store, cfg.Session.KeyPrefix, cfg.Session.TTL(), logger)

	s2 := cfg.Sources.SemanticScholar
	pm := cfg.Sources.PubMed
	sources := source.NewRegistry().
		Register(request.SourceSemanticScholar, source.NewPaginator(
			string(request.SourceSemanticScholar),
			semanticscholar.New(&semanticscholar.Config{
				BaseURL: s2.BaseURL, APIKey: s2.APIKey, Timeout: s2.Timeout(), Logger: logger,
			}),
			s2.PageSize, s2.RequestDelay(), logger,
		)).
		Register(request.SourcePubMed, source.NewPaginator(
			string(request.SourcePubMed),
			pubmed.New(&pubmed.Config{
				BaseURL: pm.BaseURL, APIKey: pm.APIKey, Timeout: pm.Timeout(), Logger: logger,
			}),
			pm.PageSize, pm.RequestDelay(), logger,
		))

	model, err := vectorize.Init()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}
	table := vectorize.NewTableHandle(
		vectors.New(cfg.Vectors.Location, time.Duration(cfg.Vectors.TimeoutSec)*time.Second, logger),
	)

	completer := openaiTransport.NewCompleter(&openaiTransport.Config{
		APIKey:      cfg.Refine.APIKey,
		BaseURL:     cfg.Refine.BaseURL,
		Model:       cfg.Refine.Model,
		Temperature: cfg.Refine.Temperature,
		Logger:      logger,
	})
	refiner := refine.New(completer, refine.Config{
		Model:     cfg.Refine.Model,
		APIKey:    cfg.Refine.APIKey,
		MaxTitles: cfg.Refine.MaxTitles,
		CacheSize: cfg.Refine.CacheSize,
		Timeout:   cfg.Refine.Timeout(),
		Logger:    logger,
	})

	p := pipelineuc.New(pipelineuc.Deps{
		Source:    sources,
		Table:     table,
		Tokenizer: model,
		Projector: projection.New(projection.Config{
			Method:       cfg.Projection.Method,
			Perplexity:   cfg.Projection.Perplexity,
			LearningRate: cfg.Projection.LearningRate,
			MaxIter:      cfg.Projection.MaxIter,
			Logger:       logger,
		}),
		Trees:     pipelineuc.TreeBuilderFunc(hclust.Ward),
		Clusterer: clusteruc.New(logger),
		Refiner:   refiner,
		Session:   sessions,
		Progress:  progress.New(),
		Logger:    logger,
	}, pipelineuc.Config{
		Keywords: cfg.Clustering.Keywords,
		Debounce: cfg.Clustering.Debounce(),
	})

	// Pass a nil interface, not a typed nil pointer, when no key is configured.
	var checker healthuc.CompletionChecker
	if cfg.Refine.APIKey != "" {
		checker = completer
	}

	return &App{
		Store:    store,
		Pipeline: p,
		Health:   healthuc.New(store, checker),
	}, nil
}

// Close stops pending work and releases the session store.
func (a *App) Close() {
	a.Pipeline.Close()
	a.Store.Close()
}

func newStore(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("session store not ready: %w", err)
		}
		logger.Info("Connected to session store", zap.Strings("addrs", cfg.Addrs))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}
