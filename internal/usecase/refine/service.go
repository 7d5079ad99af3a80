// Package refine turns cluster keyword lists into short readable labels.
package refine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/logger"
	"github.com/kailas-cloud/litmap/internal/metrics"
)

const (
	defaultMaxTitles = 10
	defaultCacheSize = 512
	maxConcurrency   = 8
)

// Config holds refinement settings.
type Config struct {
	Model     string // cache namespace
	APIKey    string // used when the caller passes no token
	MaxTitles int
	CacheSize int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Service refines labels through a Completer, best effort.
type Service struct {
	completer Completer
	model     string
	apiKey    string
	maxTitles int
	timeout   time.Duration
	cache     *lru.Cache[string, string]
	logger    *zap.Logger
}

// New creates a refinement Service.
func New(completer Completer, cfg Config) *Service {
	if cfg.MaxTitles <= 0 {
		cfg.MaxTitles = defaultMaxTitles
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cache, _ := lru.New[string, string](cfg.CacheSize)
	return &Service{
		completer: completer,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		maxTitles: cfg.MaxTitles,
		timeout:   cfg.Timeout,
		cache:     cache,
		logger:    cfg.Logger,
	}
}

// Refine returns one label per cluster. Clusters whose completion fails keep
// their original label. The flag reports whether at least one label was refined.
func (s *Service) Refine(ctx context.Context, labels []string, titles [][]string, apiToken string) ([]string, bool) {
	log := logger.Or(ctx, s.logger)
	out := append([]string(nil), labels...)

	token := apiToken
	if token == "" {
		token = s.apiKey
	}
	if token == "" {
		log.Warn("Label refinement skipped: no API token")
		return out, false
	}

	defer metrics.ObserveStage("refine", time.Now())

	refined := make([]bool, len(labels))
	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for i := range labels {
		var clusterTitles []string
		if i < len(titles) {
			clusterTitles = titles[i]
		}
		prompt := Prompt(labels[i], clusterTitles, s.maxTitles)
		g.Go(func() error {
			label, err := s.complete(ctx, token, prompt)
			if err != nil {
				log.Warn("Label refinement failed, keeping keywords",
					zap.Int("cluster", i),
					zap.String("keywords", labels[i]),
					zap.Error(err),
				)
				return nil
			}
			out[i] = label
			refined[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for _, ok := range refined {
		if ok {
			return out, true
		}
	}
	return out, false
}

func (s *Service) complete(ctx context.Context, token, prompt string) (string, error) {
	key := s.cacheKey(prompt)
	if label, ok := s.cache.Get(key); ok {
		metrics.RefineCacheTotal.WithLabelValues("hit").Inc()
		return label, nil
	}
	metrics.RefineCacheTotal.WithLabelValues("miss").Inc()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.completer.Complete(ctx, token, prompt)
	if err != nil {
		metrics.RefineRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %w", domain.ErrRefinement, err)
	}
	label := Clean(raw)
	if label == "" {
		metrics.RefineRequestsTotal.WithLabelValues("empty").Inc()
		return "", fmt.Errorf("%w: empty completion", domain.ErrRefinement)
	}
	metrics.RefineRequestsTotal.WithLabelValues("success").Inc()

	s.cache.Add(key, label)
	return label, nil
}

func (s *Service) cacheKey(prompt string) string {
	hash := sha256.Sum256([]byte(s.model + "\x00" + prompt))
	return hex.EncodeToString(hash[:])
}

// Prompt builds the completion prompt for one cluster.
func Prompt(keywords string, titles []string, maxTitles int) string {
	if len(titles) > maxTitles {
		titles = titles[:maxTitles]
	}
	var b strings.Builder
	b.WriteString("We have a set of articles with the following titles:\n")
	for _, t := range titles {
		b.WriteString(" - ")
		b.WriteString(strings.TrimSpace(t))
		b.WriteByte('\n')
	}
	b.WriteString("\nThey can be distinguished by the following keywords: ")
	b.WriteString(keywords)
	b.WriteString(".\n\n")
	b.WriteString("Write a single short descriptive phrase of at most 7 words for this set of articles. ")
	b.WriteString(`Do not use words such as "group", "article", "articles", "about". `)
	b.WriteString("Do not wrap the phrase in quotes.")
	return b.String()
}

// Clean trims whitespace and wrapping quotes from a completion.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	for {
		trimmed := strings.TrimSpace(strings.Trim(s, "\"'`“”‘’«»"))
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}
