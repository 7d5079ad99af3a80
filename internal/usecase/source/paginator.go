package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/metrics"
)

// Paginator turns a single-page Fetcher into a fetch of up to amount articles.
// Every request asks for the provider's maximum page size; surplus is truncated.
type Paginator struct {
	name     string
	fetcher  Fetcher
	pageSize int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

// NewPaginator creates a Paginator over f. pageSize is the provider maximum,
// delay is the pause between two page requests.
func NewPaginator(name string, f Fetcher, pageSize int, delay time.Duration, logger *zap.Logger) *Paginator {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Paginator{
		name:     name,
		fetcher:  f,
		pageSize: pageSize,
		delay:    delay,
		sleep:    sleepCtx,
		logger:   logger,
	}
}

// WithSleeper replaces the inter-page wait (tests).
func (p *Paginator) WithSleeper(fn func(ctx context.Context, d time.Duration) error) *Paginator {
	p.sleep = fn
	return p
}

// PageSize returns the provider page size.
func (p *Paginator) PageSize() int { return p.pageSize }

// Fetch collects at most amount articles. It stops early when a page yields no
// usable article; returning fewer than amount is not an error.
func (p *Paginator) Fetch(
	ctx context.Context,
	query string,
	amount int,
	excludeEmpty bool,
	onProgress ProgressFunc,
) ([]article.Article, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: articles must be positive, got %d", domain.ErrValidation, amount)
	}

	out := make([]article.Article, 0, amount)
	offset := 0
	for len(out) < amount {
		page, err := p.fetcher.Fetch(ctx, query, p.pageSize, offset)
		if err != nil {
			metrics.SourceRequestsTotal.WithLabelValues(p.name, "error").Inc()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%s: fetch canceled: %w", p.name, ctxErr)
			}
			if !errors.Is(err, domain.ErrProvider) {
				err = fmt.Errorf("%w: %w", domain.ErrProvider, err)
			}
			return nil, fmt.Errorf("%s: fetch offset %d: %w", p.name, offset, err)
		}
		metrics.SourceRequestsTotal.WithLabelValues(p.name, "success").Inc()

		// Providers drop malformed records, so the window advances by what was asked for.
		offset += p.pageSize
		usable := page
		if excludeEmpty {
			usable = article.FilterNonEmpty(page)
		}
		if remaining := amount - len(out); len(usable) > remaining {
			usable = usable[:remaining]
		}
		out = append(out, usable...)

		if onProgress != nil {
			onProgress(len(out), amount)
		}
		if len(usable) == 0 {
			p.logger.Debug("Provider exhausted",
				zap.String("source", p.name),
				zap.Int("offset", offset),
				zap.Int("fetched", len(out)),
			)
			break
		}
		if len(out) >= amount {
			break
		}
		if err := p.sleep(ctx, p.delay); err != nil {
			return nil, fmt.Errorf("%s: wait between pages: %w", p.name, err)
		}
	}

	return out, nil
}

// ProgressMessage formats the fetch progress shown to users.
func ProgressMessage(fetched, amount int) string {
	return fmt.Sprintf("Fetching articles: %d/%d", fetched, amount)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
