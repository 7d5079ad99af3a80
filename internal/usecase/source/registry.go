package source

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/request"
)

// Registry resolves a provider name to its Paginator.
type Registry struct {
	sources map[request.Source]*Paginator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[request.Source]*Paginator)}
}

// Register binds name to p.
func (r *Registry) Register(name request.Source, p *Paginator) *Registry {
	r.sources[name] = p
	return r
}

// Fetch runs the paginated fetch described by req against its provider.
func (r *Registry) Fetch(ctx context.Context, req request.Search, onProgress ProgressFunc) ([]article.Article, error) {
	p, ok := r.sources[req.Source()]
	if !ok {
		return nil, fmt.Errorf("%w: source %q is not configured", domain.ErrValidation, req.Source())
	}
	return p.Fetch(ctx, req.Query(), req.Amount(), req.ExcludeEmpty(), onProgress)
}
