package vectorize

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/litmap/internal/domain"
)

// Table is an immutable word-vector lookup table with a uniform dimension.
type Table struct {
	vectors map[string][]float32
	dim     int
}

// NewTable validates that every vector has the same length.
func NewTable(vectors map[string][]float32) (Table, error) {
	dim := -1
	for token, v := range vectors {
		if dim == -1 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return Table{}, fmt.Errorf("%w: vector for %q has %d dimensions, want %d",
				domain.ErrProvider, token, len(v), dim)
		}
	}
	if dim < 0 {
		dim = 0
	}
	return Table{vectors: vectors, dim: dim}, nil
}

// Dim returns the vector dimensionality.
func (t Table) Dim() int { return t.dim }

// Len returns the number of tokens in the table.
func (t Table) Len() int { return len(t.vectors) }

// Lookup returns the vector of token.
func (t Table) Lookup(token string) ([]float32, bool) {
	v, ok := t.vectors[token]
	return v, ok
}

// Loader fetches the raw table as one bulk resource.
type Loader interface {
	Load(ctx context.Context) (map[string][]float32, error)
}

// TableHandle loads the table once per process. A failed load is retried on
// the next Get; a successful one is never repeated.
type TableHandle struct {
	loader Loader
	mu     sync.Mutex
	table  *Table
}

// NewTableHandle creates a lazy handle over loader.
func NewTableHandle(loader Loader) *TableHandle {
	return &TableHandle{loader: loader}
}

// Get returns the table, loading it on first use.
func (h *TableHandle) Get(ctx context.Context) (Table, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.table != nil {
		return *h.table, nil
	}

	raw, err := h.loader.Load(ctx)
	if err != nil {
		return Table{}, fmt.Errorf("load word vectors: %w", err)
	}
	t, err := NewTable(raw)
	if err != nil {
		return Table{}, err
	}
	h.table = &t
	return t, nil
}
