package cluster

import (
	"fmt"

	"github.com/kailas-cloud/litmap/internal/domain"
)

// Unassigned marks a document that no group claimed.
const Unassigned = -1

// Assignment maps document index to cluster id.
type Assignment []int

// NewAssignment returns an assignment of n documents, all unassigned.
func NewAssignment(n int) Assignment {
	a := make(Assignment, n)
	for i := range a {
		a[i] = Unassigned
	}
	return a
}

// Validate checks that every document has an id in [0, k) and that every id is used.
func (a Assignment) Validate(k int) error {
	used := make([]bool, k)
	for doc, id := range a {
		if id == Unassigned {
			return fmt.Errorf("document %d: %w", doc, domain.ErrCut)
		}
		if id < 0 || id >= k {
			return fmt.Errorf("document %d has cluster id %d outside [0, %d): %w", doc, id, k, domain.ErrCut)
		}
		used[id] = true
	}
	for id, ok := range used {
		if !ok {
			return fmt.Errorf("cluster %d has no documents: %w", id, domain.ErrCut)
		}
	}
	return nil
}

// Members returns document indexes per cluster id, in ascending order.
func (a Assignment) Members(k int) [][]int {
	out := make([][]int, k)
	for doc, id := range a {
		if id >= 0 && id < k {
			out[id] = append(out[id], doc)
		}
	}
	return out
}

// Clone returns a copy of the assignment.
func (a Assignment) Clone() Assignment {
	if a == nil {
		return nil
	}
	out := make(Assignment, len(a))
	copy(out, a)
	return out
}
