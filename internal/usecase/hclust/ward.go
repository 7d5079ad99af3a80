// Package hclust builds agglomerative clustering trees.
package hclust

import (
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
)

// Ward builds a Ward-linkage dendrogram over points using the
// nearest-neighbour chain algorithm. Merge heights are euclidean
// Ward distances and never decrease towards the root.
func Ward(ctx context.Context, points []projection.Point) (cluster.Tree, error) {
	n := len(points)
	if n == 0 {
		return cluster.Tree{}, fmt.Errorf("cannot build a cluster tree over zero points")
	}

	nodes := make([]*cluster.Node, n)
	active := make([]bool, n)
	for i := range nodes {
		nodes[i] = cluster.Leaf(i)
		active[i] = true
	}

	// squared distances, lower triangle used through at()
	d := newMatrix(n)
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			dx, dy := points[i].X-points[j].X, points[i].Y-points[j].Y
			d.set(i, j, dx*dx+dy*dy)
		}
	}

	chain := make([]int, 0, n)
	for remaining := n; remaining > 1; remaining-- {
		if err := ctx.Err(); err != nil {
			return cluster.Tree{}, err
		}
		if len(chain) == 0 {
			chain = append(chain, firstActive(active))
		}

		var a, b int
		for {
			a = chain[len(chain)-1]
			prev := -1
			if len(chain) > 1 {
				prev = chain[len(chain)-2]
			}
			b = nearest(d, active, a, prev)
			if b == prev {
				break
			}
			chain = append(chain, b)
		}
		chain = chain[:len(chain)-2]

		// merged cluster lives in the lower slot
		if b < a {
			a, b = b, a
		}
		na, nb := float64(nodes[a].Size), float64(nodes[b].Size)
		dab := d.at(a, b)
		for k := range active {
			if !active[k] || k == a || k == b {
				continue
			}
			nk := float64(nodes[k].Size)
			dist := ((na+nk)*d.at(a, k) + (nb+nk)*d.at(b, k) - nk*dab) / (na + nb + nk)
			d.set(a, k, dist)
		}
		nodes[a] = cluster.Merge(math.Sqrt(math.Max(dab, 0)), nodes[a], nodes[b])
		nodes[b] = nil
		active[b] = false
	}

	return cluster.NewTree(nodes[firstActive(active)])
}

// nearest returns the active cluster closest to a. Ties prefer prev, then the
// lowest index.
func nearest(d matrix, active []bool, a, prev int) int {
	best, bestDist := -1, math.Inf(1)
	if prev >= 0 {
		best, bestDist = prev, d.at(a, prev)
	}
	for k := range active {
		if !active[k] || k == a {
			continue
		}
		if dist := d.at(a, k); dist < bestDist {
			best, bestDist = k, dist
		}
	}
	return best
}

func firstActive(active []bool) int {
	for i, ok := range active {
		if ok {
			return i
		}
	}
	return -1
}

// matrix is a packed symmetric matrix without the diagonal.
type matrix []float64

func newMatrix(n int) matrix {
	return make(matrix, n*(n-1)/2)
}

func (m matrix) index(i, j int) int {
	if i < j {
		i, j = j, i
	}
	return i*(i-1)/2 + j
}

func (m matrix) at(i, j int) float64 { return m[m.index(i, j)] }

func (m matrix) set(i, j int, v float64) { m[m.index(i, j)] = v }
