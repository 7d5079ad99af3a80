package cluster

import (
	"sort"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/request"
)

type group struct {
	node    *cluster.Node
	minLeaf int
}

// Cut splits tree into exactly k groups by repeatedly opening the highest
// merge (ties: the group holding the smallest document index). Group ids are
// ordered by smallest document index.
func Cut(tree cluster.Tree, k int) (cluster.Assignment, error) {
	n := tree.Len()
	if k < request.MinClusters || k > n {
		return nil, domain.NewRangeError("clusters", k, request.MinClusters, n)
	}

	groups := []group{{node: tree.Root(), minLeaf: tree.Root().MinLeaf()}}
	for len(groups) < k {
		best := -1
		for i, g := range groups {
			if g.node.IsLeaf() {
				continue
			}
			if best == -1 || g.node.Height > groups[best].node.Height ||
				(g.node.Height == groups[best].node.Height && g.minLeaf < groups[best].minLeaf) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		split := groups[best].node
		groups = append(groups[:best], groups[best+1:]...)
		for _, child := range split.Children {
			groups = append(groups, group{node: child, minLeaf: child.MinLeaf()})
		}
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].minLeaf < groups[j].minLeaf })

	assignment := cluster.NewAssignment(n)
	for id, g := range groups {
		for _, leaf := range g.node.Leaves() {
			assignment[leaf] = id
		}
	}
	if err := assignment.Validate(k); err != nil {
		return nil, err
	}
	return assignment, nil
}
