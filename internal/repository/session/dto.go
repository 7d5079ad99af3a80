package session

import (
	"fmt"

	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
)

// articleRow is the JSON-serializable representation of an article.
type articleRow struct {
	Title         string `json:"title"`
	Abstract      string `json:"abstract,omitempty"`
	Year          int    `json:"year,omitempty"`
	CitationCount int    `json:"citation_count"`
	URL           string `json:"url,omitempty"`
}

func articlesToRows(articles []article.Article) []articleRow {
	rows := make([]articleRow, len(articles))
	for i := range articles {
		a := &articles[i]
		rows[i] = articleRow{
			Title:         a.Title(),
			Abstract:      a.Abstract(),
			Year:          a.Year(),
			CitationCount: a.CitationCount(),
			URL:           a.URL(),
		}
	}
	return rows
}

func articlesFromRows(rows []articleRow) []article.Article {
	out := make([]article.Article, len(rows))
	for i, r := range rows {
		out[i] = article.Reconstruct(r.Title, r.Abstract, r.Year, r.CitationCount, r.URL)
	}
	return out
}

// nodeRow is one dendrogram node in post-order. Internal nodes reference
// their children by row position; the root is the last row.
type nodeRow struct {
	Height   float64 `json:"h,omitempty"`
	Index    int     `json:"i"`
	Children []int   `json:"c,omitempty"`
}

func treeToRows(tree cluster.Tree) []nodeRow {
	if tree.Root() == nil {
		return nil
	}
	rows := make([]nodeRow, 0, 2*tree.Len()-1)
	var walk func(n *cluster.Node) int
	walk = func(n *cluster.Node) int {
		row := nodeRow{Height: n.Height, Index: n.Index}
		for _, c := range n.Children {
			row.Children = append(row.Children, walk(c))
		}
		rows = append(rows, row)
		return len(rows) - 1
	}
	walk(tree.Root())
	return rows
}

func treeFromRows(rows []nodeRow) (cluster.Tree, error) {
	if len(rows) == 0 {
		return cluster.Tree{}, fmt.Errorf("empty cluster tree")
	}
	nodes := make([]*cluster.Node, len(rows))
	for i, r := range rows {
		switch len(r.Children) {
		case 0:
			nodes[i] = cluster.Leaf(r.Index)
		case 2:
			a, b := r.Children[0], r.Children[1]
			if a < 0 || a >= i || b < 0 || b >= i || nodes[a] == nil || nodes[b] == nil {
				return cluster.Tree{}, fmt.Errorf("node %d references invalid children %v", i, r.Children)
			}
			nodes[i] = cluster.Merge(r.Height, nodes[a], nodes[b])
			nodes[a], nodes[b] = nil, nil
		default:
			return cluster.Tree{}, fmt.Errorf("node %d has %d children", i, len(r.Children))
		}
	}
	return cluster.NewTree(nodes[len(nodes)-1])
}
