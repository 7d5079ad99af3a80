package cluster

import (
	"fmt"
)

// Node is a dendrogram node. Leaves carry a document index, internal nodes carry
// the distance at which their two children were merged.
type Node struct {
	Height   float64
	Size     int
	Index    int // document index for leaves, -1 for internal nodes
	Children []*Node
}

// Leaf creates a leaf node for document i.
func Leaf(i int) *Node {
	return &Node{Size: 1, Index: i}
}

// Merge creates an internal node joining a and b at height.
func Merge(height float64, a, b *Node) *Node {
	return &Node{
		Height:   height,
		Size:     a.Size + b.Size,
		Index:    -1,
		Children: []*Node{a, b},
	}
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Leaves returns the document indexes under n, left to right.
func (n *Node) Leaves() []int {
	out := make([]int, 0, n.Size)
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.IsLeaf() {
			out = append(out, cur.Index)
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return out
}

// MinLeaf returns the smallest document index under n.
func (n *Node) MinLeaf() int {
	minIdx := -1
	for _, i := range n.Leaves() {
		if minIdx == -1 || i < minIdx {
			minIdx = i
		}
	}
	return minIdx
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Height: n.Height, Size: n.Size, Index: n.Index}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Tree is a dendrogram over documents 0..N-1.
type Tree struct {
	root *Node
}

// NewTree validates that root covers every document index in [0, n) exactly once.
func NewTree(root *Node) (Tree, error) {
	if root == nil {
		return Tree{}, fmt.Errorf("cluster tree root is required")
	}
	leaves := root.Leaves()
	seen := make([]bool, len(leaves))
	for _, i := range leaves {
		if i < 0 || i >= len(leaves) {
			return Tree{}, fmt.Errorf("leaf index %d out of range [0, %d)", i, len(leaves))
		}
		if seen[i] {
			return Tree{}, fmt.Errorf("leaf index %d appears twice", i)
		}
		seen[i] = true
	}
	if root.Size != len(leaves) {
		return Tree{}, fmt.Errorf("root size %d does not match %d leaves", root.Size, len(leaves))
	}
	return Tree{root: root}, nil
}

// Root returns the root node. Callers must not mutate it.
func (t Tree) Root() *Node { return t.root }

// Len returns the number of leaves (documents).
func (t Tree) Len() int {
	if t.root == nil {
		return 0
	}
	return t.root.Size
}

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	return Tree{root: t.root.Clone()}
}
