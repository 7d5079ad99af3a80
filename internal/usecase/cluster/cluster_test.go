package cluster

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
)

// ((0,2)@1, ((1,4)@2, 3)@3)@10
func testTree(t *testing.T) cluster.Tree {
	t.Helper()
	left := cluster.Merge(1, cluster.Leaf(0), cluster.Leaf(2))
	right := cluster.Merge(3, cluster.Merge(2, cluster.Leaf(1), cluster.Leaf(4)), cluster.Leaf(3))
	tree, err := cluster.NewTree(cluster.Merge(10, right, left))
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	return tree
}

func TestCut(t *testing.T) {
	tree := testTree(t)
	tests := []struct {
		k    int
		want cluster.Assignment
	}{
		{2, cluster.Assignment{0, 1, 0, 1, 1}},
		{3, cluster.Assignment{0, 1, 0, 2, 1}},
		{4, cluster.Assignment{0, 1, 0, 2, 3}},
		{5, cluster.Assignment{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		got, err := Cut(tree, tt.k)
		if err != nil {
			t.Fatalf("k=%d: %v", tt.k, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("k=%d: got %v, want %v", tt.k, got, tt.want)
		}
		if err := got.Validate(tt.k); err != nil {
			t.Errorf("k=%d: invalid assignment: %v", tt.k, err)
		}
	}
}

func TestCut_TiesSplitSmallestLeafFirst(t *testing.T) {
	left := cluster.Merge(2, cluster.Leaf(3), cluster.Leaf(1))
	right := cluster.Merge(2, cluster.Leaf(0), cluster.Leaf(2))
	tree, err := cluster.NewTree(cluster.Merge(5, left, right))
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}

	got, err := Cut(tree, 3)
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	want := cluster.Assignment{0, 1, 2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCut_OutOfRange(t *testing.T) {
	tree := testTree(t)
	for _, k := range []int{-1, 0, 1, 6} {
		_, err := Cut(tree, k)
		if !errors.Is(err, domain.ErrOutOfRange) {
			t.Errorf("k=%d: expected ErrOutOfRange, got %v", k, err)
		}
		var rangeErr *domain.RangeError
		if errors.As(err, &rangeErr) && rangeErr.Max != 5 {
			t.Errorf("k=%d: max = %d, want 5", k, rangeErr.Max)
		}
	}
}

func TestRun(t *testing.T) {
	req := Request{
		Tree: testTree(t),
		K:    2,
		Projection: []projection.Point{
			{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 2, Y: 0}, {X: 10, Y: 12}, {X: 13, Y: 11},
		},
		Tokens: [][]string{
			{"protein", "redshift"}, {"galaxy"}, {"protein"}, {"galaxy", "redshift"}, {"galaxy"},
		},
		Keywords: 1,
	}

	resp, err := Run(req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(resp.Keywords, [][]string{{"protein"}, {"galaxy"}}) {
		t.Errorf("keywords: %v", resp.Keywords)
	}
	centroids := Centroids(req.Projection, resp.Assignment, req.K)
	wantCentroids := []projection.Point{{X: 1, Y: 0}, {X: 11, Y: 11}}
	if !reflect.DeepEqual(centroids, wantCentroids) {
		t.Errorf("centroids: %v, want %v", centroids, wantCentroids)
	}
}

func TestService_Clusterize(t *testing.T) {
	svc := New(zap.NewNop())
	tokens := [][]string{{"a"}, {"b"}, {"a"}, {"b"}, {"b"}}
	req := Request{Tree: testTree(t), K: 2, Tokens: tokens, Keywords: 3}

	resp, err := svc.Clusterize(context.Background(), req)
	if err != nil {
		t.Fatalf("Clusterize: %v", err)
	}
	if !reflect.DeepEqual(resp.Assignment, cluster.Assignment{0, 1, 0, 1, 1}) {
		t.Errorf("assignment: %v", resp.Assignment)
	}

	// the caller's inputs are untouched and not shared with the response
	resp.Assignment[0] = 9
	if tokens[0][0] != "a" {
		t.Error("tokens mutated")
	}
	again, err := svc.Clusterize(context.Background(), req)
	if err != nil || again.Assignment[0] != 0 {
		t.Errorf("second call: %v, %v", again.Assignment, err)
	}
}

func TestService_ClusterizeError(t *testing.T) {
	_, err := New(zap.NewNop()).Clusterize(context.Background(), Request{Tree: testTree(t), K: 9})
	if !errors.Is(err, domain.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}
