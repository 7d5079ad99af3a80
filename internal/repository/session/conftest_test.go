package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/db"
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data   map[string][]byte
	ops    []string
	ttls   []time.Duration
	getFn  func(key string) ([]byte, error)
	setErr error
	delErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(key)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) ReplaceAll(_ context.Context, entries []db.Entry, ttl time.Duration) error {
	m.ops = append(m.ops, "REPLACE "+strings.Join(db.Keys(entries), " "))
	m.ttls = append(m.ttls, ttl)
	if m.setErr != nil {
		return m.setErr
	}
	for _, e := range entries {
		m.data[e.Key] = e.Value
	}
	return nil
}

func (m *mockKVStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.ops = append(m.ops, "DEL "+k)
	}
	if m.delErr != nil {
		return m.delErr
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(ms, "litmap:", time.Hour, zap.NewNop()), ms
}

func testSnapshot(t *testing.T) Snapshot {
	t.Helper()
	tree, err := cluster.NewTree(cluster.Merge(3,
		cluster.Merge(1, cluster.Leaf(0), cluster.Leaf(2)),
		cluster.Leaf(1),
	))
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	return Snapshot{
		Documents: []article.Article{
			article.Reconstruct("Graph networks", "We study graphs.", 2021, 12, "https://example.org/1"),
			article.Reconstruct("Galaxy survey", "", 2019, 0, ""),
			article.Reconstruct("Graph kernels", "Kernels on graphs.", 2020, 3, "https://example.org/3"),
		},
		Tokens:     [][]string{{"graph", "networks"}, {"galaxy", "survey"}, {"graph", "kernels"}},
		Projection: []projection.Point{{X: 0, Y: 1}, {X: 5, Y: 5}, {X: 0.5, Y: 1}},
		Tree:       tree,
	}
}
