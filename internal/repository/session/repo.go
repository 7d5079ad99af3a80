// Package session persists the latest search result so clusters can be
// recomputed without fetching again.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/db"
	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
)

const (
	keyTokens      = "tokens"
	keyDocuments   = "documents"
	keyProjection  = "projection"
	keyClusterTree = "cluster_tree"
)

// store is the consumer interface for the session cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
	ReplaceAll(ctx context.Context, entries []db.Entry, ttl time.Duration) error
}

// Snapshot is the cached part of a search result.
type Snapshot struct {
	Documents  []article.Article
	Tokens     [][]string
	Projection []projection.Point
	Tree       cluster.Tree
}

// Repo stores one Snapshot under fixed keys.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a session repository. Keys are "<prefix>{session}:<name>"; the
// hash tag keeps them in one cluster slot.
func New(s store, prefix string, ttl time.Duration, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: prefix + "{session}:", ttl: ttl, logger: logger}
}

func (r *Repo) keys() []string {
	return []string{
		r.prefix + keyTokens,
		r.prefix + keyDocuments,
		r.prefix + keyProjection,
		r.prefix + keyClusterTree,
	}
}

// Save replaces the stored snapshot. Every key is rewritten in one ReplaceAll,
// so a reader never mixes two searches.
func (r *Repo) Save(ctx context.Context, snap Snapshot) error {
	values := map[string]any{
		keyTokens:      snap.Tokens,
		keyDocuments:   articlesToRows(snap.Documents),
		keyProjection:  snap.Projection,
		keyClusterTree: treeToRows(snap.Tree),
	}
	entries := make([]db.Entry, 0, len(values))
	for _, name := range []string{keyTokens, keyDocuments, keyProjection, keyClusterTree} {
		data, err := json.Marshal(values[name])
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		entries = append(entries, db.Entry{Key: r.prefix + name, Value: data})
	}
	if err := r.store.ReplaceAll(ctx, entries, r.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	r.logger.Debug("Session saved", zap.Int("documents", len(snap.Documents)))
	return nil
}

// Load returns the stored snapshot, or domain.ErrNotFound when any part is missing.
func (r *Repo) Load(ctx context.Context) (Snapshot, error) {
	var (
		snap  Snapshot
		docs  []articleRow
		nodes []nodeRow
	)
	targets := []struct {
		name string
		dst  any
	}{
		{keyTokens, &snap.Tokens},
		{keyDocuments, &docs},
		{keyProjection, &snap.Projection},
		{keyClusterTree, &nodes},
	}
	for _, t := range targets {
		data, err := r.store.Get(ctx, r.prefix+t.name)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				return Snapshot{}, fmt.Errorf("session %s: %w", t.name, domain.ErrNotFound)
			}
			return Snapshot{}, fmt.Errorf("load %s: %w", t.name, err)
		}
		if err := json.Unmarshal(data, t.dst); err != nil {
			return Snapshot{}, fmt.Errorf("unmarshal %s: %w", t.name, err)
		}
	}

	tree, err := treeFromRows(nodes)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode cluster tree: %w", err)
	}
	snap.Tree = tree
	snap.Documents = articlesFromRows(docs)

	n := len(snap.Documents)
	if len(snap.Tokens) != n || len(snap.Projection) != n || tree.Len() != n {
		return Snapshot{}, fmt.Errorf(
			"inconsistent session: %d documents, %d token lists, %d points, %d leaves",
			n, len(snap.Tokens), len(snap.Projection), tree.Len(),
		)
	}
	return snap, nil
}

// Clear deletes the stored snapshot.
func (r *Repo) Clear(ctx context.Context) error {
	if err := r.store.Del(ctx, r.keys()...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
