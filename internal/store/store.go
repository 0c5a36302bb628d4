// Package store persists extracted knowledge per user. A durable backend
// (Memgraph over Bolt, or embedded SQLite) sits behind the KnowledgeStore
// interface; a bounded in-memory cache provides the degraded-but-available
// path when the backend is down.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kontexthq/kontext/internal/core/model"
)

// ErrUnavailable is returned by Ping when the backend cannot be reached.
var ErrUnavailable = errors.New("knowledge store unavailable")

// StoredContextChars caps the context excerpt persisted with each record.
const StoredContextChars = 200

type KnowledgeStore interface {
	// UpsertEntities is idempotent by (user, name): same name refreshes
	// fields, last writer wins.
	UpsertEntities(ctx context.Context, userID string, entities []model.Entity) error
	// UpsertRelationships is idempotent by (user, from, to, type).
	UpsertRelationships(ctx context.Context, userID string, rels []model.Relationship) error
	// QueryEntities returns entities with confidence >= min, ordered by
	// confidence descending, refreshing last_accessed best-effort.
	QueryEntities(ctx context.Context, userID string, minConfidence float64, limit int) ([]model.Entity, error)
	// QueryRelationships returns relationships with strength >= min,
	// ordered by strength descending.
	QueryRelationships(ctx context.Context, userID string, minStrength float64, limit int) ([]model.Relationship, error)
	// Cleanup deletes entities older than maxAge AND below the confidence
	// floor, and relationships older than maxAge AND below the strength
	// floor. Returns the number of records removed.
	Cleanup(ctx context.Context, userID string, maxAge time.Duration, minConfidence, minStrength float64) (int, error)
	// ClearUser removes everything stored for one user.
	ClearUser(ctx context.Context, userID string) error
	// Users lists user IDs known to the store, for maintenance sweeps.
	Users(ctx context.Context) ([]string, error)
	// Ping is the capability check the tiered strategy selects on.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func truncateContext(s string) string {
	if len(s) <= StoredContextChars {
		return s
	}
	return s[:StoredContextChars]
}
