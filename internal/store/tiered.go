package store

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kontexthq/kontext/internal/core/model"
)

// TieredStore composes a durable primary with the in-memory cache. The tier
// is picked by a capability check (Ping) at call time, not by recovering
// from a failure mid-flight: when the primary is down, knowledge degrades to
// whatever the cache holds and the request still succeeds.
//
// Writes go through to the cache unconditionally so a later outage has
// something to fall back on.
type TieredStore struct {
	primary KnowledgeStore
	cache   *Cache
	logger  *log.Logger
}

// NewTieredStore wraps primary with cache. A nil primary is allowed and
// yields a cache-only store.
func NewTieredStore(primary KnowledgeStore, cache *Cache, logger *log.Logger) *TieredStore {
	if logger == nil {
		logger = log.Default()
	}
	return &TieredStore{primary: primary, cache: cache, logger: logger}
}

func (t *TieredStore) primaryUp(ctx context.Context) bool {
	if t.primary == nil {
		return false
	}
	if err := t.primary.Ping(ctx); err != nil {
		t.logger.Warn("knowledge store unreachable, using in-memory cache", "err", err)
		return false
	}
	return true
}

func (t *TieredStore) UpsertEntities(ctx context.Context, userID string, entities []model.Entity) error {
	_ = t.cache.UpsertEntities(ctx, userID, entities)
	if !t.primaryUp(ctx) {
		return nil
	}
	if err := t.primary.UpsertEntities(ctx, userID, entities); err != nil {
		t.logger.Warn("entity upsert failed, cached only", "user", userID, "err", err)
	}
	return nil
}

func (t *TieredStore) UpsertRelationships(ctx context.Context, userID string, rels []model.Relationship) error {
	_ = t.cache.UpsertRelationships(ctx, userID, rels)
	if !t.primaryUp(ctx) {
		return nil
	}
	if err := t.primary.UpsertRelationships(ctx, userID, rels); err != nil {
		t.logger.Warn("relationship upsert failed, cached only", "user", userID, "err", err)
	}
	return nil
}

func (t *TieredStore) QueryEntities(ctx context.Context, userID string, minConfidence float64, limit int) ([]model.Entity, error) {
	if t.primaryUp(ctx) {
		out, err := t.primary.QueryEntities(ctx, userID, minConfidence, limit)
		if err == nil {
			return out, nil
		}
		t.logger.Warn("entity query failed, falling back to cache", "user", userID, "err", err)
	}
	return t.cache.QueryEntities(ctx, userID, minConfidence, limit)
}

func (t *TieredStore) QueryRelationships(ctx context.Context, userID string, minStrength float64, limit int) ([]model.Relationship, error) {
	if t.primaryUp(ctx) {
		out, err := t.primary.QueryRelationships(ctx, userID, minStrength, limit)
		if err == nil {
			return out, nil
		}
		t.logger.Warn("relationship query failed, falling back to cache", "user", userID, "err", err)
	}
	return t.cache.QueryRelationships(ctx, userID, minStrength, limit)
}

func (t *TieredStore) Cleanup(ctx context.Context, userID string, maxAge time.Duration, minConfidence, minStrength float64) (int, error) {
	removed, _ := t.cache.Cleanup(ctx, userID, maxAge, minConfidence, minStrength)
	if !t.primaryUp(ctx) {
		return removed, nil
	}
	n, err := t.primary.Cleanup(ctx, userID, maxAge, minConfidence, minStrength)
	if err != nil {
		return removed, err
	}
	return removed + n, nil
}

func (t *TieredStore) ClearUser(ctx context.Context, userID string) error {
	_ = t.cache.ClearUser(ctx, userID)
	if !t.primaryUp(ctx) {
		return nil
	}
	return t.primary.ClearUser(ctx, userID)
}

func (t *TieredStore) Users(ctx context.Context) ([]string, error) {
	if t.primaryUp(ctx) {
		if out, err := t.primary.Users(ctx); err == nil {
			return out, nil
		}
	}
	return t.cache.Users(ctx)
}

func (t *TieredStore) Ping(ctx context.Context) error {
	if t.primary == nil {
		return t.cache.Ping(ctx)
	}
	return t.primary.Ping(ctx)
}

func (t *TieredStore) Close(ctx context.Context) error {
	if t.primary == nil {
		return nil
	}
	return t.primary.Close(ctx)
}
