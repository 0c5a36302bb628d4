package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kontexthq/kontext/internal/core/model"
)

// Default per-user caps for the in-memory fallback.
const (
	DefaultCacheEntities      = 100
	DefaultCacheRelationships = 50
)

// Cache is the process-local fallback store. It is explicitly injected into
// the pipeline (never ambient state), bounded per user, and evicts oldest
// first. Safe for concurrent use.
type Cache struct {
	mu               sync.RWMutex
	maxEntities      int
	maxRelationships int
	entities         map[string][]model.Entity
	relationships    map[string][]model.Relationship
}

func NewCache(maxEntities, maxRelationships int) *Cache {
	if maxEntities <= 0 {
		maxEntities = DefaultCacheEntities
	}
	if maxRelationships <= 0 {
		maxRelationships = DefaultCacheRelationships
	}
	return &Cache{
		maxEntities:      maxEntities,
		maxRelationships: maxRelationships,
		entities:         make(map[string][]model.Entity),
		relationships:    make(map[string][]model.Relationship),
	}
}

func (c *Cache) UpsertEntities(ctx context.Context, userID string, entities []model.Entity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.entities[userID]
	for _, e := range entities {
		e.Context = truncateContext(e.Context)
		replaced := false
		for i := range list {
			if list[i].Name == e.Name {
				list[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, e)
		}
	}
	if over := len(list) - c.maxEntities; over > 0 {
		list = list[over:]
	}
	c.entities[userID] = list
	return nil
}

func (c *Cache) UpsertRelationships(ctx context.Context, userID string, rels []model.Relationship) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.relationships[userID]
	for _, r := range rels {
		r.Context = truncateContext(r.Context)
		replaced := false
		for i := range list {
			if list[i].FromEntity == r.FromEntity && list[i].ToEntity == r.ToEntity && list[i].Type == r.Type {
				list[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, r)
		}
	}
	if over := len(list) - c.maxRelationships; over > 0 {
		list = list[over:]
	}
	c.relationships[userID] = list
	return nil
}

func (c *Cache) QueryEntities(ctx context.Context, userID string, minConfidence float64, limit int) ([]model.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	var out []model.Entity
	list := c.entities[userID]
	for i := range list {
		if list[i].Confidence >= minConfidence {
			list[i].LastAccessed = now
			out = append(out, list[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Cache) QueryRelationships(ctx context.Context, userID string, minStrength float64, limit int) ([]model.Relationship, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Relationship
	for _, r := range c.relationships[userID] {
		if r.Strength >= minStrength {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Cache) Cleanup(ctx context.Context, userID string, maxAge time.Duration, minConfidence, minStrength float64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0

	kept := c.entities[userID][:0]
	for _, e := range c.entities[userID] {
		if e.CreatedAt.Before(cutoff) && e.Confidence < minConfidence {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	c.entities[userID] = kept

	keptRels := c.relationships[userID][:0]
	for _, r := range c.relationships[userID] {
		if r.CreatedAt.Before(cutoff) && r.Strength < minStrength {
			removed++
			continue
		}
		keptRels = append(keptRels, r)
	}
	c.relationships[userID] = keptRels
	return removed, nil
}

func (c *Cache) ClearUser(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entities, userID)
	delete(c.relationships, userID)
	return nil
}

func (c *Cache) Users(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for u := range c.entities {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for u := range c.relationships {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *Cache) Ping(ctx context.Context) error { return nil }

func (c *Cache) Close(ctx context.Context) error { return nil }
