package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kontexthq/kontext/internal/core/model"
)

// MemgraphStore is the primary durable backend, reached over Bolt. Works
// against Memgraph or Neo4j.
type MemgraphStore struct {
	driver neo4j.DriverWithContext
}

func NewMemgraphStore(uri, username, password string) (*MemgraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &MemgraphStore{driver: driver}, nil
}

// BuildIndices creates the lookup indices the query paths rely on. Failures
// are tolerated: the index may already exist.
func (m *MemgraphStore) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Entity(user_id);",
		"CREATE INDEX ON :Entity(name);",
		"CREATE INDEX ON :Entity(confidence);",
		"CREATE INDEX ON :Entity(created_at);",
	}
	for _, q := range queries {
		_, _ = m.execute(ctx, q, nil)
	}
	return nil
}

func (m *MemgraphStore) execute(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, m.driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

func (m *MemgraphStore) UpsertEntities(ctx context.Context, userID string, entities []model.Entity) error {
	for _, e := range entities {
		params := map[string]any{
			"user_id":           userID,
			"name":              e.Name,
			"entity_type":       e.Type,
			"category":          e.Category,
			"context":           truncateContext(e.Context),
			"confidence":        e.Confidence,
			"tier":              e.Tier,
			"extraction_method": e.ExtractionMethod,
			"created_at":        formatTime(e.CreatedAt),
			"last_accessed":     formatTime(e.LastAccessed),
		}
		if _, err := m.execute(ctx, upsertEntityQuery, params); err != nil {
			return fmt.Errorf("upserting entity %q: %w", e.Name, err)
		}
	}
	return nil
}

func (m *MemgraphStore) UpsertRelationships(ctx context.Context, userID string, rels []model.Relationship) error {
	for _, r := range rels {
		params := map[string]any{
			"user_id":     userID,
			"from_entity": r.FromEntity,
			"to_entity":   r.ToEntity,
			"rel_type":    r.Type,
			"strength":    r.Strength,
			"context":     truncateContext(r.Context),
			"created_at":  formatTime(r.CreatedAt),
		}
		if _, err := m.execute(ctx, upsertRelationshipQuery, params); err != nil {
			return fmt.Errorf("upserting relationship %s->%s: %w", r.FromEntity, r.ToEntity, err)
		}
	}
	return nil
}

func (m *MemgraphStore) QueryEntities(ctx context.Context, userID string, minConfidence float64, limit int) ([]model.Entity, error) {
	params := map[string]any{
		"user_id":        userID,
		"min_confidence": minConfidence,
		"limit":          queryLimit(limit),
		"now":            formatTime(time.Now().UTC()),
	}
	result, err := m.execute(ctx, queryEntitiesQuery, params)
	if err != nil {
		return nil, err
	}
	out := make([]model.Entity, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, model.Entity{
			Name:             recordString(rec, "name"),
			Type:             recordString(rec, "entity_type"),
			Category:         recordString(rec, "category"),
			Context:          recordString(rec, "context"),
			Confidence:       recordFloat(rec, "confidence"),
			Tier:             recordInt(rec, "tier"),
			ExtractionMethod: recordString(rec, "extraction_method"),
			CreatedAt:        parseTime(recordString(rec, "created_at")),
			LastAccessed:     parseTime(recordString(rec, "last_accessed")),
		})
	}
	return out, nil
}

func (m *MemgraphStore) QueryRelationships(ctx context.Context, userID string, minStrength float64, limit int) ([]model.Relationship, error) {
	params := map[string]any{
		"user_id":      userID,
		"min_strength": minStrength,
		"limit":        queryLimit(limit),
	}
	result, err := m.execute(ctx, queryRelationshipsQuery, params)
	if err != nil {
		return nil, err
	}
	out := make([]model.Relationship, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, model.Relationship{
			FromEntity: recordString(rec, "from_entity"),
			ToEntity:   recordString(rec, "to_entity"),
			Type:       recordString(rec, "rel_type"),
			Strength:   recordFloat(rec, "strength"),
			Context:    recordString(rec, "context"),
			CreatedAt:  parseTime(recordString(rec, "created_at")),
		})
	}
	return out, nil
}

func (m *MemgraphStore) Cleanup(ctx context.Context, userID string, maxAge time.Duration, minConfidence, minStrength float64) (int, error) {
	cutoff := formatTime(time.Now().UTC().Add(-maxAge))
	removed := 0

	result, err := m.execute(ctx, cleanupEntitiesQuery, map[string]any{
		"user_id": userID, "cutoff": cutoff, "min_confidence": minConfidence,
	})
	if err != nil {
		return 0, fmt.Errorf("cleaning entities: %w", err)
	}
	removed += result.Summary.Counters().NodesDeleted()

	result, err = m.execute(ctx, cleanupRelationshipsQuery, map[string]any{
		"user_id": userID, "cutoff": cutoff, "min_strength": minStrength,
	})
	if err != nil {
		return removed, fmt.Errorf("cleaning relationships: %w", err)
	}
	removed += result.Summary.Counters().RelationshipsDeleted()

	return removed, nil
}

func (m *MemgraphStore) ClearUser(ctx context.Context, userID string) error {
	_, err := m.execute(ctx, clearUserQuery, map[string]any{"user_id": userID})
	return err
}

func (m *MemgraphStore) Users(ctx context.Context) ([]string, error) {
	result, err := m.execute(ctx, listUsersQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(result.Records))
	for _, rec := range result.Records {
		if u := recordString(rec, "user_id"); u != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemgraphStore) Ping(ctx context.Context) error {
	if err := m.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (m *MemgraphStore) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

func recordString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func recordFloat(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func recordInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
