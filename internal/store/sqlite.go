package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kontexthq/kontext/internal/core/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	user_id           TEXT NOT NULL,
	name              TEXT NOT NULL,
	entity_type       TEXT NOT NULL,
	category          TEXT NOT NULL,
	context           TEXT NOT NULL,
	confidence        REAL NOT NULL,
	tier              INTEGER NOT NULL,
	extraction_method TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	last_accessed     TEXT NOT NULL,
	PRIMARY KEY (user_id, name)
);
CREATE INDEX IF NOT EXISTS idx_entities_confidence ON entities(user_id, confidence);
CREATE INDEX IF NOT EXISTS idx_entities_created ON entities(user_id, created_at);

CREATE TABLE IF NOT EXISTS relationships (
	user_id     TEXT NOT NULL,
	from_entity TEXT NOT NULL,
	to_entity   TEXT NOT NULL,
	rel_type    TEXT NOT NULL,
	strength    REAL NOT NULL,
	context     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (user_id, from_entity, to_entity, rel_type)
);
CREATE INDEX IF NOT EXISTS idx_relationships_strength ON relationships(user_id, strength);
CREATE INDEX IF NOT EXISTS idx_relationships_created ON relationships(user_id, created_at);
`

// SQLiteStore is the embedded backend: same contract as Memgraph, no
// external service. Timestamps are stored as RFC 3339 UTC strings so range
// filters compare lexicographically.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path with WAL mode
// enabled and bootstraps the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) UpsertEntities(ctx context.Context, userID string, entities []model.Entity) error {
	const q = `
		INSERT INTO entities (user_id, name, entity_type, category, context, confidence, tier, extraction_method, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO UPDATE SET
			entity_type = excluded.entity_type,
			category = excluded.category,
			context = excluded.context,
			confidence = excluded.confidence,
			tier = excluded.tier,
			extraction_method = excluded.extraction_method,
			created_at = excluded.created_at,
			last_accessed = excluded.last_accessed`
	for _, e := range entities {
		_, err := s.db.ExecContext(ctx, q,
			userID, e.Name, e.Type, e.Category, truncateContext(e.Context),
			e.Confidence, e.Tier, e.ExtractionMethod,
			formatTime(e.CreatedAt), formatTime(e.LastAccessed))
		if err != nil {
			return fmt.Errorf("upserting entity %q: %w", e.Name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) UpsertRelationships(ctx context.Context, userID string, rels []model.Relationship) error {
	const q = `
		INSERT INTO relationships (user_id, from_entity, to_entity, rel_type, strength, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, from_entity, to_entity, rel_type) DO UPDATE SET
			strength = excluded.strength,
			context = excluded.context,
			created_at = excluded.created_at`
	for _, r := range rels {
		_, err := s.db.ExecContext(ctx, q,
			userID, r.FromEntity, r.ToEntity, r.Type, r.Strength,
			truncateContext(r.Context), formatTime(r.CreatedAt))
		if err != nil {
			return fmt.Errorf("upserting relationship %s->%s: %w", r.FromEntity, r.ToEntity, err)
		}
	}
	return nil
}

func (s *SQLiteStore) QueryEntities(ctx context.Context, userID string, minConfidence float64, limit int) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, entity_type, category, context, confidence, tier, extraction_method, created_at, last_accessed
		FROM entities
		WHERE user_id = ? AND confidence >= ?
		ORDER BY confidence DESC
		LIMIT ?`, userID, minConfidence, queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var e model.Entity
		var created, accessed string
		if err := rows.Scan(&e.Name, &e.Type, &e.Category, &e.Context, &e.Confidence, &e.Tier, &e.ExtractionMethod, &created, &accessed); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e.CreatedAt = parseTime(created)
		e.LastAccessed = parseTime(accessed)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Advisory access-time refresh; a failure here never fails the read.
	_, _ = s.db.ExecContext(ctx, `
		UPDATE entities SET last_accessed = ? WHERE user_id = ? AND confidence >= ?`,
		formatTime(time.Now().UTC()), userID, minConfidence)

	return out, nil
}

func (s *SQLiteStore) QueryRelationships(ctx context.Context, userID string, minStrength float64, limit int) ([]model.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_entity, to_entity, rel_type, strength, context, created_at
		FROM relationships
		WHERE user_id = ? AND strength >= ?
		ORDER BY strength DESC
		LIMIT ?`, userID, minStrength, queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var r model.Relationship
		var created string
		if err := rows.Scan(&r.FromEntity, &r.ToEntity, &r.Type, &r.Strength, &r.Context, &created); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Cleanup(ctx context.Context, userID string, maxAge time.Duration, minConfidence, minStrength float64) (int, error) {
	cutoff := formatTime(time.Now().UTC().Add(-maxAge))

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entities WHERE user_id = ? AND created_at < ? AND confidence < ?`,
		userID, cutoff, minConfidence)
	if err != nil {
		return 0, fmt.Errorf("cleaning entities: %w", err)
	}
	entitiesRemoved, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, `
		DELETE FROM relationships WHERE user_id = ? AND created_at < ? AND strength < ?`,
		userID, cutoff, minStrength)
	if err != nil {
		return int(entitiesRemoved), fmt.Errorf("cleaning relationships: %w", err)
	}
	relsRemoved, _ := res.RowsAffected()

	return int(entitiesRemoved + relsRemoved), nil
}

func (s *SQLiteStore) ClearUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM relationships WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing relationships: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM entities
		UNION
		SELECT user_id FROM relationships
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ErrUnavailable
	}
	return nil
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func queryLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}
