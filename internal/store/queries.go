package store

// Cypher statements for the Memgraph backend. Entities are nodes keyed by
// (user_id, name); relationships are RELATES edges keyed by
// (user_id, endpoints, rel_type). MERGE keeps every write idempotent.
const (
	upsertEntityQuery = `
		MERGE (e:Entity {user_id: $user_id, name: $name})
		SET e.entity_type = $entity_type,
			e.category = $category,
			e.context = $context,
			e.confidence = $confidence,
			e.tier = $tier,
			e.extraction_method = $extraction_method,
			e.created_at = $created_at,
			e.last_accessed = $last_accessed
		RETURN e.name AS name
	`

	// Endpoints are weak references: MERGE creates bare placeholder nodes
	// for names the store has never seen, which confidence-filtered reads
	// naturally skip.
	upsertRelationshipQuery = `
		MERGE (a:Entity {user_id: $user_id, name: $from_entity})
		MERGE (b:Entity {user_id: $user_id, name: $to_entity})
		MERGE (a)-[r:RELATES {rel_type: $rel_type}]->(b)
		SET r.user_id = $user_id,
			r.strength = $strength,
			r.context = $context,
			r.created_at = $created_at
		RETURN r.rel_type AS rel_type
	`

	queryEntitiesQuery = `
		MATCH (e:Entity {user_id: $user_id})
		WHERE e.confidence >= $min_confidence
		WITH e ORDER BY e.confidence DESC LIMIT $limit
		SET e.last_accessed = $now
		RETURN e.name AS name, e.entity_type AS entity_type, e.category AS category,
			e.context AS context, e.confidence AS confidence, e.tier AS tier,
			e.extraction_method AS extraction_method, e.created_at AS created_at,
			e.last_accessed AS last_accessed
	`

	queryRelationshipsQuery = `
		MATCH (a:Entity {user_id: $user_id})-[r:RELATES]->(b:Entity)
		WHERE r.strength >= $min_strength
		RETURN a.name AS from_entity, b.name AS to_entity, r.rel_type AS rel_type,
			r.strength AS strength, r.context AS context, r.created_at AS created_at
		ORDER BY r.strength DESC
		LIMIT $limit
	`

	cleanupEntitiesQuery = `
		MATCH (e:Entity {user_id: $user_id})
		WHERE e.created_at < $cutoff AND e.confidence < $min_confidence
		DETACH DELETE e
	`

	cleanupRelationshipsQuery = `
		MATCH (:Entity {user_id: $user_id})-[r:RELATES]->()
		WHERE r.created_at < $cutoff AND r.strength < $min_strength
		DELETE r
	`

	clearUserQuery = `
		MATCH (e:Entity {user_id: $user_id})
		DETACH DELETE e
	`

	listUsersQuery = `
		MATCH (e:Entity)
		RETURN DISTINCT e.user_id AS user_id
		ORDER BY user_id
	`
)
