package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/neo4jdb"
)

// Store mirrors resolved document entities and their relationships into
// Neo4j. A nil client disables the mirror; every method is then a no-op.
type Store struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewStore(client *neo4jdb.Client, log *logger.Logger) *Store {
	return &Store{client: client, log: log.With("store", "DocumentGraph")}
}

// SyncEntities upserts the document anchor plus one CanonicalEntity node per
// resolved identity.
func (s *Store) SyncEntities(ctx context.Context, documentID uuid.UUID, rows []*types.CanonicalEntity) error {
	if s == nil || s.client == nil || s.client.Driver == nil {
		return nil
	}
	if documentID == uuid.Nil || len(rows) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	nodes := make([]map[string]any, 0, len(rows))
	for _, ce := range rows {
		if ce == nil || ce.ID == uuid.Nil || ce.DocumentID != documentID {
			continue
		}
		nodes = append(nodes, map[string]any{
			"id":               ce.ID.String(),
			"document_id":      ce.DocumentID.String(),
			"entity_type":      ce.EntityType,
			"normalized_value": ce.NormalizedValue,
			"display_value":    truncateString(ce.DisplayValue, 600),
			"mention_count":    ce.MentionCount,
			"confidence":       ce.Confidence,
			"synced_at":        now,
		})
	}
	if len(nodes) == 0 {
		return nil
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	s.initSchema(ctx, session)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MERGE (d:Document {id: $id})
SET d.synced_at = $synced_at
`, map[string]any{"id": documentID.String(), "synced_at": now}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		res, err := tx.Run(ctx, `
UNWIND $entities AS e
MERGE (ce:CanonicalEntity {id: e.id})
SET ce += e
WITH ce, e
MERGE (d:Document {id: e.document_id})
MERGE (ce)-[:IN_DOCUMENT]->(d)
`, map[string]any{"entities": nodes})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Synced canonical entities to graph", "document_id", documentID.String(), "entities", len(nodes))
	return nil
}

// SyncRelationships replaces the document's typed edges between canonical
// entity nodes. Prior RELATES edges for the document are removed first so the
// graph matches the relational store after each run.
func (s *Store) SyncRelationships(ctx context.Context, documentID uuid.UUID, rows []*types.EntityRelationship) error {
	if s == nil || s.client == nil || s.client.Driver == nil {
		return nil
	}
	if documentID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	edges := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if r == nil || r.SourceID == uuid.Nil || r.TargetID == uuid.Nil {
			continue
		}
		edges = append(edges, map[string]any{
			"id":            r.ID.String(),
			"document_id":   documentID.String(),
			"relation_type": r.RelationType,
			"source_id":     r.SourceID.String(),
			"target_id":     r.TargetID.String(),
			"confidence":    r.Confidence,
			"synced_at":     now,
		})
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MATCH (:CanonicalEntity)-[rel:RELATES {document_id: $document_id}]->(:CanonicalEntity)
DELETE rel
`, map[string]any{"document_id": documentID.String()}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(edges) == 0 {
			return nil, nil
		}
		res, err := tx.Run(ctx, `
UNWIND $edges AS r
MERGE (src:CanonicalEntity {id: r.source_id})
MERGE (dst:CanonicalEntity {id: r.target_id})
MERGE (src)-[rel:RELATES {document_id: r.document_id, relation_type: r.relation_type, target_key: r.target_id}]->(dst)
SET rel.id = r.id,
    rel.confidence = r.confidence,
    rel.synced_at = r.synced_at
`, map[string]any{"edges": edges})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Synced relationships to graph", "document_id", documentID.String(), "edges", len(edges))
	return nil
}

// initSchema is best-effort; a failed constraint never blocks the sync.
func (s *Store) initSchema(ctx context.Context, session neo4j.SessionWithContext) {
	stmts := []string{
		`CREATE CONSTRAINT document_id_unique IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE`,
		`CREATE CONSTRAINT canonical_entity_id_unique IF NOT EXISTS FOR (ce:CanonicalEntity) REQUIRE ce.id IS UNIQUE`,
	}
	for _, q := range stmts {
		if res, err := session.Run(ctx, q, nil); err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func truncateString(str string, max int) string {
	if max <= 0 || len(str) <= max {
		return str
	}
	return str[:max]
}
