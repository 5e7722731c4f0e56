package store

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/neo4jdb"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// SyncGraphToNeo4j mirrors a built graph into Neo4j. Nodes and edges are
// MERGEd so repeat builds of the same concept update in place. The mirror is
// best-effort: callers treat failure as non-fatal.
func SyncGraphToNeo4j(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, concept string, g *types.Graph) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if g == nil || len(g.Nodes) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	nodes := make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, map[string]any{
			"id":            n.ID,
			"label":         n.Label,
			"description":   n.Description,
			"size":          int64(n.Size),
			"domains":       n.Domains,
			"source_chunks": n.SourceChunks,
		})
	}
	edges := make([]map[string]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, map[string]any{
			"source":      e.Source,
			"target":      e.Target,
			"relation":    e.Relation,
			"description": e.Description,
		})
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Schema helper; may fail for restricted users, continue regardless.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $nodes AS row
MERGE (n:Entity {id: row.id})
SET n.label = row.label,
    n.description = row.description,
    n.size = row.size,
    n.domains = row.domains,
    n.source_chunks = row.source_chunks,
    n.last_updated = datetime()
`, map[string]any{"nodes": nodes})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(edges) == 0 {
			return nil, nil
		}
		res, err = tx.Run(ctx, `
UNWIND $edges AS row
MATCH (source:Entity {id: row.source})
MATCH (target:Entity {id: row.target})
MERGE (source)-[r:RELATED]->(target)
SET r.label = row.relation,
    r.description = row.description,
    r.concept = $concept,
    r.last_updated = datetime()
`, map[string]any{"edges": edges, "concept": concept})
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

	if log != nil {
		log.Info("graph synced to neo4j", "concept", concept, "nodes", len(nodes), "edges", len(edges))
	}
	return nil
}
