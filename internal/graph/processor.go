package graph

import (
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// Process prunes a raw extracted graph around the center concept and
// converts the survivors into the serving graph shape, with per-node domain
// attribution. Node size is the degree in the pruned graph plus one, so the
// visual weight reflects the reduced structure rather than the raw one.
func Process(log *logger.Logger, raw RawGraph, concept string, chunkMap types.ChunkDomainMap) *types.Graph {
	pruned := Prune(log, raw, concept)
	pg := newUndirected(pruned)

	nodes := make([]types.GraphNode, 0, len(pruned.Nodes))
	for _, n := range pruned.Nodes {
		label := n.EntityName
		if label == "" {
			label = n.ID
		}
		description := n.Description
		if description == "" {
			description = "no description"
		}
		sourceChunks := ParseSourceIDs(n.SourceID)
		nodes = append(nodes, types.GraphNode{
			ID:           n.ID,
			Label:        label,
			Description:  description,
			Domains:      ResolveDomains(sourceChunks, chunkMap),
			SourceChunks: sourceChunks,
			Size:         pg.degree(n.ID) + 1,
		})
	}

	edges := make([]types.GraphEdge, 0, len(pruned.Edges))
	for _, e := range pruned.Edges {
		relation := e.Label
		if relation == "" {
			relation = "related"
		}
		edges = append(edges, types.GraphEdge{
			Source:      e.Source,
			Target:      e.Target,
			Relation:    relation,
			Description: e.Description,
		})
	}

	return &types.Graph{
		Concept:    concept,
		Nodes:      nodes,
		Edges:      edges,
		TotalNodes: len(nodes),
		TotalEdges: len(edges),
	}
}
