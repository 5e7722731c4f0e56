package graph

import (
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
)

// Prune reduces a raw extracted graph to the subgraph connected to the
// center concept, in two phases. Phase 1 keeps the center node and its
// direct neighbors plus every node with degree above one in the raw graph,
// dropping isolated and leaf noise. Phase 2 restricts the induced candidate
// subgraph to the connected component containing the center, so unrelated
// dense clusters cannot leak in. When the center is absent from the raw
// graph entirely, the largest connected component of the candidate subgraph
// is returned as a best-effort center-free result.
func Prune(log *logger.Logger, raw RawGraph, centerConcept string) RawGraph {
	full := newUndirected(raw)

	keep := make(map[string]bool)
	if full.has(centerConcept) {
		keep[centerConcept] = true
		for _, n := range full.neighbors(centerConcept) {
			keep[n] = true
		}
	} else if log != nil {
		log.Warn("center concept not present in raw graph, keeping high-degree nodes only", "concept", centerConcept)
	}
	for _, n := range raw.Nodes {
		if full.degree(n.ID) > 1 {
			keep[n.ID] = true
		}
	}

	candidate := induced(raw, keep)
	cg := newUndirected(candidate)

	var component map[string]bool
	if cg.has(centerConcept) {
		component = cg.componentOf(centerConcept)
	} else {
		order := make([]string, 0, len(candidate.Nodes))
		for _, n := range candidate.Nodes {
			order = append(order, n.ID)
		}
		component = cg.largestComponent(order)
	}
	if len(component) == 0 {
		return RawGraph{}
	}

	pruned := induced(candidate, component)
	if log != nil {
		log.Info("graph pruned",
			"raw_nodes", len(raw.Nodes), "raw_edges", len(raw.Edges),
			"pruned_nodes", len(pruned.Nodes), "pruned_edges", len(pruned.Edges))
	}
	return pruned
}
