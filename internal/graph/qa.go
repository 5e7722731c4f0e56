package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/llm"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

const qaPrompt = `You answer questions about a knowledge graph built for the concept "%s".
Ground your answer strictly in the graph excerpt below; do not invent nodes or relations.
Respond with a single JSON object: {"answer": "..."}

Graph excerpt:
%s

Question: %s`

// AnswerRelation answers a question about the relationship between two nodes
// of a stored graph, grounding the LLM on the neighborhood of both nodes.
func AnswerRelation(ctx context.Context, client llm.Client, g *types.Graph, source, target, question string) (string, error) {
	if client == nil {
		return "", fmt.Errorf("qa requires a configured llm client")
	}
	if g == nil {
		return "", fmt.Errorf("no graph available")
	}
	if strings.TrimSpace(question) == "" {
		question = fmt.Sprintf("Explain the relationship between %q and %q, including the reasoning, in about 100 words.", source, target)
	}

	excerpt := neighborhoodExcerpt(g, source, target)
	if excerpt == "" {
		return "", fmt.Errorf("nodes %q and %q not found in graph", source, target)
	}

	resp, err := client.GenerateJSON(ctx, "", fmt.Sprintf(qaPrompt, g.Concept, excerpt, question))
	if err != nil {
		return "", fmt.Errorf("qa llm call: %w", err)
	}
	answer, _ := resp["answer"].(string)
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("qa returned empty answer")
	}
	return answer, nil
}

// neighborhoodExcerpt renders the two nodes, their direct neighbors and
// every edge touching any of them as prompt text. Matches on node id or
// label, case-insensitively.
func neighborhoodExcerpt(g *types.Graph, source, target string) string {
	matches := func(n types.GraphNode, name string) bool {
		return strings.EqualFold(n.ID, name) || strings.EqualFold(n.Label, name)
	}

	wanted := make(map[string]bool)
	for _, n := range g.Nodes {
		if matches(n, source) || matches(n, target) {
			wanted[n.ID] = true
		}
	}
	if len(wanted) == 0 {
		return ""
	}
	for _, e := range g.Edges {
		if wanted[e.Source] {
			wanted[e.Target] = true
		} else if wanted[e.Target] {
			wanted[e.Source] = true
		}
	}

	var sb strings.Builder
	for _, n := range g.Nodes {
		if !wanted[n.ID] {
			continue
		}
		fmt.Fprintf(&sb, "node: %s (%s): %s\n", n.Label, strings.Join(n.Domains, ", "), n.Description)
	}
	for _, e := range g.Edges {
		if !wanted[e.Source] || !wanted[e.Target] {
			continue
		}
		fmt.Fprintf(&sb, "edge: %s -[%s]-> %s: %s\n", e.Source, e.Relation, e.Target, e.Description)
	}
	return sb.String()
}
