package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

func qaGraph() *types.Graph {
	return &types.Graph{
		Concept: "entropy",
		Nodes: []types.GraphNode{
			{ID: "entropy", Label: "Entropy", Description: "measure of disorder", Domains: []string{"Physics"}},
			{ID: "shannon", Label: "Shannon", Description: "information theory pioneer", Domains: []string{"InfoTheory"}},
			{ID: "boltzmann", Label: "Boltzmann", Description: "statistical mechanics", Domains: []string{"Physics"}},
			{ID: "unrelated", Label: "Unrelated", Description: "different cluster"},
		},
		Edges: []types.GraphEdge{
			{Source: "entropy", Target: "shannon", Relation: "defined by"},
			{Source: "entropy", Target: "boltzmann", Relation: "quantified by"},
		},
	}
}

func TestAnswerRelation(t *testing.T) {
	client := &scriptedClient{responses: []map[string]any{
		{"answer": "Shannon defined entropy for information."},
	}}

	answer, err := AnswerRelation(context.Background(), client, qaGraph(), "Entropy", "Shannon", "")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "Shannon defined entropy for information." {
		t.Fatalf("unexpected answer %q", answer)
	}

	prompt := client.prompts[0]
	if !strings.Contains(prompt, "measure of disorder") || !strings.Contains(prompt, "defined by") {
		t.Fatalf("prompt missing graph excerpt: %s", prompt)
	}
	if strings.Contains(prompt, "different cluster") {
		t.Fatalf("prompt leaked nodes outside the neighborhood")
	}
	// A default question is injected when the caller gives none.
	if !strings.Contains(prompt, "Explain the relationship") {
		t.Fatalf("prompt missing default question: %s", prompt)
	}
}

func TestAnswerRelationErrors(t *testing.T) {
	client := &scriptedClient{responses: []map[string]any{{"answer": "x"}}}

	if _, err := AnswerRelation(context.Background(), nil, qaGraph(), "a", "b", ""); err == nil {
		t.Fatalf("expected error without client")
	}
	if _, err := AnswerRelation(context.Background(), client, nil, "a", "b", ""); err == nil {
		t.Fatalf("expected error without graph")
	}
	if _, err := AnswerRelation(context.Background(), client, qaGraph(), "nope", "missing", ""); err == nil {
		t.Fatalf("expected error for unknown nodes")
	}

	empty := &scriptedClient{responses: []map[string]any{{"answer": "  "}}}
	if _, err := AnswerRelation(context.Background(), empty, qaGraph(), "entropy", "shannon", "why?"); err == nil {
		t.Fatalf("expected error for empty answer")
	}
}
