package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// scriptedClient returns one canned response per call, in order.
type scriptedClient struct {
	responses []map[string]any
	err       error
	calls     int
	prompts   []string
}

func (c *scriptedClient) GenerateJSON(_ context.Context, _ string, user string) (map[string]any, error) {
	c.prompts = append(c.prompts, user)
	if c.err != nil {
		return nil, c.err
	}
	if c.calls >= len(c.responses) {
		return nil, fmt.Errorf("unexpected call %d", c.calls)
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func docsN(n int) []types.Document {
	out := make([]types.Document, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.Document{
			DocID:   fmt.Sprintf("chunk-%08d", i),
			Domain:  "Physics",
			Content: fmt.Sprintf("document %d about entropy", i),
		})
	}
	return out
}

func entity(name string, docIDs ...string) map[string]any {
	ids := make([]any, 0, len(docIDs))
	for _, id := range docIDs {
		ids = append(ids, id)
	}
	return map[string]any{"name": name, "description": "about " + name, "doc_ids": ids}
}

func relation(source, target, rel string) map[string]any {
	return map[string]any{"source": source, "target": target, "relation": rel}
}

func TestExtractorMergesEntitiesAcrossBatches(t *testing.T) {
	// Seven documents force two batches. "entropy" appears in both and must
	// come out as one node with unioned provenance.
	client := &scriptedClient{responses: []map[string]any{
		{
			"entities": []any{
				entity("entropy", "chunk-00000000", "chunk-00000001"),
				entity("Shannon", "chunk-00000001"),
			},
			"relations": []any{relation("entropy", "Shannon", "defined by")},
		},
		{
			"entities": []any{
				entity("entropy", "chunk-00000006", "chunk-00000001"),
				entity("Boltzmann", "chunk-00000006"),
			},
			"relations": []any{
				relation("entropy", "Boltzmann", "quantified by"),
				relation("entropy", "Shannon", "defined by"), // duplicate, must collapse
				relation("entropy", "entropy", "self"),       // self loop, must drop
			},
		},
	}}
	e := NewLLMExtractor(logger.NewNop(), client)

	raw, chunkMap, err := e.Build(context.Background(), "entropy", docsN(7))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 batch calls, got %d", client.calls)
	}
	if len(raw.Nodes) != 3 {
		t.Fatalf("expected 3 merged entities, got %+v", raw.Nodes)
	}

	var center RawNode
	for _, n := range raw.Nodes {
		if n.ID == "entropy" {
			center = n
		}
	}
	want := "chunk-00000000<SEP>chunk-00000001<SEP>chunk-00000006"
	if center.SourceID != want {
		t.Fatalf("source id = %q, want %q", center.SourceID, want)
	}

	if len(raw.Edges) != 2 {
		t.Fatalf("expected 2 edges after dedup and self-loop drop, got %+v", raw.Edges)
	}

	if len(chunkMap) != 7 {
		t.Fatalf("expected chunk map entry per document, got %d", len(chunkMap))
	}
	if info := chunkMap["chunk-00000003"]; len(info.Domains) != 1 || info.Domains[0] != "Physics" {
		t.Fatalf("unexpected chunk map entry %+v", info)
	}
}

func TestExtractorDropsRelationsToUnknownEntities(t *testing.T) {
	client := &scriptedClient{responses: []map[string]any{
		{
			"entities":  []any{entity("entropy", "chunk-00000000")},
			"relations": []any{relation("entropy", "phlogiston", "related")},
		},
	}}
	e := NewLLMExtractor(logger.NewNop(), client)

	raw, _, err := e.Build(context.Background(), "entropy", docsN(1))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(raw.Edges) != 0 {
		t.Fatalf("expected dangling relation dropped, got %+v", raw.Edges)
	}
}

func TestExtractorPropagatesLLMErrors(t *testing.T) {
	e := NewLLMExtractor(logger.NewNop(), &scriptedClient{err: fmt.Errorf("model overloaded")})
	if _, _, err := e.Build(context.Background(), "entropy", docsN(2)); err == nil {
		t.Fatalf("expected extraction error to propagate")
	}
}

func TestExtractorWithoutClient(t *testing.T) {
	e := NewLLMExtractor(logger.NewNop(), nil)
	if _, _, err := e.Build(context.Background(), "entropy", docsN(1)); err == nil {
		t.Fatalf("expected error without llm client")
	}
}

func TestExtractorEmptyDocs(t *testing.T) {
	client := &scriptedClient{}
	e := NewLLMExtractor(logger.NewNop(), client)
	raw, chunkMap, err := e.Build(context.Background(), "entropy", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(raw.Nodes) != 0 || len(chunkMap) != 0 || client.calls != 0 {
		t.Fatalf("expected no work for empty input")
	}
}

func TestExtractorPromptCarriesDocIDs(t *testing.T) {
	client := &scriptedClient{responses: []map[string]any{
		{"entities": []any{}, "relations": []any{}},
	}}
	e := NewLLMExtractor(logger.NewNop(), client)

	if _, _, err := e.Build(context.Background(), "entropy", docsN(2)); err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(client.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(client.prompts))
	}
	for _, id := range []string{"chunk-00000000", "chunk-00000001"} {
		if !strings.Contains(client.prompts[0], "[DOC_ID: "+id+"]") {
			t.Fatalf("prompt missing doc id %s", id)
		}
	}
}
