package search

import (
	"strings"
	"testing"

	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func items(urls ...string) []DisciplineItem {
	out := make([]DisciplineItem, 0, len(urls))
	for _, u := range urls {
		out = append(out, DisciplineItem{
			Discipline: "Physics",
			Item:       types.SearchItem{URL: u, Title: "t", Content: longContent(u)},
		})
	}
	return out
}

func TestAssembleChunksNoVerdictsKeepsEverything(t *testing.T) {
	flat := items("https://a", "https://b", "https://c")
	chunks, byDiscipline := AssembleChunks(flat, map[string]types.Verdict{}, true)

	if len(chunks) != 3 {
		t.Fatalf("expected all items kept with empty verdicts, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.RelevanceScore != defaultRelevanceScore || c.AcademicValue != defaultAcademicValue {
			t.Fatalf("expected default scores, got %+v", c)
		}
		if c.Validation == nil || !c.Validation.IsValidated {
			t.Fatalf("expected validation marker set, got %+v", c.Validation)
		}
	}
	if byDiscipline["Physics"] != 3 {
		t.Fatalf("expected 3 Physics chunks, got %v", byDiscipline)
	}
}

func TestAssembleChunksDropsExplicitlyInvalid(t *testing.T) {
	flat := items("https://a", "https://b")
	verdicts := map[string]types.Verdict{
		"https://a": {URL: "https://a", IsValid: boolPtr(false)},
		"https://b": {URL: "https://b", IsValid: boolPtr(true), RelevanceScore: floatPtr(0.9), AcademicValue: floatPtr(0.8)},
	}

	chunks, _ := AssembleChunks(flat, verdicts, true)
	if len(chunks) != 1 {
		t.Fatalf("expected the rejected item to be dropped, got %d chunks", len(chunks))
	}
	c := chunks[0]
	if c.Source.URL != "https://b" || c.RelevanceScore != 0.9 || c.AcademicValue != 0.8 {
		t.Fatalf("expected judge scores on the surviving chunk, got %+v", c)
	}
}

func TestAssembleChunksValidationDisabledIgnoresVerdicts(t *testing.T) {
	flat := items("https://a")
	verdicts := map[string]types.Verdict{
		"https://a": {URL: "https://a", IsValid: boolPtr(false)},
	}

	chunks, _ := AssembleChunks(flat, verdicts, false)
	if len(chunks) != 1 {
		t.Fatalf("expected rejection ignored when validation disabled, got %d chunks", len(chunks))
	}
	if chunks[0].Validation.IsValidated {
		t.Fatalf("expected is_validated false when validation disabled")
	}
}

func TestAssembleChunksVerdictWithoutFlagPasses(t *testing.T) {
	flat := items("https://a")
	verdicts := map[string]types.Verdict{
		"https://a": {URL: "https://a", RelevanceScore: floatPtr(0.7)},
	}

	chunks, _ := AssembleChunks(flat, verdicts, true)
	if len(chunks) != 1 {
		t.Fatalf("expected item without explicit is_valid to pass, got %d", len(chunks))
	}
	if chunks[0].RelevanceScore != 0.7 || chunks[0].AcademicValue != defaultAcademicValue {
		t.Fatalf("expected partial verdict to fill only what it scored, got %+v", chunks[0])
	}
}

func TestAssembleChunksEmptyInputYieldsSentinel(t *testing.T) {
	chunks, byDiscipline := AssembleChunks(nil, map[string]types.Verdict{}, true)
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one sentinel chunk, got %d", len(chunks))
	}
	s := chunks[0]
	if s.Content != "no content found" || s.Discipline != "System" || s.Source.URL != "about:blank" {
		t.Fatalf("unexpected sentinel chunk %+v", s)
	}
	if s.RelevanceScore != sentinelScore || s.AcademicValue != sentinelScore {
		t.Fatalf("expected sentinel scores, got %+v", s)
	}
	if len(byDiscipline) != 0 {
		t.Fatalf("sentinel must not count toward discipline totals, got %v", byDiscipline)
	}
}

func TestNewChunkIDShape(t *testing.T) {
	id := newChunkID()
	if !strings.HasPrefix(id, "chunk-") || len(id) != len("chunk-")+8 {
		t.Fatalf("unexpected chunk id %q", id)
	}
	if id == newChunkID() {
		t.Fatalf("expected distinct ids")
	}
}
