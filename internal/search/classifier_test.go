package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
)

func TestClassifyFallbackTemplates(t *testing.T) {
	c := NewClassifier(logger.NewNop(), nil)

	res := c.Classify(context.Background(), "entropy", 5, 0.0)
	if res.Concept != "entropy" {
		t.Fatalf("concept = %q", res.Concept)
	}
	if len(res.Disciplines) != 5 {
		t.Fatalf("expected 5 template disciplines, got %d", len(res.Disciplines))
	}
	if res.PrimaryDiscipline != res.Disciplines[0].Name {
		t.Fatalf("primary %q does not match first discipline %q", res.PrimaryDiscipline, res.Disciplines[0].Name)
	}
	if !res.Disciplines[0].IsPrimary || res.Disciplines[1].IsPrimary {
		t.Fatalf("only the first discipline may be primary")
	}
	for i := 1; i < len(res.Disciplines); i++ {
		if res.Disciplines[i].RelevanceScore > res.Disciplines[i-1].RelevanceScore {
			t.Fatalf("template scores must be non-increasing: %+v", res.Disciplines)
		}
	}
	// Placeholder substitution in keywords.
	found := false
	for _, kw := range res.Disciplines[1].SearchKeywords {
		if kw == "entropy second law of thermodynamics" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected concept substituted into keywords, got %v", res.Disciplines[1].SearchKeywords)
	}
}

func TestClassifyFallbackRespectsLimits(t *testing.T) {
	c := NewClassifier(logger.NewNop(), nil)

	res := c.Classify(context.Background(), "entropy", 2, 0.0)
	if len(res.Disciplines) != 2 {
		t.Fatalf("expected 2 disciplines, got %d", len(res.Disciplines))
	}

	res = c.Classify(context.Background(), "entropy", 5, 0.9)
	for _, d := range res.Disciplines {
		if d.RelevanceScore < 0.9 {
			t.Fatalf("discipline %q below threshold: %f", d.Name, d.RelevanceScore)
		}
	}
}

func TestClassifyLLMPath(t *testing.T) {
	judge := &stubJudge{resp: map[string]any{
		"concept":            "entropy",
		"primary_discipline": "",
		"disciplines": []any{
			map[string]any{"name": "Physics", "relevance_score": 0.95, "search_keywords": []any{"entropy thermodynamics"}},
			map[string]any{"name": "Numerology", "relevance_score": 0.1},
			map[string]any{"name": "Information Theory", "relevance_score": 0.9, "search_keywords": []any{"shannon entropy"}},
		},
	}}
	c := NewClassifier(logger.NewNop(), judge)

	res := c.Classify(context.Background(), "entropy", 5, 0.5)
	if len(res.Disciplines) != 2 {
		t.Fatalf("expected low-relevance discipline filtered, got %+v", res.Disciplines)
	}
	if res.PrimaryDiscipline != "Physics" {
		t.Fatalf("expected primary backfilled from first kept discipline, got %q", res.PrimaryDiscipline)
	}
	if res.Disciplines[0].ID != "d1" || res.Disciplines[1].ID != "d2" {
		t.Fatalf("expected generated ids, got %+v", res.Disciplines)
	}
	if !res.Disciplines[0].IsPrimary || res.Disciplines[1].IsPrimary {
		t.Fatalf("only the first discipline may be primary")
	}
	if res.SuggestedAdditions == nil {
		t.Fatalf("suggested additions must never be nil")
	}
}

func TestClassifyLLMFailureFallsBack(t *testing.T) {
	c := NewClassifier(logger.NewNop(), &stubJudge{err: fmt.Errorf("timeout")})

	res := c.Classify(context.Background(), "entropy", 3, 0.0)
	if len(res.Disciplines) != 3 {
		t.Fatalf("expected template fallback, got %+v", res.Disciplines)
	}
}
