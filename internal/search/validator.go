package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/llm"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

const (
	// Cost control: only the first candidates of a batch are judged. Items
	// beyond the cap silently skip validation and pass with default scores.
	maxValidationCandidates = 30

	// Candidate content is truncated before it is sent to the judge.
	maxCandidateContentLen = 800
)

const validatePrompt = `You are a strict academic reviewer. The user is researching the concept "%s".
For each candidate search result below, judge whether it is relevant to the concept and
academically valuable. Respond with a single JSON object:
{"validated": [{"url": "...", "relevance_score": 0.0-1.0, "academic_value": 0.0-1.0, "is_valid": true|false, "notes": "..."}],
 "rejected": [{"url": "...", "reason": "..."}]}
Include every candidate in exactly one of the two lists.

Candidates:
%s`

// Validator scores search results through an LLM judge. It fails open: when
// no judge is configured, validation is disabled, or the judge call fails in
// any way, it returns an empty map and the caller treats every item as
// passing with default scores.
type Validator struct {
	log   *logger.Logger
	judge llm.Client
}

func NewValidator(log *logger.Logger, judge llm.Client) *Validator {
	return &Validator{
		log:   log.With("component", "Validator"),
		judge: judge,
	}
}

// Run judges up to maxValidationCandidates items and returns verdicts keyed
// by URL. Missing entries mean "pass with default score".
func (v *Validator) Run(ctx context.Context, concept string, items []types.SearchItem, enabled bool) map[string]types.Verdict {
	if !enabled || v.judge == nil || len(items) == 0 {
		return map[string]types.Verdict{}
	}

	cand := items
	if len(cand) > maxValidationCandidates {
		cand = cand[:maxValidationCandidates]
	}
	payload := make([]map[string]string, 0, len(cand))
	for _, it := range cand {
		content := it.Content
		if len(content) > maxCandidateContentLen {
			content = content[:maxCandidateContentLen]
		}
		payload = append(payload, map[string]string{
			"url":     it.URL,
			"title":   it.Title,
			"content": content,
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		v.log.Warn("validation candidates marshal failed, skipping validation", "error", err)
		return map[string]types.Verdict{}
	}

	resp, err := v.judge.GenerateJSON(ctx, "", fmt.Sprintf(validatePrompt, concept, string(raw)))
	if err != nil {
		// Fail open for the whole batch; pipeline completion beats strict
		// filtering here.
		v.log.Warn("judge call failed, degrading to no verdicts", "error", err, "candidates", len(cand))
		return map[string]types.Verdict{}
	}

	verdicts, err := parseVerdicts(resp)
	if err != nil {
		v.log.Warn("judge verdict malformed, degrading to no verdicts", "error", err)
		return map[string]types.Verdict{}
	}
	v.log.Info("validation finished", "candidates", len(cand), "verdicts", len(verdicts))
	return verdicts
}

func parseVerdicts(resp map[string]any) (map[string]types.Verdict, error) {
	rawList, ok := resp["validated"]
	if !ok {
		return nil, fmt.Errorf("missing validated list")
	}
	encoded, err := json.Marshal(rawList)
	if err != nil {
		return nil, err
	}
	var list []types.Verdict
	if err := json.Unmarshal(encoded, &list); err != nil {
		return nil, fmt.Errorf("decode validated list: %w", err)
	}

	out := make(map[string]types.Verdict, len(list))
	for _, verdict := range list {
		if verdict.URL == "" {
			continue
		}
		out[verdict.URL] = verdict
	}
	return out, nil
}
