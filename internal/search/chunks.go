package search

import (
	"strings"

	"github.com/google/uuid"

	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

const (
	defaultRelevanceScore = 0.65
	defaultAcademicValue  = 0.55
	sentinelScore         = 0.1
)

func newChunkID() string {
	return "chunk-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AssembleChunks turns validated search results into content chunks. Items
// the judge explicitly rejected are dropped (only when validation is
// enabled); items without a verdict pass with default scores. An empty input
// yields exactly one sentinel chunk so downstream stages always have
// something to process and operators see a diagnosable placeholder instead
// of a silently empty graph.
func AssembleChunks(flat []DisciplineItem, verdicts map[string]types.Verdict, enableValidation bool) ([]types.Chunk, map[string]int) {
	if len(flat) == 0 {
		sentinel := types.Chunk{
			ID:             newChunkID(),
			Content:        "no content found",
			Discipline:     "System",
			Source:         types.SourceInfo{URL: "about:blank", Title: "No Results"},
			RelevanceScore: sentinelScore,
			AcademicValue:  sentinelScore,
		}
		return []types.Chunk{sentinel}, map[string]int{}
	}

	chunks := make([]types.Chunk, 0, len(flat))
	byDiscipline := make(map[string]int)
	for _, di := range flat {
		verdict, judged := verdicts[di.Item.URL]
		if enableValidation && judged && verdict.IsValid != nil && !*verdict.IsValid {
			continue
		}

		rel := defaultRelevanceScore
		if judged && verdict.RelevanceScore != nil {
			rel = *verdict.RelevanceScore
		}
		acad := defaultAcademicValue
		if judged && verdict.AcademicValue != nil {
			acad = *verdict.AcademicValue
		}

		chunks = append(chunks, types.Chunk{
			ID:             newChunkID(),
			Content:        di.Item.Content,
			Discipline:     di.Discipline,
			Source:         types.SourceInfo{URL: di.Item.URL, Title: di.Item.Title},
			RelevanceScore: rel,
			AcademicValue:  acad,
			Validation: &types.ValidationInfo{
				IsValidated: enableValidation,
				Confidence:  rel,
				Notes:       verdict.Notes,
			},
		})
		byDiscipline[di.Discipline]++
	}
	return chunks, byDiscipline
}
