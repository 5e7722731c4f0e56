package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/llm"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
	"github.com/conceptmesh/conceptmesh-backend/internal/utils"
)

const classifyPrompt = `Classify the concept "%s" into the academic disciplines where it plays a role.
Respond with a single JSON object:
{"concept": "...", "primary_discipline": "...",
 "disciplines": [{"name": "...", "relevance_score": 0.0-1.0, "reason": "...", "search_keywords": ["...", "...", "..."]}],
 "suggested_additions": ["..."]}
Order disciplines by relevance, most relevant first. Give each discipline two or three
search keyword phrases that would find authoritative material about the concept within
that discipline.`

// disciplineTemplate is one fallback discipline. The literal "{concept}" in
// a keyword is replaced with the concept at classification time.
type disciplineTemplate struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

var defaultTemplates = []disciplineTemplate{
	{Name: "Mathematics", Keywords: []string{"probability theory {concept}", "KL divergence", "maximum entropy principle"}},
	{Name: "Thermodynamics", Keywords: []string{"{concept} second law of thermodynamics", "Clausius {concept}", "{concept} increase principle"}},
	{Name: "Information Theory", Keywords: []string{"{concept} Shannon", "information {concept} definition", "coding theorem"}},
	{Name: "Statistical Mechanics", Keywords: []string{"{concept} Boltzmann", "microstates macrostates", "partition function"}},
	{Name: "Machine Learning", Keywords: []string{"{concept} cross entropy loss", "information gain decision tree", "maximum entropy model"}},
}

// Classifier maps a concept to candidate disciplines, via the LLM when one
// is configured and a deterministic template otherwise.
type Classifier struct {
	log       *logger.Logger
	llm       llm.Client
	templates []disciplineTemplate
}

func NewClassifier(log *logger.Logger, client llm.Client) *Classifier {
	c := &Classifier{
		log:       log.With("component", "Classifier"),
		llm:       client,
		templates: defaultTemplates,
	}
	if path := strings.TrimSpace(utils.GetEnv("DISCIPLINE_TEMPLATE_FILE", "", log)); path != "" {
		if tmpl, err := loadTemplates(path); err != nil {
			c.log.Warn("discipline template file unreadable, using built-in templates", "path", path, "error", err)
		} else if len(tmpl) > 0 {
			c.templates = tmpl
		}
	}
	return c
}

func loadTemplates(path string) ([]disciplineTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tmpl []disciplineTemplate
	if err := yaml.Unmarshal(raw, &tmpl); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Classify returns at most maxDisciplines disciplines scoring at least
// minRelevance. LLM failure falls back to templates; it never errors.
func (c *Classifier) Classify(ctx context.Context, concept string, maxDisciplines int, minRelevance float64) types.ClassifyResult {
	if maxDisciplines <= 0 {
		maxDisciplines = 5
	}

	if c.llm != nil {
		res, err := c.classifyLLM(ctx, concept, maxDisciplines, minRelevance)
		if err == nil {
			return res
		}
		c.log.Warn("llm classification failed, using fallback templates", "concept", concept, "error", err)
	}
	return c.classifyFallback(concept, maxDisciplines, minRelevance)
}

func (c *Classifier) classifyLLM(ctx context.Context, concept string, maxDisciplines int, minRelevance float64) (types.ClassifyResult, error) {
	resp, err := c.llm.GenerateJSON(ctx, "", fmt.Sprintf(classifyPrompt, concept))
	if err != nil {
		return types.ClassifyResult{}, err
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		return types.ClassifyResult{}, err
	}
	var res types.ClassifyResult
	if err := json.Unmarshal(encoded, &res); err != nil {
		return types.ClassifyResult{}, fmt.Errorf("decode classification: %w", err)
	}

	kept := make([]types.Discipline, 0, len(res.Disciplines))
	for _, d := range res.Disciplines {
		if d.RelevanceScore < minRelevance {
			continue
		}
		kept = append(kept, d)
		if len(kept) == maxDisciplines {
			break
		}
	}
	for i := range kept {
		if kept[i].ID == "" {
			kept[i].ID = fmt.Sprintf("d%d", i+1)
		}
		kept[i].IsPrimary = i == 0
	}
	res.Disciplines = kept

	res.Concept = concept
	if res.PrimaryDiscipline == "" {
		if len(kept) > 0 {
			res.PrimaryDiscipline = kept[0].Name
		} else {
			res.PrimaryDiscipline = "General"
		}
	}
	if res.SuggestedAdditions == nil {
		res.SuggestedAdditions = []string{}
	}
	return res, nil
}

func (c *Classifier) classifyFallback(concept string, maxDisciplines int, minRelevance float64) types.ClassifyResult {
	templates := c.templates
	if len(templates) > maxDisciplines {
		templates = templates[:maxDisciplines]
	}

	disciplines := make([]types.Discipline, 0, len(templates))
	for i, tmpl := range templates {
		score := 1.0 - 0.12*float64(i)
		if score < 0.4 {
			score = 0.4
		}
		if score < minRelevance {
			continue
		}
		kws := make([]string, 0, len(tmpl.Keywords))
		for _, kw := range tmpl.Keywords {
			kws = append(kws, strings.ReplaceAll(kw, "{concept}", concept))
		}
		disciplines = append(disciplines, types.Discipline{
			ID:             fmt.Sprintf("d%d", i+1),
			Name:           tmpl.Name,
			RelevanceScore: score,
			Reason:         fmt.Sprintf("template fallback discipline for bootstrapping cross-discipline search: %s", tmpl.Name),
			SearchKeywords: kws,
			IsPrimary:      i == 0,
		})
	}

	primary := "General"
	if len(disciplines) > 0 {
		primary = disciplines[0].Name
	}
	return types.ClassifyResult{
		Concept:            concept,
		PrimaryDiscipline:  primary,
		Disciplines:        disciplines,
		SuggestedAdditions: []string{},
	}
}
