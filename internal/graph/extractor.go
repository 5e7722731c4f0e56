package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/llm"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// Extractor turns chunk documents into a raw entity-relation graph plus the
// chunk-to-domain mapping used later for domain attribution. The engine is
// an external collaborator; the pipeline only depends on this contract.
type Extractor interface {
	Build(ctx context.Context, concept string, docs []types.Document) (RawGraph, types.ChunkDomainMap, error)
}

const extractBatchSize = 6

const extractPrompt = `You are a rigorous scientific knowledge-graph builder. Extract entities and
relations about the concept "%s" from the documents below.

Keep (whitelist):
1. Core concepts (e.g. "entropy", "second law of thermodynamics").
2. Key people (e.g. "Shannon", "Boltzmann").
3. Proper nouns and named principles (e.g. "maximum entropy principle", "S = k ln W").

Discard (blacklist, never extract):
1. Dates and times ("1948", "the 20th century", "today").
2. Quantities and measures ("one", "many", "average").
3. Generic verbs and adjectives ("increase", "complex", "beautiful").
4. Document metadata ("paper", "book", "chapter") unless itself a proper noun.

Respond with a single JSON object:
{"entities": [{"name": "...", "description": "...", "doc_ids": ["..."]}],
 "relations": [{"source": "...", "target": "...", "relation": "...", "description": "..."}]}
Each entity's doc_ids must list the DOC_ID values of the documents it appears in.
Relation source/target must be entity names from this response.

Documents:
%s`

// LLMExtractor implements Extractor on top of the chat-completions client,
// batching documents per call and merging entities across batches by name.
type LLMExtractor struct {
	log *logger.Logger
	llm llm.Client
}

func NewLLMExtractor(log *logger.Logger, client llm.Client) *LLMExtractor {
	return &LLMExtractor{
		log: log.With("component", "LLMExtractor"),
		llm: client,
	}
}

type extractedEntity struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DocIDs      []string `json:"doc_ids"`
}

type extractedRelation struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Relation    string `json:"relation"`
	Description string `json:"description"`
}

func (e *LLMExtractor) Build(ctx context.Context, concept string, docs []types.Document) (RawGraph, types.ChunkDomainMap, error) {
	if e.llm == nil {
		return RawGraph{}, nil, fmt.Errorf("graph extraction requires a configured llm client")
	}
	if len(docs) == 0 {
		return RawGraph{}, types.ChunkDomainMap{}, nil
	}

	chunkMap := make(types.ChunkDomainMap, len(docs))
	for _, d := range docs {
		chunkMap[d.DocID] = types.ChunkDomainInfo{
			DocIDs:  []string{d.DocID},
			Domains: []string{d.Domain},
		}
	}

	entityByName := make(map[string]*extractedEntity)
	var entityOrder []string
	relationSeen := make(map[string]bool)
	var relations []extractedRelation

	for start := 0; start < len(docs); start += extractBatchSize {
		if err := ctx.Err(); err != nil {
			return RawGraph{}, nil, err
		}
		end := start + extractBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		ents, rels, err := e.extractBatch(ctx, concept, docs[start:end])
		if err != nil {
			return RawGraph{}, nil, fmt.Errorf("extract batch %d: %w", start/extractBatchSize, err)
		}
		for _, ent := range ents {
			name := strings.TrimSpace(ent.Name)
			if name == "" {
				continue
			}
			existing, ok := entityByName[name]
			if !ok {
				copied := ent
				copied.Name = name
				entityByName[name] = &copied
				entityOrder = append(entityOrder, name)
				continue
			}
			existing.DocIDs = append(existing.DocIDs, ent.DocIDs...)
			if existing.Description == "" {
				existing.Description = ent.Description
			}
		}
		for _, rel := range rels {
			if rel.Source == "" || rel.Target == "" || rel.Source == rel.Target {
				continue
			}
			key := rel.Source + "|" + rel.Target + "|" + rel.Relation
			if relationSeen[key] {
				continue
			}
			relationSeen[key] = true
			relations = append(relations, rel)
		}
	}

	raw := RawGraph{Nodes: make([]RawNode, 0, len(entityOrder))}
	for _, name := range entityOrder {
		ent := entityByName[name]
		raw.Nodes = append(raw.Nodes, RawNode{
			ID:          name,
			EntityName:  name,
			Description: ent.Description,
			SourceID:    strings.Join(dedupeStrings(ent.DocIDs), "<SEP>"),
		})
	}
	for _, rel := range relations {
		if _, ok := entityByName[rel.Source]; !ok {
			continue
		}
		if _, ok := entityByName[rel.Target]; !ok {
			continue
		}
		raw.Edges = append(raw.Edges, RawEdge{
			Source:      rel.Source,
			Target:      rel.Target,
			Label:       rel.Relation,
			Description: rel.Description,
		})
	}

	e.log.Info("graph extraction finished", "docs", len(docs), "entities", len(raw.Nodes), "relations", len(raw.Edges))
	return raw, chunkMap, nil
}

func (e *LLMExtractor) extractBatch(ctx context.Context, concept string, docs []types.Document) ([]extractedEntity, []extractedRelation, error) {
	var sb strings.Builder
	for _, d := range docs {
		content := d.Content
		if len(content) > 1600 {
			content = content[:1600]
		}
		fmt.Fprintf(&sb, "[DOC_ID: %s]\n[domain: %s]\n%s\n\n", d.DocID, d.Domain, content)
	}

	resp, err := e.llm.GenerateJSON(ctx, "", fmt.Sprintf(extractPrompt, concept, sb.String()))
	if err != nil {
		return nil, nil, err
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		return nil, nil, err
	}
	var parsed struct {
		Entities  []extractedEntity   `json:"entities"`
		Relations []extractedRelation `json:"relations"`
	}
	if err := json.Unmarshal(encoded, &parsed); err != nil {
		return nil, nil, fmt.Errorf("decode extraction: %w", err)
	}
	return parsed.Entities, parsed.Relations, nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
