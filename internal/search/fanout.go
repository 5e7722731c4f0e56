package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

const (
	// Items whose cleaned content is shorter than this are discarded even
	// when unique.
	minContentLen = 80

	// Only the first keywords of each discipline are queried, to bound
	// fan-out width.
	maxKeywordsPerDiscipline = 3
)

// DisciplineItem is one surviving search result together with the discipline
// whose query produced it.
type DisciplineItem struct {
	Discipline string
	Item       types.SearchItem
}

// Fanout expands (discipline x keyword) into queries, runs them concurrently
// against the provider, then flattens and deduplicates the results.
type Fanout struct {
	log      *logger.Logger
	provider Provider
	limit    int
}

func NewFanout(log *logger.Logger, provider Provider, limit int) *Fanout {
	if limit <= 0 {
		limit = 8
	}
	return &Fanout{
		log:      log.With("component", "Fanout"),
		provider: provider,
		limit:    limit,
	}
}

type plannedQuery struct {
	discipline string
	query      string
}

func buildQueries(concept string, disciplines []types.Discipline) []plannedQuery {
	queries := make([]plannedQuery, 0, len(disciplines)*maxKeywordsPerDiscipline)
	for _, d := range disciplines {
		kws := d.SearchKeywords
		if len(kws) == 0 {
			kws = []string{d.Name}
		}
		if len(kws) > maxKeywordsPerDiscipline {
			kws = kws[:maxKeywordsPerDiscipline]
		}
		for _, kw := range kws {
			queries = append(queries, plannedQuery{discipline: d.Name, query: concept + " " + kw})
		}
	}
	return queries
}

// Run issues all queries concurrently and returns the deduplicated flat
// results. Output order follows discipline/keyword enumeration order, with
// the provider's own order within each query; arrival order never matters.
// A failing query contributes zero items and never aborts the others. An
// empty disciplines list yields an empty result, not an error.
func (f *Fanout) Run(ctx context.Context, concept string, disciplines []types.Discipline, maxResultsPerDiscipline int) []DisciplineItem {
	queries := buildQueries(concept, disciplines)
	if len(queries) == 0 {
		return nil
	}

	results := make([][]types.SearchItem, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)
	for i, pq := range queries {
		i, pq := i, pq
		g.Go(func() error {
			items, err := f.provider.Search(gctx, pq.query, maxResultsPerDiscipline)
			if err != nil {
				f.log.Warn("search query failed, continuing without it", "query", pq.query, "error", err)
				return nil
			}
			f.log.Debug("search query finished", "query", pq.query, "items", len(items))
			results[i] = items
			return nil
		})
	}
	// Workers never return errors; per-query failures are swallowed above.
	_ = g.Wait()

	flat := make([]DisciplineItem, 0)
	seen := make(map[string]bool)
	for i, pq := range queries {
		for _, it := range results[i] {
			content := CleanText(it.Content)
			key := it.URL + "|" + HashText(content)
			if seen[key] {
				continue
			}
			seen[key] = true
			if len(content) < minContentLen {
				continue
			}
			flat = append(flat, DisciplineItem{Discipline: pq.discipline, Item: it})
		}
	}

	f.log.Info("search fan-out finished", "queries", len(queries), "surviving_items", len(flat))
	return flat
}
