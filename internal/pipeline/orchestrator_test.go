package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/conceptmesh/conceptmesh-backend/internal/graph"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/search"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// memStore is an in-memory store for orchestration tests.
type memStore struct {
	mu     sync.Mutex
	graphs map[string]*types.Graph
	docs   map[string]types.Document
}

func newMemStore() *memStore {
	return &memStore{graphs: map[string]*types.Graph{}, docs: map[string]types.Document{}}
}

func (s *memStore) SaveGraph(_ context.Context, concept string, g *types.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[concept] = g
	return nil
}

func (s *memStore) GetGraph(_ context.Context, concept string) (*types.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphs[concept], nil
}

func (s *memStore) ListConcepts(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.graphs))
	for c := range s.graphs {
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) SaveDocuments(_ context.Context, docs []types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.DocID] = d
	}
	return nil
}

func (s *memStore) GetDocument(_ context.Context, id string) (*types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[id]; ok {
		return &d, nil
	}
	return nil, nil
}

// stubExtractor returns one star graph centered on the concept, or an error.
type stubExtractor struct {
	err error
}

func (e *stubExtractor) Build(_ context.Context, concept string, docs []types.Document) (graph.RawGraph, types.ChunkDomainMap, error) {
	if e.err != nil {
		return graph.RawGraph{}, nil, e.err
	}
	raw := graph.RawGraph{Nodes: []graph.RawNode{{ID: concept, EntityName: concept}}}
	chunkMap := types.ChunkDomainMap{}
	for i, d := range docs {
		id := fmt.Sprintf("ent-%d", i)
		raw.Nodes = append(raw.Nodes, graph.RawNode{ID: id, EntityName: id, SourceID: d.DocID})
		raw.Edges = append(raw.Edges, graph.RawEdge{Source: concept, Target: id, Label: "related"})
		chunkMap[d.DocID] = types.ChunkDomainInfo{DocIDs: []string{d.DocID}, Domains: []string{d.Domain}}
	}
	return raw, chunkMap, nil
}

// fixedProvider replays a canned result list for every query.
type fixedProvider struct {
	items []types.SearchItem
}

func (p *fixedProvider) Search(_ context.Context, _ string, _ int) ([]types.SearchItem, error) {
	return p.items, nil
}

// gatedProvider blocks inside Search until released, signalling entry once.
type gatedProvider struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *gatedProvider) Search(_ context.Context, _ string, _ int) ([]types.SearchItem, error) {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return nil, nil
}

func substantive(seed string) string {
	return seed + ": " + strings.Repeat("entropy measures the uncertainty of a system ", 3)
}

func newTestOrchestrator(provider search.Provider, extractor graph.Extractor, st *memStore) (*Orchestrator, *Registry) {
	log := logger.NewNop()
	registry := NewRegistry()
	fanout := search.NewFanout(log, provider, 4)
	validator := search.NewValidator(log, nil)
	return NewOrchestrator(log, registry, fanout, validator, extractor, st, nil), registry
}

// waitForTerminal polls until the task reaches a terminal state, checking
// along the way that the observed overall percent never decreases.
func waitForTerminal(t *testing.T, registry *Registry, taskID string) types.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	lastOverall := 0
	for time.Now().Before(deadline) {
		task, ok := registry.Get(taskID)
		if !ok {
			t.Fatalf("task %s disappeared", taskID)
		}
		if task.Progress.Overall < lastOverall {
			t.Fatalf("overall percent went backwards: %d after %d", task.Progress.Overall, lastOverall)
		}
		lastOverall = task.Progress.Overall
		switch task.Status {
		case types.TaskCompleted, types.TaskFailed, types.TaskCancelled:
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return types.Task{}
}

func physicsOnly() []types.Discipline {
	return []types.Discipline{{ID: "d1", Name: "Physics", SearchKeywords: []string{"thermodynamics"}, IsPrimary: true}}
}

func TestRunEndToEnd(t *testing.T) {
	// Five raw results: two exact duplicates and one too short, so exactly
	// two chunks survive.
	a := types.SearchItem{URL: "https://a.example", Title: "A", Content: substantive("a")}
	b := types.SearchItem{URL: "https://b.example", Title: "B", Content: substantive("b")}
	short := types.SearchItem{URL: "https://s.example", Title: "S", Content: "forty characters of nothing useful here."}
	provider := &fixedProvider{items: []types.SearchItem{a, b, a, short, b}}
	st := newMemStore()
	o, registry := newTestOrchestrator(provider, &stubExtractor{}, st)

	task, err := o.Submit(context.Background(), "entropy", physicsOnly(), types.SearchConfig{
		MaxResultsPerDiscipline: 5,
		EnableValidation:        true,
		AutoIngest:              true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if task.Status != types.TaskPending {
		t.Fatalf("fresh task status = %q, want pending", task.Status)
	}

	final := waitForTerminal(t, registry, task.TaskID)
	if final.Status != types.TaskCompleted {
		t.Fatalf("status = %q (error %q), want completed", final.Status, final.Error)
	}
	if len(final.ResultChunks) != 2 {
		t.Fatalf("expected 2 chunks after dedup and length filter, got %d", len(final.ResultChunks))
	}
	if final.Progress.Overall != 100 {
		t.Fatalf("overall = %d, want 100", final.Progress.Overall)
	}
	for _, stage := range stageOrder {
		if final.Progress.Stages[stage] != types.StageCompleted {
			t.Fatalf("stage %q = %q, want completed", stage, final.Progress.Stages[stage])
		}
	}
	if final.GraphStatus != types.GraphSuccess {
		t.Fatalf("graph status = %q, want success", final.GraphStatus)
	}
	if final.Partial.TotalChunksFound != 2 || final.Partial.ByDiscipline["Physics"] != 2 {
		t.Fatalf("unexpected partial results %+v", final.Partial)
	}

	g, _ := st.GetGraph(context.Background(), "entropy")
	if g == nil || g.TotalNodes != 3 {
		t.Fatalf("expected stored graph with concept plus 2 entities, got %+v", g)
	}
	for _, c := range final.ResultChunks {
		doc, _ := st.GetDocument(context.Background(), c.ID)
		if doc == nil {
			t.Fatalf("chunk %s not persisted as document", c.ID)
		}
	}
}

func TestRunCancelledBetweenStages(t *testing.T) {
	provider := &gatedProvider{entered: make(chan struct{}), release: make(chan struct{})}
	o, registry := newTestOrchestrator(provider, &stubExtractor{}, newMemStore())

	task, err := o.Submit(context.Background(), "entropy", physicsOnly(), types.SearchConfig{AutoIngest: true})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	<-provider.entered
	if !registry.Cancel(task.TaskID) {
		t.Fatalf("cancel returned false for a running task")
	}
	close(provider.release)

	final := waitForTerminal(t, registry, task.TaskID)
	if final.Status != types.TaskCancelled {
		t.Fatalf("status = %q, want cancelled", final.Status)
	}
	if len(final.ResultChunks) != 0 {
		t.Fatalf("cancelled task must not expose chunks, got %d", len(final.ResultChunks))
	}
	// The search stage finished before the flag was observed, so its work is
	// still visible.
	if final.Progress.Stages[StageSearch] != types.StageCompleted {
		t.Fatalf("search stage = %q, want completed", final.Progress.Stages[StageSearch])
	}
	if s, ok := final.Progress.Stages[StageValidate]; ok && s == types.StageCompleted {
		t.Fatalf("validate stage must not have completed")
	}
}

func TestRunIngestFailureStillCompletes(t *testing.T) {
	provider := &fixedProvider{items: []types.SearchItem{
		{URL: "https://a.example", Title: "A", Content: substantive("a")},
	}}
	o, registry := newTestOrchestrator(provider, &stubExtractor{err: fmt.Errorf("extraction engine down")}, newMemStore())

	task, err := o.Submit(context.Background(), "entropy", physicsOnly(), types.SearchConfig{AutoIngest: true})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	final := waitForTerminal(t, registry, task.TaskID)
	if final.Status != types.TaskCompleted {
		t.Fatalf("status = %q, want completed despite ingest failure", final.Status)
	}
	if final.GraphStatus != types.GraphFailed {
		t.Fatalf("graph status = %q, want failed", final.GraphStatus)
	}
	if len(final.ResultChunks) != 1 {
		t.Fatalf("chunks must survive an ingest failure, got %d", len(final.ResultChunks))
	}
}

func TestRunAutoIngestDisabled(t *testing.T) {
	provider := &fixedProvider{items: []types.SearchItem{
		{URL: "https://a.example", Title: "A", Content: substantive("a")},
	}}
	st := newMemStore()
	o, registry := newTestOrchestrator(provider, &stubExtractor{}, st)

	task, err := o.Submit(context.Background(), "entropy", physicsOnly(), types.SearchConfig{AutoIngest: false})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	final := waitForTerminal(t, registry, task.TaskID)
	if final.Status != types.TaskCompleted {
		t.Fatalf("status = %q, want completed", final.Status)
	}
	if final.GraphStatus != types.GraphSkipped {
		t.Fatalf("graph status = %q, want skipped", final.GraphStatus)
	}
	if g, _ := st.GetGraph(context.Background(), "entropy"); g != nil {
		t.Fatalf("no graph should be stored when ingest is disabled")
	}
}

func TestRunNoResultsProducesSentinel(t *testing.T) {
	provider := &fixedProvider{items: nil}
	o, registry := newTestOrchestrator(provider, &stubExtractor{}, newMemStore())

	task, err := o.Submit(context.Background(), "entropy", physicsOnly(), types.SearchConfig{AutoIngest: false})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	final := waitForTerminal(t, registry, task.TaskID)
	if final.Status != types.TaskCompleted {
		t.Fatalf("status = %q, want completed", final.Status)
	}
	if len(final.ResultChunks) != 1 || final.ResultChunks[0].Discipline != "System" {
		t.Fatalf("expected the placeholder chunk, got %+v", final.ResultChunks)
	}
}

func TestSubmitValidation(t *testing.T) {
	o, _ := newTestOrchestrator(&fixedProvider{}, &stubExtractor{}, newMemStore())

	tests := []struct {
		name        string
		concept     string
		disciplines []types.Discipline
	}{
		{"empty concept", "", physicsOnly()},
		{"no disciplines", "entropy", nil},
		{"unnamed discipline", "entropy", []types.Discipline{{Name: ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := o.Submit(context.Background(), tt.concept, tt.disciplines, types.SearchConfig{}); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}
}

func TestRegistryCancelSemantics(t *testing.T) {
	registry := NewRegistry()
	if registry.Cancel("task-unknown") {
		t.Fatalf("cancel of unknown task must return false")
	}

	task := registry.Create("entropy")
	if !registry.Cancel(task.TaskID) {
		t.Fatalf("cancel of pending task must return true")
	}
	if !registry.IsCancelled(task.TaskID) {
		t.Fatalf("flag not visible after cancel")
	}
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	registry := NewRegistry()
	task := registry.Create("entropy")

	snap, ok := registry.Get(task.TaskID)
	if !ok {
		t.Fatalf("task not found")
	}
	snap.Progress.Stages["search"] = types.StageCompleted

	fresh, _ := registry.Get(task.TaskID)
	if _, leaked := fresh.Progress.Stages["search"]; leaked {
		t.Fatalf("snapshot mutation leaked into the registry")
	}
}
