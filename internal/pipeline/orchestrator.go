package pipeline

import (
	"context"
	"fmt"

	"github.com/conceptmesh/conceptmesh-backend/internal/graph"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/neo4jdb"
	"github.com/conceptmesh/conceptmesh-backend/internal/search"
	"github.com/conceptmesh/conceptmesh-backend/internal/store"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// Stage names in strict execution order. Reporting a later stage marks every
// earlier one completed.
var stageOrder = []string{
	StageSearch,
	StageValidate,
	StageConstruct,
	StageIngest,
	StageCompleted,
}

const (
	StageSearch    = "search"
	StageValidate  = "validate"
	StageConstruct = "construct"
	StageIngest    = "ingest"
	StageCompleted = "completed"
)

// Orchestrator runs research tasks to a terminal state. One goroutine per
// task owns that task's record exclusively; the only cross-goroutine write
// is the registry's cancellation flag.
type Orchestrator struct {
	log       *logger.Logger
	registry  *Registry
	fanout    *search.Fanout
	validator *search.Validator
	extractor graph.Extractor
	store     store.Store
	neo4j     *neo4jdb.Client
}

func NewOrchestrator(
	log *logger.Logger,
	registry *Registry,
	fanout *search.Fanout,
	validator *search.Validator,
	extractor graph.Extractor,
	st store.Store,
	neo4j *neo4jdb.Client,
) *Orchestrator {
	return &Orchestrator{
		log:       log.With("component", "Orchestrator"),
		registry:  registry,
		fanout:    fanout,
		validator: validator,
		extractor: extractor,
		store:     st,
		neo4j:     neo4j,
	}
}

// Submit validates the request synchronously, creates the task and starts
// the background run. Validation failures surface to the caller before any
// background work begins.
func (o *Orchestrator) Submit(ctx context.Context, concept string, disciplines []types.Discipline, cfg types.SearchConfig) (types.Task, error) {
	if concept == "" {
		return types.Task{}, fmt.Errorf("concept must not be empty")
	}
	if len(disciplines) == 0 {
		return types.Task{}, fmt.Errorf("at least one discipline is required")
	}
	for _, d := range disciplines {
		if d.Name == "" {
			return types.Task{}, fmt.Errorf("discipline name must not be empty")
		}
	}
	if cfg.MaxResultsPerDiscipline <= 0 {
		cfg.MaxResultsPerDiscipline = 10
	}

	task := o.registry.Create(concept)
	// The run outlives the submitting request, so detach its lifetime from
	// the caller's context while keeping its values.
	go o.run(context.WithoutCancel(ctx), task.TaskID, concept, disciplines, cfg)
	o.log.Info("task scheduled", "task_id", task.TaskID, "concept", concept, "disciplines", len(disciplines))
	return task, nil
}

// reportStage records stage entry: current stage, monotonically
// non-decreasing overall percent, in-progress marker, completion of all
// earlier stages, and additive merge of any extra counts.
func (o *Orchestrator) reportStage(taskID, stage string, overall int, extra *types.StageExtra) {
	o.registry.update(taskID, func(t *types.Task) {
		t.Progress.CurrentStage = stage
		if overall > t.Progress.Overall {
			t.Progress.Overall = overall
		}
		t.Progress.Stages[stage] = types.StageInProgress
		for _, prev := range stageOrder {
			if prev == stage {
				break
			}
			t.Progress.Stages[prev] = types.StageCompleted
		}
		if extra == nil {
			return
		}
		if extra.TotalChunks != nil {
			t.Partial.TotalChunksFound = *extra.TotalChunks
			t.Partial.ValidatedChunks = *extra.TotalChunks
		}
		if extra.ByDiscipline != nil {
			if t.Partial.ByDiscipline == nil {
				t.Partial.ByDiscipline = make(map[string]int, len(extra.ByDiscipline))
			}
			for k, v := range extra.ByDiscipline {
				t.Partial.ByDiscipline[k] = v
			}
		}
		if extra.IngestStatus != "" {
			t.GraphStatus = extra.IngestStatus
		}
	})
}

// completeStage marks one stage finished without advancing to the next, so
// a run cancelled at the following boundary still shows the work it did.
func (o *Orchestrator) completeStage(taskID, stage string) {
	o.registry.update(taskID, func(t *types.Task) {
		t.Progress.Stages[stage] = types.StageCompleted
	})
}

func (o *Orchestrator) run(ctx context.Context, taskID, concept string, disciplines []types.Discipline, cfg types.SearchConfig) {
	log := o.log.With("task_id", taskID, "concept", concept)

	// Never let a research run take the process down; the failure is the
	// task's own result.
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r)
			o.registry.update(taskID, func(t *types.Task) {
				t.Status = types.TaskFailed
				t.Error = fmt.Sprintf("panic: %v", r)
			})
		}
	}()

	cancelled := func() bool { return o.registry.IsCancelled(taskID) }
	finalizeCancelled := func() {
		log.Info("task cancelled")
		o.registry.update(taskID, func(t *types.Task) {
			t.Status = types.TaskCancelled
		})
	}

	o.registry.update(taskID, func(t *types.Task) {
		t.Status = types.TaskProcessing
		t.Progress.CurrentStage = "starting"
	})

	// Search
	if cancelled() {
		finalizeCancelled()
		return
	}
	o.reportStage(taskID, StageSearch, 10, nil)
	flat := o.fanout.Run(ctx, concept, disciplines, cfg.MaxResultsPerDiscipline)
	o.completeStage(taskID, StageSearch)

	// Validate
	if cancelled() {
		finalizeCancelled()
		return
	}
	o.reportStage(taskID, StageValidate, 55, nil)
	items := make([]types.SearchItem, 0, len(flat))
	for _, di := range flat {
		items = append(items, di.Item)
	}
	verdicts := o.validator.Run(ctx, concept, items, cfg.EnableValidation)
	o.completeStage(taskID, StageValidate)

	// Construct
	if cancelled() {
		finalizeCancelled()
		return
	}
	o.reportStage(taskID, StageConstruct, 70, nil)
	chunks, byDiscipline := search.AssembleChunks(flat, verdicts, cfg.EnableValidation)
	total := len(chunks)
	o.reportStage(taskID, StageConstruct, 90, &types.StageExtra{
		TotalChunks:  &total,
		ByDiscipline: byDiscipline,
	})
	o.completeStage(taskID, StageConstruct)

	// Ingest
	if cancelled() {
		finalizeCancelled()
		return
	}
	o.reportStage(taskID, StageIngest, 95, nil)
	graphStatus := types.GraphSkipped
	if cfg.AutoIngest && len(chunks) > 0 {
		if err := o.ingest(ctx, concept, chunks); err != nil {
			// The chunks keep independent value, so the task still
			// completes; only the graph build is marked failed.
			log.Error("graph ingest failed", "error", err)
			graphStatus = types.GraphFailed
		} else {
			graphStatus = types.GraphSuccess
		}
	}
	o.completeStage(taskID, StageIngest)

	if cancelled() {
		finalizeCancelled()
		return
	}
	o.reportStage(taskID, StageCompleted, 100, &types.StageExtra{IngestStatus: graphStatus})
	o.registry.update(taskID, func(t *types.Task) {
		t.Status = types.TaskCompleted
		t.ResultChunks = chunks
		t.Progress.Overall = 100
		t.Progress.Stages[StageCompleted] = types.StageCompleted
	})
	log.Info("task completed", "chunks", len(chunks), "graph_status", graphStatus)
}

// ingest persists the chunks as documents, extracts the raw entity graph,
// prunes it around the concept and stores the result, mirroring it into
// Neo4j when configured.
func (o *Orchestrator) ingest(ctx context.Context, concept string, chunks []types.Chunk) error {
	docs := make([]types.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, types.Document{
			DocID:          c.ID,
			Domain:         c.Discipline,
			Content:        c.Content,
			Source:         c.Source,
			RelevanceScore: c.RelevanceScore,
			AcademicValue:  c.AcademicValue,
		})
	}
	if err := o.store.SaveDocuments(ctx, docs); err != nil {
		return fmt.Errorf("save documents: %w", err)
	}

	raw, chunkMap, err := o.extractor.Build(ctx, concept, docs)
	if err != nil {
		return fmt.Errorf("extract graph: %w", err)
	}

	g := graph.Process(o.log, raw, concept, chunkMap)
	if err := o.store.SaveGraph(ctx, concept, g); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}

	if err := store.SyncGraphToNeo4j(ctx, o.neo4j, o.log, concept, g); err != nil {
		// Neo4j is a mirror; file/redis storage already succeeded.
		o.log.Error("neo4j sync failed", "concept", concept, "error", err)
	}
	return nil
}
