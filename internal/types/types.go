package types

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

type StageStatus string

const (
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
)

type GraphBuildStatus string

const (
	GraphPending GraphBuildStatus = "pending"
	GraphSkipped GraphBuildStatus = "skipped"
	GraphSuccess GraphBuildStatus = "success"
	GraphFailed  GraphBuildStatus = "failed"
)

// Discipline is an academic domain attached to a concept, carrying keyword
// hints that drive search fan-out. Keyword order matters: only the first
// three are used per discipline.
type Discipline struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	RelevanceScore float64  `json:"relevance_score,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	SearchKeywords []string `json:"search_keywords,omitempty"`
	IsPrimary      bool     `json:"is_primary,omitempty"`
}

type SearchConfig struct {
	MaxResultsPerDiscipline int  `json:"max_results_per_discipline"`
	EnableValidation        bool `json:"enable_validation"`
	AutoIngest              bool `json:"auto_ingest"`
}

// SearchItem is one raw result from a search provider, untrimmed.
type SearchItem struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type SourceInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type ValidationInfo struct {
	IsValidated bool    `json:"is_validated"`
	Confidence  float64 `json:"confidence"`
	Notes       string  `json:"notes,omitempty"`
}

// Chunk is a unit of validated textual evidence scoped to one discipline.
// Immutable once constructed.
type Chunk struct {
	ID             string          `json:"id"`
	Content        string          `json:"content"`
	Discipline     string          `json:"discipline"`
	Source         SourceInfo      `json:"source"`
	RelevanceScore float64         `json:"relevance_score"`
	AcademicValue  float64         `json:"academic_value"`
	Validation     *ValidationInfo `json:"validation,omitempty"`
}

// Verdict is the judge's per-item ruling. Pointer fields distinguish "judge
// said nothing" from an explicit score/flag.
type Verdict struct {
	URL            string   `json:"url"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	AcademicValue  *float64 `json:"academic_value,omitempty"`
	IsValid        *bool    `json:"is_valid,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

type Progress struct {
	Overall      int                    `json:"overall"`
	CurrentStage string                 `json:"current_stage"`
	Stages       map[string]StageStatus `json:"stages"`
}

type PartialResults struct {
	TotalChunksFound int            `json:"total_chunks_found"`
	ValidatedChunks  int            `json:"validated_chunks"`
	ByDiscipline     map[string]int `json:"by_discipline,omitempty"`
}

// StageExtra carries the known progress-extra shapes a stage may report.
// Fields are merged into PartialResults additively; a nil field leaves the
// existing value alone.
type StageExtra struct {
	TotalChunks  *int
	ByDiscipline map[string]int
	IngestStatus GraphBuildStatus
}

// Task is the mutable record for one research run. It is written only by the
// orchestrator goroutine that owns it, via the registry.
type Task struct {
	TaskID       string           `json:"task_id"`
	Concept      string           `json:"concept"`
	Status       TaskStatus       `json:"status"`
	Progress     Progress         `json:"progress"`
	Partial      PartialResults   `json:"partial_results"`
	ResultChunks []Chunk          `json:"result_chunks"`
	GraphStatus  GraphBuildStatus `json:"graph_status"`
	Cancelled    bool             `json:"cancelled"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Document is what the graph extractor consumes: one chunk flattened with
// its provenance and scores.
type Document struct {
	DocID          string     `json:"doc_id"`
	Domain         string     `json:"domain"`
	Content        string     `json:"content"`
	Source         SourceInfo `json:"source"`
	RelevanceScore float64    `json:"relevance_score"`
	AcademicValue  float64    `json:"academic_value"`
}

// GraphNode is a pruned, domain-attributed entity node.
type GraphNode struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Description  string   `json:"description"`
	Domains      []string `json:"domains"`
	SourceChunks []string `json:"source_chunks"`
	Size         int      `json:"size"`
}

type GraphEdge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Relation    string `json:"relation"`
	Description string `json:"description"`
}

type Graph struct {
	Concept    string      `json:"concept"`
	Nodes      []GraphNode `json:"nodes"`
	Edges      []GraphEdge `json:"edges"`
	TotalNodes int         `json:"total_nodes"`
	TotalEdges int         `json:"total_edges"`
}

// ChunkDomainInfo bridges extracted-graph provenance back to the disciplines
// the source chunks were tagged with.
type ChunkDomainInfo struct {
	DocIDs  []string `json:"doc_ids"`
	Domains []string `json:"domains"`
}

type ChunkDomainMap map[string]ChunkDomainInfo

type ClassifyResult struct {
	Concept            string       `json:"concept"`
	PrimaryDiscipline  string       `json:"primary_discipline"`
	Disciplines        []Discipline `json:"disciplines"`
	SuggestedAdditions []string     `json:"suggested_additions"`
}
