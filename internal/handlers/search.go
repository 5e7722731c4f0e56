package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/conceptmesh/conceptmesh-backend/internal/pipeline"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/search"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

type SearchHandler struct {
	log          *logger.Logger
	classifier   *search.Classifier
	orchestrator *pipeline.Orchestrator
	registry     *pipeline.Registry
}

func NewSearchHandler(log *logger.Logger, classifier *search.Classifier, orchestrator *pipeline.Orchestrator, registry *pipeline.Registry) *SearchHandler {
	return &SearchHandler{
		log:          log.With("handler", "SearchHandler"),
		classifier:   classifier,
		orchestrator: orchestrator,
		registry:     registry,
	}
}

type classifyRequest struct {
	Concept        string  `json:"concept" binding:"required"`
	MaxDisciplines int     `json:"max_disciplines"`
	MinRelevance   float64 `json:"min_relevance"`
}

func (req *classifyRequest) applyDefaults() {
	if req.MaxDisciplines <= 0 {
		req.MaxDisciplines = 5
	}
	if req.MinRelevance <= 0 {
		req.MinRelevance = 0.3
	}
}

// POST /api/search/classify
func (h *SearchHandler) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.applyDefaults()

	res := h.classifier.Classify(c.Request.Context(), req.Concept, req.MaxDisciplines, req.MinRelevance)
	ok(c, res)
}

type planDiscipline struct {
	types.Discipline
	IsDefaultSelected bool `json:"is_default_selected"`
}

// POST /api/search/plan
func (h *SearchHandler) Plan(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.applyDefaults()

	res := h.classifier.Classify(c.Request.Context(), req.Concept, req.MaxDisciplines, req.MinRelevance)
	planned := make([]planDiscipline, 0, len(res.Disciplines))
	for _, d := range res.Disciplines {
		planned = append(planned, planDiscipline{Discipline: d, IsDefaultSelected: true})
	}
	ok(c, gin.H{
		"concept":             res.Concept,
		"primary_discipline":  res.PrimaryDiscipline,
		"disciplines":         planned,
		"suggested_additions": res.SuggestedAdditions,
	})
}

type startRequest struct {
	Concept      string             `json:"concept" binding:"required"`
	Disciplines  []types.Discipline `json:"disciplines" binding:"required"`
	SearchConfig *struct {
		MaxResultsPerDiscipline *int  `json:"max_results_per_discipline"`
		EnableValidation        *bool `json:"enable_validation"`
		AutoIngest              *bool `json:"auto_ingest"`
	} `json:"search_config"`
}

func (req *startRequest) config() types.SearchConfig {
	cfg := types.SearchConfig{
		MaxResultsPerDiscipline: 10,
		EnableValidation:        true,
		AutoIngest:              true,
	}
	if req.SearchConfig == nil {
		return cfg
	}
	if v := req.SearchConfig.MaxResultsPerDiscipline; v != nil && *v > 0 {
		cfg.MaxResultsPerDiscipline = *v
	}
	if v := req.SearchConfig.EnableValidation; v != nil {
		cfg.EnableValidation = *v
	}
	if v := req.SearchConfig.AutoIngest; v != nil {
		cfg.AutoIngest = *v
	}
	return cfg
}

// POST /api/search/start
func (h *SearchHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.orchestrator.Submit(c.Request.Context(), req.Concept, req.Disciplines, req.config())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ok(c, gin.H{
		"task_id":    task.TaskID,
		"status":     task.Status,
		"created_at": task.CreatedAt,
	})
}

// GET /api/search/status/:task_id
func (h *SearchHandler) Status(c *gin.Context) {
	task, found := h.registry.Get(c.Param("task_id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	ok(c, gin.H{
		"task_id":         task.TaskID,
		"status":          task.Status,
		"progress":        task.Progress,
		"partial_results": task.Partial,
		"graph_status":    task.GraphStatus,
		"updated_at":      task.UpdatedAt,
	})
}

// GET /api/search/results/:task_id?page=&page_size=
func (h *SearchHandler) Results(c *gin.Context) {
	task, found := h.registry.Get(c.Param("task_id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if task.Status != types.TaskCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task not ready"})
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	chunks := task.ResultChunks
	total := len(chunks)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	disciplines := make(map[string]bool)
	for _, ch := range chunks {
		disciplines[ch.Discipline] = true
	}

	ok(c, gin.H{
		"task_id": task.TaskID,
		"concept": task.Concept,
		"summary": gin.H{
			"total_chunks":        total,
			"disciplines_covered": len(disciplines),
		},
		"chunks": chunks[start:end],
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": (total + pageSize - 1) / pageSize,
		},
	})
}

// POST /api/search/cancel/:task_id
func (h *SearchHandler) Cancel(c *gin.Context) {
	taskID := c.Param("task_id")
	if !h.registry.Cancel(taskID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task not found or already finished"})
		return
	}
	h.log.Info("cancellation requested", "task_id", taskID)
	ok(c, gin.H{"task_id": taskID, "cancelled": true})
}

func queryInt(c *gin.Context, key string, defaultVal int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}
