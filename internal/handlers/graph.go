package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conceptmesh/conceptmesh-backend/internal/graph"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/llm"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/store"
)

type GraphHandler struct {
	log   *logger.Logger
	store store.Store
	llm   llm.Client
}

func NewGraphHandler(log *logger.Logger, st store.Store, client llm.Client) *GraphHandler {
	return &GraphHandler{
		log:   log.With("handler", "GraphHandler"),
		store: st,
		llm:   client,
	}
}

// GET /api/graph/concepts
func (h *GraphHandler) ListConcepts(c *gin.Context) {
	concepts, err := h.store.ListConcepts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ok(c, gin.H{"concepts": concepts})
}

// GET /api/graph/:concept
func (h *GraphHandler) GetGraph(c *gin.Context) {
	concept := c.Param("concept")
	g, err := h.store.GetGraph(c.Request.Context(), concept)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "graph for '" + concept + "' not found"})
		return
	}
	ok(c, g)
}

type qaRequest struct {
	Concept    string `json:"concept" binding:"required"`
	SourceNode string `json:"source_node" binding:"required"`
	TargetNode string `json:"target_node" binding:"required"`
	Question   string `json:"question"`
}

// POST /api/qa
func (h *GraphHandler) QA(c *gin.Context) {
	var req qaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.store.GetGraph(c.Request.Context(), req.Concept)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "graph for '" + req.Concept + "' not found"})
		return
	}

	answer, err := graph.AnswerRelation(c.Request.Context(), h.llm, g, req.SourceNode, req.TargetNode, req.Question)
	if err != nil {
		h.log.Error("qa failed", "concept", req.Concept, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ok(c, gin.H{
		"concept":     req.Concept,
		"source_node": req.SourceNode,
		"target_node": req.TargetNode,
		"question":    req.Question,
		"answer":      answer,
	})
}
