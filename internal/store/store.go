// Package store persists built graphs and their source documents. Two
// backends exist: JSON files on local disk and Redis; the Neo4j sync is a
// separate best-effort mirror for graph queries.
package store

import (
	"context"
	"os"
	"strings"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
	"github.com/conceptmesh/conceptmesh-backend/internal/utils"
)

type GraphStore interface {
	SaveGraph(ctx context.Context, concept string, g *types.Graph) error
	// GetGraph returns (nil, nil) when no graph exists for the concept.
	GetGraph(ctx context.Context, concept string) (*types.Graph, error)
	ListConcepts(ctx context.Context) ([]string, error)
}

type DocumentStore interface {
	SaveDocuments(ctx context.Context, docs []types.Document) error
	// GetDocument returns (nil, nil) when the id is unknown.
	GetDocument(ctx context.Context, id string) (*types.Document, error)
}

type Store interface {
	GraphStore
	DocumentStore
}

// NewFromEnv picks the Redis backend when REDIS_ADDR is set and the local
// file backend otherwise.
func NewFromEnv(log *logger.Logger) (Store, error) {
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		return NewRedisStore(log, addr)
	}
	dataDir := utils.GetEnv("DATA_DIR", "./data", log)
	return NewFileStore(log, dataDir)
}
