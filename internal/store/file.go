package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// FileStore keeps graphs and documents as JSON files under a data directory,
// one file per graph and per document.
type FileStore struct {
	log    *logger.Logger
	graphs string
	docs   string
}

func NewFileStore(log *logger.Logger, dataDir string) (*FileStore, error) {
	graphs := filepath.Join(dataDir, "graphs")
	docs := filepath.Join(dataDir, "documents")
	for _, dir := range []string{graphs, docs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	return &FileStore{
		log:    log.With("store", "FileStore"),
		graphs: graphs,
		docs:   docs,
	}, nil
}

// Concepts become file names, so escape anything path-hostile.
func conceptFileName(concept string) string {
	return url.PathEscape(concept) + ".json"
}

func (s *FileStore) SaveGraph(_ context.Context, concept string, g *types.Graph) error {
	raw, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	path := filepath.Join(s.graphs, conceptFileName(concept))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	s.log.Debug("graph saved", "concept", concept, "path", path)
	return nil
}

func (s *FileStore) GetGraph(_ context.Context, concept string) (*types.Graph, error) {
	raw, err := os.ReadFile(filepath.Join(s.graphs, conceptFileName(concept)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	var g types.Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &g, nil
}

func (s *FileStore) ListConcepts(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.graphs)
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	concepts := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		concept, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		concepts = append(concepts, concept)
	}
	sort.Strings(concepts)
	return concepts, nil
}

func (s *FileStore) SaveDocuments(_ context.Context, docs []types.Document) error {
	for _, d := range docs {
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", d.DocID, err)
		}
		path := filepath.Join(s.docs, url.PathEscape(d.DocID)+".json")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return fmt.Errorf("write document %s: %w", d.DocID, err)
		}
	}
	return nil
}

func (s *FileStore) GetDocument(_ context.Context, id string) (*types.Document, error) {
	raw, err := os.ReadFile(filepath.Join(s.docs, url.PathEscape(id)+".json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var d types.Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &d, nil
}
