package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

const (
	graphKeyPrefix = "graph:"
	docKeyPrefix   = "doc:"
	conceptSetKey  = "graphs:concepts"
)

// RedisStore keeps graphs and documents in Redis, with the set of built
// concepts tracked alongside for listing.
type RedisStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisStore(log *logger.Logger, addr string) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{
		log: log.With("store", "RedisStore"),
		rdb: rdb,
	}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) SaveGraph(ctx context.Context, concept string, g *types.Graph) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, graphKeyPrefix+concept, raw, 0)
	pipe.SAdd(ctx, conceptSetKey, concept)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	s.log.Debug("graph saved", "concept", concept)
	return nil
}

func (s *RedisStore) GetGraph(ctx context.Context, concept string) (*types.Graph, error) {
	raw, err := s.rdb.Get(ctx, graphKeyPrefix+concept).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get graph: %w", err)
	}
	var g types.Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &g, nil
}

func (s *RedisStore) ListConcepts(ctx context.Context) ([]string, error) {
	concepts, err := s.rdb.SMembers(ctx, conceptSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	sort.Strings(concepts)
	return concepts, nil
}

func (s *RedisStore) SaveDocuments(ctx context.Context, docs []types.Document) error {
	pipe := s.rdb.TxPipeline()
	for _, d := range docs {
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", d.DocID, err)
		}
		pipe.Set(ctx, docKeyPrefix+d.DocID, raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	return nil
}

func (s *RedisStore) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	raw, err := s.rdb.Get(ctx, docKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	var d types.Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &d, nil
}
