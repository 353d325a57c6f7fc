package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
)

// QdrantService is a VectorIndex backed by a Qdrant server, one collection per index.
type QdrantService interface {
	VectorIndex
	Close() error
}

type qdrantService struct {
	client *qdrant.Client
	log    *zap.Logger
}

func NewQdrantService(urlStr, apiKey string, log *zap.Logger) (QdrantService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client: client,
		log:    logger.OrNop(log),
	}, nil
}

// CreateOrReplace implements VectorIndex.
func (q *qdrantService) CreateOrReplace(ctx context.Context, name string, dimension int) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		if err := q.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to delete old collection: %w", err)
		}
		q.log.Info("old collection cleared", zap.String("collection", name))
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// Upsert implements VectorIndex.
func (q *qdrantService) Upsert(ctx context.Context, name string, points []VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk": p.Chunk,
				"index": int64(p.Ordinal),
				"file":  p.File,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	q.log.Info("chunks indexed", zap.String("collection", name), zap.Int("chunks", len(points)))
	return nil
}

// Search implements VectorIndex.
func (q *qdrantService) Search(ctx context.Context, name string, vector []float32, limit int) ([]VectorHit, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]VectorHit, 0, len(points))
	for _, point := range points {
		hit := VectorHit{Score: point.Score}
		if chunk, ok := point.Payload["chunk"]; ok {
			if val, ok := chunk.GetKind().(*qdrant.Value_StringValue); ok {
				hit.Chunk = val.StringValue
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Count implements VectorIndex.
func (q *qdrantService) Count(ctx context.Context, name string) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

// Drop implements VectorIndex.
func (q *qdrantService) Drop(ctx context.Context, name string) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil
	}

	if err := q.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Close implements QdrantService.
func (q *qdrantService) Close() error {
	return q.client.Close()
}
