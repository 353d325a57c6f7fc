package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
)

const defaultVectorDimension = 768

type RetrievalOptions struct {
	ChunkSize     int
	ChunkOverlap  int
	TopK          int
	RetainIndexes bool
}

// RetrievalStore keeps one isolated vector index per resume so retrieved context can
// never leak between documents.
type RetrievalStore struct {
	index    VectorIndex
	embedder Embedder
	chunker  TextChunker
	opts     RetrievalOptions
	log      *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewRetrievalStore(index VectorIndex, embedder Embedder, chunker TextChunker, opts RetrievalOptions, log *zap.Logger) *RetrievalStore {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 800
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if chunker == nil {
		chunker = NewTextChunker()
	}

	return &RetrievalStore{
		index:    index,
		embedder: embedder,
		chunker:  chunker,
		opts:     opts,
		log:      logger.OrNop(log),
		locks:    make(map[string]*sync.Mutex),
	}
}

// DocumentID is stable for a file name: the first 8 hex characters of the md5 of its base name.
func DocumentID(fileName string) string {
	sum := md5.Sum([]byte(filepath.Base(fileName)))
	return hex.EncodeToString(sum[:])[:8]
}

func IndexName(fileName string) string {
	return "resume_" + DocumentID(fileName)
}

func (s *RetrievalStore) lockFor(name string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[name] = mu
	}
	return mu
}

// IndexDocument replaces any existing index for fileName with freshly embedded chunks of raw.
func (s *RetrievalStore) IndexDocument(ctx context.Context, fileName, raw string) (string, int, error) {
	name := IndexName(fileName)
	mu := s.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	n, err := s.indexLocked(ctx, name, fileName, raw)
	return name, n, err
}

func (s *RetrievalStore) indexLocked(ctx context.Context, name, fileName, raw string) (int, error) {
	chunks := s.chunker.ChunkText(raw, s.opts.ChunkSize, s.opts.ChunkOverlap)

	points := make([]VectorPoint, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to embed chunk %d of %s: %v", ErrRetrievalIndex, i, fileName, err)
		}
		points = append(points, VectorPoint{
			ID:      uint64(i),
			Vector:  vec,
			Chunk:   chunk,
			File:    filepath.Base(fileName),
			Ordinal: i,
		})
	}

	dimension := defaultVectorDimension
	if len(points) > 0 {
		dimension = len(points[0].Vector)
	}

	if err := s.index.CreateOrReplace(ctx, name, dimension); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRetrievalIndex, err)
	}
	if err := s.index.Upsert(ctx, name, points); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRetrievalIndex, err)
	}

	s.log.Info("resume indexed", zap.String("index", name), zap.String("file", fileName), zap.Int("chunks", len(points)))
	return len(points), nil
}

// RetrieveContext returns the top chunks for query joined by single spaces.
func (s *RetrievalStore) RetrieveContext(ctx context.Context, indexName, query string, k int) (string, error) {
	mu := s.lockFor(indexName)
	mu.Lock()
	defer mu.Unlock()

	return s.retrieveLocked(ctx, indexName, query, k)
}

func (s *RetrievalStore) retrieveLocked(ctx context.Context, indexName, query string, k int) (string, error) {
	if k <= 0 {
		k = s.opts.TopK
	}

	vec, err := s.embedder.Embed(ctx, strings.Join(strings.Fields(query), " "))
	if err != nil {
		return "", fmt.Errorf("%w: failed to embed query: %v", ErrRetrievalIndex, err)
	}

	hits, err := s.index.Search(ctx, indexName, vec, k)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRetrievalIndex, err)
	}

	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, h.Chunk)
	}
	return strings.Join(parts, " "), nil
}

// Release drops the index unless indexes are retained.
func (s *RetrievalStore) Release(ctx context.Context, indexName string) error {
	mu := s.lockFor(indexName)
	mu.Lock()
	defer mu.Unlock()

	return s.releaseLocked(ctx, indexName)
}

func (s *RetrievalStore) releaseLocked(ctx context.Context, indexName string) error {
	if s.opts.RetainIndexes {
		return nil
	}
	if err := s.index.Drop(ctx, indexName); err != nil {
		return fmt.Errorf("%w: %v", ErrRetrievalIndex, err)
	}
	return nil
}

// ContextFor indexes raw, retrieves context for query and releases the index while
// holding the per-index lock, so documents sharing a file name never interleave.
func (s *RetrievalStore) ContextFor(ctx context.Context, fileName, raw, query string) (string, error) {
	name := IndexName(fileName)
	mu := s.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.indexLocked(ctx, name, fileName, raw); err != nil {
		return "", err
	}

	text, err := s.retrieveLocked(ctx, name, query, s.opts.TopK)

	if relErr := s.releaseLocked(context.WithoutCancel(ctx), name); relErr != nil {
		s.log.Warn("failed to release index", zap.String("index", name), zap.Error(relErr))
	}

	return text, err
}
