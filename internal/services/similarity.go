package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
)

type SimilarityScorer struct {
	embedder Embedder
	reranker Reranker
	log      *zap.Logger
}

func NewSimilarityScorer(embedder Embedder, reranker Reranker, log *zap.Logger) *SimilarityScorer {
	return &SimilarityScorer{
		embedder: embedder,
		reranker: reranker,
		log:      logger.OrNop(log),
	}
}

// BiEncoder embeds both normalized texts independently and returns their cosine
// similarity as a percentage clamped to [0, 100].
func (s *SimilarityScorer) BiEncoder(ctx context.Context, resumeNorm, jdNorm string) (float64, error) {
	resumeVec, err := s.embedder.Embed(ctx, resumeNorm)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to embed resume: %v", ErrScoringUnavailable, err)
	}

	jdVec, err := s.embedder.Embed(ctx, jdNorm)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to embed job description: %v", ErrScoringUnavailable, err)
	}

	sim, err := cosine(resumeVec, jdVec)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}

	return clampPercent(sim * 100), nil
}

// CrossEncoder scores the raw (job description, resume) pair jointly and maps the
// logit through a sigmoid into a percentage.
func (s *SimilarityScorer) CrossEncoder(ctx context.Context, jdRaw, resumeRaw string) (float64, error) {
	logit, err := s.reranker.Rerank(ctx, jdRaw, resumeRaw)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to rerank: %v", ErrScoringUnavailable, err)
	}

	return clampPercent(sigmoid(logit) * 100), nil
}

func (s *SimilarityScorer) Score(ctx context.Context, doc models.ResumeDocument, jobDescription, jdNorm string) (models.SimilarityScores, error) {
	bi, err := s.BiEncoder(ctx, doc.NormalizedText, jdNorm)
	if err != nil {
		return models.SimilarityScores{}, err
	}

	ce, err := s.CrossEncoder(ctx, jobDescription, doc.RawText)
	if err != nil {
		return models.SimilarityScores{}, err
	}

	s.log.Debug("similarity scored",
		zap.String("file", doc.FileName),
		zap.Float64("bi_encoder", bi),
		zap.Float64("cross_encoder", ce),
	)

	return models.SimilarityScores{BiEncoderPercent: bi, CrossEncoderPercent: ce}, nil
}

func cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

const DefaultEmbedCacheSize = 1024

// cachedEmbedder memoizes embeddings by content hash so identical input embeds identically.
// The cache is bounded; least recently used entries are evicted first.
type cachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(inner Embedder, size int) Embedder {
	if size <= 0 {
		size = DefaultEmbedCacheSize
	}
	cache, _ := lru.New[string, []float32](size)

	return &cachedEmbedder{
		inner: inner,
		cache: cache,
	}
}

// Embed implements Embedder.
func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.inner == nil {
		return nil, errors.New("embedder is not initialized")
	}

	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])

	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, vec)
	return vec, nil
}
