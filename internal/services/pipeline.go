package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/config"
	"alfredoptarigan/resume-screener/internal/logger"
)

// Pipeline is a fully wired screener plus the resources it holds open.
type Pipeline struct {
	Screener ScreenerService
	Exporter *Exporter
	closers  []func() error
}

// Close releases the vector index connection.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewPipeline wires the capability providers named in cfg into a ScreenerService.
func NewPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	log = logger.OrNop(log)
	sc := cfg.Screening

	gemini, err := NewGeminiService(ctx, GeminiOptions{
		APIKey:       cfg.Gemini.APIKey,
		Model:        cfg.Gemini.Model,
		EmbedModel:   cfg.Gemini.EmbedModel,
		MaxRetries:   cfg.Worker.RetryMaxAttempts,
		InitialDelay: cfg.Worker.RetryInitialDelay,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}
	embedder := NewCachedEmbedder(gemini, sc.EmbedCacheSize)

	p := &Pipeline{Exporter: NewExporter(log)}

	var index VectorIndex
	switch sc.VectorBackend {
	case "memory":
		index = NewMemoryIndex()
	case "", "qdrant":
		q, err := NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		index = q
		p.closers = append(p.closers, q.Close)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", sc.VectorBackend)
	}
	log.Info("vector index ready", zap.String("backend", sc.VectorBackend))

	reranker := NewReranker(cfg.Reranker.URL, cfg.Reranker.Model, cfg.Reranker.Timeout, log)
	audit := NewAuditLog(cfg.Log.AuditPath, log)

	// Name recognition and refinement share one slot pool on the generative model.
	llmLimiter := NewCapabilityLimiter(sc.LLMConcurrency)

	extractor := NewExtractor(gemini, ExtractorOptions{
		FuzzyThreshold:   sc.FuzzyThreshold,
		MinFuzzyLength:   sc.MinFuzzyLength,
		NameDenyYear:     sc.NameDenyYear,
		Limiter:          llmLimiter,
		RecognizeTimeout: sc.NERTimeout,
	}, log)
	scorer := NewSimilarityScorer(embedder, reranker, log)
	retrieval := NewRetrievalStore(index, embedder, NewTextChunker(), RetrievalOptions{
		ChunkSize:     sc.ChunkSize,
		ChunkOverlap:  sc.ChunkOverlap,
		TopK:          sc.TopK,
		RetainIndexes: sc.RetainIndexes,
	}, log)
	reasoner := NewIntentReasoner(gemini, llmLimiter, audit, ReasonerOptions{
		ContextLimit: sc.ContextLimit,
		Timeout:      sc.ReasonerTimeout,
	}, log)

	p.Screener = NewScreenerService(NewIngestionService(log), extractor, scorer, retrieval, reasoner, ScreenerOptions{
		RetrievalQuery: sc.RetrievalQuery,
		Concurrency:    sc.Concurrency,
	}, log)

	return p, nil
}
