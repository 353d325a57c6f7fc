package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
)

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
	Model     string   `json:"model,omitempty"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type teiReranker struct {
	endpoint string
	model    string
	timeout  time.Duration
	log      *zap.Logger
}

// NewReranker returns a cross-encoder client for a text-embeddings-inference style
// /rerank endpoint.
func NewReranker(baseURL, model string, timeout time.Duration, log *zap.Logger) Reranker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &teiReranker{
		endpoint: strings.TrimRight(baseURL, "/") + "/rerank",
		model:    model,
		timeout:  timeout,
		log:      logger.OrNop(log),
	}
}

// Rerank implements Reranker.
func (r *teiReranker) Rerank(ctx context.Context, query, text string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	agent := fiber.Post(r.endpoint)
	agent.JSON(rerankRequest{
		Query:     query,
		Texts:     []string{text},
		RawScores: true,
		Truncate:  true,
		Model:     r.model,
	})
	agent.Timeout(r.timeout)

	if err := agent.Parse(); err != nil {
		return 0, fmt.Errorf("failed to prepare rerank request: %w", err)
	}

	// The fiber client takes no context; a cancelled batch waits at most the request timeout.
	var results []rerankResult
	code, body, errs := agent.Struct(&results)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(errs) > 0 {
		return 0, fmt.Errorf("failed to call reranker: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return 0, fmt.Errorf("reranker returned status %d: %s", code, logger.TruncateForLog(string(body), 200))
	}

	for _, res := range results {
		if res.Index == 0 {
			r.log.Debug("rerank scored", zap.Float64("logit", res.Score))
			return res.Score, nil
		}
	}

	return 0, errors.New("reranker returned no score")
}
