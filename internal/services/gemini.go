package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/resume-screener/internal/logger"
)

const (
	maxEmbedChars     = 40000
	personSampleChars = 2000
)

// GeminiService bundles every Gemini-backed capability: embeddings, text generation and
// person recognition.
type GeminiService interface {
	Embedder
	TextGenerator
	EntityRecognizer
}

type GeminiOptions struct {
	APIKey       string
	Model        string
	EmbedModel   string
	Temperature  float32
	MaxRetries   int
	InitialDelay time.Duration
}

type geminiService struct {
	client       *genai.Client
	modelName    string
	embedModel   string
	temperature  float32
	maxRetries   int
	initialDelay time.Duration
	log          *zap.Logger
}

func NewGeminiService(ctx context.Context, opts GeminiOptions, log *zap.Logger) (GeminiService, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = "text-embedding-004"
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}

	return &geminiService{
		client:       client,
		modelName:    opts.Model,
		embedModel:   opts.EmbedModel,
		temperature:  opts.Temperature,
		maxRetries:   opts.MaxRetries,
		initialDelay: opts.InitialDelay,
		log:          logger.OrNop(log),
	}, nil
}

// Embed implements Embedder.
func (g *geminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}

	var values []float32
	err := withRetry(ctx, g.maxRetries, g.initialDelay, g.log, "embed", func(ctx context.Context) error {
		result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
		if err != nil {
			return fmt.Errorf("failed to generate embedding: %w", err)
		}
		if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
			return errors.New("empty embedding result")
		}
		values = result.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// Generate implements TextGenerator.
func (g *geminiService) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := withRetry(ctx, g.maxRetries, g.initialDelay, g.log, "generate", func(ctx context.Context) error {
		out, err := g.generateText(ctx, prompt, g.temperature)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	return text, err
}

// RecognizePerson implements EntityRecognizer.
func (g *geminiService) RecognizePerson(ctx context.Context, text string) (string, error) {
	sample := []rune(strings.TrimSpace(text))
	if len(sample) == 0 {
		return "", nil
	}
	if len(sample) > personSampleChars {
		sample = sample[:personSampleChars]
	}

	prompt := BuildPersonPrompt(string(sample))

	var resp string
	err := withRetry(ctx, g.maxRetries, g.initialDelay, g.log, "recognize person", func(ctx context.Context) error {
		out, err := g.generateText(ctx, prompt, 0)
		if err != nil {
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return "", err
	}

	return parsePersonResponse(resp)
}

func (g *geminiService) generateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", errors.New("no response generated (nil response)")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("no text content in response")
	}

	g.log.Debug("gemini response received",
		zap.String("model", g.modelName),
		zap.String("preview", logger.TruncateForLog(text, 200)),
	)

	return text, nil
}

type personResponse struct {
	Persons []string `json:"persons"`
}

func parsePersonResponse(raw string) (string, error) {
	obj, ok := extractFirstJSONObject(raw)
	if !ok {
		return "", errors.New("person response did not contain a JSON object")
	}

	var parsed personResponse
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal person response: %w", err)
	}

	for _, p := range parsed.Persons {
		if p = strings.TrimSpace(p); p != "" {
			return p, nil
		}
	}
	return "", nil
}

// withRetry runs fn up to attempts times, doubling the delay between attempts.
func withRetry(ctx context.Context, attempts int, delay time.Duration, log *zap.Logger, op string, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}
		if attempt == attempts {
			break
		}

		log.Warn("capability call failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		if delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
