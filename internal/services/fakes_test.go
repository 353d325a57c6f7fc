package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"sync"
	"time"

	"alfredoptarigan/resume-screener/internal/models"
)

type fakeRecognizer struct {
	person string
	err    error
}

func (f fakeRecognizer) RecognizePerson(context.Context, string) (string, error) {
	return f.person, f.err
}

// hashEmbedder produces a deterministic bag-of-words vector so that texts sharing
// words land close together.
type hashEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()

	if h.err != nil {
		return nil, h.err
	}

	vec := make([]float32, 16)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(word))
		vec[int(sum[0])%len(vec)]++
	}
	return vec, nil
}

func (h *hashEmbedder) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return nil, errors.New("no vector for text")
}

type fakeReranker struct {
	logit float64
	err   error
	byDoc map[string]float64
}

func (f fakeReranker) Rerank(_ context.Context, _ string, text string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	for marker, logit := range f.byDoc {
		if strings.Contains(text, marker) {
			return logit, nil
		}
	}
	return f.logit, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
	block    chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.response, f.err
}

func (f *fakeGenerator) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

type auditEntry struct {
	event    string
	document string
	payload  any
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (m *memoryAudit) Record(event, document string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{event: event, document: document, payload: payload})
}

func (m *memoryAudit) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.event)
	}
	return out
}

// textIngestor treats every document as UTF-8 text and fails on names containing "broken".
type textIngestor struct{}

func (textIngestor) Supports(ext string) bool {
	switch ext {
	case ".pdf", ".docx", ".txt":
		return true
	}
	return false
}

func (textIngestor) Ingest(_ context.Context, doc models.InputDocument) (string, error) {
	if strings.Contains(doc.Name, "broken") {
		return "", errors.New("corrupt file")
	}
	return string(doc.Content), nil
}

// slowGenerator takes delay to answer and gives up when ctx ends first.
type slowGenerator struct {
	delay    time.Duration
	response string
}

func (s slowGenerator) Generate(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(s.delay):
		return s.response, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// blockingRecognizer never answers before ctx ends.
type blockingRecognizer struct{}

func (blockingRecognizer) RecognizePerson(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
