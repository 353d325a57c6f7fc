package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
)

const (
	keyRoleFit               = "Role_Fit"
	keyReasoning             = "Reasoning"
	keyRefinedCertifications = "Refined_Certifications"
	keyRecommendedSkills     = "Recommended_Skills_To_Add"
)

type ReasonerOptions struct {
	ContextLimit int
	Timeout      time.Duration
}

// IntentInput carries everything the reasoner needs for one resume.
type IntentInput struct {
	Document       string
	JobDescription string
	FoundSkills    []string
	RequiredSkills []string
	BiEncoder      float64
	CrossEncoder   float64
	RAGContext     string
}

type IntentReasoner struct {
	generator TextGenerator
	limiter   *CapabilityLimiter
	audit     AuditLog
	prompts   *PromptBuilder
	opts      ReasonerOptions
	log       *zap.Logger
}

func NewIntentReasoner(generator TextGenerator, limiter *CapabilityLimiter, audit AuditLog, opts ReasonerOptions, log *zap.Logger) *IntentReasoner {
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = 1500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if limiter == nil {
		limiter = NewCapabilityLimiter(1)
	}
	if audit == nil {
		audit = NewAuditLogFromLogger(nil)
	}

	return &IntentReasoner{
		generator: generator,
		limiter:   limiter,
		audit:     audit,
		prompts:   NewPromptBuilder(),
		opts:      opts,
		log:       logger.OrNop(log),
	}
}

// RuleFeatures computes the deterministic part of the verdict.
func RuleFeatures(found, required []string, bi, ce float64) models.RuleFeatures {
	requiredSet := make(map[string]struct{}, len(required))
	total := 0
	for _, r := range required {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := requiredSet[r]; ok {
			continue
		}
		total++
		requiredSet[r] = struct{}{}
	}

	overlapSet := make(map[string]struct{})
	for _, f := range found {
		f = strings.ToLower(strings.TrimSpace(f))
		if _, ok := requiredSet[f]; ok {
			overlapSet[f] = struct{}{}
		}
	}

	overlap := make([]string, 0, len(overlapSet))
	for s := range overlapSet {
		overlap = append(overlap, s)
	}
	sort.Strings(overlap)

	if total < 1 {
		total = 1
	}

	base := models.AssessmentWeak
	switch {
	case len(overlap) >= 4:
		base = models.AssessmentStrong
	case len(overlap) >= 2:
		base = models.AssessmentModerate
	}

	return models.RuleFeatures{
		MatchingSkills:      strings.Join(overlap, ", "),
		CoveragePercent:     roundTo(100*float64(len(overlap))/float64(total), 1),
		BaseAssessment:      base,
		BiEncoderPercent:    roundTo(bi, 2),
		CrossEncoderPercent: roundTo(ce, 2),
	}
}

// Reason always returns a verdict. When the generative stage fails or answers
// out of schema the verdict is rule-only and marked degraded.
func (r *IntentReasoner) Reason(ctx context.Context, in IntentInput) models.IntentVerdict {
	rules := RuleFeatures(in.FoundSkills, in.RequiredSkills, in.BiEncoder, in.CrossEncoder)

	payload := IntentPayload{
		JobDescription: in.JobDescription,
		RuleFeatures:   rules,
		RAGContext:     truncateRunes(in.RAGContext, r.opts.ContextLimit),
	}

	refinement, err := r.refine(ctx, in.Document, payload)
	if err != nil {
		r.log.Warn("intent refinement degraded", zap.String("file", in.Document), zap.Error(err))
		return models.IntentVerdict{
			Rules:          rules,
			Degraded:       true,
			DegradedReason: err.Error(),
		}
	}

	return models.IntentVerdict{Rules: rules, Refinement: refinement}
}

func (r *IntentReasoner) refine(ctx context.Context, document string, payload IntentPayload) (*models.Refinement, error) {
	if r.generator == nil {
		return nil, fmt.Errorf("%w: no text generator configured", ErrGenerativeRefinement)
	}

	prompt, err := r.prompts.BuildIntentPrompt(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerativeRefinement, err)
	}

	r.audit.Record(auditIntentRequest, document, payload)

	// The timeout starts once a limiter slot is held; queueing is not bounded by it.
	var raw string
	err = r.limiter.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()

		out, err := r.generator.Generate(callCtx, prompt)
		raw = out
		return err
	})
	if err != nil {
		r.audit.Record(auditIntentError, document, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrGenerativeRefinement, err)
	}

	r.audit.Record(auditIntentResponse, document, raw)
	r.log.Debug("intent response received",
		zap.String("file", document),
		zap.String("preview", logger.TruncateForLog(raw, 200)),
	)

	refinement, err := parseRefinement(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerativeRefinement, err)
	}
	return refinement, nil
}

// parseRefinement accepts only responses carrying all four keys with a yes/no role fit.
func parseRefinement(raw string) (*models.Refinement, error) {
	obj, ok := extractFirstJSONObject(raw)
	if !ok {
		return nil, errors.New("response contains no JSON object")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	for _, key := range []string{keyRoleFit, keyReasoning, keyRefinedCertifications, keyRecommendedSkills} {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("response is missing %s", key)
		}
	}

	roleFit, err := coerceRoleFit(fields[keyRoleFit])
	if err != nil {
		return nil, err
	}

	reasoning, err := coerceText(keyReasoning, fields[keyReasoning])
	if err != nil {
		return nil, err
	}
	certs, err := coerceText(keyRefinedCertifications, fields[keyRefinedCertifications])
	if err != nil {
		return nil, err
	}
	skills, err := coerceText(keyRecommendedSkills, fields[keyRecommendedSkills])
	if err != nil {
		return nil, err
	}

	return &models.Refinement{
		RoleFit:                roleFit,
		Reasoning:              reasoning,
		RefinedCertifications:  certs,
		RecommendedSkillsToAdd: skills,
	}, nil
}

func coerceRoleFit(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "yes", "true":
			return true, nil
		case "no", "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("invalid %s value %v", keyRoleFit, v)
}

// coerceText accepts a string or a list of strings, which is joined with commas.
func coerceText(key string, v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("invalid %s item %v", key, item)
			}
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), nil
	}
	return "", fmt.Errorf("invalid %s value %v", key, v)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if limit < 0 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
