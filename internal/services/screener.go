package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
)

const (
	DefaultRetrievalQuery = "certifications or publications"
	MatchThreshold        = 50.0

	crossEncoderWeight = 0.3
	biEncoderWeight    = 0.6
	coverageWeight     = 0.1
)

type ScreenerService interface {
	Evaluate(ctx context.Context, job models.JobRequest, docs []models.InputDocument) (*models.ResultTable, error)
}

type ScreenerOptions struct {
	RetrievalQuery string
	Concurrency    int
}

type screenerService struct {
	ingestor  Ingestor
	extractor *Extractor
	scorer    *SimilarityScorer
	retrieval *RetrievalStore
	reasoner  *IntentReasoner
	opts      ScreenerOptions
	log       *zap.Logger
	now       func() time.Time
}

func NewScreenerService(
	ingestor Ingestor,
	extractor *Extractor,
	scorer *SimilarityScorer,
	retrieval *RetrievalStore,
	reasoner *IntentReasoner,
	opts ScreenerOptions,
	log *zap.Logger,
) ScreenerService {
	if opts.RetrievalQuery == "" {
		opts.RetrievalQuery = DefaultRetrievalQuery
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	return &screenerService{
		ingestor:  ingestor,
		extractor: extractor,
		scorer:    scorer,
		retrieval: retrieval,
		reasoner:  reasoner,
		opts:      opts,
		log:       logger.OrNop(log),
		now:       time.Now,
	}
}

// Evaluate implements ScreenerService. Unsupported documents are skipped, documents that
// fail to ingest get an error row, and a similarity scoring outage aborts the whole batch.
func (s *screenerService) Evaluate(ctx context.Context, job models.JobRequest, docs []models.InputDocument) (*models.ResultTable, error) {
	jdNorm := Normalize(job.JobDescription)

	supported := make([]models.InputDocument, 0, len(docs))
	for _, doc := range docs {
		if !s.ingestor.Supports(doc.Extension()) {
			s.log.Debug("skipping unsupported document", zap.String("file", doc.Name))
			continue
		}
		supported = append(supported, doc)
	}

	s.log.Info("screening started",
		zap.Int("documents", len(supported)),
		zap.Int("required_skills", len(job.RequiredSkills)),
		zap.Int("concurrency", s.opts.Concurrency),
	)

	rows := make([]models.ResultRow, len(supported))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, doc := range supported {
		g.Go(func() error {
			row, err := s.evaluateDocument(gctx, job, jdNorm, doc)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortRows(rows)

	s.log.Info("screening completed", zap.Int("rows", len(rows)))

	return &models.ResultTable{
		Rows:        rows,
		GeneratedAt: s.now(),
	}, nil
}

func (s *screenerService) evaluateDocument(ctx context.Context, job models.JobRequest, jdNorm string, doc models.InputDocument) (models.ResultRow, error) {
	if err := ctx.Err(); err != nil {
		return models.ResultRow{}, err
	}

	raw, err := s.ingestor.Ingest(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return models.ResultRow{}, ctx.Err()
		}
		s.log.Warn("document ingestion failed", zap.String("file", doc.Name), zap.Error(err))
		return s.errorRow(job, doc, err), nil
	}

	resume := models.ResumeDocument{
		FileName:       doc.Name,
		RawText:        raw,
		NormalizedText: Normalize(raw),
	}

	name := s.extractor.ExtractName(ctx, resume.RawText, doc.Name)
	skills := s.extractor.MatchSkills(resume.NormalizedText, job.RequiredSkills)
	entities := s.extractor.ExtractEntities(resume.RawText)

	scores, err := s.scorer.Score(ctx, resume, job.JobDescription, jdNorm)
	if err != nil {
		return models.ResultRow{}, fmt.Errorf("failed to score %s: %w", doc.Name, err)
	}

	ragContext, err := s.retrieval.ContextFor(ctx, doc.Name, resume.RawText, s.opts.RetrievalQuery)
	if err != nil {
		s.log.Warn("retrieval failed, continuing without context", zap.String("file", doc.Name), zap.Error(err))
		ragContext = ""
	}

	verdict := s.reasoner.Reason(ctx, IntentInput{
		Document:       doc.Name,
		JobDescription: job.JobDescription,
		FoundSkills:    skills.Matched,
		RequiredSkills: job.RequiredSkills,
		BiEncoder:      scores.BiEncoderPercent,
		CrossEncoder:   scores.CrossEncoderPercent,
		RAGContext:     ragContext,
	})

	final := FinalScore(scores.CrossEncoderPercent, scores.BiEncoderPercent, skills.Coverage)

	s.log.Info("document screened",
		zap.String("file", doc.Name),
		zap.Float64("final_score", final),
		zap.Bool("degraded", verdict.Degraded),
	)

	return models.ResultRow{
		Name:                  name,
		File:                  doc.Name,
		BiEncoderPercent:      roundTo(scores.BiEncoderPercent, 2),
		CrossEncoderPercent:   roundTo(scores.CrossEncoderPercent, 2),
		SkillsCoveragePercent: roundTo(skills.Coverage, 1),
		FinalScorePercent:     final,
		PredictedMatch:        PredictMatch(final),
		MatchedSkills:         skills.Matched,
		Entities:              entities,
		Verdict:               verdict,
	}, nil
}

func (s *screenerService) errorRow(job models.JobRequest, doc models.InputDocument, err error) models.ResultRow {
	return models.ResultRow{
		Name:           s.extractor.NameFromFile(doc.Name),
		File:           doc.Name,
		PredictedMatch: models.MatchNo,
		Verdict: models.IntentVerdict{
			Rules:          RuleFeatures(nil, job.RequiredSkills, 0, 0),
			Degraded:       true,
			DegradedReason: "document could not be ingested",
		},
		Error: err.Error(),
	}
}

// FinalScore fuses the three signals and rounds to two decimals.
func FinalScore(crossEncoder, biEncoder, coverage float64) float64 {
	return roundTo(crossEncoderWeight*crossEncoder+biEncoderWeight*biEncoder+coverageWeight*coverage, 2)
}

func PredictMatch(finalScore float64) string {
	if finalScore >= MatchThreshold {
		return models.MatchYes
	}
	return models.MatchNo
}

func matchRank(match string) int {
	if match == models.MatchYes {
		return 0
	}
	return 1
}

// SortRows orders YES before NO, then by cross-encoder and bi-encoder score descending,
// with the file name as a final tiebreak.
func SortRows(rows []models.ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if ra, rb := matchRank(a.PredictedMatch), matchRank(b.PredictedMatch); ra != rb {
			return ra < rb
		}
		if a.CrossEncoderPercent != b.CrossEncoderPercent {
			return a.CrossEncoderPercent > b.CrossEncoderPercent
		}
		if a.BiEncoderPercent != b.BiEncoderPercent {
			return a.BiEncoderPercent > b.BiEncoderPercent
		}
		return a.File < b.File
	})
}
