package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
)

const resultFileName = "hybrid_results.csv"

type EvaluatorService interface {
	EvaluateRun(ctx context.Context, runID uuid.UUID) error
}

type EvaluatorOptions struct {
	OutputDir string
	WriteXLSX bool
}

type evaluatorService struct {
	runRepo  repositories.RunRepository
	storage  StorageService
	screener ScreenerService
	exporter *Exporter
	opts     EvaluatorOptions
	log      *zap.Logger
}

func NewEvaluatorService(
	runRepo repositories.RunRepository,
	storage StorageService,
	screener ScreenerService,
	exporter *Exporter,
	opts EvaluatorOptions,
	log *zap.Logger,
) EvaluatorService {
	if opts.OutputDir == "" {
		opts.OutputDir = "outputs"
	}
	return &evaluatorService{
		runRepo:  runRepo,
		storage:  storage,
		screener: screener,
		exporter: exporter,
		opts:     opts,
		log:      logger.OrNop(log),
	}
}

// ResultPath is where the CSV of a run is written.
func ResultPath(outputDir string, runID uuid.UUID) string {
	return filepath.Join(outputDir, runID.String(), resultFileName)
}

// WorkbookPath is the workbook written next to a CSV result file.
func WorkbookPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".xlsx"
}

// EvaluateRun implements EvaluatorService.
func (e *evaluatorService) EvaluateRun(ctx context.Context, runID uuid.UUID) error {
	if err := e.runRepo.UpdateStatus(runID, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	log := e.log.With(zap.String("run_id", runID.String()))
	log.Info("screening run started")

	run, err := e.runRepo.FindByID(runID)
	if err != nil {
		return e.fail(runID, fmt.Errorf("failed to get screening run: %w", err))
	}

	var docs []models.InputDocument
	if run.UploadDir != "" {
		docs, err = LoadDocumentsFromDir(run.UploadDir)
	} else {
		docs, err = e.storage.LoadRunDocuments(runID)
	}
	if err != nil {
		return e.fail(runID, fmt.Errorf("failed to load resumes: %w", err))
	}
	if len(docs) == 0 {
		return e.fail(runID, errors.New("no resumes uploaded for run"))
	}

	job := models.NewJobRequest(run.JobDescription, models.ParseSkillList(run.RequiredSkills))

	table, err := e.screener.Evaluate(ctx, job, docs)
	if err != nil {
		return e.fail(runID, fmt.Errorf("failed to screen resumes: %w", err))
	}

	path := ResultPath(e.opts.OutputDir, runID)
	if err := e.exporter.WriteCSV(path, table); err != nil {
		return e.fail(runID, err)
	}
	if e.opts.WriteXLSX {
		if err := e.exporter.WriteXLSX(WorkbookPath(path), job, table); err != nil {
			log.Warn("workbook export failed", zap.Error(err))
		}
	}

	records := make([]models.ResultRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		records = append(records, models.NewResultRecord(runID, i+1, row))
	}

	if err := e.runRepo.Complete(runID, path, records); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	log.Info("screening run completed", zap.Int("rows", len(records)), zap.String("path", path))
	return nil
}

func (e *evaluatorService) fail(runID uuid.UUID, err error) error {
	if updateErr := e.runRepo.UpdateError(runID, err.Error()); updateErr != nil {
		e.log.Error("failed to record run error", zap.String("run_id", runID.String()), zap.Error(updateErr))
	}
	return err
}
