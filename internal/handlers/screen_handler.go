package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

type ScreenHandler struct {
	runRepo        repositories.RunRepository
	storageService services.StorageService
	worker         services.Worker
	maxFileSize    int64
	log            *zap.Logger
}

func NewScreenHandler(
	runRepo repositories.RunRepository,
	storageService services.StorageService,
	worker services.Worker,
	maxFileSize int64,
	log *zap.Logger,
) *ScreenHandler {
	return &ScreenHandler{
		runRepo:        runRepo,
		storageService: storageService,
		worker:         worker,
		maxFileSize:    maxFileSize,
		log:            logger.OrNop(log),
	}
}

// HandleScreen handles POST /screen. The resumes are stored under a new run and the
// run is queued; the response carries the run ID to poll.
func (h *ScreenHandler) HandleScreen(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	jobDescription := strings.TrimSpace(firstValue(form.Value["job_description"]))
	if jobDescription == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_description is required",
		})
	}
	requiredSkills := firstValue(form.Value["required_skills"])

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "at least one resume must be uploaded as 'files'",
		})
	}

	for _, f := range files {
		if h.maxFileSize > 0 && f.Size > h.maxFileSize {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("%s is too large. Max size: %d bytes", f.Filename, h.maxFileSize),
			})
		}
	}

	runID := uuid.New()
	for _, f := range files {
		if _, err := h.storageService.SaveRunFile(runID, f); err != nil {
			h.cleanup(runID)
			if errors.Is(err, services.ErrUnsupportedDocument) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": fmt.Sprintf("unsupported file %s. Allowed: %s", f.Filename, strings.Join(services.SupportedExtensions, ", ")),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fmt.Sprintf("failed to save %s: %v", f.Filename, err),
			})
		}
	}

	run := &models.ScreeningRun{
		ID:             runID,
		JobDescription: jobDescription,
		RequiredSkills: requiredSkills,
		UploadDir:      h.storageService.RunDir(runID),
		Status:         models.StatusQueued,
		DocumentCount:  len(files),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := h.runRepo.Create(run); err != nil {
		h.cleanup(runID)
		h.log.Error("failed to create screening run", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create screening run",
		})
	}

	h.worker.EnqueueJob(run.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.ScreenResponse{
		ID:            run.ID.String(),
		Status:        string(models.StatusQueued),
		DocumentCount: run.DocumentCount,
	})
}

func (h *ScreenHandler) cleanup(runID uuid.UUID) {
	if err := h.storageService.DeleteRun(runID); err != nil {
		h.log.Warn("failed to remove run uploads", zap.String("run_id", runID.String()), zap.Error(err))
	}
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
