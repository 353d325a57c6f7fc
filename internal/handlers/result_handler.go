package handlers

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

type ResultHandler struct {
	runRepo repositories.RunRepository
}

func NewResultHandler(runRepo repositories.RunRepository) *ResultHandler {
	return &ResultHandler{
		runRepo: runRepo,
	}
}

// HandleGetResult handles GET /result/:id
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	run, status, msg := h.findRun(c)
	if run == nil {
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	response := models.ResultResponse{
		ID:     run.ID.String(),
		Status: string(run.Status),
	}

	if run.Status == models.StatusCompleted {
		results, err := h.runRepo.FindResults(run.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load results",
			})
		}
		response.Results = results
	}

	if run.Status == models.StatusFailed && run.ErrorMessage != nil {
		response.ErrorMessage = run.ErrorMessage
	}

	return c.JSON(response)
}

// HandleDownload handles GET /result/:id/download. ?format=xlsx returns the workbook
// when one was written for the run.
func (h *ResultHandler) HandleDownload(c *fiber.Ctx) error {
	run, status, msg := h.findRun(c)
	if run == nil {
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	if run.Status != models.StatusCompleted || run.ResultPath == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  "screening run has no result file yet",
			"status": run.Status,
		})
	}

	path := *run.ResultPath
	if c.Query("format") == "xlsx" {
		path = services.WorkbookPath(path)
	}

	if _, err := os.Stat(path); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "result file not found",
		})
	}

	return c.Download(path, filepath.Base(path))
}

func (h *ResultHandler) findRun(c *fiber.Ctx) (*models.ScreeningRun, int, string) {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.StatusBadRequest, "invalid run ID format"
	}

	run, err := h.runRepo.FindByID(runID)
	if err != nil {
		if errors.Is(err, repositories.ErrRunNotFound) {
			return nil, fiber.StatusNotFound, "screening run not found"
		}
		return nil, fiber.StatusInternalServerError, "failed to load screening run"
	}

	return run, 0, ""
}
