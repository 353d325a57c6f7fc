package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-screener/internal/models"
)

var ErrRunNotFound = errors.New("screening run not found")

type RunRepository interface {
	Create(run *models.ScreeningRun) error
	FindByID(id uuid.UUID) (*models.ScreeningRun, error)
	FindResults(id uuid.UUID) ([]models.ResultRecord, error)
	UpdateStatus(id uuid.UUID, status models.RunStatus) error
	Complete(id uuid.UUID, resultPath string, results []models.ResultRecord) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindPendingRuns(limit int) ([]models.ScreeningRun, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

// Create implements RunRepository.
func (r *runRepository) Create(run *models.ScreeningRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create screening run: %w", err)
	}
	return nil
}

// FindByID implements RunRepository.
func (r *runRepository) FindByID(id uuid.UUID) (*models.ScreeningRun, error) {
	var run models.ScreeningRun
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to find screening run: %w", err)
	}
	return &run, nil
}

// FindResults implements RunRepository.
func (r *runRepository) FindResults(id uuid.UUID) ([]models.ResultRecord, error) {
	var results []models.ResultRecord
	if err := r.db.Where("run_id = ?", id).Order("rank ASC").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to find results: %w", err)
	}
	return results, nil
}

// UpdateStatus implements RunRepository.
func (r *runRepository) UpdateStatus(id uuid.UUID, status models.RunStatus) error {
	return r.update(id, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
}

// Complete implements RunRepository. Previous results of the run are replaced.
func (r *runRepository) Complete(id uuid.UUID, resultPath string, results []models.ResultRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&models.ResultRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous results: %w", err)
		}

		if len(results) > 0 {
			if err := tx.CreateInBatches(results, 100).Error; err != nil {
				return fmt.Errorf("failed to store results: %w", err)
			}
		}

		result := tx.Model(&models.ScreeningRun{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":         models.StatusCompleted,
				"result_path":    resultPath,
				"document_count": len(results),
				"updated_at":     time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to complete screening run: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRunNotFound
		}
		return nil
	})
}

// UpdateError implements RunRepository.
func (r *runRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	return r.update(id, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": errorMsg,
		"updated_at":    time.Now(),
	})
}

// FindPendingRuns implements RunRepository.
func (r *runRepository) FindPendingRuns(limit int) ([]models.ScreeningRun, error) {
	var runs []models.ScreeningRun
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending runs: %w", err)
	}
	return runs, nil
}

func (r *runRepository) update(id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.Model(&models.ScreeningRun{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update screening run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}
