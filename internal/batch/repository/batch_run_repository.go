package repository

import (
	"context"
	"database/sql"
	"time"

	"golang-stock-advisor/internal/entity"

	"gorm.io/gorm"
)

// BatchRunRepository creates and finalizes batch run records.
type BatchRunRepository interface {
	Create(ctx context.Context, targetCount int) (*entity.BatchRun, error)
	Finalize(ctx context.Context, run *entity.BatchRun, status string, successCount, errorCount int, message string) error
}

type batchRunRepository struct {
	db *gorm.DB
}

func NewBatchRunRepository(db *gorm.DB) BatchRunRepository {
	return &batchRunRepository{db: db}
}

func (r *batchRunRepository) Create(ctx context.Context, targetCount int) (*entity.BatchRun, error) {
	run := &entity.BatchRun{
		StartedAt:   time.Now(),
		Status:      entity.BatchRunStatusRunning,
		TargetCount: targetCount,
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *batchRunRepository) Finalize(ctx context.Context, run *entity.BatchRun, status string, successCount, errorCount int, message string) error {
	run.FinishedAt = sql.NullTime{Time: time.Now(), Valid: true}
	run.Status = status
	run.SuccessCount = successCount
	run.ErrorCount = errorCount
	run.Message = message
	return r.db.WithContext(ctx).Save(run).Error
}
