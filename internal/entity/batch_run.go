package entity

import (
	"database/sql"
	"time"
)

const (
	BatchRunStatusRunning = "running"
	BatchRunStatusSuccess = "success"
	BatchRunStatusError   = "error"
)

// BatchRun records one ingestion batch. A row is created when the batch
// starts and finalized exactly once when it ends.
type BatchRun struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	StartedAt    time.Time    `gorm:"not null" json:"started_at"`
	FinishedAt   sql.NullTime `json:"finished_at"`
	Status       string       `gorm:"not null" json:"status"`
	TargetCount  int          `gorm:"not null" json:"target_count"`
	SuccessCount int          `gorm:"not null" json:"success_count"`
	ErrorCount   int          `gorm:"not null" json:"error_count"`
	Message      string       `json:"message"`
}

func (BatchRun) TableName() string {
	return "batch_runs"
}
