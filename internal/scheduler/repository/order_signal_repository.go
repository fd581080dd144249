package repository

import (
	"context"

	"golang-stock-advisor/internal/entity"

	"gorm.io/gorm"
)

// OrderSignalRepository appends advisory order records. Rows are never
// updated or deleted.
type OrderSignalRepository interface {
	Create(ctx context.Context, signal *entity.OrderSignal) error
}

type orderSignalRepository struct {
	db *gorm.DB
}

func NewOrderSignalRepository(db *gorm.DB) OrderSignalRepository {
	return &orderSignalRepository{db: db}
}

func (r *orderSignalRepository) Create(ctx context.Context, signal *entity.OrderSignal) error {
	return r.db.WithContext(ctx).Create(signal).Error
}
