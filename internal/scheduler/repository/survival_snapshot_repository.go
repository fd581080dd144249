package repository

import (
	"context"
	"errors"

	"golang-stock-advisor/internal/entity"

	"gorm.io/gorm"
)

// SurvivalSnapshotRepository stores the append-only survival observations.
type SurvivalSnapshotRepository interface {
	Create(ctx context.Context, snapshot *entity.SurvivalSnapshot) error
	GetLast(ctx context.Context, tradeDate, code string) (*entity.SurvivalSnapshot, error)
	GetFirst(ctx context.Context, tradeDate, code string) (*entity.SurvivalSnapshot, error)
}

type survivalSnapshotRepository struct {
	db *gorm.DB
}

func NewSurvivalSnapshotRepository(db *gorm.DB) SurvivalSnapshotRepository {
	return &survivalSnapshotRepository{db: db}
}

func (r *survivalSnapshotRepository) Create(ctx context.Context, snapshot *entity.SurvivalSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *survivalSnapshotRepository) GetLast(ctx context.Context, tradeDate, code string) (*entity.SurvivalSnapshot, error) {
	return r.getOrdered(ctx, tradeDate, code, "ts DESC")
}

func (r *survivalSnapshotRepository) GetFirst(ctx context.Context, tradeDate, code string) (*entity.SurvivalSnapshot, error) {
	return r.getOrdered(ctx, tradeDate, code, "ts ASC")
}

func (r *survivalSnapshotRepository) getOrdered(ctx context.Context, tradeDate, code, order string) (*entity.SurvivalSnapshot, error) {
	var snapshot entity.SurvivalSnapshot
	err := r.db.WithContext(ctx).
		Where("trade_date = ? AND code = ?", tradeDate, code).
		Order(order).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
