package repository

import (
	"context"

	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/pkg/common"

	"gorm.io/gorm"
)

// IntradayPositionRepository stores the advisory positions. Only the entry
// job creates rows and only the exit job closes them.
type IntradayPositionRepository interface {
	Create(ctx context.Context, position *entity.IntradayPosition) error
	GetOpen(ctx context.Context) ([]entity.IntradayPosition, error)
	HasOpenForCode(ctx context.Context, code string) (bool, error)
	CountOpenedOn(ctx context.Context, entryDate string) (int64, error)
	Update(ctx context.Context, position *entity.IntradayPosition) error
}

type intradayPositionRepository struct {
	db *gorm.DB
}

func NewIntradayPositionRepository(db *gorm.DB) IntradayPositionRepository {
	return &intradayPositionRepository{db: db}
}

func (r *intradayPositionRepository) Create(ctx context.Context, position *entity.IntradayPosition) error {
	return r.db.WithContext(ctx).Create(position).Error
}

func (r *intradayPositionRepository) GetOpen(ctx context.Context) ([]entity.IntradayPosition, error) {
	var positions []entity.IntradayPosition
	err := r.db.WithContext(ctx).
		Where("state = ?", common.PositionStateOpen).
		Order("entry_ts ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *intradayPositionRepository) HasOpenForCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.IntradayPosition{}).
		Where("code = ? AND state = ?", code, common.PositionStateOpen).
		Count(&count).Error
	return count > 0, err
}

func (r *intradayPositionRepository) CountOpenedOn(ctx context.Context, entryDate string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.IntradayPosition{}).
		Where("entry_date = ?", entryDate).
		Count(&count).Error
	return count, err
}

func (r *intradayPositionRepository) Update(ctx context.Context, position *entity.IntradayPosition) error {
	return r.db.WithContext(ctx).Save(position).Error
}
