package repository

import (
	"context"
	"errors"
	"time"

	"golang-stock-advisor/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatermarkRepository tracks the newest ingested item per (code, feed).
type WatermarkRepository interface {
	Get(ctx context.Context, code, feed string) (*entity.Watermark, error)
	Advance(ctx context.Context, code, feed string, publishedAt time.Time) error
}

type watermarkRepository struct {
	db *gorm.DB
}

func NewWatermarkRepository(db *gorm.DB) WatermarkRepository {
	return &watermarkRepository{db: db}
}

func (r *watermarkRepository) Get(ctx context.Context, code, feed string) (*entity.Watermark, error) {
	var row entity.Watermark
	err := r.db.WithContext(ctx).Where("code = ? AND feed = ?", code, feed).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Advance upserts the watermark but never moves it backward.
func (r *watermarkRepository) Advance(ctx context.Context, code, feed string, publishedAt time.Time) error {
	row := entity.Watermark{
		Code:            code,
		Feed:            feed,
		LastPublishedAt: publishedAt,
		LastIngestedAt:  time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}, {Name: "feed"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_published_at": gorm.Expr("GREATEST(watermarks.last_published_at, EXCLUDED.last_published_at)"),
			"last_ingested_at":  row.LastIngestedAt,
		}),
	}).Create(&row).Error
}
