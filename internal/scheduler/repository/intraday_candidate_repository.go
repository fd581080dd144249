package repository

import (
	"context"

	"golang-stock-advisor/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IntradayCandidateRepository stores the per-day gap-up candidates.
type IntradayCandidateRepository interface {
	Upsert(ctx context.Context, candidate *entity.IntradayCandidate) error
	GetByStatus(ctx context.Context, tradeDate string, statuses ...string) ([]entity.IntradayCandidate, error)
	Update(ctx context.Context, candidate *entity.IntradayCandidate) error
}

type intradayCandidateRepository struct {
	db *gorm.DB
}

func NewIntradayCandidateRepository(db *gorm.DB) IntradayCandidateRepository {
	return &intradayCandidateRepository{db: db}
}

// Upsert replaces the whole candidate row for (trade_date, code), clearing
// any prior rejection for the day.
func (r *intradayCandidateRepository) Upsert(ctx context.Context, candidate *entity.IntradayCandidate) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trade_date"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gap_up_rate", "prev_close", "day_open", "day_high", "latest_price",
			"volume_ratio", "high_distance", "status", "reject_reason", "updated_at",
		}),
	}).Create(candidate).Error
}

func (r *intradayCandidateRepository) GetByStatus(ctx context.Context, tradeDate string, statuses ...string) ([]entity.IntradayCandidate, error) {
	var candidates []entity.IntradayCandidate
	err := r.db.WithContext(ctx).
		Where("trade_date = ? AND status IN ?", tradeDate, statuses).
		Order("gap_up_rate DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *intradayCandidateRepository) Update(ctx context.Context, candidate *entity.IntradayCandidate) error {
	return r.db.WithContext(ctx).Save(candidate).Error
}
