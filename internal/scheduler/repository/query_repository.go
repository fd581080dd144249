package repository

import (
	"context"
	"errors"
	"time"

	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/internal/scheduler/dto"
	"golang-stock-advisor/pkg/common"

	"gorm.io/gorm"
)

// QueryRepository serves the read-only projections consumed by dashboards
// and external callers. It never mutates rows.
type QueryRepository interface {
	LatestBatchRun(ctx context.Context) (*entity.BatchRun, error)
	SignalCounts(ctx context.Context, batchRunID uint) ([]dto.SignalCount, error)
	Candidates(ctx context.Context, batchRunID uint, filter dto.CandidateFilter) ([]dto.CandidateResponse, error)
	JudgmentsForStock(ctx context.Context, batchRunID uint, code string) ([]entity.Judgment, error)
	RecentQuotes(ctx context.Context, code string, limit int) ([]entity.DailyQuote, error)
	RecentNews(ctx context.Context, code string, windowDays int) ([]entity.News, error)
}

type queryRepository struct {
	db *gorm.DB
}

func NewQueryRepository(db *gorm.DB) QueryRepository {
	return &queryRepository{db: db}
}

func (r *queryRepository) LatestBatchRun(ctx context.Context) (*entity.BatchRun, error) {
	var run entity.BatchRun
	err := r.db.WithContext(ctx).Order("id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *queryRepository) SignalCounts(ctx context.Context, batchRunID uint) ([]dto.SignalCount, error) {
	var counts []dto.SignalCount
	err := r.db.WithContext(ctx).
		Model(&entity.Judgment{}).
		Select("strategy, signal, COUNT(*) AS count").
		Where("batch_run_id = ?", batchRunID).
		Group("strategy, signal").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *queryRepository) Candidates(ctx context.Context, batchRunID uint, filter dto.CandidateFilter) ([]dto.CandidateResponse, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Judgment{}).
		Select("judgments.code, stocks.name, judgments.strategy, judgments.signal, judgments.score, judgments.price, judgments.as_of, judgments.top_reason").
		Joins("LEFT JOIN stocks ON stocks.code = judgments.code").
		Where("judgments.batch_run_id = ?", batchRunID)

	if filter.Strategy != "" {
		query = query.Where("judgments.strategy = ?", filter.Strategy)
	}
	if filter.Signal != "" {
		query = query.Where("judgments.signal = ?", filter.Signal)
	}
	if filter.MinPrice != nil {
		query = query.Where("judgments.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("judgments.price <= ?", *filter.MaxPrice)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var candidates []dto.CandidateResponse
	if err := query.Order("judgments.score DESC").Scan(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *queryRepository) JudgmentsForStock(ctx context.Context, batchRunID uint, code string) ([]entity.Judgment, error) {
	var judgments []entity.Judgment
	err := r.db.WithContext(ctx).
		Where("batch_run_id = ? AND code = ?", batchRunID, code).
		Find(&judgments).Error
	if err != nil {
		return nil, err
	}

	// Fixed display order, not alphabetical.
	ordered := make([]entity.Judgment, 0, len(judgments))
	for _, strategy := range common.Strategies {
		for _, j := range judgments {
			if j.Strategy == strategy {
				ordered = append(ordered, j)
			}
		}
	}
	return ordered, nil
}

// RecentQuotes returns the newest rows, reordered oldest-first for charting.
func (r *queryRepository) RecentQuotes(ctx context.Context, code string, limit int) ([]entity.DailyQuote, error) {
	var quotes []entity.DailyQuote
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Order("date DESC").
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(quotes)-1; i < j; i, j = i+1, j-1 {
		quotes[i], quotes[j] = quotes[j], quotes[i]
	}
	return quotes, nil
}

func (r *queryRepository) RecentNews(ctx context.Context, code string, windowDays int) ([]entity.News, error) {
	since := time.Now().AddDate(0, 0, -windowDays)
	var news []entity.News
	err := r.db.WithContext(ctx).
		Where("code = ? AND published_at >= ?", code, since).
		Order("published_at DESC").
		Find(&news).Error
	if err != nil {
		return nil, err
	}
	return news, nil
}
