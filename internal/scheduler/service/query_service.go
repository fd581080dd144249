package service

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-stock-advisor/internal/scheduler/dto"
	"golang-stock-advisor/internal/scheduler/repository"
	"golang-stock-advisor/pkg/common"
)

// Sentiment tone cutoffs.
const (
	tonePositiveCutoff = 0.15
	toneNegativeCutoff = -0.15
)

// QueryService projects stored rows for dashboards and external callers.
type QueryService interface {
	LatestBatchRun(ctx context.Context) (*dto.BatchRunResponse, error)
	SignalSummary(ctx context.Context, batchRunID uint) ([]dto.SignalCount, error)
	Candidates(ctx context.Context, batchRunID uint, filter dto.CandidateFilter) ([]dto.CandidateResponse, error)
	StockJudgments(ctx context.Context, batchRunID uint, code string) ([]dto.JudgmentResponse, error)
	RecentQuotes(ctx context.Context, code string, limit int) ([]dto.QuoteResponse, error)
	RecentNews(ctx context.Context, code string, windowDays int) ([]dto.NewsResponse, error)
}

type queryService struct {
	queryRepo repository.QueryRepository
}

// NewQueryService creates the read-side service.
func NewQueryService(queryRepo repository.QueryRepository) QueryService {
	return &queryService{queryRepo: queryRepo}
}

func (s *queryService) LatestBatchRun(ctx context.Context) (*dto.BatchRunResponse, error) {
	run, err := s.queryRepo.LatestBatchRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}

	resp := &dto.BatchRunResponse{
		ID:           run.ID,
		Status:       run.Status,
		StartedAt:    run.StartedAt,
		TargetCount:  run.TargetCount,
		SuccessCount: run.SuccessCount,
		ErrorCount:   run.ErrorCount,
		Message:      run.Message,
	}
	if run.FinishedAt.Valid {
		finished := run.FinishedAt.Time
		resp.FinishedAt = &finished
	}
	return resp, nil
}

// SignalSummary returns the full strategy×signal grid, zero-filled so every
// combination appears even when no judgment matched it.
func (s *queryService) SignalSummary(ctx context.Context, batchRunID uint) ([]dto.SignalCount, error) {
	counts, err := s.queryRepo.SignalCounts(ctx, batchRunID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]int64, len(counts))
	for _, c := range counts {
		byKey[c.Strategy+"/"+c.Signal] = c.Count
	}

	grid := make([]dto.SignalCount, 0, len(common.Strategies)*len(common.Signals))
	for _, strategy := range common.Strategies {
		for _, signal := range common.Signals {
			grid = append(grid, dto.SignalCount{
				Strategy: strategy,
				Signal:   signal,
				Count:    byKey[strategy+"/"+signal],
			})
		}
	}
	return grid, nil
}

func (s *queryService) Candidates(ctx context.Context, batchRunID uint, filter dto.CandidateFilter) ([]dto.CandidateResponse, error) {
	return s.queryRepo.Candidates(ctx, batchRunID, filter)
}

func (s *queryService) StockJudgments(ctx context.Context, batchRunID uint, code string) ([]dto.JudgmentResponse, error) {
	judgments, err := s.queryRepo.JudgmentsForStock(ctx, batchRunID, code)
	if err != nil {
		return nil, err
	}
	if len(judgments) == 0 {
		return nil, fmt.Errorf("no judgments for %s in run %d", code, batchRunID)
	}

	responses := make([]dto.JudgmentResponse, 0, len(judgments))
	for _, j := range judgments {
		var rules any
		if len(j.RulesJSON) > 0 {
			_ = json.Unmarshal(j.RulesJSON, &rules)
		}
		responses = append(responses, dto.JudgmentResponse{
			Strategy:  j.Strategy,
			Signal:    j.Signal,
			Score:     j.Score,
			Price:     j.Price,
			AsOf:      j.AsOf,
			TopReason: j.TopReason,
			Rules:     rules,
		})
	}
	return responses, nil
}

func (s *queryService) RecentQuotes(ctx context.Context, code string, limit int) ([]dto.QuoteResponse, error) {
	quotes, err := s.queryRepo.RecentQuotes(ctx, code, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		responses = append(responses, dto.QuoteResponse{
			Date:          q.Date,
			Open:          q.Open,
			High:          q.High,
			Low:           q.Low,
			Close:         q.Close,
			Volume:        q.Volume,
			TurnoverValue: q.TurnoverValue,
		})
	}
	return responses, nil
}

func (s *queryService) RecentNews(ctx context.Context, code string, windowDays int) ([]dto.NewsResponse, error) {
	news, err := s.queryRepo.RecentNews(ctx, code, windowDays)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.NewsResponse, 0, len(news))
	for _, item := range news {
		responses = append(responses, dto.NewsResponse{
			Title:          item.Title,
			URL:            item.URL,
			Summary:        item.Summary,
			PublishedAt:    item.PublishedAt,
			SentimentScore: item.SentimentScore,
			Tone:           sentimentTone(item.SentimentScore),
		})
	}
	return responses, nil
}

func sentimentTone(score float64) string {
	switch {
	case score >= tonePositiveCutoff:
		return "positive"
	case score <= toneNegativeCutoff:
		return "negative"
	default:
		return "neutral"
	}
}
