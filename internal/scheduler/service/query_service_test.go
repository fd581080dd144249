package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/internal/scheduler/dto"
	"golang-stock-advisor/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueryRepo struct {
	run       *entity.BatchRun
	counts    []dto.SignalCount
	judgments []entity.Judgment
	news      []entity.News
}

func (f *fakeQueryRepo) LatestBatchRun(_ context.Context) (*entity.BatchRun, error) {
	return f.run, nil
}

func (f *fakeQueryRepo) SignalCounts(_ context.Context, _ uint) ([]dto.SignalCount, error) {
	return f.counts, nil
}

func (f *fakeQueryRepo) Candidates(_ context.Context, _ uint, _ dto.CandidateFilter) ([]dto.CandidateResponse, error) {
	return nil, nil
}

func (f *fakeQueryRepo) JudgmentsForStock(_ context.Context, _ uint, _ string) ([]entity.Judgment, error) {
	return f.judgments, nil
}

func (f *fakeQueryRepo) RecentQuotes(_ context.Context, _ string, _ int) ([]entity.DailyQuote, error) {
	return nil, nil
}

func (f *fakeQueryRepo) RecentNews(_ context.Context, _ string, _ int) ([]entity.News, error) {
	return f.news, nil
}

func TestSignalSummaryZeroFillsTheGrid(t *testing.T) {
	repo := &fakeQueryRepo{counts: []dto.SignalCount{
		{Strategy: common.StrategySwing, Signal: common.SignalBuy, Count: 4},
		{Strategy: common.StrategyDividend, Signal: common.SignalHold, Count: 2},
	}}
	svc := NewQueryService(repo)

	grid, err := svc.SignalSummary(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, grid, len(common.Strategies)*len(common.Signals))

	byKey := map[string]int64{}
	for _, cell := range grid {
		byKey[cell.Strategy+"/"+cell.Signal] = cell.Count
	}
	assert.Equal(t, int64(4), byKey[common.StrategySwing+"/"+common.SignalBuy])
	assert.Equal(t, int64(2), byKey[common.StrategyDividend+"/"+common.SignalHold])
	assert.Equal(t, int64(0), byKey[common.StrategyFundamental+"/"+common.SignalSell])
}

func TestStockJudgmentsErrorsWhenEmpty(t *testing.T) {
	svc := NewQueryService(&fakeQueryRepo{})

	_, err := svc.StockJudgments(context.Background(), 7, "7203")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no judgments for 7203 in run 7")
}

func TestStockJudgmentsUnmarshalsRuleDetails(t *testing.T) {
	repo := &fakeQueryRepo{judgments: []entity.Judgment{{
		Strategy:  common.StrategySwing,
		Signal:    common.SignalBuy,
		Score:     0.8,
		AsOf:      "2025-08-01",
		TopReason: "breakout",
		RulesJSON: []byte(`[{"name":"trend","passed":true}]`),
	}}}
	svc := NewQueryService(repo)

	judgments, err := svc.StockJudgments(context.Background(), 1, "7203")
	require.NoError(t, err)
	require.Len(t, judgments, 1)
	assert.Equal(t, common.SignalBuy, judgments[0].Signal)
	rules, ok := judgments[0].Rules.([]any)
	require.True(t, ok)
	assert.Len(t, rules, 1)
}

func TestRecentNewsAssignsSentimentTone(t *testing.T) {
	now := time.Now()
	repo := &fakeQueryRepo{news: []entity.News{
		{Title: "upgrade", URL: "https://example.com/1", PublishedAt: now, SentimentScore: 0.4},
		{Title: "recall", URL: "https://example.com/2", PublishedAt: now, SentimentScore: -0.3},
		{Title: "steady", URL: "https://example.com/3", PublishedAt: now, SentimentScore: 0.1},
		{Title: "edge", URL: "https://example.com/4", PublishedAt: now, SentimentScore: 0.15},
	}}
	svc := NewQueryService(repo)

	news, err := svc.RecentNews(context.Background(), "7203", 7)
	require.NoError(t, err)
	require.Len(t, news, 4)
	assert.Equal(t, "positive", news[0].Tone)
	assert.Equal(t, "negative", news[1].Tone)
	assert.Equal(t, "neutral", news[2].Tone)
	assert.Equal(t, "positive", news[3].Tone)
}

func TestLatestBatchRunMapsFinishedAt(t *testing.T) {
	finished := time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC)
	repo := &fakeQueryRepo{run: &entity.BatchRun{
		ID:           9,
		Status:       entity.BatchRunStatusSuccess,
		StartedAt:    finished.Add(-10 * time.Minute),
		FinishedAt:   sql.NullTime{Time: finished, Valid: true},
		TargetCount:  3,
		SuccessCount: 3,
	}}
	svc := NewQueryService(repo)

	run, err := svc.LatestBatchRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, uint(9), run.ID)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, finished, *run.FinishedAt)
	assert.Equal(t, entity.BatchRunStatusSuccess, run.Status)
}
