package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/internal/scheduler/config"
	"golang-stock-advisor/internal/scheduler/dto"
	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarketRepo struct {
	snapshots  map[string]*dto.IntradaySnapshot
	lastPrices map[string]float64
}

func (f *fakeMarketRepo) GetIntradaySnapshot(_ context.Context, code string) (*dto.IntradaySnapshot, error) {
	snapshot, ok := f.snapshots[code]
	if !ok {
		return nil, errors.New("no snapshot")
	}
	return snapshot, nil
}

func (f *fakeMarketRepo) GetLastPrice(_ context.Context, code string) (float64, error) {
	price, ok := f.lastPrices[code]
	if !ok {
		return 0, errors.New("no price")
	}
	return price, nil
}

type fakeCandidateRepo struct {
	candidates map[string]*entity.IntradayCandidate
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{candidates: make(map[string]*entity.IntradayCandidate)}
}

func (f *fakeCandidateRepo) Upsert(_ context.Context, candidate *entity.IntradayCandidate) error {
	clone := *candidate
	f.candidates[candidate.Code] = &clone
	return nil
}

func (f *fakeCandidateRepo) GetByStatus(_ context.Context, tradeDate string, statuses ...string) ([]entity.IntradayCandidate, error) {
	var out []entity.IntradayCandidate
	for _, candidate := range f.candidates {
		if candidate.TradeDate != tradeDate {
			continue
		}
		for _, status := range statuses {
			if candidate.Status == status {
				out = append(out, *candidate)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCandidateRepo) Update(_ context.Context, candidate *entity.IntradayCandidate) error {
	clone := *candidate
	f.candidates[candidate.Code] = &clone
	return nil
}

type fakeSnapshotRepo struct {
	snapshots []entity.SurvivalSnapshot
}

func (f *fakeSnapshotRepo) Create(_ context.Context, snapshot *entity.SurvivalSnapshot) error {
	f.snapshots = append(f.snapshots, *snapshot)
	return nil
}

func (f *fakeSnapshotRepo) GetLast(_ context.Context, tradeDate, code string) (*entity.SurvivalSnapshot, error) {
	for i := len(f.snapshots) - 1; i >= 0; i-- {
		if f.snapshots[i].TradeDate == tradeDate && f.snapshots[i].Code == code {
			return &f.snapshots[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSnapshotRepo) GetFirst(_ context.Context, tradeDate, code string) (*entity.SurvivalSnapshot, error) {
	for i := range f.snapshots {
		if f.snapshots[i].TradeDate == tradeDate && f.snapshots[i].Code == code {
			return &f.snapshots[i], nil
		}
	}
	return nil, nil
}

type fakePositionRepo struct {
	positions []*entity.IntradayPosition
}

func (f *fakePositionRepo) Create(_ context.Context, position *entity.IntradayPosition) error {
	clone := *position
	f.positions = append(f.positions, &clone)
	return nil
}

func (f *fakePositionRepo) GetOpen(_ context.Context) ([]entity.IntradayPosition, error) {
	var out []entity.IntradayPosition
	for _, position := range f.positions {
		if position.State == common.PositionStateOpen {
			out = append(out, *position)
		}
	}
	return out, nil
}

func (f *fakePositionRepo) HasOpenForCode(_ context.Context, code string) (bool, error) {
	for _, position := range f.positions {
		if position.Code == code && position.State == common.PositionStateOpen {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePositionRepo) CountOpenedOn(_ context.Context, entryDate string) (int64, error) {
	var count int64
	for _, position := range f.positions {
		if position.EntryDate == entryDate {
			count++
		}
	}
	return count, nil
}

func (f *fakePositionRepo) Update(_ context.Context, position *entity.IntradayPosition) error {
	for i, existing := range f.positions {
		if existing.Code == position.Code && existing.EntryTs.Equal(position.EntryTs) {
			clone := *position
			f.positions[i] = &clone
			return nil
		}
	}
	return errors.New("position not found")
}

type fakeSignalRepo struct {
	signals []entity.OrderSignal
}

func (f *fakeSignalRepo) Create(_ context.Context, signal *entity.OrderSignal) error {
	f.signals = append(f.signals, *signal)
	return nil
}

func fptr(v float64) *float64 { return &v }

func gapSnapshot(prevClose, open, high, latest, cumVol, prevVol float64) *dto.IntradaySnapshot {
	return &dto.IntradaySnapshot{
		PrevClose:   fptr(prevClose),
		PrevVolume:  fptr(prevVol),
		DayOpen:     fptr(open),
		DayHigh:     fptr(high),
		LatestPrice: fptr(latest),
		CumVolume:   fptr(cumVol),
	}
}

func newIntradayTestConfig(watchlist []string) *config.Config {
	return &config.Config{
		Intraday: config.Intraday{
			Watchlist:         watchlist,
			GapUpMin:          0.10,
			VolumeRatioMin:    2.0,
			HighDistanceMax:   0.05,
			CandidateLimit:    10,
			SurvivalDropLimit: -0.02,
			MaxEntriesPerDay:  2,
			AllocationPct:     0.02,
			TakeProfit:        0.05,
			StopLoss:          -0.02,
			ForceCloseAt:      "09:30",
		},
	}
}

func newTestIntradayService(
	cfg *config.Config,
	market *fakeMarketRepo,
	candidates *fakeCandidateRepo,
	snapshots *fakeSnapshotRepo,
	positions *fakePositionRepo,
	signals *fakeSignalRepo,
	now time.Time,
) *intradayService {
	svc := NewIntradayService(cfg, logger.NewNop(), market, candidates, snapshots, positions, signals).(*intradayService)
	svc.now = func() time.Time { return now }
	return svc
}

func intradayClock(hour, minute int) time.Time {
	return time.Date(2025, 8, 1, hour, minute, 0, 0, utils.JST())
}

func TestScanPicksGapUpCandidate(t *testing.T) {
	market := &fakeMarketRepo{snapshots: map[string]*dto.IntradaySnapshot{
		// 12% gap, 3.0 volume ratio, 2.6% off the high.
		"7203": gapSnapshot(1000, 1120, 1150, 1120, 300000, 100000),
	}}
	candidates := newFakeCandidateRepo()
	svc := newTestIntradayService(newIntradayTestConfig([]string{"7203.T"}), market, candidates,
		&fakeSnapshotRepo{}, &fakePositionRepo{}, &fakeSignalRepo{}, intradayClock(14, 50))

	message, err := svc.RunJob(context.Background(), common.JobCandidateScan)
	require.NoError(t, err)
	assert.Contains(t, message, "picked 1")

	candidate, ok := candidates.candidates["7203"]
	require.True(t, ok)
	assert.Equal(t, common.CandidateStatusPicked, candidate.Status)
	assert.Equal(t, "2025-08-01", candidate.TradeDate)
	assert.InDelta(t, 0.12, candidate.GapUpRate, 1e-9)
	assert.InDelta(t, 3.0, candidate.VolumeRatio, 1e-9)
	assert.InDelta(t, 30.0/1150.0, candidate.HighDistance, 1e-9)
}

func TestScanRejectsBelowThresholds(t *testing.T) {
	market := &fakeMarketRepo{snapshots: map[string]*dto.IntradaySnapshot{
		"1001": gapSnapshot(1000, 1050, 1100, 1090, 300000, 100000), // gap only 5%
		"1002": gapSnapshot(1000, 1120, 1150, 1130, 150000, 100000), // ratio only 1.5
		"1003": gapSnapshot(1000, 1120, 1200, 1100, 300000, 100000), // 8.3% off the high
		"1004": {PrevClose: fptr(1000), DayOpen: fptr(1120)},        // missing fields
	}}
	candidates := newFakeCandidateRepo()
	svc := newTestIntradayService(newIntradayTestConfig([]string{"1001", "1002", "1003", "1004"}), market,
		candidates, &fakeSnapshotRepo{}, &fakePositionRepo{}, &fakeSignalRepo{}, intradayClock(14, 50))

	message, err := svc.RunJob(context.Background(), common.JobCandidateScan)
	require.NoError(t, err)
	assert.Contains(t, message, "picked 0")
	assert.Empty(t, candidates.candidates)
}

func TestScanCapsAndOrdersByGapUpRate(t *testing.T) {
	market := &fakeMarketRepo{snapshots: map[string]*dto.IntradaySnapshot{
		"2001": gapSnapshot(1000, 1110, 1120, 1110, 300000, 100000),
		"2002": gapSnapshot(1000, 1200, 1210, 1200, 300000, 100000),
		"2003": gapSnapshot(1000, 1150, 1160, 1150, 300000, 100000),
	}}
	cfg := newIntradayTestConfig([]string{"2001", "2002", "2003"})
	cfg.Intraday.CandidateLimit = 2
	candidates := newFakeCandidateRepo()
	svc := newTestIntradayService(cfg, market, candidates, &fakeSnapshotRepo{}, &fakePositionRepo{},
		&fakeSignalRepo{}, intradayClock(14, 50))

	_, err := svc.RunJob(context.Background(), common.JobCandidateScan)
	require.NoError(t, err)

	assert.Len(t, candidates.candidates, 2)
	assert.Contains(t, candidates.candidates, "2002")
	assert.Contains(t, candidates.candidates, "2003")
	assert.NotContains(t, candidates.candidates, "2001")
}

func seedCandidate(repo *fakeCandidateRepo, code, status string, gapUpRate float64) {
	repo.candidates[code] = &entity.IntradayCandidate{
		TradeDate: "2025-08-01",
		Code:      code,
		GapUpRate: gapUpRate,
		Status:    status,
	}
}

func TestSurvivalPromotesAndRejects(t *testing.T) {
	candidates := newFakeCandidateRepo()
	seedCandidate(candidates, "3001", common.CandidateStatusPicked, 0.12)
	seedCandidate(candidates, "3002", common.CandidateStatusPicked, 0.11)
	snapshots := &fakeSnapshotRepo{}
	base := 1120.0
	snapshots.snapshots = append(snapshots.snapshots,
		entity.SurvivalSnapshot{TradeDate: "2025-08-01", Ts: intradayClock(15, 0), Code: "3001", Price: base, BasePrice1500: &base, CumVolume: fptr(300000)},
		entity.SurvivalSnapshot{TradeDate: "2025-08-01", Ts: intradayClock(15, 0), Code: "3002", Price: base, BasePrice1500: &base, CumVolume: fptr(300000)},
	)
	market := &fakeMarketRepo{snapshots: map[string]*dto.IntradaySnapshot{
		"3001": gapSnapshot(1000, 1120, 1150, 1125, 320000, 100000), // holding up
		"3002": gapSnapshot(1000, 1120, 1150, 1090, 320000, 100000), // -2.68% from base
	}}
	svc := newTestIntradayService(newIntradayTestConfig(nil), market, candidates, snapshots,
		&fakePositionRepo{}, &fakeSignalRepo{}, intradayClock(15, 5))

	message, err := svc.RunJob(context.Background(), common.JobSurvivalTest)
	require.NoError(t, err)
	assert.Contains(t, message, "1 alive, 1 rejected")

	assert.Equal(t, common.CandidateStatusAlive, candidates.candidates["3001"].Status)
	rejected := candidates.candidates["3002"]
	assert.Equal(t, common.CandidateStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectReason)
	assert.Contains(t, *rejected.RejectReason, "15:00 base")
}

func TestSurvivalRejectsStalledVolume(t *testing.T) {
	candidates := newFakeCandidateRepo()
	seedCandidate(candidates, "3003", common.CandidateStatusAlive, 0.12)
	snapshots := &fakeSnapshotRepo{}
	base := 1120.0
	snapshots.snapshots = append(snapshots.snapshots,
		entity.SurvivalSnapshot{TradeDate: "2025-08-01", Ts: intradayClock(15, 0), Code: "3003", Price: base, BasePrice1500: &base, CumVolume: fptr(320000)},
	)
	market := &fakeMarketRepo{snapshots: map[string]*dto.IntradaySnapshot{
		"3003": gapSnapshot(1000, 1120, 1150, 1125, 320000, 100000), // no new volume since last check
	}}
	svc := newTestIntradayService(newIntradayTestConfig(nil), market, candidates, snapshots,
		&fakePositionRepo{}, &fakeSignalRepo{}, intradayClock(15, 10))

	_, err := svc.RunJob(context.Background(), common.JobSurvivalTest)
	require.NoError(t, err)

	rejected := candidates.candidates["3003"]
	assert.Equal(t, common.CandidateStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectReason)
	assert.Equal(t, "volume stalled", *rejected.RejectReason)
}

func TestSurvivalNeverReloadsRejectedCandidates(t *testing.T) {
	candidates := newFakeCandidateRepo()
	seedCandidate(candidates, "3004", common.CandidateStatusRejected, 0.12)
	market := &fakeMarketRepo{snapshots: map[string]*dto.IntradaySnapshot{}}
	svc := newTestIntradayService(newIntradayTestConfig(nil), market, candidates, &fakeSnapshotRepo{},
		&fakePositionRepo{}, &fakeSignalRepo{}, intradayClock(15, 10))

	message, err := svc.RunJob(context.Background(), common.JobSurvivalTest)
	require.NoError(t, err)
	assert.Contains(t, message, "0 alive, 0 rejected")
	assert.Equal(t, common.CandidateStatusRejected, candidates.candidates["3004"].Status)
}

func TestEntryRespectsDailyCap(t *testing.T) {
	candidates := newFakeCandidateRepo()
	seedCandidate(candidates, "4001", common.CandidateStatusAlive, 0.15)
	seedCandidate(candidates, "4002", common.CandidateStatusAlive, 0.13)
	seedCandidate(candidates, "4003", common.CandidateStatusAlive, 0.11)
	market := &fakeMarketRepo{lastPrices: map[string]float64{"4001": 1150, "4002": 1130, "4003": 1110}}
	positions := &fakePositionRepo{}
	signals := &fakeSignalRepo{}
	svc := newTestIntradayService(newIntradayTestConfig(nil), market, candidates, &fakeSnapshotRepo{},
		positions, signals, intradayClock(15, 7))

	message, err := svc.RunJob(context.Background(), common.JobEntrySignal)
	require.NoError(t, err)
	assert.Contains(t, message, "opened 2")

	require.Len(t, positions.positions, 2)
	for _, position := range positions.positions {
		assert.Equal(t, common.PositionStateOpen, position.State)
		assert.Equal(t, "2025-08-01", position.EntryDate)
		assert.Equal(t, 0.02, position.AllocationPct)
	}
	require.Len(t, signals.signals, 2)
	assert.Equal(t, common.SideBuy, signals.signals[0].Side)
	assert.Equal(t, common.SignalTypeEntry, signals.signals[0].SignalType)
}

func TestEntrySkipsCodeWithOpenPosition(t *testing.T) {
	candidates := newFakeCandidateRepo()
	seedCandidate(candidates, "4004", common.CandidateStatusAlive, 0.15)
	market := &fakeMarketRepo{lastPrices: map[string]float64{"4004": 1150}}
	positions := &fakePositionRepo{positions: []*entity.IntradayPosition{{
		Code:       "4004",
		EntryDate:  "2025-07-31",
		EntryTs:    intradayClock(15, 7).AddDate(0, 0, -1),
		EntryPrice: 1100,
		State:      common.PositionStateOpen,
	}}}
	svc := newTestIntradayService(newIntradayTestConfig(nil), market, candidates, &fakeSnapshotRepo{},
		positions, &fakeSignalRepo{}, intradayClock(15, 7))

	message, err := svc.RunJob(context.Background(), common.JobEntrySignal)
	require.NoError(t, err)
	assert.Contains(t, message, "opened 0")
	assert.Len(t, positions.positions, 1)
}

func openPosition(code string, entryPrice float64) *entity.IntradayPosition {
	return &entity.IntradayPosition{
		Code:       code,
		EntryDate:  "2025-07-31",
		EntryTs:    time.Date(2025, 7, 31, 15, 7, 0, 0, utils.JST()),
		EntryPrice: entryPrice,
		State:      common.PositionStateOpen,
	}
}

func TestExitTakeProfitAndStopLoss(t *testing.T) {
	positions := &fakePositionRepo{positions: []*entity.IntradayPosition{
		openPosition("5001", 1000), // +6%
		openPosition("5002", 1000), // -3%
		openPosition("5003", 1000), // +1%, stays open before the cutoff
	}}
	market := &fakeMarketRepo{lastPrices: map[string]float64{"5001": 1060, "5002": 970, "5003": 1010}}
	signals := &fakeSignalRepo{}
	svc := newTestIntradayService(newIntradayTestConfig(nil), market, newFakeCandidateRepo(),
		&fakeSnapshotRepo{}, positions, signals, intradayClock(9, 5))

	message, err := svc.RunJob(context.Background(), common.JobExitSignal)
	require.NoError(t, err)
	assert.Contains(t, message, "closed 2 of 3")

	byCode := map[string]*entity.IntradayPosition{}
	for _, position := range positions.positions {
		byCode[position.Code] = position
	}
	require.NotNil(t, byCode["5001"].ExitReason)
	assert.Equal(t, exitReasonTakeProfit, *byCode["5001"].ExitReason)
	require.NotNil(t, byCode["5002"].ExitReason)
	assert.Equal(t, exitReasonStopLoss, *byCode["5002"].ExitReason)
	assert.Equal(t, common.PositionStateOpen, byCode["5003"].State)

	require.Len(t, signals.signals, 2)
	assert.Equal(t, common.SideSell, signals.signals[0].Side)
	assert.Equal(t, common.SignalTypeExit, signals.signals[0].SignalType)
}

func TestExitTimeStopAtCutoff(t *testing.T) {
	positions := &fakePositionRepo{positions: []*entity.IntradayPosition{
		openPosition("5004", 1000), // +1%, forced out at the cutoff
	}}
	market := &fakeMarketRepo{lastPrices: map[string]float64{"5004": 1010}}
	svc := newTestIntradayService(newIntradayTestConfig(nil), market, newFakeCandidateRepo(),
		&fakeSnapshotRepo{}, positions, &fakeSignalRepo{}, intradayClock(9, 30))

	message, err := svc.RunJob(context.Background(), common.JobExitSignal)
	require.NoError(t, err)
	assert.Contains(t, message, "closed 1 of 1")

	position := positions.positions[0]
	assert.Equal(t, common.PositionStateClosed, position.State)
	require.NotNil(t, position.ExitReason)
	assert.Equal(t, exitReasonTimeStop, *position.ExitReason)
	require.NotNil(t, position.ExitPrice)
	assert.Equal(t, 1010.0, *position.ExitPrice)
}

func TestExitSkipsPositionWithoutEntryPrice(t *testing.T) {
	positions := &fakePositionRepo{positions: []*entity.IntradayPosition{
		openPosition("5005", 0),
	}}
	market := &fakeMarketRepo{lastPrices: map[string]float64{"5005": 1010}}
	signals := &fakeSignalRepo{}
	svc := newTestIntradayService(newIntradayTestConfig(nil), market, newFakeCandidateRepo(),
		&fakeSnapshotRepo{}, positions, signals, intradayClock(9, 5))

	message, err := svc.RunJob(context.Background(), common.JobExitSignal)
	require.NoError(t, err)
	assert.Contains(t, message, "closed 0 of 1")
	assert.Equal(t, common.PositionStateOpen, positions.positions[0].State)
	assert.Empty(t, signals.signals)
}

func TestRunJobUnknownName(t *testing.T) {
	svc := newTestIntradayService(newIntradayTestConfig(nil), &fakeMarketRepo{}, newFakeCandidateRepo(),
		&fakeSnapshotRepo{}, &fakePositionRepo{}, &fakeSignalRepo{}, intradayClock(9, 0))

	_, err := svc.RunJob(context.Background(), "nonsense")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownJob)
}
