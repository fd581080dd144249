package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/internal/scheduler/config"
	"golang-stock-advisor/internal/scheduler/repository"
	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"
)

// ErrUnknownJob is returned when a job name does not match any intraday job.
var ErrUnknownJob = errors.New("unknown job")

const (
	exitReasonTakeProfit = "take-profit"
	exitReasonStopLoss   = "stop-loss"
	exitReasonTimeStop   = "time-stop"
)

// IntradayService runs the four gap-up state machine jobs. The jobs are the
// sole mutators of candidate, snapshot, position and order-signal rows.
type IntradayService interface {
	RunJob(ctx context.Context, name string) (string, error)
	JobNames() []string
}

type intradayService struct {
	cfg        *config.Config
	log        *logger.Logger
	marketRepo repository.MarketDataRepository
	candidates repository.IntradayCandidateRepository
	snapshots  repository.SurvivalSnapshotRepository
	positions  repository.IntradayPositionRepository
	signals    repository.OrderSignalRepository
	now        func() time.Time
}

// NewIntradayService creates the intraday state machine service.
func NewIntradayService(
	cfg *config.Config,
	log *logger.Logger,
	marketRepo repository.MarketDataRepository,
	candidates repository.IntradayCandidateRepository,
	snapshots repository.SurvivalSnapshotRepository,
	positions repository.IntradayPositionRepository,
	signals repository.OrderSignalRepository,
) IntradayService {
	return &intradayService{
		cfg:        cfg,
		log:        log,
		marketRepo: marketRepo,
		candidates: candidates,
		snapshots:  snapshots,
		positions:  positions,
		signals:    signals,
		now:        utils.TimeNowJST,
	}
}

// JobNames lists the jobs in their scheduled order.
func (s *intradayService) JobNames() []string {
	return []string{common.JobCandidateScan, common.JobSurvivalTest, common.JobEntrySignal, common.JobExitSignal}
}

// RunJob runs one job synchronously and returns a completion message.
func (s *intradayService) RunJob(ctx context.Context, name string) (string, error) {
	switch name {
	case common.JobCandidateScan:
		return s.runScan(ctx)
	case common.JobSurvivalTest:
		return s.runSurvival(ctx)
	case common.JobEntrySignal:
		return s.runEntry(ctx)
	case common.JobExitSignal:
		return s.runExit(ctx)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
}

// runScan picks the day's gap-up candidates from the watchlist near session
// end.
func (s *intradayService) runScan(ctx context.Context) (string, error) {
	tradeDate := s.now().Format(utils.DateLayout)

	var picked []entity.IntradayCandidate
	for _, raw := range s.cfg.Intraday.Watchlist {
		code := strings.TrimSpace(strings.ReplaceAll(raw, ".T", ""))
		if code == "" {
			continue
		}

		snapshot, err := s.marketRepo.GetIntradaySnapshot(ctx, code)
		if err != nil {
			s.log.WarnContext(ctx, "Intraday snapshot unavailable", logger.StringField("code", code), logger.ErrorField(err))
			continue
		}
		if snapshot.PrevClose == nil || snapshot.DayOpen == nil || snapshot.DayHigh == nil ||
			snapshot.LatestPrice == nil || snapshot.CumVolume == nil || snapshot.PrevVolume == nil {
			continue
		}
		if *snapshot.PrevClose == 0 || *snapshot.PrevVolume == 0 || *snapshot.DayHigh == 0 {
			continue
		}

		gapUpRate := (*snapshot.DayOpen - *snapshot.PrevClose) / *snapshot.PrevClose
		volumeRatio := *snapshot.CumVolume / *snapshot.PrevVolume
		highDistance := (*snapshot.DayHigh - *snapshot.LatestPrice) / *snapshot.DayHigh

		if gapUpRate < s.cfg.Intraday.GapUpMin ||
			volumeRatio < s.cfg.Intraday.VolumeRatioMin ||
			highDistance > s.cfg.Intraday.HighDistanceMax {
			continue
		}

		picked = append(picked, entity.IntradayCandidate{
			TradeDate:    tradeDate,
			Code:         code,
			GapUpRate:    gapUpRate,
			PrevClose:    *snapshot.PrevClose,
			DayOpen:      *snapshot.DayOpen,
			DayHigh:      *snapshot.DayHigh,
			LatestPrice:  *snapshot.LatestPrice,
			VolumeRatio:  volumeRatio,
			HighDistance: highDistance,
			Status:       common.CandidateStatusPicked,
		})
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].GapUpRate > picked[j].GapUpRate
	})
	if len(picked) > s.cfg.Intraday.CandidateLimit {
		picked = picked[:s.cfg.Intraday.CandidateLimit]
	}

	for i := range picked {
		candidate := picked[i]
		if err := s.candidates.Upsert(ctx, &candidate); err != nil {
			s.log.ErrorContext(ctx, "Failed to upsert candidate", logger.StringField("code", candidate.Code), logger.ErrorField(err))
		}
	}

	s.log.InfoContext(ctx, "Candidate scan finished",
		logger.StringField("trade_date", tradeDate),
		logger.IntField("picked", len(picked)),
	)
	return fmt.Sprintf("scan picked %d candidates for %s", len(picked), tradeDate), nil
}

// runSurvival records one observation per surviving candidate and rejects
// symbols that drop from the 15:00 base or stop trading.
func (s *intradayService) runSurvival(ctx context.Context) (string, error) {
	tradeDate := s.now().Format(utils.DateLayout)
	candidates, err := s.candidates.GetByStatus(ctx, tradeDate, common.CandidateStatusPicked, common.CandidateStatusAlive)
	if err != nil {
		return "", fmt.Errorf("load candidates: %w", err)
	}

	alive, rejected := 0, 0
	for i := range candidates {
		candidate := &candidates[i]

		snapshot, err := s.marketRepo.GetIntradaySnapshot(ctx, candidate.Code)
		if err != nil || snapshot.LatestPrice == nil {
			s.log.WarnContext(ctx, "No intraday price for survival test", logger.StringField("code", candidate.Code), logger.ErrorField(err))
			continue
		}
		price := *snapshot.LatestPrice

		basePrice := price
		if first, err := s.snapshots.GetFirst(ctx, tradeDate, candidate.Code); err == nil && first != nil && first.BasePrice1500 != nil {
			basePrice = *first.BasePrice1500
		}
		drop := 0.0
		if basePrice != 0 {
			drop = price/basePrice - 1.0
		}

		var deltaVolume *float64
		if last, err := s.snapshots.GetLast(ctx, tradeDate, candidate.Code); err == nil && last != nil &&
			last.CumVolume != nil && snapshot.CumVolume != nil {
			delta := *snapshot.CumVolume - *last.CumVolume
			deltaVolume = &delta
		}

		observation := &entity.SurvivalSnapshot{
			TradeDate:     tradeDate,
			Ts:            s.now(),
			Code:          candidate.Code,
			Price:         price,
			CumVolume:     snapshot.CumVolume,
			DeltaVolume:   deltaVolume,
			BasePrice1500: &basePrice,
			DropFrom1500:  &drop,
		}
		if err := s.snapshots.Create(ctx, observation); err != nil {
			s.log.ErrorContext(ctx, "Failed to record survival snapshot", logger.StringField("code", candidate.Code), logger.ErrorField(err))
		}

		switch {
		case drop <= s.cfg.Intraday.SurvivalDropLimit:
			s.rejectCandidate(ctx, candidate, fmt.Sprintf("dropped %.2f%% from 15:00 base", drop*100))
			rejected++
		case deltaVolume != nil && *deltaVolume <= 0:
			s.rejectCandidate(ctx, candidate, "volume stalled")
			rejected++
		default:
			candidate.Status = common.CandidateStatusAlive
			if err := s.candidates.Update(ctx, candidate); err != nil {
				s.log.ErrorContext(ctx, "Failed to update candidate", logger.StringField("code", candidate.Code), logger.ErrorField(err))
			}
			alive++
		}
	}

	return fmt.Sprintf("survival test: %d alive, %d rejected", alive, rejected), nil
}

// runEntry opens advisory positions for the strongest surviving candidates,
// up to the daily cap.
func (s *intradayService) runEntry(ctx context.Context) (string, error) {
	tradeDate := s.now().Format(utils.DateLayout)

	opened, err := s.positions.CountOpenedOn(ctx, tradeDate)
	if err != nil {
		return "", fmt.Errorf("count today's entries: %w", err)
	}
	maxEntries := int64(s.cfg.Intraday.MaxEntriesPerDay)
	if opened >= maxEntries {
		return fmt.Sprintf("entry: daily cap of %d already reached", maxEntries), nil
	}

	// Ordered by gap-up rate descending.
	candidates, err := s.candidates.GetByStatus(ctx, tradeDate, common.CandidateStatusAlive)
	if err != nil {
		return "", fmt.Errorf("load alive candidates: %w", err)
	}

	entries := 0
	for _, candidate := range candidates {
		if opened >= maxEntries {
			break
		}

		hasOpen, err := s.positions.HasOpenForCode(ctx, candidate.Code)
		if err != nil {
			s.log.ErrorContext(ctx, "Open position lookup failed", logger.StringField("code", candidate.Code), logger.ErrorField(err))
			continue
		}
		if hasOpen {
			continue
		}

		price, err := s.marketRepo.GetLastPrice(ctx, candidate.Code)
		if err != nil {
			s.log.WarnContext(ctx, "No price for entry", logger.StringField("code", candidate.Code), logger.ErrorField(err))
			continue
		}

		now := s.now()
		position := &entity.IntradayPosition{
			Code:          candidate.Code,
			EntryDate:     tradeDate,
			EntryTs:       now,
			EntryPrice:    price,
			AllocationPct: s.cfg.Intraday.AllocationPct,
			State:         common.PositionStateOpen,
		}
		if err := s.positions.Create(ctx, position); err != nil {
			s.log.ErrorContext(ctx, "Failed to open position", logger.StringField("code", candidate.Code), logger.ErrorField(err))
			continue
		}
		s.recordSignal(ctx, tradeDate, candidate.Code, common.SideBuy, common.SignalTypeEntry, price,
			fmt.Sprintf("gap-up %.2f%% survived", candidate.GapUpRate*100))
		opened++
		entries++
	}

	return fmt.Sprintf("entry: opened %d positions (%d/%d today)", entries, opened, maxEntries), nil
}

// runExit closes open positions on take-profit, stop-loss or the morning
// time-stop cutoff.
func (s *intradayService) runExit(ctx context.Context) (string, error) {
	positions, err := s.positions.GetOpen(ctx)
	if err != nil {
		return "", fmt.Errorf("load open positions: %w", err)
	}

	now := s.now()
	cutoff := s.forceCloseCutoff(now)
	closed := 0
	for i := range positions {
		position := &positions[i]

		if position.EntryPrice <= 0 {
			s.log.WarnContext(ctx, "Position has no entry price, skipping exit check", logger.StringField("code", position.Code))
			continue
		}

		price, err := s.marketRepo.GetLastPrice(ctx, position.Code)
		if err != nil {
			s.log.WarnContext(ctx, "No price for exit check", logger.StringField("code", position.Code), logger.ErrorField(err))
			continue
		}
		pnl := price/position.EntryPrice - 1.0

		var reason string
		switch {
		case pnl >= s.cfg.Intraday.TakeProfit:
			reason = exitReasonTakeProfit
		case pnl <= s.cfg.Intraday.StopLoss:
			reason = exitReasonStopLoss
		case !now.Before(cutoff):
			reason = exitReasonTimeStop
		default:
			continue
		}

		exitDate := now.Format(utils.DateLayout)
		exitTs := now
		position.State = common.PositionStateClosed
		position.ExitDate = &exitDate
		position.ExitTs = &exitTs
		position.ExitPrice = &price
		position.ExitReason = &reason
		if err := s.positions.Update(ctx, position); err != nil {
			s.log.ErrorContext(ctx, "Failed to close position", logger.StringField("code", position.Code), logger.ErrorField(err))
			continue
		}
		s.recordSignal(ctx, exitDate, position.Code, common.SideSell, common.SignalTypeExit, price,
			fmt.Sprintf("%s at %.2f%% P&L", reason, pnl*100))
		closed++
	}

	return fmt.Sprintf("exit: closed %d of %d open positions", closed, len(positions)), nil
}

func (s *intradayService) rejectCandidate(ctx context.Context, candidate *entity.IntradayCandidate, reason string) {
	candidate.Status = common.CandidateStatusRejected
	candidate.RejectReason = &reason
	if err := s.candidates.Update(ctx, candidate); err != nil {
		s.log.ErrorContext(ctx, "Failed to reject candidate", logger.StringField("code", candidate.Code), logger.ErrorField(err))
	}
}

func (s *intradayService) recordSignal(ctx context.Context, tradeDate, code, side, signalType string, price float64, reason string) {
	signal := &entity.OrderSignal{
		TradeDate:  tradeDate,
		Ts:         s.now(),
		Code:       code,
		Side:       side,
		SignalType: signalType,
		Price:      price,
		Reason:     reason,
	}
	if err := s.signals.Create(ctx, signal); err != nil {
		s.log.ErrorContext(ctx, "Failed to record order signal", logger.StringField("code", code), logger.ErrorField(err))
	}
}

func (s *intradayService) forceCloseCutoff(now time.Time) time.Time {
	cutoff, err := time.Parse("15:04", s.cfg.Intraday.ForceCloseAt)
	if err != nil {
		cutoff, _ = time.Parse("15:04", "09:30")
	}
	return time.Date(now.Year(), now.Month(), now.Day(), cutoff.Hour(), cutoff.Minute(), 0, 0, now.Location())
}
