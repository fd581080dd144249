package rules

import (
	"fmt"
	"time"

	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/utils"
)

// SwingEngine judges short-horizon setups from daily quotes and the
// earnings-announcement calendar.
type SwingEngine struct{}

const (
	swingLiquidityThreshold = 1_000_000_000.0 // 20-day average turnover, JPY
	swingLiquidityWindow    = 20
	swingMAWindow           = 25
	swingEntryLookback      = 20
	swingStopLossThreshold  = -0.06
	swingTakeProfitThresold = 0.12
	swingEarningsAvoidDays  = 5

	// Rule weights. Larger weight means more influence on the score.
	swingWeightLiquidity  = 1.5
	swingWeightTrend      = 2.5
	swingWeightEntry      = 2.0
	swingWeightStopLoss   = 1.0
	swingWeightTakeProfit = 1.0
	swingWeightEarnings   = 2.0
)

// NewSwingEngine creates a new swing rule engine.
func NewSwingEngine() *SwingEngine {
	return &SwingEngine{}
}

// Evaluate scores the swing rules and derives the trade signal.
func (e *SwingEngine) Evaluate(code, name string, quotes []Record, announcements []Record) StockJudgment {
	ordered := sortByDate(quotes, "Date")
	latestClose := recordFloat(latestRecord(ordered), "Close")
	asOf, asOfTime := asOfDate(ordered)

	liquidity := e.ruleLiquidity(ordered)
	liquidity.Weight = swingWeightLiquidity

	trend := e.ruleTrend(ordered, latestClose)
	trend.Weight = swingWeightTrend

	entry := e.ruleEntry(ordered, latestClose)
	entry.Weight = swingWeightEntry

	stopLoss, takeProfit := e.rulePositionExit(ordered, latestClose)
	stopLoss.Weight = swingWeightStopLoss
	takeProfit.Weight = swingWeightTakeProfit

	earnings := e.ruleEarningsAvoid(code, announcements, asOfTime)
	earnings.Weight = swingWeightEarnings

	results := []RuleResult{liquidity, trend, entry, stopLoss, takeProfit, earnings}
	score := weightedScore(results)

	clearSell := stopLoss.Passed || takeProfit.Passed
	signal := common.SignalHold
	switch {
	case clearSell:
		signal = common.SignalSell
	case score >= 0.7 && earnings.Passed:
		signal = common.SignalBuy
	}

	return StockJudgment{
		Code:        code,
		Name:        name,
		Strategy:    common.StrategySwing,
		Signal:      signal,
		Score:       score,
		Price:       latestClose,
		RuleResults: results,
		AsOf:        asOf,
	}
}

func (e *SwingEngine) ruleLiquidity(quotes []Record) RuleResult {
	const threshold = "20-day avg turnover >= 1.0B JPY"
	if len(quotes) < swingLiquidityWindow {
		return RuleResult{RuleName: "liquidity", Threshold: threshold, Reason: "no data"}
	}

	var values []float64
	for _, q := range quotes[len(quotes)-swingLiquidityWindow:] {
		turnover, ok := utils.ExtractFloat(q, "TurnoverValue")
		if !ok {
			c, okC := utils.ExtractFloat(q, "Close")
			v, okV := utils.ExtractFloat(q, "Volume")
			if !okC || !okV {
				continue
			}
			turnover = c * v
		}
		values = append(values, turnover)
	}
	if len(values) == 0 {
		return RuleResult{RuleName: "liquidity", Threshold: threshold, Reason: "no data"}
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return RuleResult{
		RuleName:  "liquidity",
		Value:     floatPtr(avg),
		Threshold: threshold,
		Passed:    avg >= swingLiquidityThreshold,
		Reason:    fmt.Sprintf("20-day avg turnover=%.1fB JPY", avg/1e9),
	}
}

func (e *SwingEngine) ruleTrend(quotes []Record, latestClose *float64) RuleResult {
	const threshold = "latest close > 25-day MA"
	validCloses := closes(quotes)
	ma25, ok := movingAverage(validCloses, swingMAWindow)
	if latestClose == nil || !ok {
		return RuleResult{RuleName: "trend", Threshold: threshold, Reason: "no data"}
	}
	return RuleResult{
		RuleName:  "trend",
		Value:     floatPtr(*latestClose - ma25),
		Threshold: threshold,
		Passed:    *latestClose > ma25,
		Reason:    fmt.Sprintf("close=%.0f, MA25=%.0f", *latestClose, ma25),
	}
}

func (e *SwingEngine) ruleEntry(quotes []Record, latestClose *float64) RuleResult {
	const threshold = "pullback (-5%..-10%) or breakout"
	if latestClose == nil || len(quotes) < 2 {
		return RuleResult{RuleName: "entry", Threshold: threshold, Reason: "no data"}
	}

	lookback := quotes
	if len(lookback) > swingEntryLookback {
		lookback = lookback[len(lookback)-swingEntryLookback:]
	}

	var highs []float64
	for _, q := range lookback {
		if h, ok := utils.ExtractFloat(q, "High"); ok {
			highs = append(highs, h)
		}
	}
	if len(highs) == 0 {
		return RuleResult{RuleName: "entry", Threshold: threshold, Reason: "no data"}
	}

	recentHigh := highs[0]
	for _, h := range highs {
		if h > recentHigh {
			recentHigh = h
		}
	}
	drawdown := *latestClose/recentHigh - 1.0
	isPullback := drawdown >= -0.10 && drawdown <= -0.05

	prev := lookback[:len(lookback)-1]
	if len(lookback) <= 1 {
		prev = quotes[:len(quotes)-1]
	}
	isBreakout := false
	prevHigh := 0.0
	for _, q := range prev {
		if h, ok := utils.ExtractFloat(q, "High"); ok {
			isBreakout = true
			if h > prevHigh {
				prevHigh = h
			}
		}
	}
	isBreakout = isBreakout && *latestClose > prevHigh

	var reason string
	switch {
	case isBreakout:
		reason = fmt.Sprintf("breakout: close=%.0f", *latestClose)
	case isPullback:
		reason = fmt.Sprintf("pullback: %.1f%% off recent high", drawdown*100)
	default:
		reason = fmt.Sprintf("no setup: %.1f%% off recent high", drawdown*100)
	}

	return RuleResult{
		RuleName:  "entry",
		Value:     floatPtr(drawdown * 100),
		Threshold: threshold,
		Passed:    isPullback || isBreakout,
		Reason:    reason,
	}
}

// rulePositionExit judges stop-loss and take-profit against an acquisition
// price extracted from the quote records. During screening no acquisition
// price exists and both rules report not-applicable.
func (e *SwingEngine) rulePositionExit(quotes []Record, latestClose *float64) (RuleResult, RuleResult) {
	const slThreshold = "P&L <= -6% from acquisition price"
	const tpThreshold = "P&L >= +12% from acquisition price"

	acquisition := extractAcquisitionPrice(quotes)
	if latestClose == nil || acquisition == nil {
		noData := "no acquisition price (screening mode)"
		return RuleResult{RuleName: "stop_loss", Threshold: slThreshold, Reason: noData},
			RuleResult{RuleName: "take_profit", Threshold: tpThreshold, Reason: noData}
	}

	pnl := *latestClose / *acquisition - 1.0
	reason := fmt.Sprintf("P&L=%.2f%%", pnl*100)
	stopLoss := RuleResult{
		RuleName:  "stop_loss",
		Value:     floatPtr(pnl * 100),
		Threshold: slThreshold,
		Passed:    pnl <= swingStopLossThreshold,
		Reason:    reason,
	}
	takeProfit := RuleResult{
		RuleName:  "take_profit",
		Value:     floatPtr(pnl * 100),
		Threshold: tpThreshold,
		Passed:    pnl >= swingTakeProfitThresold,
		Reason:    reason,
	}
	return stopLoss, takeProfit
}

func (e *SwingEngine) ruleEarningsAvoid(code string, announcements []Record, asOf *time.Time) RuleResult {
	const threshold = "no earnings announcement within 5 business days"
	if asOf == nil {
		return RuleResult{RuleName: "earnings_avoid", Threshold: threshold, Passed: true, Reason: "as-of date unknown, passing"}
	}

	nearEvent := false
	for _, ann := range announcements {
		annCode, _ := utils.ExtractString(ann, "Code", "LocalCode")
		if annCode != "" && annCode != code {
			continue
		}
		annDate, ok := utils.ExtractDate(ann, "AnnouncementDate", "Date", "DisclosedDate", "ScheduledDate")
		if !ok || annDate.Before(*asOf) {
			continue
		}
		if utils.BusinessDaysBetween(*asOf, annDate) <= swingEarningsAvoidDays {
			nearEvent = true
			break
		}
	}

	reason := "no earnings announcement scheduled"
	if nearEvent {
		reason = "earnings announcement ahead, avoid new entries"
	}
	return RuleResult{
		RuleName:  "earnings_avoid",
		Threshold: threshold,
		Passed:    !nearEvent,
		Reason:    reason,
	}
}

func extractAcquisitionPrice(quotes []Record) *float64 {
	for i := len(quotes) - 1; i >= 0; i-- {
		if v, ok := utils.ExtractFloat(quotes[i], "AcquisitionPrice", "CostBasis", "AveragePrice", "EntryPrice"); ok && v > 0 {
			return &v
		}
	}
	return nil
}
