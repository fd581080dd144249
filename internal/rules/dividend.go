package rules

import (
	"fmt"

	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/utils"
)

// DividendEngine judges income-focused quality from the dividend history,
// latest statements and latest close.
type DividendEngine struct{}

const (
	divYieldMin  = 0.030
	divYieldMax  = 0.050
	divPayoutMin = 0.30
	divPayoutMax = 0.60

	divWeightYield       = 2.0
	divWeightPayout      = 1.5
	divWeightConsecutive = 2.0
	divWeightNoCut       = 3.0
)

var dividendAmountKeys = []string{"DividendPayableDate", "ForecastDividendPerShare", "AnnualDividendPerShare", "DividendPerShare", "Dividend"}

// NewDividendEngine creates a new dividend rule engine.
func NewDividendEngine() *DividendEngine {
	return &DividendEngine{}
}

// Evaluate scores the dividend rules and derives the trade signal.
func (e *DividendEngine) Evaluate(code, name string, quotes, statements, dividends []Record) StockJudgment {
	orderedQuotes := sortByDate(quotes, "Date")
	latestClose := recordFloat(latestRecord(orderedQuotes), "Close")
	asOf, _ := asOfDate(orderedQuotes)

	orderedDivs := sortByDate(dividends, "RecordDate", "Date")
	orderedStmts := sortByDate(statements, "DisclosedDate")

	yield := e.ruleYield(latestClose, orderedDivs)
	yield.Weight = divWeightYield

	payout := e.rulePayoutRatio(orderedStmts, orderedDivs)
	payout.Weight = divWeightPayout

	consecutive := e.ruleConsecutiveDividend(orderedDivs)
	consecutive.Weight = divWeightConsecutive

	noCut := e.ruleNoCut(orderedDivs)
	noCut.Weight = divWeightNoCut

	results := []RuleResult{yield, payout, consecutive, noCut}
	score := weightedScore(results)

	signal := common.SignalHold
	switch {
	case score >= 0.7:
		signal = common.SignalBuy
	case !noCut.Passed:
		signal = common.SignalSell
	}

	return StockJudgment{
		Code:        code,
		Name:        name,
		Strategy:    common.StrategyDividend,
		Signal:      signal,
		Score:       score,
		Price:       latestClose,
		RuleResults: results,
		AsOf:        asOf,
	}
}

func (e *DividendEngine) ruleYield(latestClose *float64, divs []Record) RuleResult {
	const threshold = "yield 3.0%..5.0%"
	if latestClose == nil || *latestClose == 0 {
		return RuleResult{RuleName: "dividend_yield", Threshold: threshold, Reason: "no data"}
	}

	annual := annualDividend(divs)
	if annual == nil {
		return RuleResult{RuleName: "dividend_yield", Threshold: threshold, Reason: "no dividend data"}
	}

	yieldRate := *annual / *latestClose
	reason := fmt.Sprintf("yield=%.2f%% (annual dividend=%.0f JPY)", yieldRate*100, *annual)
	if yieldRate > divYieldMax {
		reason += ", unusually high yield"
	}
	return RuleResult{
		RuleName:  "dividend_yield",
		Value:     floatPtr(yieldRate * 100),
		Threshold: threshold,
		Passed:    yieldRate >= divYieldMin && yieldRate <= divYieldMax,
		Reason:    reason,
	}
}

func (e *DividendEngine) rulePayoutRatio(stmts, divs []Record) RuleResult {
	const threshold = "payout ratio 30%..60%"
	latest := latestRecord(stmts)
	if latest == nil {
		return RuleResult{RuleName: "payout_ratio", Threshold: threshold, Reason: "no statement data"}
	}

	eps := extractEPS(latest)
	annual := annualDividend(divs)
	if eps == nil || annual == nil || *eps == 0 {
		return RuleResult{RuleName: "payout_ratio", Threshold: threshold, Reason: "no data"}
	}

	payout := *annual / *eps
	return RuleResult{
		RuleName:  "payout_ratio",
		Value:     floatPtr(payout * 100),
		Threshold: threshold,
		Passed:    payout >= divPayoutMin && payout <= divPayoutMax,
		Reason:    fmt.Sprintf("payout ratio=%.2f%%", payout*100),
	}
}

// ruleConsecutiveDividend scans from the most recent payment backward and
// stops at the first zero or missing amount.
func (e *DividendEngine) ruleConsecutiveDividend(divs []Record) RuleResult {
	const threshold = ">= 3 consecutive dividend payments"
	if len(divs) < 3 {
		return RuleResult{RuleName: "consecutive_dividend", Threshold: threshold, Reason: "insufficient data"}
	}

	consecutive := 0
	for i := len(divs) - 1; i >= 0; i-- {
		amount, ok := utils.ExtractFloat(divs[i], dividendAmountKeys...)
		if !ok || amount <= 0 {
			break
		}
		consecutive++
	}

	return RuleResult{
		RuleName:  "consecutive_dividend",
		Value:     floatPtr(float64(consecutive)),
		Threshold: threshold,
		Passed:    consecutive >= 3,
		Reason:    fmt.Sprintf("%d consecutive payments", consecutive),
	}
}

// ruleNoCut compares the two most recent payments. Insufficient data passes;
// a zero current payment or a decrease fails.
func (e *DividendEngine) ruleNoCut(divs []Record) RuleResult {
	const threshold = "no dividend cut or omission"
	if len(divs) < 2 {
		return RuleResult{RuleName: "no_cut", Threshold: threshold, Passed: true, Reason: "insufficient data, passing"}
	}

	prev, okPrev := utils.ExtractFloat(divs[len(divs)-2], dividendAmountKeys...)
	curr, okCurr := utils.ExtractFloat(divs[len(divs)-1], dividendAmountKeys...)
	if !okPrev || !okCurr {
		return RuleResult{RuleName: "no_cut", Threshold: threshold, Passed: true, Reason: "no data, passing"}
	}

	if curr == 0 {
		return RuleResult{RuleName: "no_cut", Value: floatPtr(curr), Threshold: threshold, Reason: "dividend omitted"}
	}
	if curr < prev {
		return RuleResult{
			RuleName:  "no_cut",
			Value:     floatPtr(curr),
			Threshold: threshold,
			Reason:    fmt.Sprintf("dividend cut: %.0f -> %.0f JPY", prev, curr),
		}
	}
	return RuleResult{
		RuleName:  "no_cut",
		Value:     floatPtr(curr),
		Threshold: threshold,
		Passed:    true,
		Reason:    fmt.Sprintf("maintained or raised: latest=%.0f JPY", curr),
	}
}

// annualDividend estimates the trailing annual dividend as the sum of up to
// the last 4 recorded per-share amounts.
func annualDividend(divs []Record) *float64 {
	if len(divs) == 0 {
		return nil
	}
	recent := divs
	if len(recent) > 4 {
		recent = recent[len(recent)-4:]
	}
	sum := 0.0
	found := false
	for _, d := range recent {
		if a, ok := utils.ExtractFloat(d, dividendAmountKeys...); ok {
			sum += a
			found = true
		}
	}
	if !found {
		return nil
	}
	return &sum
}

func extractEPS(stmt Record) *float64 {
	if v, ok := utils.ExtractFloat(stmt, "EarningsPerShare", "BasicEarningsPerShare", "EPS"); ok {
		return &v
	}
	netIncome, okN := utils.ExtractFloat(stmt, "NetIncome")
	shares, okS := utils.ExtractFloat(stmt, "NumberOfShares", "IssuedSharesTotalNumber")
	if okN && okS && shares > 0 {
		v := netIncome / shares
		return &v
	}
	return nil
}
