package rules

import (
	"fmt"
	"math"

	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/utils"
)

// FundamentalEngine judges multi-year financial quality from disclosed
// statements, with a light momentum check reusing the quote data.
type FundamentalEngine struct{}

const (
	fundSalesCAGRThreshold   = 0.05
	fundOpMarginThreshold    = 0.10
	fundEquityRatioThreshold = 0.40
	fundROEThreshold         = 0.08
	fundMAWindow             = 25

	fundWeightSalesCAGR   = 2.0
	fundWeightOpMargin    = 2.5
	fundWeightEquityRatio = 1.5
	fundWeightROE         = 2.0
	fundWeightMomentum    = 1.0
)

// NewFundamentalEngine creates a new fundamental rule engine.
func NewFundamentalEngine() *FundamentalEngine {
	return &FundamentalEngine{}
}

// Evaluate scores the fundamental rules and derives the trade signal.
func (e *FundamentalEngine) Evaluate(code, name string, quotes []Record, statements []Record) StockJudgment {
	orderedQuotes := sortByDate(quotes, "Date")
	latestClose := recordFloat(latestRecord(orderedQuotes), "Close")
	asOf, _ := asOfDate(orderedQuotes)

	orderedStmts := sortByDate(statements, "DisclosedDate")

	salesCAGR := e.ruleSalesCAGR(orderedStmts)
	salesCAGR.Weight = fundWeightSalesCAGR

	opMargin := e.ruleOperatingMargin(orderedStmts)
	opMargin.Weight = fundWeightOpMargin

	equityRatio := e.ruleEquityRatio(orderedStmts)
	equityRatio.Weight = fundWeightEquityRatio

	roe := e.ruleROE(orderedStmts)
	roe.Weight = fundWeightROE

	momentum := e.ruleMomentum(orderedQuotes, latestClose)
	momentum.Weight = fundWeightMomentum

	results := []RuleResult{salesCAGR, opMargin, equityRatio, roe, momentum}
	score := weightedScore(results)

	signal := common.SignalHold
	switch {
	case score >= 0.7:
		signal = common.SignalBuy
	case score <= 0.3:
		signal = common.SignalSell
	}

	return StockJudgment{
		Code:        code,
		Name:        name,
		Strategy:    common.StrategyFundamental,
		Signal:      signal,
		Score:       score,
		Price:       latestClose,
		RuleResults: results,
		AsOf:        asOf,
	}
}

func (e *FundamentalEngine) ruleSalesCAGR(statements []Record) RuleResult {
	const threshold = "sales CAGR >= +5%"

	type point struct {
		date  string
		sales float64
	}
	var points []point
	for _, st := range statements {
		sales, okS := utils.ExtractFloat(st, "NetSales", "NetSalesAmount", "Revenue")
		d, okD := utils.ExtractDate(st, "DisclosedDate")
		if okS && okD && sales > 0 {
			points = append(points, point{date: d.Format(utils.DateLayout), sales: sales})
		}
	}
	if len(points) < 2 {
		return RuleResult{RuleName: "sales_cagr", Threshold: threshold, Reason: "no data"}
	}

	start, end := points[0], points[len(points)-1]
	startDate, _ := utils.ParseDate(start.date)
	endDate, _ := utils.ParseDate(end.date)
	years := endDate.Sub(startDate).Hours() / 24 / 365.25
	if years <= 0 {
		return RuleResult{RuleName: "sales_cagr", Threshold: threshold, Reason: "no data"}
	}

	cagr := math.Pow(end.sales/start.sales, 1.0/years) - 1.0
	return RuleResult{
		RuleName:  "sales_cagr",
		Value:     floatPtr(cagr * 100),
		Threshold: threshold,
		Passed:    cagr >= fundSalesCAGRThreshold,
		Reason:    fmt.Sprintf("CAGR=%.2f%%", cagr*100),
	}
}

func (e *FundamentalEngine) ruleOperatingMargin(statements []Record) RuleResult {
	const threshold = "operating margin >= 10%"
	latest := latestRecord(statements)
	sales, okS := utils.ExtractFloat(latest, "NetSales", "NetSalesAmount", "Revenue")
	op, okO := utils.ExtractFloat(latest, "OperatingProfit")
	if latest == nil || !okS || !okO || sales == 0 {
		return RuleResult{RuleName: "operating_margin", Threshold: threshold, Reason: "no data"}
	}

	margin := op / sales
	return RuleResult{
		RuleName:  "operating_margin",
		Value:     floatPtr(margin * 100),
		Threshold: threshold,
		Passed:    margin >= fundOpMarginThreshold,
		Reason:    fmt.Sprintf("operating margin=%.2f%%", margin*100),
	}
}

func (e *FundamentalEngine) ruleEquityRatio(statements []Record) RuleResult {
	const threshold = "equity ratio >= 40%"
	latest := latestRecord(statements)
	equity, okE := utils.ExtractFloat(latest, "Equity")
	totalAssets, okT := utils.ExtractFloat(latest, "TotalAssets")
	if latest == nil || !okE || !okT || totalAssets == 0 {
		return RuleResult{RuleName: "equity_ratio", Threshold: threshold, Reason: "no data"}
	}

	ratio := equity / totalAssets
	return RuleResult{
		RuleName:  "equity_ratio",
		Value:     floatPtr(ratio * 100),
		Threshold: threshold,
		Passed:    ratio >= fundEquityRatioThreshold,
		Reason:    fmt.Sprintf("equity ratio=%.2f%%", ratio*100),
	}
}

func (e *FundamentalEngine) ruleROE(statements []Record) RuleResult {
	const threshold = "ROE >= 8%"
	latest := latestRecord(statements)
	netIncome, okN := utils.ExtractFloat(latest, "NetIncome")
	equity, okE := utils.ExtractFloat(latest, "Equity")
	if latest == nil || !okN || !okE || equity == 0 {
		return RuleResult{RuleName: "roe", Threshold: threshold, Reason: "no data"}
	}

	roe := netIncome / equity
	return RuleResult{
		RuleName:  "roe",
		Value:     floatPtr(roe * 100),
		Threshold: threshold,
		Passed:    roe >= fundROEThreshold,
		Reason:    fmt.Sprintf("ROE=%.2f%%", roe*100),
	}
}

func (e *FundamentalEngine) ruleMomentum(quotes []Record, latestClose *float64) RuleResult {
	const threshold = "close > 25-day MA"
	ma25, ok := movingAverage(closes(quotes), fundMAWindow)
	if latestClose == nil || !ok {
		return RuleResult{RuleName: "momentum_ma25", Threshold: threshold, Reason: "no data"}
	}
	return RuleResult{
		RuleName:  "momentum_ma25",
		Value:     floatPtr(*latestClose - ma25),
		Threshold: threshold,
		Passed:    *latestClose > ma25,
		Reason:    fmt.Sprintf("close=%.0f, MA25=%.0f", *latestClose, ma25),
	}
}
