package rules

import "golang-stock-advisor/pkg/common"

// StockInput bundles everything the engines need for one symbol.
type StockInput struct {
	Code          string
	Name          string
	Quotes        []Record
	Statements    []Record
	Dividends     []Record
	Announcements []Record
}

// Orchestrator runs every strategy engine over a stock's data.
type Orchestrator struct {
	swing       *SwingEngine
	fundamental *FundamentalEngine
	dividend    *DividendEngine
}

// NewOrchestrator creates an orchestrator with all three engines.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		swing:       NewSwingEngine(),
		fundamental: NewFundamentalEngine(),
		dividend:    NewDividendEngine(),
	}
}

// EvaluateAll returns one judgment per strategy, keyed by strategy name.
func (o *Orchestrator) EvaluateAll(in StockInput) map[string]StockJudgment {
	return map[string]StockJudgment{
		common.StrategySwing:       o.swing.Evaluate(in.Code, in.Name, in.Quotes, in.Announcements),
		common.StrategyFundamental: o.fundamental.Evaluate(in.Code, in.Name, in.Quotes, in.Statements),
		common.StrategyDividend:    o.dividend.Evaluate(in.Code, in.Name, in.Quotes, in.Statements, in.Dividends),
	}
}
