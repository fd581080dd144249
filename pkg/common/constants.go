package common

const (
	StrategySwing       = "swing"
	StrategyFundamental = "fundamental"
	StrategyDividend    = "dividend"

	SignalBuy  = "buy"
	SignalSell = "sell"
	SignalHold = "hold"

	FeedNews = "news"

	SourceYahoo    = "yahoo"
	SourceEdinetDB = "edinetdb"

	CandidateStatusPicked   = "picked"
	CandidateStatusAlive    = "alive"
	CandidateStatusRejected = "rejected"

	PositionStateOpen   = "open"
	PositionStateClosed = "closed"

	SideBuy  = "buy"
	SideSell = "sell"

	SignalTypeEntry = "entry"
	SignalTypeExit  = "exit"

	JobCandidateScan = "candidate_scan"
	JobSurvivalTest  = "survival_test"
	JobEntrySignal   = "entry_signal"
	JobExitSignal    = "exit_signal"

	RedisKeyLastPrice = "last_price:%s"
)

// Strategies lists the rule engines in display order.
var Strategies = []string{StrategySwing, StrategyFundamental, StrategyDividend}

// Signals lists the judgment signals in display order.
var Signals = []string{SignalBuy, SignalSell, SignalHold}
