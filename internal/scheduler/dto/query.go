package dto

import "time"

// ErrorResponse is the generic API error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// BatchRunResponse is the latest batch run projection.
type BatchRunResponse struct {
	ID           uint       `json:"id"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	TargetCount  int        `json:"target_count"`
	SuccessCount int        `json:"success_count"`
	ErrorCount   int        `json:"error_count"`
	Message      string     `json:"message"`
}

// SignalCount is one cell of the strategy×signal summary grid.
type SignalCount struct {
	Strategy string `json:"strategy"`
	Signal   string `json:"signal"`
	Count    int64  `json:"count"`
}

// CandidateResponse is one scored symbol in a candidate listing.
type CandidateResponse struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Strategy  string   `json:"strategy"`
	Signal    string   `json:"signal"`
	Score     float64  `json:"score"`
	Price     *float64 `json:"price"`
	AsOf      string   `json:"as_of"`
	TopReason string   `json:"top_reason"`
}

// CandidateFilter narrows a candidate listing.
type CandidateFilter struct {
	Strategy string
	Signal   string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
}

// JudgmentResponse is one strategy judgment of one symbol.
type JudgmentResponse struct {
	Strategy  string   `json:"strategy"`
	Signal    string   `json:"signal"`
	Score     float64  `json:"score"`
	Price     *float64 `json:"price"`
	AsOf      string   `json:"as_of"`
	TopReason string   `json:"top_reason"`
	Rules     any      `json:"rules"`
}

// QuoteResponse is one daily OHLCV row.
type QuoteResponse struct {
	Date          string   `json:"date"`
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Close         *float64 `json:"close"`
	Volume        *float64 `json:"volume"`
	TurnoverValue *float64 `json:"turnover_value"`
}

// NewsResponse is one sentiment-tagged news item.
type NewsResponse struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Summary        string    `json:"summary"`
	PublishedAt    time.Time `json:"published_at"`
	SentimentScore float64   `json:"sentiment_score"`
	Tone           string    `json:"tone"`
}
