package dto

import (
	"time"

	"golang-stock-advisor/internal/rules"
)

// Record is a raw provider row keyed by whatever field names the vendor
// returns. The extractors in pkg/utils read these.
type Record = map[string]any

// ListingInfo is the master record of one symbol from the primary vendor.
type ListingInfo struct {
	Code   string
	Name   string
	Market string
}

// NewsItem is one pre-scored article from the news collaborator.
type NewsItem struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Summary        string    `json:"summary"`
	PublishedAt    time.Time `json:"published_at"`
	SentimentScore float64   `json:"sentiment_score"`
}

// StockPayload is the unit of work a fetch worker hands to the writer.
// StatementsFetched marks statements freshly pulled from the secondary
// provider; the writer uses it to decide whether to overwrite stored rows.
type StockPayload struct {
	Code              string
	Listing           ListingInfo
	Quotes            []Record
	Statements        []Record
	Dividends         []Record
	News              []NewsItem
	Judgments         map[string]rules.StockJudgment
	StatementsFetched bool
}
