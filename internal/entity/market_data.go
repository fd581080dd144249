package entity

import (
	"time"

	"gorm.io/datatypes"
)

// DailyQuote is one OHLCV row, keyed by (code, date).
type DailyQuote struct {
	Code          string         `gorm:"primaryKey" json:"code"`
	Date          string         `gorm:"primaryKey;type:date" json:"date"`
	Open          *float64       `json:"open"`
	High          *float64       `json:"high"`
	Low           *float64       `json:"low"`
	Close         *float64       `json:"close"`
	Volume        *float64       `json:"volume"`
	TurnoverValue *float64       `json:"turnover_value"`
	RawJSON       datatypes.JSON `json:"-"`
	Source        string         `json:"source"`
	SourceVersion string         `json:"source_version"`
	IngestedAt    time.Time      `json:"ingested_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (DailyQuote) TableName() string {
	return "daily_quotes"
}

// Statement is one disclosed financial period, keyed by (code, disclosed_date).
type Statement struct {
	Code            string         `gorm:"primaryKey" json:"code"`
	DisclosedDate   string         `gorm:"primaryKey;type:date" json:"disclosed_date"`
	NetSales        *float64       `json:"net_sales"`
	OperatingProfit *float64       `json:"operating_profit"`
	Equity          *float64       `json:"equity"`
	TotalAssets     *float64       `json:"total_assets"`
	NetIncome       *float64       `json:"net_income"`
	EPS             *float64       `gorm:"column:eps" json:"eps"`
	RawJSON         datatypes.JSON `json:"-"`
	Source          string         `json:"source"`
	SourceVersion   string         `json:"source_version"`
	IngestedAt      time.Time      `json:"ingested_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Statement) TableName() string {
	return "statements"
}

// Dividend is one per-share payment record, keyed by (code, record_date).
type Dividend struct {
	Code             string         `gorm:"primaryKey" json:"code"`
	RecordDate       string         `gorm:"primaryKey;type:date" json:"record_date"`
	DividendPerShare *float64       `json:"dividend_per_share"`
	RawJSON          datatypes.JSON `json:"-"`
	Source           string         `json:"source"`
	SourceVersion    string         `json:"source_version"`
	IngestedAt       time.Time      `json:"ingested_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (Dividend) TableName() string {
	return "dividends"
}

// Announcement is one scheduled earnings-announcement record, keyed by
// (code, date).
type Announcement struct {
	Code          string         `gorm:"primaryKey" json:"code"`
	Date          string         `gorm:"primaryKey;type:date" json:"date"`
	RawJSON       datatypes.JSON `json:"-"`
	Source        string         `json:"source"`
	SourceVersion string         `json:"source_version"`
	IngestedAt    time.Time      `json:"ingested_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (Announcement) TableName() string {
	return "announcements"
}
