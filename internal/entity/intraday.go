package entity

import "time"

// IntradayCandidate is one gap-up candidate for a trading day, keyed by
// (trade_date, code). Status moves picked→alive→rejected and never leaves
// rejected within the day.
type IntradayCandidate struct {
	TradeDate    string    `gorm:"primaryKey;type:date" json:"trade_date"`
	Code         string    `gorm:"primaryKey" json:"code"`
	GapUpRate    float64   `gorm:"not null" json:"gap_up_rate"`
	PrevClose    float64   `gorm:"not null" json:"prev_close"`
	DayOpen      float64   `gorm:"not null" json:"day_open"`
	DayHigh      float64   `gorm:"not null" json:"day_high"`
	LatestPrice  float64   `gorm:"not null" json:"latest_price"`
	VolumeRatio  float64   `gorm:"not null" json:"volume_ratio"`
	HighDistance float64   `gorm:"not null" json:"high_distance"`
	Status       string    `gorm:"not null" json:"status"`
	RejectReason *string   `json:"reject_reason"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (IntradayCandidate) TableName() string {
	return "intraday_candidates"
}

// SurvivalSnapshot is one append-only per-minute observation taken during
// the post-scan survival window.
type SurvivalSnapshot struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TradeDate     string    `gorm:"not null;type:date;index:idx_snapshots_date_code" json:"trade_date"`
	Ts            time.Time `gorm:"column:ts;not null" json:"ts"`
	Code          string    `gorm:"not null;index:idx_snapshots_date_code" json:"code"`
	Price         float64   `gorm:"not null" json:"price"`
	CumVolume     *float64  `json:"cum_volume"`
	DeltaVolume   *float64  `json:"delta_volume"`
	BasePrice1500 *float64  `gorm:"column:base_price_1500" json:"base_price_1500"`
	DropFrom1500  *float64  `gorm:"column:drop_from_1500" json:"drop_from_1500"`
}

func (SurvivalSnapshot) TableName() string {
	return "survival_snapshots"
}

// IntradayPosition is one advisory position. It is created only by the entry
// job and closed only by the exit job; open→closed is one-way.
type IntradayPosition struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Code          string     `gorm:"not null" json:"code"`
	EntryDate     string     `gorm:"not null;type:date" json:"entry_date"`
	EntryTs       time.Time  `gorm:"column:entry_ts;not null" json:"entry_ts"`
	EntryPrice    float64    `gorm:"not null" json:"entry_price"`
	AllocationPct float64    `gorm:"not null" json:"allocation_pct"`
	State         string     `gorm:"not null" json:"state"`
	ExitDate      *string    `gorm:"type:date" json:"exit_date"`
	ExitTs        *time.Time `gorm:"column:exit_ts" json:"exit_ts"`
	ExitPrice     *float64   `json:"exit_price"`
	ExitReason    *string    `json:"exit_reason"`
}

func (IntradayPosition) TableName() string {
	return "intraday_positions"
}

// OrderSignal is one append-only advisory buy/sell record. Never mutated.
type OrderSignal struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TradeDate  string    `gorm:"not null;type:date" json:"trade_date"`
	Ts         time.Time `gorm:"column:ts;not null" json:"ts"`
	Code       string    `gorm:"not null" json:"code"`
	Side       string    `gorm:"not null" json:"side"`
	SignalType string    `gorm:"not null" json:"signal_type"`
	Price      float64   `gorm:"not null" json:"price"`
	Reason     string    `json:"reason"`
}

func (OrderSignal) TableName() string {
	return "order_signals"
}
