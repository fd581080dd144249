package entity

import "time"

// News is one pre-scored news item, unique by (code, url).
type News struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Code                string    `gorm:"not null;uniqueIndex:idx_news_code_url" json:"code"`
	URL                 string    `gorm:"column:url;not null;uniqueIndex:idx_news_code_url" json:"url"`
	PublishedAt         time.Time `gorm:"not null" json:"published_at"`
	Title               string    `gorm:"not null" json:"title"`
	Summary             string    `json:"summary"`
	SentimentScore      float64   `json:"sentiment_score"`
	Source              string    `json:"source"`
	SentimentMethod     string    `json:"sentiment_method"`
	SentimentModel      *string   `json:"sentiment_model"`
	SentimentConfidence *float64  `json:"sentiment_confidence"`
}

func (News) TableName() string {
	return "news"
}

// Watermark tracks the newest successfully ingested item per (code, feed) so
// the next run can fetch incrementally. It only ever advances.
type Watermark struct {
	Code            string    `gorm:"primaryKey" json:"code"`
	Feed            string    `gorm:"primaryKey" json:"feed"`
	LastPublishedAt time.Time `gorm:"not null" json:"last_published_at"`
	LastIngestedAt  time.Time `gorm:"not null" json:"last_ingested_at"`
}

func (Watermark) TableName() string {
	return "watermarks"
}

// VendorCodeCache durably maps a security code to the statements provider's
// company identifier. Rows expire logically by cached_at but are never
// physically deleted.
type VendorCodeCache struct {
	SecurityCode string    `gorm:"primaryKey" json:"security_code"`
	VendorCode   string    `gorm:"not null" json:"vendor_code"`
	CachedAt     time.Time `gorm:"not null" json:"cached_at"`
}

func (VendorCodeCache) TableName() string {
	return "vendor_code_cache"
}
