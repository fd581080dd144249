package repository

import (
	"context"
	"encoding/json"
	"time"

	"golang-stock-advisor/internal/batch/dto"
	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchWriterRepository persists one payload as a single transaction so a
// failure on one symbol cannot corrupt another's rows. It is the sole
// mutator of stock, quote, statement, dividend, news and judgment rows.
type BatchWriterRepository interface {
	PersistPayload(ctx context.Context, batchRunID uint, payload *dto.StockPayload) (*time.Time, error)
	PersistAnnouncements(ctx context.Context, records []dto.Record) error
}

type batchWriterRepository struct {
	db            *gorm.DB
	sourceVersion string
}

func NewBatchWriterRepository(db *gorm.DB, sourceVersion string) BatchWriterRepository {
	return &batchWriterRepository{db: db, sourceVersion: sourceVersion}
}

// PersistPayload commits every row of one symbol and returns the maximum
// news published_at actually written, for the caller to advance the
// watermark after the commit.
func (r *batchWriterRepository) PersistPayload(ctx context.Context, batchRunID uint, payload *dto.StockPayload) (*time.Time, error) {
	var maxPublished *time.Time

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.upsertStock(tx, payload); err != nil {
			return err
		}
		if err := r.upsertQuotes(tx, payload); err != nil {
			return err
		}
		if err := r.upsertStatements(tx, payload); err != nil {
			return err
		}
		if err := r.upsertDividends(tx, payload); err != nil {
			return err
		}
		published, err := r.upsertNews(tx, payload)
		if err != nil {
			return err
		}
		maxPublished = published
		return r.upsertJudgments(tx, batchRunID, payload)
	})
	if err != nil {
		return nil, err
	}
	return maxPublished, nil
}

func (r *batchWriterRepository) upsertStock(tx *gorm.DB, payload *dto.StockPayload) error {
	name := payload.Listing.Name
	if name == "" {
		name = payload.Code
	}
	stock := entity.Stock{
		Code:   payload.Code,
		Name:   name,
		Market: payload.Listing.Market,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "market", "updated_at"}),
	}).Create(&stock).Error
}

func (r *batchWriterRepository) upsertQuotes(tx *gorm.DB, payload *dto.StockPayload) error {
	now := time.Now()
	for _, record := range payload.Quotes {
		date, ok := utils.ExtractDate(record, "Date")
		if !ok {
			continue
		}
		row := entity.DailyQuote{
			Code:          payload.Code,
			Date:          date.Format(utils.DateLayout),
			Open:          extractPtr(record, "Open"),
			High:          extractPtr(record, "High"),
			Low:           extractPtr(record, "Low"),
			Close:         extractPtr(record, "Close"),
			Volume:        extractPtr(record, "Volume"),
			TurnoverValue: extractPtr(record, "TurnoverValue"),
			RawJSON:       marshalRaw(record),
			Source:        common.SourceYahoo,
			SourceVersion: r.sourceVersion,
			IngestedAt:    now,
			UpdatedAt:     now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "turnover_value", "raw_json", "source", "source_version", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// upsertStatements writes statement rows only when they were freshly fetched
// from the secondary provider, or when no rows exist yet. This keeps a fresh
// secondary-provider row from being overwritten by fallback figures during
// the cache-fresh window.
func (r *batchWriterRepository) upsertStatements(tx *gorm.DB, payload *dto.StockPayload) error {
	if len(payload.Statements) == 0 {
		return nil
	}
	if !payload.StatementsFetched {
		var existing int64
		if err := tx.Model(&entity.Statement{}).Where("code = ?", payload.Code).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
	}

	source := common.SourceYahoo
	if payload.StatementsFetched {
		source = common.SourceEdinetDB
	}
	now := time.Now()
	for _, record := range payload.Statements {
		date, ok := utils.ExtractDate(record, "DisclosedDate")
		if !ok {
			continue
		}
		row := entity.Statement{
			Code:            payload.Code,
			DisclosedDate:   date.Format(utils.DateLayout),
			NetSales:        extractPtr(record, "NetSales", "NetSalesAmount", "Revenue"),
			OperatingProfit: extractPtr(record, "OperatingProfit"),
			Equity:          extractPtr(record, "Equity", "NetAssets"),
			TotalAssets:     extractPtr(record, "TotalAssets"),
			NetIncome:       extractPtr(record, "NetIncome", "Profit"),
			EPS:             extractPtr(record, "EarningsPerShare", "BasicEarningsPerShare", "EPS"),
			RawJSON:         marshalRaw(record),
			Source:          source,
			SourceVersion:   r.sourceVersion,
			IngestedAt:      now,
			UpdatedAt:       now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}, {Name: "disclosed_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"net_sales", "operating_profit", "equity", "total_assets", "net_income", "eps", "raw_json", "source", "source_version", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *batchWriterRepository) upsertDividends(tx *gorm.DB, payload *dto.StockPayload) error {
	now := time.Now()
	for _, record := range payload.Dividends {
		date, ok := utils.ExtractDate(record, "RecordDate", "Date")
		if !ok {
			continue
		}
		row := entity.Dividend{
			Code:             payload.Code,
			RecordDate:       date.Format(utils.DateLayout),
			DividendPerShare: extractPtr(record, "DividendPerShare", "AnnualDividendPerShare", "ForecastDividendPerShare", "Dividend"),
			RawJSON:          marshalRaw(record),
			Source:           common.SourceYahoo,
			SourceVersion:    r.sourceVersion,
			IngestedAt:       now,
			UpdatedAt:        now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}, {Name: "record_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"dividend_per_share", "raw_json", "source", "source_version", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *batchWriterRepository) upsertNews(tx *gorm.DB, payload *dto.StockPayload) (*time.Time, error) {
	var maxPublished *time.Time
	for _, item := range payload.News {
		if item.URL == "" {
			continue
		}
		row := entity.News{
			Code:            payload.Code,
			URL:             item.URL,
			PublishedAt:     item.PublishedAt,
			Title:           item.Title,
			Summary:         item.Summary,
			SentimentScore:  item.SentimentScore,
			Source:          common.FeedNews,
			SentimentMethod: "external",
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}, {Name: "url"}},
			DoUpdates: clause.AssignmentColumns([]string{"published_at", "title", "summary", "sentiment_score"}),
		}).Create(&row).Error
		if err != nil {
			return nil, err
		}
		if maxPublished == nil || item.PublishedAt.After(*maxPublished) {
			published := item.PublishedAt
			maxPublished = &published
		}
	}
	return maxPublished, nil
}

func (r *batchWriterRepository) upsertJudgments(tx *gorm.DB, batchRunID uint, payload *dto.StockPayload) error {
	for _, strategy := range common.Strategies {
		judgment, ok := payload.Judgments[strategy]
		if !ok {
			continue
		}
		rulesJSON, err := json.Marshal(judgment.RuleResults)
		if err != nil {
			return err
		}
		row := entity.Judgment{
			BatchRunID: batchRunID,
			Code:       payload.Code,
			Strategy:   strategy,
			Signal:     judgment.Signal,
			Score:      judgment.Score,
			Price:      judgment.Price,
			AsOf:       judgment.AsOf,
			TopReason:  judgment.TopReason(),
			RulesJSON:  datatypes.JSON(rulesJSON),
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_run_id"}, {Name: "code"}, {Name: "strategy"}},
			DoUpdates: clause.AssignmentColumns([]string{"signal", "score", "price", "as_of", "top_reason", "rules_json"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// PersistAnnouncements upserts the earnings-announcement calendar fetched
// once per batch run.
func (r *batchWriterRepository) PersistAnnouncements(ctx context.Context, records []dto.Record) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			code, okC := utils.ExtractString(record, "Code", "LocalCode")
			date, okD := utils.ExtractDate(record, "Date", "AnnouncementDate", "DisclosedDate", "ScheduledDate")
			if !okC || !okD {
				continue
			}
			row := entity.Announcement{
				Code:          code,
				Date:          date.Format(utils.DateLayout),
				RawJSON:       marshalRaw(record),
				Source:        common.SourceYahoo,
				SourceVersion: r.sourceVersion,
				IngestedAt:    now,
				UpdatedAt:     now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}, {Name: "date"}},
				DoUpdates: clause.AssignmentColumns([]string{"raw_json", "source", "source_version", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func extractPtr(record dto.Record, keys ...string) *float64 {
	if v, ok := utils.ExtractFloat(record, keys...); ok {
		return &v
	}
	return nil
}

func marshalRaw(record dto.Record) datatypes.JSON {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
