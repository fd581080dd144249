package repository

import (
	"context"
	"encoding/json"
	"time"

	"golang-stock-advisor/internal/batch/dto"
	"golang-stock-advisor/internal/entity"

	"gorm.io/gorm"
)

// StatementRepository reads stored statements so the pipeline can skip the
// secondary provider while a fresh copy exists.
type StatementRepository interface {
	LatestUpdatedAt(ctx context.Context, code string) (*time.Time, error)
	ReadStatements(ctx context.Context, code string) ([]dto.Record, error)
}

type statementRepository struct {
	db *gorm.DB
}

func NewStatementRepository(db *gorm.DB) StatementRepository {
	return &statementRepository{db: db}
}

func (r *statementRepository) LatestUpdatedAt(ctx context.Context, code string) (*time.Time, error) {
	var latest *time.Time
	err := r.db.WithContext(ctx).
		Model(&entity.Statement{}).
		Where("code = ?", code).
		Select("MAX(updated_at)").
		Scan(&latest).Error
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// ReadStatements returns the stored rows as raw records, preferring the
// original vendor payload in raw_json over the typed columns.
func (r *statementRepository) ReadStatements(ctx context.Context, code string) ([]dto.Record, error) {
	var rows []entity.Statement
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Order("disclosed_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]dto.Record, 0, len(rows))
	for _, row := range rows {
		record := dto.Record{}
		if len(row.RawJSON) > 0 {
			_ = json.Unmarshal(row.RawJSON, &record)
		}
		record["DisclosedDate"] = row.DisclosedDate
		setIfPresent(record, "NetSales", row.NetSales)
		setIfPresent(record, "OperatingProfit", row.OperatingProfit)
		setIfPresent(record, "Equity", row.Equity)
		setIfPresent(record, "TotalAssets", row.TotalAssets)
		setIfPresent(record, "NetIncome", row.NetIncome)
		setIfPresent(record, "EarningsPerShare", row.EPS)
		records = append(records, record)
	}
	return records, nil
}

func setIfPresent(record dto.Record, key string, v *float64) {
	if v != nil {
		record[key] = *v
	}
}
