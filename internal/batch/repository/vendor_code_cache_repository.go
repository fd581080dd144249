package repository

import (
	"context"
	"errors"
	"time"

	"golang-stock-advisor/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VendorCodeCacheRepository is the durable half of vendor-code caching. Rows
// past the staleness window are ignored but never deleted.
type VendorCodeCacheRepository interface {
	Get(ctx context.Context, securityCode string, maxAge time.Duration) (string, bool, error)
	Upsert(ctx context.Context, securityCode, vendorCode string) error
}

type vendorCodeCacheRepository struct {
	db *gorm.DB
}

func NewVendorCodeCacheRepository(db *gorm.DB) VendorCodeCacheRepository {
	return &vendorCodeCacheRepository{db: db}
}

func (r *vendorCodeCacheRepository) Get(ctx context.Context, securityCode string, maxAge time.Duration) (string, bool, error) {
	var row entity.VendorCodeCache
	err := r.db.WithContext(ctx).Where("security_code = ?", securityCode).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if time.Since(row.CachedAt) > maxAge {
		return "", false, nil
	}
	return row.VendorCode, true, nil
}

func (r *vendorCodeCacheRepository) Upsert(ctx context.Context, securityCode, vendorCode string) error {
	row := entity.VendorCodeCache{
		SecurityCode: securityCode,
		VendorCode:   vendorCode,
		CachedAt:     time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "security_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"vendor_code", "cached_at"}),
	}).Create(&row).Error
}
