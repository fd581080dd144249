package config

import (
	"golang-stock-advisor/pkg/config"
)

// Batch holds batch pipeline configuration.
type Batch struct {
	Watchlist            []string `mapstructure:"watchlist"`
	Workers              int      `mapstructure:"workers"`
	QuoteDays            int      `mapstructure:"quote_days"`
	StatementsFreshDays  int      `mapstructure:"statements_fresh_days"`
	VendorCodeCacheDays  int      `mapstructure:"vendor_code_cache_days"`
	NewsLookbackDays     int      `mapstructure:"news_lookback_days"`
	NewsLimitPerSymbol   int      `mapstructure:"news_limit_per_symbol"`
	StatementsDailyQuota int      `mapstructure:"statements_daily_quota"`
}

// YahooFinance holds the configuration for the primary market-data provider.
type YahooFinance struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// EdinetDB holds the configuration for the secondary statements provider.
type EdinetDB struct {
	BaseURL             string `mapstructure:"base_url"`
	APIKey              string `mapstructure:"api_key"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// NewsAPI holds the configuration for the pre-scored news collaborator.
type NewsAPI struct {
	BaseURL             string `mapstructure:"base_url"`
	APIKey              string `mapstructure:"api_key"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// Config holds the full configuration for the batch service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Telegram     config.Telegram `mapstructure:"telegram"`
	Batch        Batch           `mapstructure:"batch"`
	YahooFinance YahooFinance    `mapstructure:"yahoo_finance"`
	EdinetDB     EdinetDB        `mapstructure:"edinetdb"`
	NewsAPI      NewsAPI         `mapstructure:"news_api"`
}

// Load loads the batch configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = 5
	}
	if cfg.Batch.QuoteDays <= 0 {
		cfg.Batch.QuoteDays = 90
	}
	if cfg.Batch.StatementsFreshDays <= 0 {
		cfg.Batch.StatementsFreshDays = 30
	}
	if cfg.Batch.VendorCodeCacheDays <= 0 {
		cfg.Batch.VendorCodeCacheDays = 30
	}
	if cfg.Batch.NewsLookbackDays <= 0 {
		cfg.Batch.NewsLookbackDays = 30
	}
	if cfg.Batch.NewsLimitPerSymbol <= 0 {
		cfg.Batch.NewsLimitPerSymbol = 10
	}
	if cfg.Batch.StatementsDailyQuota <= 0 {
		cfg.Batch.StatementsDailyQuota = 100
	}
	if cfg.YahooFinance.MaxRequestPerMinute <= 0 {
		cfg.YahooFinance.MaxRequestPerMinute = 60
	}
	if cfg.EdinetDB.MaxRequestPerMinute <= 0 {
		cfg.EdinetDB.MaxRequestPerMinute = 30
	}
	if cfg.NewsAPI.MaxRequestPerMinute <= 0 {
		cfg.NewsAPI.MaxRequestPerMinute = 60
	}
}
