package config

import (
	"golang-stock-advisor/pkg/config"
)

// Intraday holds the gap-up state machine thresholds. The defaults mirror
// provisional values; all of them are tunable without a rebuild.
type Intraday struct {
	Watchlist         []string `mapstructure:"watchlist"`
	GapUpMin          float64  `mapstructure:"gap_up_min"`
	VolumeRatioMin    float64  `mapstructure:"volume_ratio_min"`
	HighDistanceMax   float64  `mapstructure:"high_distance_max"`
	CandidateLimit    int      `mapstructure:"candidate_limit"`
	SurvivalDropLimit float64  `mapstructure:"survival_drop_limit"`
	MaxEntriesPerDay  int      `mapstructure:"max_entries_per_day"`
	AllocationPct     float64  `mapstructure:"allocation_pct"`
	TakeProfit        float64  `mapstructure:"take_profit"`
	StopLoss          float64  `mapstructure:"stop_loss"`
	ForceCloseAt      string   `mapstructure:"force_close_at"`
}

// MarketData holds the intraday price feed provider configuration.
type MarketData struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	LastPriceTTL        string `mapstructure:"last_price_ttl"`
}

// Config holds the full configuration for the scheduler service.
type Config struct {
	App        config.App      `mapstructure:"app"`
	Logger     config.Logger   `mapstructure:"logger"`
	Database   config.Database `mapstructure:"database"`
	Redis      config.Redis    `mapstructure:"redis"`
	API        config.API      `mapstructure:"api"`
	Intraday   Intraday        `mapstructure:"intraday"`
	MarketData MarketData      `mapstructure:"market_data"`
}

// Load loads the scheduler configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Intraday.GapUpMin == 0 {
		cfg.Intraday.GapUpMin = 0.10
	}
	if cfg.Intraday.VolumeRatioMin == 0 {
		cfg.Intraday.VolumeRatioMin = 2.0
	}
	if cfg.Intraday.HighDistanceMax == 0 {
		cfg.Intraday.HighDistanceMax = 0.05
	}
	if cfg.Intraday.CandidateLimit == 0 {
		cfg.Intraday.CandidateLimit = 10
	}
	if cfg.Intraday.SurvivalDropLimit == 0 {
		cfg.Intraday.SurvivalDropLimit = -0.02
	}
	if cfg.Intraday.MaxEntriesPerDay == 0 {
		cfg.Intraday.MaxEntriesPerDay = 2
	}
	if cfg.Intraday.AllocationPct == 0 {
		cfg.Intraday.AllocationPct = 0.02
	}
	if cfg.Intraday.TakeProfit == 0 {
		cfg.Intraday.TakeProfit = 0.05
	}
	if cfg.Intraday.StopLoss == 0 {
		cfg.Intraday.StopLoss = -0.02
	}
	if cfg.Intraday.ForceCloseAt == "" {
		cfg.Intraday.ForceCloseAt = "09:30"
	}
	if cfg.MarketData.MaxRequestPerMinute <= 0 {
		cfg.MarketData.MaxRequestPerMinute = 120
	}
	if cfg.MarketData.LastPriceTTL == "" {
		cfg.MarketData.LastPriceTTL = "5m"
	}
}
