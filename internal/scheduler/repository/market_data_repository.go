package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang-stock-advisor/internal/scheduler/config"
	"golang-stock-advisor/internal/scheduler/dto"
	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// MarketDataRepository is the live intraday price feed. Every snapshot fetch
// refreshes the per-symbol last-price key in Redis so the minute jobs and
// the API share one recent price without hammering the vendor.
type MarketDataRepository interface {
	GetIntradaySnapshot(ctx context.Context, code string) (*dto.IntradaySnapshot, error)
	GetLastPrice(ctx context.Context, code string) (float64, error)
}

type marketDataRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	redisClient    *redis.Client
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	lastPriceTTL   time.Duration
}

// NewMarketDataRepository creates the intraday price feed client.
func NewMarketDataRepository(cfg *config.Config, log *logger.Logger, redisClient *redis.Client) MarketDataRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.MarketData.MaxRequestPerMinute)
	ttl, err := time.ParseDuration(cfg.MarketData.LastPriceTTL)
	if err != nil {
		ttl = 5 * time.Minute
	}
	return &marketDataRepository{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		lastPriceTTL:   ttl,
	}
}

func (r *marketDataRepository) GetIntradaySnapshot(ctx context.Context, code string) (*dto.IntradaySnapshot, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{"code": {code}}
	reqURL := r.cfg.MarketData.BaseURL + "/intraday?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("intraday request failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decode intraday response: %w", err)
	}

	snapshot := &dto.IntradaySnapshot{
		Code:        code,
		PrevClose:   extractField(record, "PrevClose", "previousClose", "prev_close"),
		PrevVolume:  extractField(record, "PrevVolume", "previousVolume", "prev_volume"),
		DayOpen:     extractField(record, "Open", "dayOpen", "open"),
		DayHigh:     extractField(record, "High", "dayHigh", "high"),
		LatestPrice: extractField(record, "LatestPrice", "regularMarketPrice", "price", "last"),
		CumVolume:   extractField(record, "Volume", "cumVolume", "volume"),
	}

	if snapshot.LatestPrice != nil {
		r.cacheLastPrice(ctx, code, *snapshot.LatestPrice)
	}
	return snapshot, nil
}

// GetLastPrice serves from the Redis cache when possible and falls back to a
// snapshot fetch.
func (r *marketDataRepository) GetLastPrice(ctx context.Context, code string) (float64, error) {
	key := fmt.Sprintf(common.RedisKeyLastPrice, code)
	cached, err := r.redisClient.Get(ctx, key).Result()
	if err == nil {
		if price, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
			return price, nil
		}
	} else if err != redis.Nil {
		r.log.WarnContext(ctx, "Last price cache read failed", logger.StringField("code", code), logger.ErrorField(err))
	}

	snapshot, err := r.GetIntradaySnapshot(ctx, code)
	if err != nil {
		return 0, err
	}
	if snapshot.LatestPrice == nil {
		return 0, fmt.Errorf("no intraday price for %s", code)
	}
	return *snapshot.LatestPrice, nil
}

func (r *marketDataRepository) cacheLastPrice(ctx context.Context, code string, price float64) {
	key := fmt.Sprintf(common.RedisKeyLastPrice, code)
	if err := r.redisClient.Set(ctx, key, strconv.FormatFloat(price, 'f', -1, 64), r.lastPriceTTL).Err(); err != nil {
		r.log.WarnContext(ctx, "Last price cache write failed", logger.StringField("code", code), logger.ErrorField(err))
	}
}

func extractField(record map[string]any, keys ...string) *float64 {
	if v, ok := utils.ExtractFloat(record, keys...); ok {
		return &v
	}
	return nil
}
