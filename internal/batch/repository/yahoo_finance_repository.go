package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang-stock-advisor/internal/batch/config"
	"golang-stock-advisor/internal/batch/dto"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"golang.org/x/time/rate"
)

// YahooFinanceRepository is the primary market-data provider client. It
// returns raw records so field-name differences between API versions stay
// inside the extractors.
type YahooFinanceRepository interface {
	GetListingInfo(ctx context.Context, code string) (dto.ListingInfo, error)
	GetDailyQuotes(ctx context.Context, code string, days int) ([]dto.Record, error)
	GetDividends(ctx context.Context, code string) ([]dto.Record, error)
	GetFallbackStatements(ctx context.Context, code string) ([]dto.Record, error)
	GetAnnouncements(ctx context.Context) ([]dto.Record, error)
}

type yahooFinanceRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewYahooFinanceRepository creates a rate-limited primary vendor client.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) YahooFinanceRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.YahooFinance.MaxRequestPerMinute)
	return &yahooFinanceRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

func (r *yahooFinanceRepository) GetListingInfo(ctx context.Context, code string) (dto.ListingInfo, error) {
	body, err := r.get(ctx, "/listing", url.Values{"code": {code}})
	if err != nil {
		return dto.ListingInfo{Code: code}, err
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return dto.ListingInfo{Code: code}, fmt.Errorf("decode listing response: %w", err)
	}

	record := payload
	if items := utils.ExtractList(payload, "data", "results", "items"); len(items) > 0 {
		record = items[0]
	}

	info := dto.ListingInfo{Code: code}
	if name, ok := utils.ExtractString(record, "CompanyName", "Name", "shortName", "longName"); ok {
		info.Name = name
	}
	if market, ok := utils.ExtractString(record, "MarketCodeName", "Market", "exchange"); ok {
		info.Market = market
	}
	return info, nil
}

func (r *yahooFinanceRepository) GetDailyQuotes(ctx context.Context, code string, days int) ([]dto.Record, error) {
	body, err := r.get(ctx, "/daily_quotes", url.Values{
		"code": {code},
		"days": {fmt.Sprintf("%d", days)},
	})
	if err != nil {
		return nil, err
	}
	return r.decodeRecords(body, "daily_quotes", "quotes", "data", "results")
}

func (r *yahooFinanceRepository) GetDividends(ctx context.Context, code string) ([]dto.Record, error) {
	body, err := r.get(ctx, "/dividends", url.Values{"code": {code}})
	if err != nil {
		return nil, err
	}
	return r.decodeRecords(body, "dividends", "data", "results")
}

// GetFallbackStatements derives statement-like figures from the primary
// vendor's financial report data. Quality is below the secondary provider,
// so the writer only keeps these rows when nothing fresher exists.
func (r *yahooFinanceRepository) GetFallbackStatements(ctx context.Context, code string) ([]dto.Record, error) {
	body, err := r.get(ctx, "/financials", url.Values{"code": {code}})
	if err != nil {
		return nil, err
	}
	return r.decodeRecords(body, "statements", "financials", "data", "results")
}

func (r *yahooFinanceRepository) GetAnnouncements(ctx context.Context) ([]dto.Record, error) {
	body, err := r.get(ctx, "/announcements", url.Values{})
	if err != nil {
		return nil, err
	}
	return r.decodeRecords(body, "announcements", "announcement", "data", "results")
}

func (r *yahooFinanceRepository) decodeRecords(body []byte, containerKeys ...string) ([]dto.Record, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return utils.ExtractList(payload, containerKeys...), nil
}

func (r *yahooFinanceRepository) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := r.cfg.YahooFinance.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.ErrorContext(ctx, "Market data request failed", logger.StringField("url", reqURL), logger.ErrorField(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.ErrorContext(ctx, "Market data request returned non-200",
			logger.StringField("url", reqURL),
			logger.IntField("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("market data request failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
