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

	"golang.org/x/time/rate"
)

// NewsAPIRepository is the pre-scored news collaborator. It returns items
// already carrying a sentiment score; this service never parses or scores
// article content itself.
type NewsAPIRepository interface {
	GetNews(ctx context.Context, code string, since time.Time, limit int) ([]dto.NewsItem, error)
}

type newsAPIRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewNewsAPIRepository creates a rate-limited news collaborator client.
func NewNewsAPIRepository(cfg *config.Config, log *logger.Logger) NewsAPIRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.NewsAPI.MaxRequestPerMinute)
	return &newsAPIRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

func (r *newsAPIRepository) GetNews(ctx context.Context, code string, since time.Time, limit int) ([]dto.NewsItem, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{
		"code":  {code},
		"since": {since.UTC().Format(time.RFC3339)},
		"limit": {fmt.Sprintf("%d", limit)},
	}
	reqURL := r.cfg.NewsAPI.BaseURL + "/news?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if r.cfg.NewsAPI.APIKey != "" {
		req.Header.Set("X-API-Key", r.cfg.NewsAPI.APIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.ErrorContext(ctx, "News request failed", logger.StringField("code", code), logger.ErrorField(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news request failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var response struct {
		Items []dto.NewsItem `json:"items"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	return response.Items, nil
}
