package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang-stock-advisor/internal/batch/config"
	"golang-stock-advisor/internal/batch/dto"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// EdinetRepository is the secondary statements provider client (EDINET DB).
// Its endpoints key companies by the provider's own E-code, so security
// codes must be resolved first. Resolution never fails hard: every error
// path degrades to "not found".
type EdinetRepository interface {
	ResolveVendorCode(ctx context.Context, securityCode string) (string, bool)
	InjectVendorCode(securityCode, vendorCode string)
	GetStatements(ctx context.Context, vendorCode string) ([]dto.Record, error)
}

type edinetRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	codeCache      *gocache.Cache
}

var edinetCodePattern = regexp.MustCompile(`^E\d{5}$`)

const (
	edinetCompaniesPageSize = 100
	edinetCompaniesMaxPages = 20
)

// NewEdinetRepository creates a rate-limited EDINET DB client with an
// in-process vendor-code cache.
func NewEdinetRepository(cfg *config.Config, log *logger.Logger) EdinetRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.EdinetDB.MaxRequestPerMinute)
	return &edinetRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		codeCache:      gocache.New(gocache.NoExpiration, gocache.NoExpiration),
	}
}

// InjectVendorCode seeds the in-process cache, typically from the durable
// vendor_code_cache table before the first network call.
func (r *edinetRepository) InjectVendorCode(securityCode, vendorCode string) {
	raw := cleanSecurityCode(securityCode)
	if raw == "" || !isVendorCode(vendorCode) {
		return
	}
	r.codeCache.Set(raw, strings.ToUpper(strings.TrimSpace(vendorCode)), gocache.DefaultExpiration)
}

// ResolveVendorCode maps an exchange security code to the provider's E-code.
// It tries /search first and falls back to paging /companies. A hit is
// cached in-process; the caller persists the durable copy.
func (r *edinetRepository) ResolveVendorCode(ctx context.Context, securityCode string) (string, bool) {
	raw := cleanSecurityCode(securityCode)
	if raw == "" {
		return "", false
	}
	if isVendorCode(raw) {
		return strings.ToUpper(raw), true
	}
	if cached, found := r.codeCache.Get(raw); found {
		return cached.(string), true
	}

	if code, ok := r.resolveViaSearch(ctx, raw); ok {
		r.codeCache.Set(raw, code, gocache.DefaultExpiration)
		return code, true
	}
	if code, ok := r.resolveViaCompanies(ctx, raw); ok {
		r.codeCache.Set(raw, code, gocache.DefaultExpiration)
		return code, true
	}
	return "", false
}

func (r *edinetRepository) resolveViaSearch(ctx context.Context, raw string) (string, bool) {
	result, err := r.getJSON(ctx, "/search", url.Values{"q": {raw}})
	if err != nil {
		r.log.WarnContext(ctx, "EdinetDB search failed", logger.StringField("code", raw), logger.ErrorField(err))
		return "", false
	}
	return matchVendorCode(extractItems(result), raw)
}

func (r *edinetRepository) resolveViaCompanies(ctx context.Context, raw string) (string, bool) {
	page := 1
	for page <= edinetCompaniesMaxPages {
		result, err := r.getJSON(ctx, "/companies", url.Values{
			"page":     {fmt.Sprintf("%d", page)},
			"per_page": {fmt.Sprintf("%d", edinetCompaniesPageSize)},
		})
		if err != nil {
			r.log.WarnContext(ctx, "EdinetDB companies fallback failed", logger.StringField("code", raw), logger.ErrorField(err))
			return "", false
		}

		items := extractItems(result)
		if len(items) == 0 {
			return "", false
		}
		if code, ok := matchVendorCode(items, raw); ok {
			return code, true
		}
		page = nextPage(result, page)
	}
	return "", false
}

// GetStatements fetches the financial time series for a resolved vendor code
// and converts it to statement records keyed by DisclosedDate.
func (r *edinetRepository) GetStatements(ctx context.Context, vendorCode string) ([]dto.Record, error) {
	result, err := r.getJSON(ctx, "/companies/"+vendorCode+"/financials", url.Values{})
	if err != nil {
		return nil, err
	}
	financials := utils.ExtractList(result, "data", "financials", "results")

	statements := make([]dto.Record, 0, len(financials))
	for _, f := range financials {
		disclosedDate := fiscalYearToDate(f["fiscal_year"])
		if disclosedDate == "" {
			continue
		}
		statements = append(statements, dto.Record{
			"DisclosedDate":    disclosedDate,
			"NetSales":         f["revenue"],
			"OperatingProfit":  f["operating_income"],
			"NetIncome":        f["net_income"],
			"TotalAssets":      f["total_assets"],
			"Equity":           f["net_assets"],
			"EarningsPerShare": f["eps"],
		})
	}
	return statements, nil
}

func (r *edinetRepository) getJSON(ctx context.Context, path string, query url.Values) (any, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := r.cfg.EdinetDB.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", r.cfg.EdinetDB.APIKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edinetdb request failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode edinetdb response: %w", err)
	}
	return payload, nil
}

// cleanSecurityCode turns a watchlist code like "7203.T" into the bare
// exchange code.
func cleanSecurityCode(code string) string {
	return strings.TrimSpace(strings.ReplaceAll(code, ".T", ""))
}

func isVendorCode(code string) bool {
	return edinetCodePattern.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}

func extractItems(result any) []dto.Record {
	return utils.ExtractList(result, "data", "results", "companies", "items")
}

func matchVendorCode(items []dto.Record, raw string) (string, bool) {
	for _, item := range items {
		if pickSecurityCode(item) != raw {
			continue
		}
		if code, ok := pickVendorCode(item); ok {
			return code, true
		}
	}
	return "", false
}

func pickVendorCode(item dto.Record) (string, bool) {
	// "code" sometimes carries the E-code too, so it is probed last and
	// shape-validated like the rest.
	for _, key := range []string{"edinet_code", "edinetCode", "edinetcode", "code"} {
		if v, ok := item[key].(string); ok && isVendorCode(v) {
			return strings.ToUpper(strings.TrimSpace(v)), true
		}
	}
	return "", false
}

// pickSecurityCode extracts and normalizes the exchange code from a company
// item. The provider pads codes to 5 digits with a trailing zero ("72030"),
// which is cut back to the 4-digit form.
func pickSecurityCode(item dto.Record) string {
	for _, key := range []string{"security_code", "securities_code", "securitiesCode", "secCode", "sec_code", "ticker"} {
		v, present := item[key]
		if !present || v == nil {
			continue
		}
		s := cleanSecurityCode(stringify(v))
		if s == "" {
			continue
		}
		if len(s) == 5 && strings.HasSuffix(s, "0") && isDigits(s[:4]) {
			s = s[:4]
		}
		return s
	}
	return ""
}

func nextPage(result any, page int) int {
	m, ok := result.(map[string]any)
	if !ok {
		return page + 1
	}
	if next, ok := utils.ToFloat(m["next_page"]); ok && int(next) > page {
		return int(next)
	}
	// has_next only says "keep going"; the page counter advances by one.
	return page + 1
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprintf("%.0f", s)
	case int:
		return fmt.Sprintf("%d", s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fiscalYearToDate converts the provider's fiscal_year field to YYYY-MM-DD.
// A bare year means the fiscal year ending the following March.
func fiscalYearToDate(v any) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(stringify(v))
	switch {
	case len(s) == 10 && s[4] == '-':
		return s
	case len(s) == 7 && s[4] == '-':
		return s + "-31"
	case len(s) == 4 && isDigits(s):
		var year int
		fmt.Sscanf(s, "%d", &year)
		return fmt.Sprintf("%d-03-31", year+1)
	}
	return s
}
