package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang-stock-advisor/internal/batch/config"
	"golang-stock-advisor/internal/batch/dto"
	"golang-stock-advisor/internal/batch/repository"
	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/internal/rules"
	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/quota"
	"golang-stock-advisor/pkg/telegram"
)

// Pipeline runs one full ingestion batch: N fetch workers feed a single
// serialized writer through a bounded channel.
type Pipeline interface {
	Run(ctx context.Context) error
}

type pipeline struct {
	cfg          *config.Config
	log          *logger.Logger
	yahooRepo    repository.YahooFinanceRepository
	edinetRepo   repository.EdinetRepository
	newsRepo     repository.NewsAPIRepository
	batchRuns    repository.BatchRunRepository
	vendorCache  repository.VendorCodeCacheRepository
	statements   repository.StatementRepository
	watermarks   repository.WatermarkRepository
	writer       repository.BatchWriterRepository
	orchestrator *rules.Orchestrator
	limiter      *quota.DailyLimiter
	notifier     telegram.Notifier

	successCount atomic.Int64
	errorCount   atomic.Int64
}

// NewPipeline creates the batch ingestion pipeline.
func NewPipeline(
	cfg *config.Config,
	log *logger.Logger,
	yahooRepo repository.YahooFinanceRepository,
	edinetRepo repository.EdinetRepository,
	newsRepo repository.NewsAPIRepository,
	batchRuns repository.BatchRunRepository,
	vendorCache repository.VendorCodeCacheRepository,
	statements repository.StatementRepository,
	watermarks repository.WatermarkRepository,
	writer repository.BatchWriterRepository,
	notifier telegram.Notifier,
) Pipeline {
	return &pipeline{
		cfg:          cfg,
		log:          log,
		yahooRepo:    yahooRepo,
		edinetRepo:   edinetRepo,
		newsRepo:     newsRepo,
		batchRuns:    batchRuns,
		vendorCache:  vendorCache,
		statements:   statements,
		watermarks:   watermarks,
		writer:       writer,
		orchestrator: rules.NewOrchestrator(),
		limiter:      quota.NewDailyLimiter(cfg.Batch.StatementsDailyQuota),
		notifier:     notifier,
	}
}

// Run executes the batch end-to-end. Per-symbol failures are counted, never
// fatal; only top-level errors (storage down, run row unwritable) return an
// error and a non-zero process exit.
func (p *pipeline) Run(ctx context.Context) error {
	watchlist := normalizeWatchlist(p.cfg.Batch.Watchlist)
	if len(watchlist) == 0 {
		return fmt.Errorf("watchlist is empty")
	}

	run, err := p.batchRuns.Create(ctx, len(watchlist))
	if err != nil {
		return fmt.Errorf("create batch run: %w", err)
	}
	p.log.InfoContext(ctx, "Batch run started",
		logger.IntField("batch_run_id", int(run.ID)),
		logger.IntField("target_count", len(watchlist)),
	)

	announcements := p.fetchAnnouncements(ctx)

	workers := p.cfg.Batch.Workers
	codes := make(chan string)
	payloads := make(chan *dto.StockPayload, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range codes {
				payload, err := p.processSymbol(ctx, code, announcements)
				if err != nil {
					p.errorCount.Add(1)
					p.log.ErrorContext(ctx, "Symbol processing failed", logger.StringField("code", code), logger.ErrorField(err))
					continue
				}
				payloads <- payload
			}
		}()
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		p.drainPayloads(ctx, run.ID, payloads)
	}()

	for _, code := range watchlist {
		codes <- code
	}
	close(codes)
	wg.Wait()
	// All workers are done; closing the payload channel is the writer's
	// shutdown sentinel.
	close(payloads)
	<-writerDone

	return p.finalize(ctx, run, len(watchlist))
}

// drainPayloads is the single writer. It commits one transaction per symbol
// and advances the news watermark only after the commit succeeds.
func (p *pipeline) drainPayloads(ctx context.Context, batchRunID uint, payloads <-chan *dto.StockPayload) {
	for payload := range payloads {
		maxPublished, err := p.writer.PersistPayload(ctx, batchRunID, payload)
		if err != nil {
			p.errorCount.Add(1)
			p.log.ErrorContext(ctx, "Failed to persist payload", logger.StringField("code", payload.Code), logger.ErrorField(err))
			continue
		}
		p.successCount.Add(1)

		if maxPublished != nil {
			if err := p.watermarks.Advance(ctx, payload.Code, common.FeedNews, *maxPublished); err != nil {
				p.log.ErrorContext(ctx, "Failed to advance news watermark", logger.StringField("code", payload.Code), logger.ErrorField(err))
			}
		}
	}
}

// processSymbol gathers one symbol's data and scores it. Soft failures on
// secondary feeds degrade to empty data; only a quote-fetch failure fails
// the symbol outright.
func (p *pipeline) processSymbol(ctx context.Context, code string, announcements []dto.Record) (*dto.StockPayload, error) {
	listing, err := p.yahooRepo.GetListingInfo(ctx, code)
	if err != nil {
		p.log.WarnContext(ctx, "Listing info unavailable", logger.StringField("code", code), logger.ErrorField(err))
		listing = dto.ListingInfo{Code: code}
	}

	quotes, err := p.yahooRepo.GetDailyQuotes(ctx, code, p.cfg.Batch.QuoteDays)
	if err != nil {
		return nil, fmt.Errorf("fetch daily quotes: %w", err)
	}

	dividends, err := p.yahooRepo.GetDividends(ctx, code)
	if err != nil {
		p.log.WarnContext(ctx, "Dividend history unavailable", logger.StringField("code", code), logger.ErrorField(err))
	}

	statements, statementsFetched := p.resolveStatements(ctx, code)

	news := p.fetchNews(ctx, code)

	judgments := p.orchestrator.EvaluateAll(rules.StockInput{
		Code:          code,
		Name:          listing.Name,
		Quotes:        quotes,
		Statements:    statements,
		Dividends:     dividends,
		Announcements: announcements,
	})

	return &dto.StockPayload{
		Code:              code,
		Listing:           listing,
		Quotes:            quotes,
		Statements:        statements,
		Dividends:         dividends,
		News:              news,
		Judgments:         judgments,
		StatementsFetched: statementsFetched,
	}, nil
}

// resolveStatements prefers a fresh stored copy, then the quota-limited
// secondary provider, then fallback figures derived from the primary
// vendor's report data.
func (p *pipeline) resolveStatements(ctx context.Context, code string) ([]dto.Record, bool) {
	freshWindow := time.Duration(p.cfg.Batch.StatementsFreshDays) * 24 * time.Hour

	latest, err := p.statements.LatestUpdatedAt(ctx, code)
	if err != nil {
		p.log.WarnContext(ctx, "Statements freshness check failed", logger.StringField("code", code), logger.ErrorField(err))
	}
	if latest != nil && time.Since(*latest) <= freshWindow {
		stored, err := p.statements.ReadStatements(ctx, code)
		if err == nil && len(stored) > 0 {
			return stored, false
		}
		if err != nil {
			p.log.WarnContext(ctx, "Failed to read stored statements", logger.StringField("code", code), logger.ErrorField(err))
		}
	}

	if p.cfg.EdinetDB.APIKey != "" && p.limiter.TryConsume(1) {
		if statements, ok := p.fetchSecondaryStatements(ctx, code); ok {
			return statements, true
		}
	}

	fallback, err := p.yahooRepo.GetFallbackStatements(ctx, code)
	if err != nil {
		p.log.WarnContext(ctx, "Fallback statements unavailable", logger.StringField("code", code), logger.ErrorField(err))
		return nil, false
	}
	return fallback, false
}

func (p *pipeline) fetchSecondaryStatements(ctx context.Context, code string) ([]dto.Record, bool) {
	cacheAge := time.Duration(p.cfg.Batch.VendorCodeCacheDays) * 24 * time.Hour
	if cached, found, err := p.vendorCache.Get(ctx, code, cacheAge); err == nil && found {
		p.edinetRepo.InjectVendorCode(code, cached)
	} else if err != nil {
		p.log.WarnContext(ctx, "Vendor code cache lookup failed", logger.StringField("code", code), logger.ErrorField(err))
	}

	vendorCode, ok := p.edinetRepo.ResolveVendorCode(ctx, code)
	if !ok {
		p.log.WarnContext(ctx, "Vendor code not found", logger.StringField("code", code))
		return nil, false
	}
	if err := p.vendorCache.Upsert(ctx, code, vendorCode); err != nil {
		p.log.WarnContext(ctx, "Failed to persist vendor code", logger.StringField("code", code), logger.ErrorField(err))
	}

	statements, err := p.edinetRepo.GetStatements(ctx, vendorCode)
	if err != nil {
		p.log.WarnContext(ctx, "Secondary statements fetch failed",
			logger.StringField("code", code),
			logger.StringField("vendor_code", vendorCode),
			logger.ErrorField(err),
		)
		return nil, false
	}
	if len(statements) == 0 {
		return nil, false
	}
	return statements, true
}

func (p *pipeline) fetchNews(ctx context.Context, code string) []dto.NewsItem {
	since := time.Now().AddDate(0, 0, -p.cfg.Batch.NewsLookbackDays)
	wm, err := p.watermarks.Get(ctx, code, common.FeedNews)
	if err != nil {
		p.log.WarnContext(ctx, "Watermark lookup failed", logger.StringField("code", code), logger.ErrorField(err))
	}
	if wm != nil {
		since = wm.LastPublishedAt
	}

	items, err := p.newsRepo.GetNews(ctx, code, since, p.cfg.Batch.NewsLimitPerSymbol)
	if err != nil {
		p.log.WarnContext(ctx, "News fetch failed", logger.StringField("code", code), logger.ErrorField(err))
		return nil
	}
	return items
}

func (p *pipeline) fetchAnnouncements(ctx context.Context) []dto.Record {
	announcements, err := p.yahooRepo.GetAnnouncements(ctx)
	if err != nil {
		p.log.WarnContext(ctx, "Announcement calendar unavailable", logger.ErrorField(err))
		return nil
	}
	if err := p.writer.PersistAnnouncements(ctx, announcements); err != nil {
		p.log.ErrorContext(ctx, "Failed to persist announcements", logger.ErrorField(err))
	}
	return announcements
}

func (p *pipeline) finalize(ctx context.Context, run *entity.BatchRun, targetCount int) error {
	successCount := int(p.successCount.Load())
	errorCount := int(p.errorCount.Load())

	status := entity.BatchRunStatusSuccess
	if errorCount > 0 {
		status = entity.BatchRunStatusError
	}
	message := fmt.Sprintf("processed %d symbols: %d succeeded, %d failed", targetCount, successCount, errorCount)

	if err := p.batchRuns.Finalize(ctx, run, status, successCount, errorCount, message); err != nil {
		return fmt.Errorf("finalize batch run: %w", err)
	}

	p.log.InfoContext(ctx, "Batch run finished",
		logger.IntField("batch_run_id", int(run.ID)),
		logger.StringField("status", status),
		logger.IntField("success_count", successCount),
		logger.IntField("error_count", errorCount),
		logger.IntField("statements_quota_used", p.limiter.Used()),
	)

	summary := fmt.Sprintf("Batch run #%d %s\ntargets: %d\nsucceeded: %d\nfailed: %d",
		run.ID, status, targetCount, successCount, errorCount)
	if err := p.notifier.SendMessage(summary); err != nil {
		p.log.WarnContext(ctx, "Failed to send batch summary", logger.ErrorField(err))
	}
	return nil
}

func normalizeWatchlist(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, code := range raw {
		code = normalizeCode(code)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// normalizeCode strips an inline comment and the exchange suffix from one
// watchlist entry.
func normalizeCode(raw string) string {
	if i := strings.Index(raw, "#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(strings.ReplaceAll(raw, ".T", ""))
}
