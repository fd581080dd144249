package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-stock-advisor/internal/scheduler/dto"
	"golang-stock-advisor/internal/scheduler/service"
	"golang-stock-advisor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdvisorHandler exposes the read-only query contract and the manual
// intraday job trigger.
type AdvisorHandler struct {
	queryService    service.QueryService
	intradayService service.IntradayService
	logger          *logger.Logger
}

// NewAdvisorHandler creates a new AdvisorHandler.
func NewAdvisorHandler(queryService service.QueryService, intradayService service.IntradayService, logger *logger.Logger) *AdvisorHandler {
	return &AdvisorHandler{
		queryService:    queryService,
		intradayService: intradayService,
		logger:          logger,
	}
}

// RegisterRoutes registers the advisor routes to the Echo group.
func (h *AdvisorHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/batch-runs/latest", h.GetLatestBatchRun)
	g.GET("/batch-runs/:id/summary", h.GetSignalSummary)
	g.GET("/candidates", h.GetCandidates)
	g.GET("/stocks/:code/judgments", h.GetStockJudgments)
	g.GET("/stocks/:code/quotes", h.GetRecentQuotes)
	g.GET("/stocks/:code/news", h.GetRecentNews)
	g.POST("/intraday/jobs/:name/run", h.RunIntradayJob)
}

// GetLatestBatchRun returns the most recent batch run.
func (h *AdvisorHandler) GetLatestBatchRun(c echo.Context) error {
	run, err := h.queryService.LatestBatchRun(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to load latest batch run", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to load latest batch run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no batch runs yet"})
	}
	return c.JSON(http.StatusOK, run)
}

// GetSignalSummary returns the zero-filled strategy/signal counts of a run.
func (h *AdvisorHandler) GetSignalSummary(c echo.Context) error {
	runID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid batch run ID"})
	}

	summary, err := h.queryService.SignalSummary(c.Request().Context(), uint(runID))
	if err != nil {
		h.logger.Error("Failed to load signal summary", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to load signal summary"})
	}
	return c.JSON(http.StatusOK, summary)
}

// GetCandidates returns judgments of a run filtered by strategy, signal and
// price range, ordered by score descending. Defaults to the latest run.
func (h *AdvisorHandler) GetCandidates(c echo.Context) error {
	runID, err := h.resolveRunID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	filter := dto.CandidateFilter{
		Strategy: c.QueryParam("strategy"),
		Signal:   c.QueryParam("signal"),
	}
	if v := c.QueryParam("min_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid min_price"})
		}
		filter.MinPrice = &price
	}
	if v := c.QueryParam("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid max_price"})
		}
		filter.MaxPrice = &price
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid limit"})
		}
		filter.Limit = limit
	}

	candidates, err := h.queryService.Candidates(c.Request().Context(), runID, filter)
	if err != nil {
		h.logger.Error("Failed to load candidates", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to load candidates"})
	}
	return c.JSON(http.StatusOK, candidates)
}

// GetStockJudgments returns one symbol's judgments across all strategies
// for a run. Defaults to the latest run.
func (h *AdvisorHandler) GetStockJudgments(c echo.Context) error {
	runID, err := h.resolveRunID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	judgments, err := h.queryService.StockJudgments(c.Request().Context(), runID, c.Param("code"))
	if err != nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, judgments)
}

// GetRecentQuotes returns the last N daily quotes oldest-first.
func (h *AdvisorHandler) GetRecentQuotes(c echo.Context) error {
	limit := 30
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid limit"})
		}
		limit = parsed
	}

	quotes, err := h.queryService.RecentQuotes(c.Request().Context(), c.Param("code"), limit)
	if err != nil {
		h.logger.Error("Failed to load quotes", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to load quotes"})
	}
	return c.JSON(http.StatusOK, quotes)
}

// GetRecentNews returns sentiment-tagged news within a day window.
func (h *AdvisorHandler) GetRecentNews(c echo.Context) error {
	days := 7
	if v := c.QueryParam("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid days"})
		}
		days = parsed
	}

	news, err := h.queryService.RecentNews(c.Request().Context(), c.Param("code"), days)
	if err != nil {
		h.logger.Error("Failed to load news", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to load news"})
	}
	return c.JSON(http.StatusOK, news)
}

// RunIntradayJob runs one intraday job synchronously by name.
func (h *AdvisorHandler) RunIntradayJob(c echo.Context) error {
	name := c.Param("name")
	message, err := h.intradayService.RunJob(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, service.ErrUnknownJob) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Error("Manual intraday job failed", logger.StringField("job", name), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, dto.RunJobResponse{Job: name, Message: message})
}

func (h *AdvisorHandler) resolveRunID(c echo.Context) (uint, error) {
	if v := c.QueryParam("run_id"); v != "" {
		runID, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, errors.New("invalid run_id")
		}
		return uint(runID), nil
	}

	run, err := h.queryService.LatestBatchRun(c.Request().Context())
	if err != nil || run == nil {
		return 0, errors.New("no batch runs yet")
	}
	return run.ID, nil
}
