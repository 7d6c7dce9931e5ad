package handler

import (
	"errors"
	"net/http"
	"strconv"

	"sentiment-pattern-bot/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// GetPatterns runs (or serves from cache) the analysis for one symbol.
// @Summary      Analyse one symbol
// @Description  Correlates sentiment with price for the symbol and returns patterns, signals and indicators
// @Tags         patterns
// @Produce      json
// @Param        symbol  path  string  true  "Ticker symbol"
// @Success      200  {object}  service.Report
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/patterns/{symbol} [get]
func (h *Handler) GetPatterns(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-patterns")
	defer span.End()

	symbol := c.Param("symbol")
	span.SetAttributes(attribute.String("symbol", symbol))

	report, err := h.analyzer.Analyze(ctx, symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetLatestPatterns lists stored patterns, newest analysis first.
// @Summary      List stored patterns
// @Tags         patterns
// @Produce      json
// @Param        symbol  query  string  false  "Filter by symbol"
// @Param        limit   query  int     false  "Maximum rows (default 20, max 200)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/patterns/latest [get]
func (h *Handler) GetLatestPatterns(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-latest-patterns")
	defer span.End()

	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	records, err := h.analyzer.LatestPatterns(ctx, c.Query("symbol"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": records, "count": len(records)})
}

// GetSignals lists trade signals for one symbol.
// @Summary      List trade signals
// @Tags         signals
// @Produce      json
// @Param        symbol  path   string  true   "Ticker symbol"
// @Param        limit   query  int     false  "Maximum rows (default 20, max 200)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/signals/{symbol} [get]
func (h *Handler) GetSignals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signals")
	defer span.End()

	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	signals, err := h.analyzer.Signals(ctx, c.Param("symbol"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}

// GetCorrelations ranks symbols whose sentiment tracked price.
// @Summary      Rank sentiment-price correlations
// @Tags         patterns
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/correlations [get]
func (h *Handler) GetCorrelations(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-correlations")
	defer span.End()

	ranked, err := h.analyzer.Correlations(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"correlations": ranked, "count": len(ranked)})
}

// TriggerPatternRun analyses every tracked symbol now.
// @Summary      Trigger a pattern run manually
// @Description  Analyses the whole watchlist and returns run counters
// @Tags         patterns
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/patterns/run [post]
func (h *Handler) TriggerPatternRun(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-pattern-run")
	defer span.End()

	result, err := h.analyzer.AnalyzeAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"run_id":           result.RunID,
		"symbols_analyzed": result.SymbolsAnalyzed,
		"patterns_found":   result.PatternsFound,
		"signals_emitted":  result.SignalsEmitted,
		"errors":           result.Errors,
	})
}

// TriggerIngestRun runs one social ingestion cycle.
// @Summary      Trigger social ingestion manually
// @Tags         ingest
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/ingest/run [post]
func (h *Handler) TriggerIngestRun(c *gin.Context) {
	if h.ingest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingest service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-ingest-run")
	defer span.End()

	result, err := h.ingest.RunCycle(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"items_fetched":   result.ItemsFetched,
		"items_scored":    result.ItemsScored,
		"records_written": result.RecordsWritten,
		"errors":          result.Errors,
	})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUnsupportedSymbol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
