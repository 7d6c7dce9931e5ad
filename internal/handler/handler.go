package handler

import (
	"context"

	_ "sentiment-pattern-bot/docs"
	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/metrics"
	"sentiment-pattern-bot/internal/pattern"
	"sentiment-pattern-bot/internal/repository"
	"sentiment-pattern-bot/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/trace"
)

type PatternAnalyzer interface {
	Analyze(ctx context.Context, symbol string) (*service.Report, error)
	AnalyzeAll(ctx context.Context) (domain.AnalysisRunResult, error)
	Signals(ctx context.Context, symbol string, limit int) ([]domain.Signal, error)
	LatestPatterns(ctx context.Context, symbol string, limit int) ([]repository.PatternRecord, error)
	Correlations(ctx context.Context) ([]pattern.Correlation, error)
}

type IngestRunner interface {
	RunCycle(ctx context.Context) (domain.IngestRunResult, error)
}

type Handler struct {
	tracer   trace.Tracer
	analyzer PatternAnalyzer
	ingest   IngestRunner
}

func New(tracer trace.Tracer, analyzer PatternAnalyzer) *Handler {
	return &Handler{tracer: tracer, analyzer: analyzer}
}

func (h *Handler) SetIngestRunner(runner IngestRunner) {
	h.ingest = runner
}

// RegisterRoutes mounts health, metrics and the swagger UI at the root and
// everything else under /api behind the optional API key.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/patterns/latest", h.GetLatestPatterns)
	api.GET("/patterns/:symbol", h.GetPatterns)
	api.POST("/patterns/run", h.TriggerPatternRun)
	api.GET("/signals/:symbol", h.GetSignals)
	api.GET("/correlations", h.GetCorrelations)
	api.POST("/ingest/run", h.TriggerIngestRun)
}
