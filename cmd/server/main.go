package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentiment-pattern-bot/internal/bot"
	"sentiment-pattern-bot/internal/cache"
	"sentiment-pattern-bot/internal/config"
	"sentiment-pattern-bot/internal/db"
	"sentiment-pattern-bot/internal/handler"
	"sentiment-pattern-bot/internal/job"
	"sentiment-pattern-bot/internal/metrics"
	"sentiment-pattern-bot/internal/provider"
	"sentiment-pattern-bot/internal/repository"
	"sentiment-pattern-bot/internal/sentiment"
	"sentiment-pattern-bot/internal/service"
	"sentiment-pattern-bot/pkg/logger"
	"sentiment-pattern-bot/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const sentimentLookbackDays = 90

var (
	loadEnvFunc      = godotenv.Load
	initLoggerFunc   = logger.Init
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	poolFunc         = func() repository.PgxPool {
		if db.Pool == nil {
			return nil
		}
		return db.Pool
	}
	analysisCacheFunc = func(ttl time.Duration) service.AnalysisCache {
		if cache.Client == nil {
			return nil
		}
		return cache.NewJSONCache(cache.Client, "sentiment", ttl)
	}
	startBackgroundFunc    = func(ctx context.Context, start func(context.Context)) { go start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title Sentiment Pattern Bot API
// @version 1.0
// @description Detects sentiment-price patterns for watched tickers and emits trade signals.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	_ = loadEnvFunc()
	if err := initLoggerFunc(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV")); err != nil {
		logger.Get().Warnw("logger init failed, using defaults", "error", err)
	}
	defer logger.Sync()
	log := logger.Get()

	cfg, err := loadConfigFunc()
	if err != nil {
		log.Errorw("invalid configuration", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Errorw("postgres init failed", "error", err)
		return
	}
	defer db.Close()
	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Warnw("redis unavailable, analysis cache disabled", "error", err)
	}

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Errorw("failed to initialize tracer", "error", err)
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warnw("error shutting down tracer provider", "error", err)
		}
	}()

	metrics.Init()

	pool := poolFunc()
	if pool == nil {
		log.Error("DATABASE_URL is required; run `migrate up` against it before starting the server")
		return
	}
	sentimentRepo := repository.NewSentimentRepository(pool, tracer)
	priceRepo := repository.NewPriceRepository(pool, tracer)
	patternRepo := repository.NewPatternRepository(pool, tracer)

	// Reddit allows roughly 10 unauthenticated requests a minute.
	reddit := provider.NewRedditProvider(tracer, provider.NewRateLimiter(10, 6*time.Second))
	yahoo := provider.NewYahooProvider(tracer, provider.NewRateLimiter(5, 2*time.Second))

	var llm sentiment.BatchLLMScorer
	if s := sentiment.NewOpenAIScorer(cfg.OpenAIAPIKey, cfg.OpenAIModel); s != nil {
		llm = s
	}
	ingestService := service.NewIngestService(
		tracer,
		reddit,
		sentiment.NewScorer(llm, 0),
		sentiment.NewSymbolExtractor(cfg.Watchlist),
		sentimentRepo,
		service.IngestConfig{
			Subreddits:      cfg.RedditSubreddits,
			PostLimit:       cfg.RedditPostLimit,
			CommentsPerPost: cfg.RedditCommentsPerPost,
		},
	)
	priceService := service.NewPriceService(tracer, yahoo, priceRepo, cfg.PriceHistoryRange)

	analysisCache := analysisCacheFunc(time.Duration(cfg.AnalysisCacheTTLSecs) * time.Second)
	if analysisCache != nil {
		ingestService.SetCacheInvalidator(analysisCache)
		priceService.SetCacheInvalidator(analysisCache)
	}

	analysisService, err := service.NewAnalysisService(
		tracer,
		sentimentRepo,
		priceService,
		patternRepo,
		analysisCache,
		service.AnalysisConfig{
			Pattern:      cfg.Pattern,
			Watchlist:    cfg.Watchlist,
			LookbackDays: sentimentLookbackDays,
			Workers:      cfg.AnalysisWorkers,
		},
	)
	if err != nil {
		log.Errorw("invalid analysis settings", "error", err)
		return
	}

	patternJob, err := job.NewPatternJob(tracer, analysisService, cfg.PatternCron)
	if err != nil {
		log.Errorw("invalid pattern schedule", "error", err)
		return
	}
	watchlist := func() []string { return cfg.Watchlist }
	startBackgroundFunc(ctx, job.NewIngestJob(tracer, ingestService, time.Duration(cfg.IngestPollSecs)*time.Second).Start)
	startBackgroundFunc(ctx, job.NewPricePoller(tracer, priceService, watchlist, cfg.PricePollSecs).Start)
	startBackgroundFunc(ctx, patternJob.Start)

	if err := startTelegramBotFunc(ctx, cfg.TelegramBotToken, analysisService); err != nil {
		log.Warnw("telegram bot disabled", "error", err)
	}

	h := handler.New(tracer, analysisService)
	h.SetIngestRunner(ingestService)

	r := newRouterFunc()
	r.Use(gin.Recovery(), otelgin.Middleware(tracing.ServiceName()), handler.RequestLogger())
	h.RegisterRoutes(r, cfg.APIKey)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s", err)
		}
	}()
	log.Infow("server started", "addr", cfg.HTTPAddr, "watchlist", cfg.Watchlist)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return
	}

	log.Info("Server exiting")
}
