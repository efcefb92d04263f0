package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"bitmax/internal/cache"
	"bitmax/internal/config"
	cronrunner "bitmax/internal/cron"
	"bitmax/internal/db"
	"bitmax/internal/engine"
	"bitmax/internal/handler"
	"bitmax/internal/ledger"
	"bitmax/internal/logger"
	"bitmax/internal/pricefeed"
	gormrepository "bitmax/internal/repository/gorm"
	"bitmax/internal/strategy"
	"bitmax/internal/stream"
	"bitmax/internal/tracing"

	_ "bitmax/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("BOT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("BOT_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.New(ctx, cfg.Trace)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	dbConn, err := db.Open(ctx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm).
		WithSeed(cfg.Ledger.SeedAsset, decimal.NewFromFloat(cfg.Ledger.SeedBalance))

	priceCache, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		logger.Warn("cache backend unavailable, falling back to memory", zap.String("driver", cfg.Cache.Driver), zap.Error(err))
		priceCache = cache.NewMemoryStore()
	}
	defer priceCache.Close()

	prices := &pricefeed.CachedSource{
		Source: pricefeed.NewLlamaClient(cfg.PriceFeed, logger),
		Store:  priceCache,
		TTL:    cfg.Cache.TTL,
		Logger: logger,
	}

	executor := ledger.NewExecutor(store, logger)
	hub := stream.NewTradeHub()
	registry := strategy.DefaultRegistry(cfg.StrategyDefaults)

	botEngine := &engine.Engine{
		Repo:         store,
		Prices:       prices,
		Ledger:       executor,
		Registry:     registry,
		Logger:       logger,
		Notifier:     hub,
		Tracer:       tracer.Tracer(),
		PriceTimeout: cfg.Engine.PriceTimeout,
		Workers:      cfg.Engine.Workers,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Engine: botEngine, Stream: hub}
	healthHandler.Register(router)
	strategyHandler := &handler.StrategyHandler{Repo: store, Registry: registry}
	strategyHandler.Register(router)
	portfolioHandler := &handler.PortfolioHandler{Repo: store, Ledger: executor}
	portfolioHandler.Register(router)
	tradeHandler := &handler.TradeHandler{Repo: store}
	tradeHandler.Register(router)
	tickHandler := &handler.TickHandler{Engine: botEngine}
	tickHandler.Register(router)
	priceHandler := &handler.PriceHandler{Source: prices}
	priceHandler.Register(router)
	streamHandler := &handler.StreamHandler{Hub: hub, Logger: logger, OriginPatterns: []string{"*"}}
	streamHandler.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.Tick, botEngine.Tick); err != nil {
			logger.Fatal("cron register tick failed", zap.String("spec", cfg.Cron.Tick), zap.Error(err))
		}
		logger.Info("strategy tick scheduled",
			zap.String("spec", cfg.Cron.Tick),
			zap.Strings("variants", registry.Variants()),
			zap.Int("workers", cfg.Engine.Workers),
		)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
