package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/insurance/screening-service/internal/cache"
	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/events"
	"github.com/insurance/screening-service/internal/importer"
	"github.com/insurance/screening-service/internal/insurance"
	"github.com/insurance/screening-service/internal/pkg/logger"
	"github.com/insurance/screening-service/internal/pkg/telemetry"
	"github.com/insurance/screening-service/internal/screening"
	"github.com/insurance/screening-service/internal/server"
	"github.com/insurance/screening-service/internal/store"
	"github.com/insurance/screening-service/internal/underwriting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Environment != "production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(ctx, &cfg.Telemetry)
	if err != nil {
		log.Fatal("failed to initialize telemetry", logger.ErrorField(err))
	}
	defer shutdownTracing(ctx)

	pool, err := pgxpool.New(ctx, databaseURL(&cfg.Database))
	if err != nil {
		log.Fatal("failed to connect to postgres", logger.ErrorField(err))
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer rdb.Close()

	publisher, err := events.NewPublisher(&cfg.Kafka, log)
	if err != nil {
		log.Fatal("failed to connect to kafka", logger.ErrorField(err))
	}
	defer publisher.Close()

	// Storage and the read path
	pg := store.NewPostgres(pool)
	records := cache.NewRecordIndex(pg, rdb, cfg.Redis.RecordIndexTTL, log)

	// Screening pipeline
	locator := screening.NewLocator(records, cfg.Screening.FuzzyCandidateCap, log)
	scorer := screening.NewScorer(&cfg.Screening)
	aggregator := screening.NewAggregator(cfg.Screening.ClusterDiversityBonus)
	screener := screening.NewEngine(locator, scorer, aggregator, &cfg.Screening, log)

	// Insurance and underwriting
	profiles := insurance.NewBuilder(pg, &cfg.Insurance, log)
	decider := underwriting.NewEngine(&cfg.Underwriting, screener.Bands(), log)
	underwriter := underwriting.NewService(screener, profiles, decider, log)

	imp := importer.NewImporter(pg, &cfg.Screening, log)

	srv := server.New(screener, profiles, underwriter, imp, pg, publisher, records, cfg, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%d", cfg.Server.MaxRequestSize)))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	srv.Register(e)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("server stopped", logger.ErrorField(err))
		}
	}()
	log.Info("server started", logger.StringField("addr", serverAddr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatal("forced shutdown", logger.ErrorField(err))
	}
	log.Info("server exited")
}

func databaseURL(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode, cfg.MaxOpenConns)
}
