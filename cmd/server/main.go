package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/product-recommender/internal/cache"
	"github.com/actuallystonmai/product-recommender/internal/config"
	"github.com/actuallystonmai/product-recommender/internal/explain"
	"github.com/actuallystonmai/product-recommender/internal/handler"
	"github.com/actuallystonmai/product-recommender/internal/llm"
	"github.com/actuallystonmai/product-recommender/internal/logging"
	"github.com/actuallystonmai/product-recommender/internal/repository"
	"github.com/actuallystonmai/product-recommender/internal/router"
	"github.com/actuallystonmai/product-recommender/internal/service"
	"github.com/actuallystonmai/product-recommender/seeds"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	// ------------ PostgreSQL ---------------
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to parse database config")
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool); err != nil {
		logging.Fatal().Err(err).Msg("database not ready")
	}
	logging.Info().Msg("connected to PostgreSQL")

	// ------------ Run Migrations ---------------
	// for migrate-down using CLI command
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := runMigration(ctx, pool, "migrations/create_tables.down.sql"); err != nil {
			logging.Fatal().Err(err).Msg("failed to migrate down")
		}
		logging.Info().Msg("migrations dropped")
		return
	}

	if err := runMigration(ctx, pool, "migrations/create_tables.up.sql"); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate up")
	}

	repo := repository.New(pool)

	// ------------ Setup Seed Data ---------------
	if err := checkSeed(ctx, repo, pool); err != nil {
		logging.Fatal().Err(err).Msg("failed to check seed")
	}

	// ------------ Redis ---------------
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to parse redis url")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	var recCache service.Cache
	c := cache.NewCache(rdb, cfg.CacheTTL)
	if err := c.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("redis unavailable, serving without hot cache")
	} else {
		recCache = c
		logging.Info().Msg("connected to Redis")
	}

	// ------------ Text generation ---------------
	client, err := llm.NewOpenAIClient(llm.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create text generation client")
	}
	if cfg.LLMAPIKey == "" {
		logging.Warn().Msg("llm_api_key not set, explanations use the fallback template")
	}
	explainer := explain.NewExplainer(
		llm.NewBreakerClient(client, llm.DefaultBreakerSettings()),
		explain.WithTimeout(cfg.LLMTimeout),
		explain.WithMaxTokens(cfg.LLMMaxTokens),
		explain.WithTemperature(cfg.LLMTemperature),
	)

	svc := service.NewService(repo, repo, repo, recCache, explainer, service.Options{
		MaxFeatures:   cfg.MaxFeatures,
		DefaultK:      cfg.DefaultK,
		MaxK:          cfg.MaxK,
		SearchK:       cfg.SearchK,
		CandidatePool: cfg.CandidatePool,
		StoreMaxAge:   cfg.StoreMaxAge,
		BatchWorkers:  cfg.BatchWorkers,
	})
	h := handler.NewHandler(svc, handler.Limits{MaxK: cfg.MaxK, MaxBatchLimit: cfg.BatchMaxLimit})

	// ---------------- Server --------------------
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(h, router.Options{RateLimitPerMinute: cfg.RateLimitPerMinute}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
	logging.Info().Msg("server stopped")
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		logging.Info().Int("attempt", i+1).Msg("waiting for database")
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func runMigration(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration %s: %w", path, err)
	}
	logging.Info().Str("file", path).Msg("migration applied")
	return nil
}

func checkSeed(ctx context.Context, repo *repository.Repository, pool *pgxpool.Pool) error {
	count, err := repo.CountItems(ctx)
	if err != nil {
		return fmt.Errorf("check items count: %w", err)
	}
	if count > 0 {
		logging.Info().Int("items", count).Msg("database already seeded, skipping")
		return nil
	}
	return seeds.Setup(ctx, pool)
}
