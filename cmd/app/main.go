package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"simplelikes/internal/infra/handler"
	infraPostgres "simplelikes/internal/infra/postgres"
	"simplelikes/internal/pkg/apptime"
	"simplelikes/internal/pkg/profilelink"
	"simplelikes/internal/platform/cache"
	"simplelikes/internal/platform/config"
	"simplelikes/internal/platform/database"
	"simplelikes/internal/platform/i18n"
	"simplelikes/internal/platform/logger"
	"simplelikes/internal/platform/metrics"
	"simplelikes/internal/platform/migration"
	"simplelikes/internal/platform/server"
	"simplelikes/internal/platform/telemetry"
	usecaseLike "simplelikes/internal/usecase/like"
)

const serviceName = "simplelikes"

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := apptime.SetLocation(cfg.App.TimeZone); err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	sentryEnabled, err := telemetry.InitSentry(cfg.Sentry, map[string]string{"binary": "app"})
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	if sentryEnabled {
		defer telemetry.Flush(2 * time.Second)
		defer telemetry.Recover()
	}

	log := logger.New(logger.Config{
		Level:   logger.Level(cfg.App.LogLevel),
		Format:  logger.Format(cfg.App.LogFormat),
		Service: serviceName,
	})
	if sentryEnabled {
		log = logger.WrapWithSentry(log)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, database.Config{
		ConnectionString: cfg.Database.ConnectionString(),
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		ConnectTimeout:   cfg.Database.ConnectTimeout,
		TimeZone:         cfg.App.TimeZone,
	}, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.App.AutoMigrate {
		if err := migrateUp(cfg, log); err != nil {
			return err
		}
	}

	var redisClient *cache.Cache
	if cfg.App.RateLimitEnabled {
		redisClient, err = cache.New(cache.Config{
			Address:      cfg.Redis.Address(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("failed to close redis", "error", err)
			}
		}()
	}

	catalog, err := i18n.LoadCatalog()
	if err != nil {
		return fmt.Errorf("load language packs: %w", err)
	}
	translator, err := catalog.Translator(cfg.Likes.Language)
	if err != nil {
		return fmt.Errorf("select language: %w", err)
	}
	links, err := profilelink.New(cfg.Likes.ProfileBaseURL)
	if err != nil {
		return fmt.Errorf("profile links: %w", err)
	}

	var m *metrics.Metrics
	var recorder usecaseLike.ToggleRecorder
	if cfg.App.EnableMetrics {
		m = metrics.New()
		recorder = m
	}

	likeRepo := infraPostgres.NewLikeRepository(db.Pool)
	likeService := usecaseLike.NewService(likeRepo, nil, recorder, logger.ForComponent(log, "likes"))
	formatter := usecaseLike.NewFormatter(translator, links, translator, newRandom(cfg.Likes.RandomSeed))
	summarizer := usecaseLike.NewSummarizer(likeService, formatter, cfg.Likes, logger.ForComponent(log, "summaries"))

	var toggleLimiter func(http.Handler) http.Handler
	if redisClient != nil {
		toggleLimiter = server.RateLimit(server.RateLimitConfig{
			Counter: redisClient,
			Limit:   cfg.App.RateLimitMaxRequests,
			Window:  cfg.App.RateLimitWindow,
			Logger:  log,
			Prefix:  serviceName + ":ratelimit:toggle",
		})
	}

	likeHandler := handler.NewLikeHandler(likeService, summarizer, log,
		handler.WithProfileURLs(links),
		handler.WithToggleMiddlewares(toggleLimiter),
	)

	checks := []handler.NamedCheck{{Name: "database", Checker: db}}
	if redisClient != nil {
		checks = append(checks, handler.NamedCheck{Name: "redis", Checker: redisClient})
	}

	middlewares := []func(http.Handler) http.Handler{
		server.RequestLogger(log),
		server.Recoverer(log),
		server.SecurityHeaders(),
		server.CORS(cfg.App.CORSAllowedOrigins),
	}
	routerCfg := handler.RouterConfig{
		LikeHandler:   likeHandler,
		HealthHandler: handler.NewHealthHandler(checks...),
		APIBasePath:   cfg.App.APIBasePath,
	}
	if m != nil {
		middlewares = append(middlewares, m.Middleware)
		routerCfg.PrometheusHandler = m.Handler()
	}
	routerCfg.Middlewares = middlewares

	srv := server.New(server.Config{
		Address:      cfg.Server.Address(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, handler.NewRouter(routerCfg), log)

	log.Info("likes configured",
		"language", translator.Language(),
		"num_users", cfg.Likes.NumUsers,
		"rate_limit", redisClient != nil,
	)
	return srv.Run(ctx)
}

func migrateUp(cfg *config.Config, log *slog.Logger) error {
	runner, err := migration.New(migration.Config{
		DatabaseURL:    cfg.Database.ConnectionString(),
		MigrationsPath: cfg.App.MigrationsPath,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Warn("failed to close migration runner", "error", err)
		}
	}()
	if err := runner.Up(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// newRandom returns a reproducible generator for a non-zero seed.
func newRandom(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed))
}
