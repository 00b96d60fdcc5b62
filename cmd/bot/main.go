package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medterms/internal/cache"
	"medterms/internal/config"
	"medterms/internal/domain"
	"medterms/internal/handler"
	"medterms/internal/middleware"
	"medterms/internal/quiz"
	"medterms/internal/repository"
	"medterms/internal/repository/memory"
	"medterms/internal/repository/postgres"
	"medterms/internal/repository/sqlite"
	"medterms/internal/scheduler"
	"medterms/internal/sentence"
	"medterms/internal/service"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitedb "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting medical terms bot")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully",
		zap.String("progress_backend", cfg.ProgressBackend),
		zap.String("stale_policy", cfg.Cache.StalePolicy),
	)

	// Connect to database with retries
	db, err := connectDatabase(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connection established")

	// Run migrations
	pgDriver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		logger.Fatal("Failed to create migration driver", zap.Error(err))
	}
	if err := runMigrations(pgDriver, "postgres", "file://migrations/postgres", logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	logger.Info("Database migrations completed")

	// Initialize repositories
	userRepo := postgres.NewUserRepo(db)
	termRepo := postgres.NewTermRepo(db)

	progressRepo, closeProgress, err := openProgressRepo(cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to open progress storage", zap.Error(err))
	}
	defer closeProgress()

	// Initialize caches
	cacheOpts := func(name string) cache.Options {
		return cache.Options{
			Name:      name,
			FreshTTL:  cfg.Cache.FreshTTL,
			Retention: cfg.Cache.Retention,
			Policy:    cache.ParseStalePolicy(cfg.Cache.StalePolicy),
			Logger:    logger,
		}
	}
	termCache := cache.New[[]domain.Term](cacheOpts("terms"))
	categoryCache := cache.New[[]domain.Category](cacheOpts("categories"))
	progressCache := cache.New[[]domain.WordProgress](cacheOpts("progress"))

	// Initialize services
	userService := service.NewUserService(userRepo, domain.ParseLang(cfg.DefaultLang))
	catalogService := service.NewCatalogService(termRepo, termRepo, termCache, categoryCache, logger)
	progressService := service.NewProgressService(progressRepo, progressCache, logger)
	statsService := service.NewStatsService(catalogService, progressService, logger)
	exampleService := service.NewExampleService(newGenerator(cfg, logger), cfg.OpenAI.RatePerMinute, logger)

	recorder := service.NewAnswerRecorder(progressService, logger)
	recorder.OnFailure(func(ev quiz.AnswerEvent, err error) {
		logger.Warn("Answer was not saved",
			zap.String("session_id", ev.SessionID),
			zap.Int64("user_id", ev.UserID),
			zap.Int64("word_id", ev.TermID),
			zap.Error(err),
		)
	})

	engine := quiz.NewEngine(rand.NewSource(time.Now().UnixNano()), recorder.Dispatch, logger)

	// Warm the catalog so the first user doesn't wait
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := catalogService.Warm(warmCtx); err != nil {
		logger.Warn("Failed to warm catalog", zap.Error(err))
	}
	warmCancel()

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized")

	bot.Use(middleware.EnsureUser(userService, logger))

	// Initialize handler
	h := handler.NewHandler(bot, userService, catalogService, progressService, statsService, exampleService, engine, logger)
	h.RegisterHandlers()
	recorder.OnFailure(h.NotifyWriteFailure)

	logger.Info("Handlers registered")

	// Start cache jobs in background
	jobs := scheduler.New(statsService, catalogService, cfg.Cache.Retention, cfg.Cache.FreshTTL, logger)
	if err := jobs.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, logger)

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown
	bot.Stop()
	jobs.Stop()
	recorder.Wait()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("Failed to stop metrics server", zap.Error(err))
		}
	}

	logger.Info("Bot stopped gracefully")
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		// Test connection
		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations applies the migrations in sourceURL to driver
func runMigrations(driver database.Driver, name, sourceURL string, logger *zap.Logger) error {
	m, err := migrate.NewWithDatabaseInstance(sourceURL, name, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply", zap.String("database", name))
	} else {
		logger.Info("Migrations applied successfully", zap.String("database", name))
	}

	return nil
}

// openProgressRepo selects the progress backend from config
func openProgressRepo(cfg *config.Config, db *sql.DB, logger *zap.Logger) (repository.ProgressRepository, func(), error) {
	switch cfg.ProgressBackend {
	case config.BackendSQLite:
		sdb, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		driver, err := sqlitedb.WithInstance(sdb.DB, &sqlitedb.Config{})
		if err != nil {
			sdb.Close()
			return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
		}
		if err := runMigrations(driver, "sqlite3", "file://migrations/sqlite", logger); err != nil {
			sdb.Close()
			return nil, nil, err
		}
		return sqlite.NewProgressRepo(sdb), func() { sdb.Close() }, nil
	case config.BackendMemory:
		logger.Warn("Progress is kept in memory and will be lost on restart")
		return memory.NewProgressRepo(), func() {}, nil
	default:
		return postgres.NewProgressRepo(db), func() {}, nil
	}
}

// newGenerator returns the OpenAI client, or nil when no key is configured
func newGenerator(cfg *config.Config, logger *zap.Logger) sentence.Generator {
	client, err := sentence.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	if err != nil {
		logger.Info("Example sentences use the placeholder", zap.Error(err))
		return nil
	}
	return client
}

// startMetricsServer exposes Prometheus metrics when addr is set
func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
