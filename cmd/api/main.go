package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/config"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/db"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/handlers"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/jobs"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/logger"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/realtime"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func gormLevel(level string) gormlogger.LogLevel {
	if level == "debug" {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	gdb, err := db.Connect(ctx, db.Options{
		Driver:     cfg.DBDriver,
		DSN:        cfg.DBDSN,
		MaxRetries: cfg.DBMaxRetries,
		RetryDelay: cfg.DBRetryDelay,
		Logger:     log,
		LogLevel:   gormLevel(cfg.LogLevel),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Warn("closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisEnabled {
		rdb, err = realtime.NewRedis(ctx, realtime.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	} else {
		log.Info("redis disabled, relay is in-process only")
	}

	hub := realtime.NewHub(rdb, log.Named("relay"))
	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Error("relay subscription ended", zap.Error(err))
		}
	}()

	policy, err := workflow.ParseMatchPolicy(cfg.SkillMatchPolicy)
	if err != nil {
		return err
	}
	engine := workflow.New(repository.NewGormStore(gdb),
		workflow.WithNotifier(hub),
		workflow.WithPublisher(hub),
		workflow.WithLogger(log.Named("workflow")),
		workflow.WithMatchPolicy(policy),
	)

	sched, err := jobs.NewStatsScheduler(cfg.StatsCron, engine, log.Named("jobs"))
	if err != nil {
		return err
	}
	sched.Start()

	app := handlers.NewApp(handlers.Deps{
		Engine:        engine,
		Hub:           hub,
		DB:            gdb,
		Log:           log,
		JWTSecret:     cfg.JWTSecret,
		JWTExpiresMin: cfg.JWTExpiresMin,
		SecureCookie:  cfg.AppEnv == "production",
		Origins:       cfg.Origins(),
		BidRatePerMin: cfg.BidRatePerMin,
		Google: handlers.GoogleConfig{
			ClientID:        cfg.GoogleClientID,
			Secret:          cfg.GoogleSecret,
			RedirectURL:     cfg.GoogleRedirect,
			FrontendBaseURL: cfg.FrontendBaseURL,
		},
	})

	listenErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		listenErr <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if shErr := app.ShutdownWithContext(shutdownCtx); shErr != nil {
		log.Warn("http shutdown", zap.Error(shErr))
	}
	sched.Stop(shutdownCtx)
	log.Info("server stopped cleanly")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
