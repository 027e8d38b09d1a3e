package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"tfgRecruit/internal/api"
	"tfgRecruit/internal/auth"
	"tfgRecruit/internal/config"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/events"
	"tfgRecruit/internal/storage"
	"tfgRecruit/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("api stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("database ready", slog.String("host", cfg.Database.Host), slog.String("db", cfg.Database.Name))

	blob, err := storage.New(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if _, mock := blob.(storage.Unconfigured); mock {
		logger.Warn("minio credentials missing, uploads return mock urls", slog.String("base_url", cfg.MinIO.MockBaseURL))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer queue.Close()

	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("read jwt private key: %w", err)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("read jwt public key: %w", err)
	}
	authService, err := auth.NewAuthService(privateKey, publicKey, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return err
	}

	var scanner api.Scanner
	if cfg.Clamd.Addr != "" {
		scanner = api.ClamdScanner{Addr: cfg.Clamd.Addr}
	} else {
		logger.Warn("clamd address not set, uploads are not scanned")
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		Config:      cfg,
		Store:       store.New(db),
		Blob:        blob,
		Scanner:     scanner,
		Queue:       queue,
		Redis:       redisClient,
		Publisher:   events.NewRedisPublisher(redisClient),
		AuthService: authService,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
