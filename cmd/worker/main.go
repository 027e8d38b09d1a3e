package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"tfgRecruit/internal/config"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/mail"
	"tfgRecruit/internal/metrics"
	"tfgRecruit/internal/store"
	"tfgRecruit/internal/tasks"
	"tfgRecruit/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config failed", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		logger.Error("init database failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection ready for worker")

	mailer := mail.New(cfg.SMTP, logger)
	if _, ok := mailer.(mail.LogMailer); ok {
		logger.Warn("smtp host not set, emails are only logged")
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Logger:      newAsynqLogger(logger),
	})

	emailHandler := worker.NewEmailTaskHandler(store.New(db), mailer, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeEmailNotify, emailHandler)
	mux.Handle(tasks.TypeEmailTest, emailHandler)

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
