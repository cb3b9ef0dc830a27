package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/hibiken/asynq"

	"resumebuilder/internal/app"
	"resumebuilder/internal/config"
	"resumebuilder/internal/worker"
)

func main() {
	cfg := config.MustLoad()
	logger := app.NewLogger()
	ctx := context.Background()

	if !cfg.Redis.Enabled {
		log.Fatal("worker requires REDIS_ENABLED=true")
	}

	store, err := app.OpenStore(cfg.Database, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	log.Println("database connection ready for worker")

	sink, err := app.NewSink(ctx, cfg)
	if err != nil {
		log.Fatalf("init export sink: %v", err)
	}
	log.Printf("export sink ready, kind=%s", cfg.Export.Sink)

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	exporter := app.NewExportService(cfg.Export, sink, app.NewBroker(redisClient), logger)
	handler := worker.NewExportTaskHandler(store, exporter, logger)

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}, asynq.Config{
		Concurrency: 4,
	})

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(worker.NewServeMux(handler)); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
