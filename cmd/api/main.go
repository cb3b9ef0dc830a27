package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"resumebuilder/internal/api"
	"resumebuilder/internal/app"
	"resumebuilder/internal/auth"
	"resumebuilder/internal/config"
	"resumebuilder/internal/export"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("api: %v", err)
	}
}

func run() error {
	cfg := config.MustLoad()
	logger := app.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(cfg.Database, logger)
	if err != nil {
		return err
	}
	logger.Info("database ready", slog.String("driver", cfg.Database.Driver))

	sessions := app.NewSessionManager(store, cfg.Session, logger)
	defer sessions.Close()
	if err := sessions.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	sink, err := app.NewSink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init export sink: %w", err)
	}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("close redis client failed", slog.Any("error", err))
			}
		}()
	}
	broker := app.NewBroker(redisClient)

	var dispatcher export.Dispatcher
	switch cfg.Export.Mode {
	case config.ExportModeQueue:
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
		defer asynqClient.Close()
		dispatcher = export.NewQueueDispatcher(asynqClient, logger)
	default:
		dispatcher = export.NewInlineDispatcher(app.NewExportService(cfg.Export, sink, broker, logger))
	}
	logger.Info("export pipeline ready",
		slog.String("mode", cfg.Export.Mode),
		slog.String("sink", cfg.Export.Sink),
	)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Dependencies{
		Sessions:       sessions,
		Tokens:         tokens,
		Dispatcher:     dispatcher,
		Sink:           sink,
		Notifications:  broker,
		Logger:         logger,
		AllowedOrigins: cfg.API.AllowedOrigins,
		LinkTTL:        cfg.Export.LinkTTL,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down api")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		// 退出前保存编辑器中的简历
		if err := sessions.CloseEditor(shutdownCtx); err != nil {
			logger.Error("save open resume on shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	return g.Wait()
}
