// Package app 组装各进程共用的基础设施：日志、存储、通知与导出服务。
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"resumebuilder/internal/config"
	"resumebuilder/internal/database"
	"resumebuilder/internal/export"
	"resumebuilder/internal/metrics"
	"resumebuilder/internal/notify"
	"resumebuilder/internal/pdf"
	"resumebuilder/internal/session"
	"resumebuilder/internal/storage"
)

// NewLogger 返回输出到 stdout 的文本日志，并设为默认 logger。
func NewLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	return logger
}

// OpenStore 连接数据库、执行迁移并返回文档存储。
func OpenStore(cfg config.DatabaseConfig, logger *slog.Logger) (*database.Store, error) {
	db, err := database.InitDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return database.NewStore(db, logger), nil
}

// NewSessionManager 构造会话管理器，保存次数计入指标。
func NewSessionManager(store session.Store, cfg config.SessionConfig, logger *slog.Logger) *session.Manager {
	return session.NewManager(store,
		session.WithLogger(logger),
		session.WithAutosaveInterval(cfg.AutosaveInterval),
		session.WithSaveObserver(func(trigger session.SaveTrigger) {
			metrics.ObserveSave(string(trigger))
		}),
	)
}

// NewSink 按配置返回本地目录或 MinIO 存储。
func NewSink(ctx context.Context, cfg *config.Config) (storage.Sink, error) {
	switch cfg.Export.Sink {
	case config.SinkMinIO:
		return storage.NewMinIOSink(ctx, cfg.MinIO)
	default:
		return storage.NewLocalSink(afero.NewOsFs(), cfg.Export.Dir)
	}
}

// NewRedisClient 连接 Redis。未启用时返回 nil。
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr()})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewBroker 有 Redis 时经 Pub/Sub 通知，跨进程可见；否则退回进程内 Hub。
func NewBroker(client *redis.Client) notify.Broker {
	if client == nil {
		return notify.NewHub()
	}
	return notify.NewRedisBroker(client)
}

// NewExportService 构造基于无头浏览器的导出服务。
func NewExportService(cfg config.ExportConfig, sink storage.Sink, publisher notify.Publisher, logger *slog.Logger) *export.Service {
	printer := pdf.NewGenerator(cfg.BrowserBin, cfg.RenderTimeout)
	return export.NewService(printer, sink, publisher, logger)
}
