package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"resumebuilder/internal/errcode"
	"resumebuilder/internal/export"
	"resumebuilder/internal/metrics"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/tasks"
)

// ResumeReader 读取已保存的简历。
type ResumeReader interface {
	GetResume(ctx context.Context, id string) (*resume.Resume, error)
}

// Exporter 执行一次导出。
type Exporter interface {
	Export(ctx context.Context, doc *resume.Resume, correlationID string, opts ...export.Option) (*export.Result, error)
}

// ExportTaskHandler 负责消费简历导出任务。
type ExportTaskHandler struct {
	resumes  ResumeReader
	exporter Exporter
	logger   *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(resumes ResumeReader, exporter Exporter, logger *slog.Logger) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportTaskHandler{resumes: resumes, exporter: exporter, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseResumeExportPayload(t)
	if err != nil {
		h.logger.Error("parse task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("resume_id", payload.ResumeID),
		slog.String("account_id", payload.AccountID),
	)
	log.Info("starting resume export task")

	doc, err := h.resumes.GetResume(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("load resume failed", slog.Any("error", err))
		return err
	}
	if doc.OwnerID != payload.AccountID {
		log.Warn("resume owner mismatch, skipping task", slog.String("owner_id", doc.OwnerID))
		return nil
	}

	var opts []export.Option
	if !isFinalAsynqAttempt(ctx) {
		opts = append(opts, export.WithoutErrorNotify())
	}
	if _, err := h.exporter.Export(ctx, doc, payload.CorrelationID, opts...); err != nil {
		return err
	}

	log.Info("resume export task completed")
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return true
	}
	return retryCount >= maxRetry
}

// NewServeMux 注册全部任务处理器并挂载指标中间件。
func NewServeMux(exportHandler *ExportTaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMiddleware())
	mux.Handle(tasks.TypeResumeExport, exportHandler)
	return mux
}
