package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"resumebuilder/internal/resume"
	"resumebuilder/internal/tasks"
)

// Dispatcher 启动一次导出。同步完成时返回结果；投递到队列时返回 nil 结果，
// 完成情况通过通知送达。
type Dispatcher interface {
	Dispatch(ctx context.Context, doc *resume.Resume, correlationID string) (*Result, error)
}

// InlineDispatcher 在当前进程内同步导出。
type InlineDispatcher struct {
	service *Service
}

// NewInlineDispatcher 构造同步导出器。
func NewInlineDispatcher(service *Service) *InlineDispatcher {
	return &InlineDispatcher{service: service}
}

// Dispatch 立即导出。
func (d *InlineDispatcher) Dispatch(ctx context.Context, doc *resume.Resume, correlationID string) (*Result, error) {
	return d.service.Export(ctx, doc, correlationID)
}

// Enqueuer 是 asynq.Client 的最小接口。
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher 把导出任务投递给 worker。
type QueueDispatcher struct {
	client Enqueuer
	logger *slog.Logger
}

// NewQueueDispatcher 构造队列导出器。
func NewQueueDispatcher(client Enqueuer, logger *slog.Logger) *QueueDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueDispatcher{client: client, logger: logger}
}

// Dispatch 入队导出任务。
func (d *QueueDispatcher) Dispatch(ctx context.Context, doc *resume.Resume, correlationID string) (*Result, error) {
	task, err := tasks.NewResumeExportTask(doc.ID, doc.OwnerID, correlationID)
	if err != nil {
		return nil, fmt.Errorf("build export task: %w", err)
	}
	info, err := d.client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("enqueue export task: %w", err)
	}
	d.logger.Info("export task enqueued",
		slog.String("task_id", info.ID),
		slog.String("resume_id", doc.ID),
		slog.String("correlation_id", correlationID),
	)
	return nil, nil
}
