// Package export 把简历渲染为 PDF 并写入存储，完成或失败时通知账号。
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"resumebuilder/internal/errcode"
	"resumebuilder/internal/metrics"
	"resumebuilder/internal/notify"
	"resumebuilder/internal/pdf"
	"resumebuilder/internal/render"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/storage"
)

const (
	// DefaultFileStem 在简历没有填写姓名时作为文件名。
	DefaultFileStem = "Resume"
	contentTypePDF  = "application/pdf"
	keyPrefix       = "exports"
)

// Printer 把完整的 HTML 页面打印为 PDF。
type Printer interface {
	Generate(ctx context.Context, html string) ([]byte, error)
}

// Result 描述一次成功的导出。
type Result struct {
	ResumeID  string `json:"resumeId"`
	ObjectKey string `json:"objectKey"`
	FileName  string `json:"fileName"`
	Pages     int    `json:"pages"`
	Size      int64  `json:"size"`
}

// Service 串联渲染、打印、存储与通知。
type Service struct {
	printer   Printer
	sink      storage.Sink
	publisher notify.Publisher
	logger    *slog.Logger
	newID     func() string
}

// NewService 构造导出服务。publisher 可以为 nil，此时不发送通知。
func NewService(printer Printer, sink storage.Sink, publisher notify.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		printer:   printer,
		sink:      sink,
		publisher: publisher,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Option 调整单次导出的行为。
type Option func(*options)

type options struct {
	quietErrors bool
}

// WithoutErrorNotify 失败时不发送错误通知，用于还会重试的队列任务。
func WithoutErrorNotify() Option {
	return func(o *options) { o.quietErrors = true }
}

// Export 渲染已保存的简历并写入存储。调用方负责先保存。
func (s *Service) Export(ctx context.Context, doc *resume.Resume, correlationID string, opts ...Option) (result *Result, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if doc == nil {
		return nil, fmt.Errorf("export: %w", errcode.ErrValidation)
	}
	log := s.logger.With(
		slog.String("resume_id", doc.ID),
		slog.String("owner_id", doc.OwnerID),
		slog.String("correlation_id", correlationID),
	)
	start := time.Now()
	defer func() {
		metrics.ObserveExport(err, time.Since(start).Seconds())
		if err == nil {
			return
		}
		log.Error("export resume failed", slog.Any("error", err))
		if o.quietErrors {
			return
		}
		s.publish(ctx, log, doc.OwnerID, notify.Message{
			Status:        notify.StatusError,
			ResumeID:      doc.ID,
			CorrelationID: correlationID,
			ErrorCode:     errcode.Code(err),
			ErrorMessage:  strings.TrimSpace(err.Error()),
		})
	}()

	page, err := render.Page(render.Render(doc.Content, doc.Template))
	if err != nil {
		return nil, err
	}
	data, err := s.printer.Generate(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("print resume: %w", err)
	}
	pages, err := pdf.CountPages(data)
	if err != nil {
		return nil, fmt.Errorf("verify printed pdf: %w", err)
	}

	fileName := FileName(doc.Content)
	key := ObjectKey(doc.OwnerID, s.newID(), fileName)
	if err := s.sink.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentTypePDF); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}

	result = &Result{
		ResumeID:  doc.ID,
		ObjectKey: key,
		FileName:  fileName,
		Pages:     pages,
		Size:      int64(len(data)),
	}
	s.publish(ctx, log, doc.OwnerID, notify.Message{
		Status:        notify.StatusCompleted,
		ResumeID:      doc.ID,
		CorrelationID: correlationID,
		ObjectKey:     key,
		FileName:      fileName,
		Pages:         pages,
		ErrorCode:     errcode.OK,
	})
	log.Info("resume exported", slog.String("object_key", key), slog.Int("pages", pages))
	return result, nil
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, accountID string, msg notify.Message) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, accountID, msg); err != nil {
		log.Warn("publish export notification failed", slog.Any("error", err))
	}
}

// FileName 返回导出文件名：姓名加 .pdf，未填写姓名时为 Resume.pdf。
func FileName(content resume.Content) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(content.PersonalInfo.FullName))
	stem = strings.Trim(stem, ". ")
	if stem == "" {
		stem = DefaultFileStem
	}
	return stem + ".pdf"
}

// ObjectKey 返回导出产物的存储键 exports/<account>/<export>/<file>。
func ObjectKey(accountID, exportID, fileName string) string {
	return strings.Join([]string{keyPrefix, accountID, exportID, fileName}, "/")
}

// AccountPrefix 返回账号全部导出产物共享的键前缀。
func AccountPrefix(accountID string) string {
	return keyPrefix + "/" + accountID + "/"
}
