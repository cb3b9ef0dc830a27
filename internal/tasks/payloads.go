package tasks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeExport = "resume:export"
)

// ResumeExportPayload 描述导出一份简历所需的最小信息。
// 简历内容由 worker 从存储中读取，入队前 API 已完成保存。
type ResumeExportPayload struct {
	ResumeID      string `json:"resume_id"`
	AccountID     string `json:"account_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeExportTask 构造一个新的简历导出任务。
func NewResumeExportTask(resumeID, accountID, correlationID string) (*asynq.Task, error) {
	if resumeID == "" || accountID == "" {
		return nil, errors.New("resume id and account id are required")
	}
	payload, err := json.Marshal(ResumeExportPayload{
		ResumeID:      resumeID,
		AccountID:     accountID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeExport, payload), nil
}

// ParseResumeExportPayload 解析任务负载。
func ParseResumeExportPayload(task *asynq.Task) (ResumeExportPayload, error) {
	var payload ResumeExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("unmarshal export payload: %w", err)
	}
	if payload.ResumeID == "" || payload.AccountID == "" {
		return payload, errors.New("export payload missing resume or account id")
	}
	return payload, nil
}
