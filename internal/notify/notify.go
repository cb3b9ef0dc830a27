// Package notify 把导出结果推送给账号的在线连接。
// 消息经 Redis Pub/Sub 广播，单进程部署可改用内存 Hub。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// 导出通知状态。
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Message 是推送给前端的统一消息协议，字段名与前端解析保持一致。
type Message struct {
	Status        string `json:"status"`
	ResumeID      string `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
	ObjectKey     string `json:"object_key,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	Pages         int    `json:"pages,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// Publisher 向账号发送消息。
type Publisher interface {
	Publish(ctx context.Context, accountID string, msg Message) error
}

// Subscriber 订阅账号的消息。返回的 channel 在 ctx 结束或调用 cancel 后关闭。
type Subscriber interface {
	Subscribe(ctx context.Context, accountID string) (<-chan []byte, func(), error)
}

// Broker 同时具备发布与订阅能力。
type Broker interface {
	Publisher
	Subscriber
}

// Channel 返回账号对应的频道名。
func Channel(accountID string) string {
	return "user_notify:" + accountID
}

func encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal notify payload: %w", err)
	}
	return payload, nil
}
