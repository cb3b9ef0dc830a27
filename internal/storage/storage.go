// Package storage 保存导出的 PDF 产物，提供本地文件系统与 MinIO 两种实现。
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// Sink 是导出产物的对象存储。
type Sink interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string, limit int) ([]ObjectMeta, error)
	Delete(ctx context.Context, key string) error
}

// ObjectMeta 描述存储中对象的关键信息。
type ObjectMeta struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

const defaultListLimit = 50

// CleanKey 规范化对象键，拒绝空键和越级路径。
func CleanKey(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", false
	}
	return cleaned, true
}
