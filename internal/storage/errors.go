package storage

import (
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"

	"resumebuilder/internal/errcode"
)

func objectNotFound(key string) error {
	return fmt.Errorf("object %q: %w", key, errcode.ErrNotFound)
}

func invalidKey(key string) error {
	return fmt.Errorf("object key %q: %w", key, errcode.ErrValidation)
}

// IsNoSuchKey 判断 MinIO 错误是否表示对象不存在。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}
