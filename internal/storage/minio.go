package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"resumebuilder/internal/config"
)

// MinIOSink 把导出产物保存到 MinIO/S3 兼容的私有 Bucket。
type MinIOSink struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOSink 根据配置初始化 MinIO 客户端，并确保目标 Bucket 存在。
func NewMinIOSink(ctx context.Context, cfg config.MinIOConfig) (*MinIOSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinIOSink{client: client, bucketName: cfg.Bucket}, nil
}

// Put 上传对象。
func (s *MinIOSink) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	cleaned, ok := CleanKey(key)
	if !ok {
		return invalidKey(key)
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucketName, cleaned, body, size, opts); err != nil {
		return fmt.Errorf("put object %q: %w", cleaned, err)
	}
	return nil
}

// Get 读取对象。先 Stat 一次，使不存在的对象立即返回 ErrNotFound。
func (s *MinIOSink) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	cleaned, ok := CleanKey(key)
	if !ok {
		return nil, invalidKey(key)
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, cleaned, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", cleaned, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if IsNoSuchKey(err) {
			return nil, objectNotFound(cleaned)
		}
		return nil, fmt.Errorf("stat object %q: %w", cleaned, err)
	}
	return obj, nil
}

// List 列出指定前缀下的对象元数据。
func (s *MinIOSink) List(ctx context.Context, prefix string, limit int) ([]ObjectMeta, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	result := make([]ObjectMeta, 0, limit)
	for object := range objCh {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects under %q: %w", prefix, object.Err)
		}
		result = append(result, ObjectMeta{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Delete 删除指定对象，不存在时视为成功（幂等）。
func (s *MinIOSink) Delete(ctx context.Context, key string) error {
	cleaned, ok := CleanKey(key)
	if !ok {
		return invalidKey(key)
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, cleaned, minio.RemoveObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", cleaned, err)
	}
	return nil
}

// PresignedURL 生成对象的限时下载链接。
func (s *MinIOSink) PresignedURL(ctx context.Context, key string, ttl time.Duration, filename string) (string, error) {
	cleaned, ok := CleanKey(key)
	if !ok {
		return "", invalidKey(key)
	}
	params := make(map[string][]string)
	if filename != "" {
		params["response-content-disposition"] = []string{fmt.Sprintf("attachment; filename=%q", filename)}
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, cleaned, ttl, params)
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", cleaned, err)
	}
	return u.String(), nil
}
