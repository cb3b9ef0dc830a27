package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// LocalSink 把对象保存为 root 下的普通文件，键中的 "/" 对应子目录。
type LocalSink struct {
	fs   afero.Fs
	root string
}

// NewLocalSink 在 fsys 的 root 目录下构造本地存储。
func NewLocalSink(fsys afero.Fs, root string) (*LocalSink, error) {
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %q: %w", root, err)
	}
	return &LocalSink{fs: fsys, root: root}, nil
}

func (s *LocalSink) path(key string) (string, error) {
	cleaned, ok := CleanKey(key)
	if !ok {
		return "", invalidKey(key)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Put 写入对象，已存在时覆盖。
func (s *LocalSink) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %q: %w", key, err)
	}
	if err := afero.WriteReader(s.fs, target, body); err != nil {
		return fmt.Errorf("write object %q: %w", key, err)
	}
	return nil
}

// Get 打开对象，调用方负责关闭。
func (s *LocalSink) Get(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, objectNotFound(key)
		}
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return f, nil
}

// List 列出前缀下的对象，按键排序。
func (s *LocalSink) List(_ context.Context, prefix string, limit int) ([]ObjectMeta, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	result := make([]ObjectMeta, 0)
	err := afero.Walk(s.fs, s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		result = append(result, ObjectMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Delete 删除对象，不存在时视为成功（幂等）。
func (s *LocalSink) Delete(_ context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}
