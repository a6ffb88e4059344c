package minio

import (
	"context"
	"fmt"
	"io"

	"Waypoint/internal/pkg/staging"

	"github.com/minio/minio-go/v7"
)

// Put 上传到暂存桶，size 未知时传 -1
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to stage file: %w", err)
	}
	return nil
}

// Open 返回的对象支持 Seek，可重复读取
func (s *Store) Open(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, staging.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to stat staged file: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	return obj, nil
}

// Delete 删除不存在的对象不会报错
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to release staged file: %w", err)
	}
	return nil
}
