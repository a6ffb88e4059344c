package staging

import (
	"context"
	"errors"
	"io"
)

var ErrBlobNotFound = errors.New("staging: blob not found")

// Store 上传前的暂存区，任务结束（成功、失败或取消）后释放
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadSeekCloser, error)
	Delete(ctx context.Context, key string) error
}
