package util

import (
	"io"
	"sync/atomic"
)

// ProgressReader 统计被消费的字节数，每次 Read 后回调累计值
type ProgressReader struct {
	r      io.Reader
	read   atomic.Int64
	onRead func(total int64)
}

func NewProgressReader(r io.Reader, onRead func(total int64)) *ProgressReader {
	return &ProgressReader{r: r, onRead: onRead}
}

func (s *ProgressReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		total := s.read.Add(int64(n))
		if s.onRead != nil {
			s.onRead(total)
		}
	}
	return n, err
}

func (s *ProgressReader) BytesRead() int64 {
	return s.read.Load()
}
