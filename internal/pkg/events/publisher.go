package events

import (
	"context"
	"errors"

	"Waypoint/internal/model"
)

// Publisher 上传事件的出口
type Publisher interface {
	Publish(ctx context.Context, evt model.UploadEvent) error
}

// Multi 依次投递给所有出口，单个失败不影响其他出口
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt model.UploadEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc 便于测试时收集事件
type PublisherFunc func(ctx context.Context, evt model.UploadEvent) error

func (f PublisherFunc) Publish(ctx context.Context, evt model.UploadEvent) error {
	return f(ctx, evt)
}
