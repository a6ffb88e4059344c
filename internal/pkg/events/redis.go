package events

import (
	"context"

	"Waypoint/internal/model"
	"Waypoint/internal/pkg/consts"
	rdbutil "Waypoint/internal/pkg/redis"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher 按会话发布到 upload:events:<session>，由 WS 连接订阅
type RedisPublisher struct {
	rdb redis.Cmdable
}

func NewRedisPublisher(rdb redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (s *RedisPublisher) Publish(ctx context.Context, evt model.UploadEvent) error {
	return rdbutil.PublishJSON(ctx, s.rdb, Channel(evt.SessionID), evt)
}

// Channel 会话对应的频道名
func Channel(sessionID string) string {
	if sessionID == "" {
		sessionID = consts.DefaultSessionID
	}
	return consts.UploadEventChannel + sessionID
}
