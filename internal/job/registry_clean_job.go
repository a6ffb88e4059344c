package job

import (
	"Waypoint/internal/pkg/consts"
	"Waypoint/internal/pkg/logger"
	rdbutil "Waypoint/internal/pkg/redis"
	"Waypoint/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RegistryCleanJob 清理超时的 pending 登记，并回收内存中的终态任务
// 多实例部署时通过 Redis 锁保证同一时刻只有一个实例执行
type RegistryCleanJob struct {
	rdb           *redis.Client
	assetService  service.AssetService
	uploadService service.UploadService
	taskRetention time.Duration
}

func NewRegistryCleanJob(rdb *redis.Client, assetService service.AssetService, uploadService service.UploadService, taskRetention time.Duration) *RegistryCleanJob {
	return &RegistryCleanJob{
		rdb:           rdb,
		assetService:  assetService,
		uploadService: uploadService,
		taskRetention: taskRetention,
	}
}

func (s *RegistryCleanJob) Run() {
	traceID := uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	// 本地任务索引与实例绑定，不需要锁
	if s.uploadService != nil && s.taskRetention > 0 {
		if n := s.uploadService.PruneFinished(ctx, time.Now().Add(-s.taskRetention)); n > 0 {
			log.InfoContext(ctx, "finished upload tasks pruned", "count", n)
		}
	}

	lockValue := uuid.NewString()
	ok, err := rdbutil.TryLock(ctx, s.rdb, consts.RegistryCleanLock, lockValue, time.Minute)
	if err != nil {
		log.ErrorContext(ctx, "acquire registry clean lock failed", "err", err)
		return
	}
	if !ok {
		log.DebugContext(ctx, "registry clean skipped, lock held by another instance")
		return
	}
	defer func() {
		if err := rdbutil.UnLock(context.WithoutCancel(ctx), s.rdb, consts.RegistryCleanLock, lockValue); err != nil {
			log.WarnContext(ctx, "release registry clean lock failed", "err", err)
		}
	}()

	if _, err = s.assetService.CleanExpired(ctx); err != nil {
		log.ErrorContext(ctx, "registry clean job failed", "err", err)
	}
}
