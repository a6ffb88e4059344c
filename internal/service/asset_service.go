package service

import (
	"context"
	log "log/slog"
	"time"

	"Waypoint/internal/api/config"
	"Waypoint/internal/model"
	"Waypoint/internal/repository"
)

type AssetService interface {
	ListAssets(ctx context.Context) ([]*model.AssetRecord, error)
	GetAsset(ctx context.Context, id string) (*model.AssetRecord, error)
	RemoveAsset(ctx context.Context, id string) error
	CleanExpired(ctx context.Context) (int, error)
}

// LiveTasks 本实例上仍在进行的上传，其登记不参与过期清理
type LiveTasks interface {
	InFlight(ctx context.Context) []string
}

type assetServiceImpl struct {
	registry   repository.AssetRegistryRepo
	live       LiveTasks
	pendingTTL time.Duration
	now        func() time.Time
}

// NewAssetService live 可为 nil，此时只按时间判断
func NewAssetService(registry repository.AssetRegistryRepo, live LiveTasks, cfg *config.Config) AssetService {
	ttl := time.Duration(cfg.Registry.PendingTTL) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &assetServiceImpl{
		registry:   registry,
		live:       live,
		pendingTTL: ttl,
		now:        time.Now,
	}
}

func (s *assetServiceImpl) ListAssets(ctx context.Context) ([]*model.AssetRecord, error) {
	records, err := s.registry.GetAll(ctx)
	if err != nil {
		log.ErrorContext(ctx, "list asset records failed", "err", err)
		return nil, UnExpectedError
	}
	return records, nil
}

func (s *assetServiceImpl) GetAsset(ctx context.Context, id string) (*model.AssetRecord, error) {
	record, err := s.registry.GetByID(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "get asset record failed", "err", err)
		return nil, UnExpectedError
	}
	if record == nil {
		return nil, ErrAssetNotFound
	}
	return record, nil
}

// RemoveAsset 只删除本地登记，不影响远端资源
func (s *assetServiceImpl) RemoveAsset(ctx context.Context, id string) error {
	record, err := s.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if err = s.registry.Remove(ctx, record.ID); err != nil {
		log.ErrorContext(ctx, "remove asset record failed", "err", err)
		return UnExpectedError
	}
	return nil
}

// CleanExpired 删除超过 pendingTTL 仍为 pending 的登记
func (s *assetServiceImpl) CleanExpired(ctx context.Context) (int, error) {
	var keep func(id string) bool
	if s.live != nil {
		inFlight := make(map[string]struct{})
		for _, id := range s.live.InFlight(ctx) {
			inFlight[id] = struct{}{}
		}
		keep = func(id string) bool {
			_, ok := inFlight[id]
			return ok
		}
	}
	n, err := s.registry.CleanExpired(ctx, s.now().Add(-s.pendingTTL), keep)
	if err != nil {
		log.ErrorContext(ctx, "clean expired asset records failed", "err", err)
		return 0, UnExpectedError
	}
	if n > 0 {
		log.InfoContext(ctx, "expired asset records cleaned", "count", n)
	}
	return n, nil
}
