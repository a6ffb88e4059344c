package repository

import (
	"Waypoint/internal/model"
	"Waypoint/internal/pkg/consts"
	rdbutil "Waypoint/internal/pkg/redis"
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// AssetRegistryRepo 本地资源登记表，非持久缓存
// 哈希存记录，列表维护新→旧顺序
type AssetRegistryRepo interface {
	Add(ctx context.Context, record *model.AssetRecord) error
	Update(ctx context.Context, id string, patch model.AssetPatch) (bool, error)
	Remove(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]*model.AssetRecord, error)
	GetByID(ctx context.Context, id string) (*model.AssetRecord, error)
	CleanExpired(ctx context.Context, cutoff time.Time, keep func(id string) bool) (int, error)
}

const maxWatchRetries = 3

type AssetRegistryRepoImpl struct {
	rdb *redis.Client
}

func NewAssetRegistryRepo(rdb *redis.Client) AssetRegistryRepo {
	return &AssetRegistryRepoImpl{rdb: rdb}
}

// Add 头插；同 id 覆盖并移到最前
func (s *AssetRegistryRepoImpl) Add(ctx context.Context, record *model.AssetRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, consts.AssetRegistryKey, record.ID, b)
		pipe.LRem(ctx, consts.AssetRegistryOrderKey, 0, record.ID)
		pipe.LPush(ctx, consts.AssetRegistryOrderKey, record.ID)
		return nil
	})
	return err
}

// Update 合并字段，记录不存在时不做任何事并返回 false
func (s *AssetRegistryRepoImpl) Update(ctx context.Context, id string, patch model.AssetPatch) (bool, error) {
	updated := false
	txf := func(tx *redis.Tx) error {
		record, found, err := rdbutil.HGetJSON[model.AssetRecord](ctx, tx, consts.AssetRegistryKey, id)
		if err != nil || !found {
			return err
		}
		patch.Apply(&record)
		b, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, consts.AssetRegistryKey, id, b)
			return nil
		})
		if err == nil {
			updated = true
		}
		return err
	}

	if err := s.watch(ctx, txf); err != nil {
		return false, err
	}
	return updated, nil
}

// watch 乐观锁，冲突时有限次重试
func (s *AssetRegistryRepoImpl) watch(ctx context.Context, txf func(tx *redis.Tx) error) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, txf, consts.AssetRegistryKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

// Remove 只删本地记录
func (s *AssetRegistryRepoImpl) Remove(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, consts.AssetRegistryKey, id)
		pipe.LRem(ctx, consts.AssetRegistryOrderKey, 0, id)
		return nil
	})
	return err
}

// GetAll 按新→旧返回
func (s *AssetRegistryRepoImpl) GetAll(ctx context.Context) ([]*model.AssetRecord, error) {
	ids, err := s.rdb.LRange(ctx, consts.AssetRegistryOrderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.AssetRecord{}, nil
	}

	values, err := s.rdb.HMGet(ctx, consts.AssetRegistryKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*model.AssetRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var r model.AssetRecord
		if err = json.Unmarshal([]byte(raw), &r); err != nil {
			log.WarnContext(ctx, "invalid asset record format", "id", ids[i], "err", err)
			continue
		}
		records = append(records, &r)
	}
	return records, nil
}

func (s *AssetRegistryRepoImpl) GetByID(ctx context.Context, id string) (*model.AssetRecord, error) {
	record, found, err := rdbutil.HGetJSON[model.AssetRecord](ctx, s.rdb, consts.AssetRegistryKey, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

// CleanExpired 删除早于 cutoff 的 pending 记录，keep 返回 true 的记录保留，返回删除数量
func (s *AssetRegistryRepoImpl) CleanExpired(ctx context.Context, cutoff time.Time, keep func(id string) bool) (int, error) {
	removed := 0
	txf := func(tx *redis.Tx) error {
		removed = 0
		all, err := tx.HGetAll(ctx, consts.AssetRegistryKey).Result()
		if err != nil {
			return err
		}

		var expired []string
		for id, raw := range all {
			var r model.AssetRecord
			if err = json.Unmarshal([]byte(raw), &r); err != nil {
				log.WarnContext(ctx, "invalid asset record format", "id", id, "err", err)
				continue
			}
			if r.IsExpiredPending(cutoff) && (keep == nil || !keep(id)) {
				expired = append(expired, id)
			}
		}
		if len(expired) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, consts.AssetRegistryKey, expired...)
			for _, id := range expired {
				pipe.LRem(ctx, consts.AssetRegistryOrderKey, 0, id)
			}
			return nil
		})
		if err == nil {
			removed = len(expired)
		}
		return err
	}

	if err := s.watch(ctx, txf); err != nil {
		return 0, err
	}
	return removed, nil
}
