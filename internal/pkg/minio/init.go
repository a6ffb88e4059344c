package minio

import (
	"Waypoint/internal/api/config"
	"context"
	"fmt"
	log "log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

const (
	autoDeleteRuleID = "SystemAutoDeleteRule"
	tempExpiryDays   = 1
)

// Store 基于 MinIO 临时桶的上传暂存区
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore 连接 MinIO，确保临时桶存在且带有过期策略
func NewStore(ctx context.Context, cfg config.MinIOConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.TempBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to minio server: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.TempBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create staging bucket: %w", err)
		}
		log.Info("已创建暂存桶", "bucket", cfg.TempBucket)
	}

	s := &Store{client: client, bucket: cfg.TempBucket}
	if err = s.EnsureTempBucketLifecycle(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureTempBucketLifecycle 进程异常退出遗留的暂存文件由桶策略兜底清理
func (s *Store) EnsureTempBucketLifecycle(ctx context.Context) error {
	lcConfig, err := s.client.GetBucketLifecycle(ctx, s.bucket)
	if err != nil {
		lcConfig = lifecycle.NewConfiguration()
	}

	if id, ok := findExpiryRule(lcConfig, tempExpiryDays); ok {
		log.Info("检测到已存在兼容的过期策略", "ruleID", id)
		return nil
	}

	lcConfig.Rules = append(lcConfig.Rules, lifecycle.Rule{
		ID:     autoDeleteRuleID,
		Status: "Enabled",
		Expiration: lifecycle.Expiration{
			Days: tempExpiryDays,
		},
	})

	if err = s.client.SetBucketLifecycle(ctx, s.bucket, lcConfig); err != nil {
		return fmt.Errorf("设置生命周期失败: %w", err)
	}
	log.Info("已自动补全暂存桶的过期策略", "days", tempExpiryDays)
	return nil
}

// findExpiryRule 状态开启、全桶匹配（无 Prefix）且过期天数一致
func findExpiryRule(cfg *lifecycle.Configuration, days int) (string, bool) {
	for _, rule := range cfg.Rules {
		if rule.Status == "Enabled" &&
			int(rule.Expiration.Days) == days &&
			rule.RuleFilter.Prefix == "" {
			return rule.ID, true
		}
	}
	return "", false
}
