package model

import "time"

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

type AssetStatus string

const (
	AssetStatusPending  AssetStatus = "pending"
	AssetStatusUploaded AssetStatus = "uploaded"
	AssetStatusFailed   AssetStatus = "failed"
)

// AssetRecord 本地资源登记记录，ID 为本地任务 ID，AssetID 为 Cloudflare 侧 ID
type AssetRecord struct {
	ID                string      `json:"id"`
	AssetID           string      `json:"assetId,omitempty"`
	FileName          string      `json:"fileName,omitempty"`
	Kind              MediaKind   `json:"kind"`
	UploadedAt        time.Time   `json:"uploadedAt"`
	Status            AssetStatus `json:"status"`
	DeliveryBaseURL   string      `json:"deliveryBaseUrl,omitempty"`
	RequiresSignedURL bool        `json:"requiresSignedUrl"`
}

// AssetPatch 部分更新，nil 字段保持不变
type AssetPatch struct {
	AssetID           *string
	Status            *AssetStatus
	DeliveryBaseURL   *string
	RequiresSignedURL *bool
}

// Apply 将 patch 合并到记录上
func (p AssetPatch) Apply(r *AssetRecord) {
	if p.AssetID != nil {
		r.AssetID = *p.AssetID
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.DeliveryBaseURL != nil {
		r.DeliveryBaseURL = *p.DeliveryBaseURL
	}
	if p.RequiresSignedURL != nil {
		r.RequiresSignedURL = *p.RequiresSignedURL
	}
}

// IsExpiredPending 仅 pending 且早于 cutoff 的记录视为过期
func (r *AssetRecord) IsExpiredPending(cutoff time.Time) bool {
	return r.Status == AssetStatusPending && r.UploadedAt.Before(cutoff)
}
