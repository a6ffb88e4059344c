package model

import (
	"time"
)

// MediaVariants 图片的不同尺寸
type MediaVariants struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
	Webp   string `json:"webp"`
}

type ReviewMedia struct {
	ID                   uint64         `gorm:"primaryKey" json:"id"`
	ReviewID             string         `gorm:"type:varchar(36);not null;index:idx_review_id_sort" json:"reviewId"`
	Type                 MediaKind      `gorm:"type:varchar(16);not null" json:"type"`
	FileName             string         `gorm:"type:varchar(255)" json:"fileName"`
	CloudflareID         string         `gorm:"type:varchar(128);not null" json:"cloudflareId"`
	SortOrder            int8           `gorm:"not null;default:0;index:idx_review_id_sort" json:"sortOrder"`
	IsRepresentative     bool           `gorm:"not null;default:0" json:"isRepresentative"`
	RequiresSignedURL    bool           `gorm:"not null;default:0" json:"requiresSignedUrl"`
	OriginalURL          string         `gorm:"type:varchar(512)" json:"originalUrl,omitempty"`
	WebpURL              string         `gorm:"type:varchar(512)" json:"webpUrl,omitempty"`
	ThumbnailURL         string         `gorm:"type:varchar(512)" json:"thumbnailUrl,omitempty"`
	Variants             *MediaVariants `gorm:"type:json;serializer:json" json:"variants,omitempty"`
	StreamURL            string         `gorm:"type:varchar(512)" json:"streamUrl,omitempty"`
	HlsURL               string         `gorm:"type:varchar(512)" json:"hlsUrl,omitempty"`
	DashURL              string         `gorm:"type:varchar(512)" json:"dashUrl,omitempty"`
	AnimatedThumbnailURL string         `gorm:"type:varchar(512)" json:"animatedThumbnailUrl,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
}

func (ReviewMedia) TableName() string {
	return "review_media"
}

// AssignRepresentative 按顺序重排：第一个为代表媒体，其余不是
func AssignRepresentative(items []ReviewMedia) {
	for i := range items {
		items[i].IsRepresentative = i == 0
		items[i].SortOrder = int8(i)
	}
}
