package dto

import (
	"time"

	"Waypoint/internal/pkg/cloudflare"
	"Waypoint/internal/pkg/signer"
)

// ImageDTO 图片及其投递地址
type ImageDTO struct {
	ID                string                 `json:"id"`
	Filename          string                 `json:"filename"`
	Uploaded          time.Time              `json:"uploaded"`
	RequireSignedURLs bool                   `json:"requireSignedURLs"`
	Meta              map[string]any         `json:"meta,omitempty"`
	Gallery           cloudflare.GalleryURLs `json:"gallery"`
	URLs              *cloudflare.ImageURLs  `json:"urls,omitempty"`
	Signed            *signer.Bundle         `json:"signed,omitempty"`
}

type ImageListDTO struct {
	Images   []*ImageDTO `json:"images"`
	Page     int         `json:"page"`
	PerPage  int         `json:"perPage"`
	HasMore  bool        `json:"hasMore"`
	NextPage int         `json:"nextPage,omitempty"`
}

// VideoDTO 视频处理状态与投递地址
type VideoDTO struct {
	UID               string               `json:"uid"`
	ReadyToStream     bool                 `json:"readyToStream"`
	State             string               `json:"state"`
	PctComplete       string               `json:"pctComplete,omitempty"`
	ErrorReason       string               `json:"errorReason,omitempty"`
	Duration          float64              `json:"duration"`
	Size              int64                `json:"size"`
	Created           time.Time            `json:"created"`
	RequireSignedURLs bool                 `json:"requireSignedURLs"`
	Meta              map[string]any       `json:"meta,omitempty"`
	URLs              cloudflare.VideoURLs `json:"urls"`
}

// GalleryOverviewDTO 首页图片与视频
type GalleryOverviewDTO struct {
	Images []*ImageDTO `json:"images"`
	Videos []*VideoDTO `json:"videos"`
}

// SignedAccessReqDTO 切换签名访问
type SignedAccessReqDTO struct {
	RequireSignedURLs *bool `json:"requireSignedURLs" validate:"required"`
}

// VideoThumbnailReqDTO 缩略图取自时长的比例，0 到 1
type VideoThumbnailReqDTO struct {
	ThumbnailTimestampPct *float64 `json:"thumbnailTimestampPct" validate:"required,min=0,max=1"`
}

// SignedURLReqDTO 签名 URL 组
type SignedURLReqDTO struct {
	ImageID string `json:"imageId" validate:"required,max=1024"`
}
