package dto

import "Waypoint/internal/model"

// AuthorInfoDTO 作者信息
type AuthorInfoDTO struct {
	Name      string `json:"name" validate:"required,min=1,max=50"`
	BirthDate string `json:"birthDate" validate:"omitempty,max=16"`
}

// GuideEvaluationDTO 单个导游的评价
type GuideEvaluationDTO struct {
	SelectedKeywords   []string `json:"selectedKeywords" validate:"min=1,dive,required,max=64"`
	IsGuideRecommended bool     `json:"isGuideRecommended"`
	NpsScore           *int     `json:"npsScore" validate:"omitempty,min=0,max=10"`
}

// MediaItemDTO 评价附带的媒体
type MediaItemDTO struct {
	Type                 string               `json:"type" validate:"required,oneof=image video"`
	FileName             string               `json:"fileName" validate:"max=255"`
	CloudflareID         string               `json:"cloudflareId" validate:"required,max=128"`
	IsRepresentative     bool                 `json:"isRepresentative"`
	RequiresSignedURL    bool                 `json:"requiresSignedUrl"`
	OriginalURL          string               `json:"originalUrl,omitempty" validate:"max=512"`
	WebpURL              string               `json:"webpUrl,omitempty" validate:"max=512"`
	ThumbnailURL         string               `json:"thumbnailUrl,omitempty" validate:"max=512"`
	Variants             *model.MediaVariants `json:"variants,omitempty"`
	StreamURL            string               `json:"streamUrl,omitempty" validate:"max=512"`
	HlsURL               string               `json:"hlsUrl,omitempty" validate:"max=512"`
	DashURL              string               `json:"dashUrl,omitempty" validate:"max=512"`
	AnimatedThumbnailURL string               `json:"animatedThumbnailUrl,omitempty" validate:"max=512"`
}

// ReviewCreateDTO 评价 - 新增
type ReviewCreateDTO struct {
	AuthorInfo       AuthorInfoDTO                 `json:"authorInfo"`
	Companion        string                        `json:"companion" validate:"required,oneof=alone couple spouse family friends colleagues club others"`
	GuideEvaluations map[string]GuideEvaluationDTO `json:"guideEvaluations" validate:"dive,keys,required,max=64,endkeys"`
	ReviewText       string                        `json:"reviewText" validate:"max=2000"`
	Files            []*MediaItemDTO               `json:"files" validate:"max=5,dive,required"`
	PrivacyConsent   bool                          `json:"privacyConsent"`
	MarketingConsent bool                          `json:"marketingConsent"`
}

// ReviewDTO 评价
type ReviewDTO struct {
	ID               string                        `json:"id"`
	AuthorInfo       AuthorInfoDTO                 `json:"authorInfo"`
	Companion        string                        `json:"companion"`
	GuideEvaluations map[string]GuideEvaluationDTO `json:"guideEvaluations"`
	ReviewText       string                        `json:"reviewText"`
	Files            []*MediaItemDTO               `json:"files"`
	PrivacyConsent   bool                          `json:"privacyConsent"`
	MarketingConsent bool                          `json:"marketingConsent"`
	CreatedAt        string                        `json:"createdAt"`
}
