package model

import (
	"time"
)

// GuideEvaluation 单个导游的评价
type GuideEvaluation struct {
	SelectedKeywords   []string `json:"selectedKeywords"`
	IsGuideRecommended bool     `json:"isGuideRecommended"`
	NpsScore           *int     `json:"npsScore"`
}

type Review struct {
	ID               string                     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorName       string                     `gorm:"type:varchar(64);not null" json:"authorName"`
	AuthorBirthDate  string                     `gorm:"type:varchar(16)" json:"authorBirthDate"`
	Companion        string                     `gorm:"type:varchar(32);not null;index:idx_companion_created" json:"companion"`
	GuideEvaluations map[string]GuideEvaluation `gorm:"type:json;serializer:json" json:"guideEvaluations"`
	ReviewText       string                     `gorm:"type:text" json:"reviewText"`
	PrivacyConsent   bool                       `gorm:"not null;default:0" json:"privacyConsent"`
	MarketingConsent bool                       `gorm:"not null;default:0" json:"marketingConsent"`
	CreatedAt        time.Time                  `gorm:"index:idx_companion_created" json:"createdAt"`

	// 关联关系
	Media []ReviewMedia `gorm:"foreignKey:ReviewID;references:ID;constraint:OnDelete:CASCADE" json:"media"`
}

func (Review) TableName() string {
	return "reviews"
}
