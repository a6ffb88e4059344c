package repository

import (
	"Waypoint/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type ReviewRepo interface {
	CreateReview(ctx context.Context, review *model.Review) error
	GetReviewByID(ctx context.Context, id string) (*model.Review, error)
	ListReviews(ctx context.Context, companion string, offset, limit int) ([]*model.Review, int64, error)
	DeleteReview(ctx context.Context, id string) (bool, error)
}

type ReviewRepoImpl struct {
	db *gorm.DB
}

func NewReviewRepo(db *gorm.DB) ReviewRepo {
	return &ReviewRepoImpl{db: db}
}

// CreateReview 评价与媒体在同一事务内写入
func (s *ReviewRepoImpl) CreateReview(ctx context.Context, review *model.Review) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		media := review.Media
		review.Media = nil
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		if len(media) > 0 {
			for i := range media {
				media[i].ReviewID = review.ID
			}
			if err := tx.Create(&media).Error; err != nil {
				return err
			}
		}
		review.Media = media
		return nil
	})
}

func (s *ReviewRepoImpl) GetReviewByID(ctx context.Context, id string) (*model.Review, error) {
	review := &model.Review{}
	result := s.db.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(review)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return review, nil
}

// ListReviews 新→旧分页，companion 为空时不过滤
func (s *ReviewRepoImpl) ListReviews(ctx context.Context, companion string, offset, limit int) ([]*model.Review, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Review{})
	if companion != "" {
		query = query.Where("companion = ?", companion)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	reviews := make([]*model.Review, 0)
	if total == 0 {
		return reviews, 0, nil
	}

	err := query.
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// DeleteReview 媒体随外键级联删除；返回是否存在该评价
func (s *ReviewRepoImpl) DeleteReview(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&model.ReviewMedia{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Review{})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
