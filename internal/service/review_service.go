package service

import (
	"context"
	log "log/slog"
	"time"

	"Waypoint/internal/api/dto"
	"Waypoint/internal/model"
	"Waypoint/internal/pkg/consts"
	"Waypoint/internal/pkg/util"
	"Waypoint/internal/repository"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

var companions = map[string]bool{
	"alone":      true,
	"couple":     true,
	"spouse":     true,
	"family":     true,
	"friends":    true,
	"colleagues": true,
	"club":       true,
	"others":     true,
}

type ReviewService interface {
	CreateReview(ctx context.Context, req *dto.ReviewCreateDTO) (*dto.ReviewDTO, error)
	GetReview(ctx context.Context, id string) (*dto.ReviewDTO, error)
	ListReviews(ctx context.Context, companion string, page, pageSize int) (*dto.ListDTO[*dto.ReviewDTO], error)
	DeleteReview(ctx context.Context, id string) error
}

type reviewServiceImpl struct {
	reviewRepo repository.ReviewRepo
}

func NewReviewService(reviewRepo repository.ReviewRepo) ReviewService {
	return &reviewServiceImpl{reviewRepo: reviewRepo}
}

// CreateReview 评价整体写入，创建后不可修改
func (s *reviewServiceImpl) CreateReview(ctx context.Context, req *dto.ReviewCreateDTO) (*dto.ReviewDTO, error) {
	if len(req.Files) > consts.MaxReviewFiles {
		return nil, ErrTooManyFiles
	}
	if err := util.ValidateDTO(req); err != nil {
		return nil, err
	}
	if !req.PrivacyConsent {
		return nil, ErrConsentRequired
	}

	review := &model.Review{
		ID:               uuid.NewString(),
		AuthorName:       req.AuthorInfo.Name,
		AuthorBirthDate:  req.AuthorInfo.BirthDate,
		Companion:        req.Companion,
		ReviewText:       req.ReviewText,
		PrivacyConsent:   req.PrivacyConsent,
		MarketingConsent: req.MarketingConsent,
		CreatedAt:        time.Now(),
	}

	if len(req.GuideEvaluations) > 0 {
		review.GuideEvaluations = make(map[string]model.GuideEvaluation, len(req.GuideEvaluations))
		for guideID, evaluation := range req.GuideEvaluations {
			var m model.GuideEvaluation
			if err := copier.Copy(&m, &evaluation); err != nil {
				return nil, err
			}
			review.GuideEvaluations[guideID] = m
		}
	}

	media := make([]model.ReviewMedia, 0, len(req.Files))
	for _, item := range req.Files {
		var m model.ReviewMedia
		if err := copier.Copy(&m, item); err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	model.AssignRepresentative(media)
	review.Media = media

	if err := s.reviewRepo.CreateReview(ctx, review); err != nil {
		log.ErrorContext(ctx, "create review failed", "err", err)
		return nil, UnExpectedError
	}
	return toReviewDTO(review)
}

func (s *reviewServiceImpl) GetReview(ctx context.Context, id string) (*dto.ReviewDTO, error) {
	review, err := s.reviewRepo.GetReviewByID(ctx, id)
	if err != nil {
		return nil, UnExpectedError
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	return toReviewDTO(review)
}

// ListReviews companion 为空时返回全部，按创建时间新→旧
func (s *reviewServiceImpl) ListReviews(ctx context.Context, companion string, page, pageSize int) (*dto.ListDTO[*dto.ReviewDTO], error) {
	if companion != "" && !companions[companion] {
		return nil, ErrParamInvalid
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	reviews, total, err := s.reviewRepo.ListReviews(ctx, companion, (page-1)*pageSize, pageSize)
	if err != nil {
		log.ErrorContext(ctx, "list reviews failed", "err", err)
		return nil, UnExpectedError
	}

	items := make([]*dto.ReviewDTO, 0, len(reviews))
	for _, r := range reviews {
		d, err := toReviewDTO(r)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return &dto.ListDTO[*dto.ReviewDTO]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *reviewServiceImpl) DeleteReview(ctx context.Context, id string) error {
	ok, err := s.reviewRepo.DeleteReview(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "delete review failed", "err", err)
		return UnExpectedError
	}
	if !ok {
		return ErrReviewNotFound
	}
	return nil
}

func toReviewDTO(review *model.Review) (*dto.ReviewDTO, error) {
	out := &dto.ReviewDTO{
		ID: review.ID,
		AuthorInfo: dto.AuthorInfoDTO{
			Name:      review.AuthorName,
			BirthDate: review.AuthorBirthDate,
		},
		Companion:        review.Companion,
		ReviewText:       review.ReviewText,
		PrivacyConsent:   review.PrivacyConsent,
		MarketingConsent: review.MarketingConsent,
		CreatedAt:        review.CreatedAt.Format(time.RFC3339),
		GuideEvaluations: make(map[string]dto.GuideEvaluationDTO, len(review.GuideEvaluations)),
		Files:            make([]*dto.MediaItemDTO, 0, len(review.Media)),
	}
	for guideID, evaluation := range review.GuideEvaluations {
		var d dto.GuideEvaluationDTO
		if err := copier.Copy(&d, &evaluation); err != nil {
			return nil, err
		}
		out.GuideEvaluations[guideID] = d
	}
	for i := range review.Media {
		var d dto.MediaItemDTO
		if err := copier.Copy(&d, &review.Media[i]); err != nil {
			return nil, err
		}
		out.Files = append(out.Files, &d)
	}
	return out, nil
}
