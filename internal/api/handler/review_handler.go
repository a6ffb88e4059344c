package handler

import (
	"Waypoint/internal/api/dto"
	"Waypoint/internal/pkg/response"
	"Waypoint/internal/pkg/util"
	"Waypoint/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultReviewPageSize = 20
	maxReviewPageSize     = 100
)

type ReviewHandler struct {
	reviewSvc service.ReviewService
}

func NewReviewHandler(reviewSvc service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

func (s *ReviewHandler) CreateReview(c *gin.Context) {
	var req dto.ReviewCreateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.reviewSvc.CreateReview(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ReviewHandler) GetReview(c *gin.Context) {
	res, err := s.reviewSvc.GetReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ReviewHandler) ListReviews(c *gin.Context) {
	page, pageSize := util.ParsePage(c.Query("page"), c.Query("pageSize"), defaultReviewPageSize, maxReviewPageSize)
	res, err := s.reviewSvc.ListReviews(c.Request.Context(), c.Query("companion"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ReviewHandler) DeleteReview(c *gin.Context) {
	if err := s.reviewSvc.DeleteReview(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
