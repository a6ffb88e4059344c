package handler

import (
	"Waypoint/internal/api/dto"
	"Waypoint/internal/pkg/response"
	"Waypoint/internal/pkg/util"
	"Waypoint/internal/service"

	"github.com/gin-gonic/gin"
)

type VideoHandler struct {
	gallerySvc service.GalleryService
}

func NewVideoHandler(gallerySvc service.GalleryService) *VideoHandler {
	return &VideoHandler{gallerySvc: gallerySvc}
}

func (s *VideoHandler) CreateUploadURL(c *gin.Context) {
	var req dto.DirectUploadReqDTO
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, err)
			return
		}
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.gallerySvc.CreateVideoUploadURL(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *VideoHandler) ListVideos(c *gin.Context) {
	res, err := s.gallerySvc.ListVideos(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *VideoHandler) GetVideo(c *gin.Context) {
	res, err := s.gallerySvc.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *VideoHandler) DeleteVideo(c *gin.Context) {
	if err := s.gallerySvc.DeleteVideo(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetThumbnail 调整缩略图截取位置
func (s *VideoHandler) SetThumbnail(c *gin.Context) {
	var req dto.VideoThumbnailReqDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.gallerySvc.SetVideoThumbnail(c.Request.Context(), c.Param("id"), *req.ThumbnailTimestampPct)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
