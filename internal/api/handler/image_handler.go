package handler

import (
	"Waypoint/internal/api/dto"
	"Waypoint/internal/pkg/response"
	"Waypoint/internal/pkg/signer"
	"Waypoint/internal/pkg/util"
	"Waypoint/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultImagePerPage = 48
	maxImagePerPage     = 100
)

type ImageHandler struct {
	gallerySvc service.GalleryService
}

func NewImageHandler(gallerySvc service.GalleryService) *ImageHandler {
	return &ImageHandler{gallerySvc: gallerySvc}
}

// CreateUploadURL 浏览器直传用的一次性地址
func (s *ImageHandler) CreateUploadURL(c *gin.Context) {
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
	res, err := s.gallerySvc.CreateImageUploadURL(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ImageHandler) ListImages(c *gin.Context) {
	page, perPage := util.ParsePage(c.Query("page"), c.Query("perPage"), defaultImagePerPage, maxImagePerPage)
	res, err := s.gallerySvc.ListImages(c.Request.Context(), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ImageHandler) GetImage(c *gin.Context) {
	res, err := s.gallerySvc.GetImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ImageHandler) DeleteImage(c *gin.Context) {
	if err := s.gallerySvc.DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetSigned 切换 requireSignedURLs
func (s *ImageHandler) SetSigned(c *gin.Context) {
	var req dto.SignedAccessReqDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.gallerySvc.SetImageSigned(c.Request.Context(), c.Param("id"), *req.RequireSignedURLs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SignedURL 单个变体的签名地址，默认 public
func (s *ImageHandler) SignedURL(c *gin.Context) {
	imageID := c.Query("imageId")
	if imageID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	variant := c.DefaultQuery("variant", signer.VariantPublic)
	res, err := s.gallerySvc.SignURL(c.Request.Context(), imageID, variant)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SignedBundle 全部变体的签名地址
func (s *ImageHandler) SignedBundle(c *gin.Context) {
	var req dto.SignedURLReqDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.gallerySvc.SignBundle(c.Request.Context(), req.ImageID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Overview 图片首页与视频列表
func (s *ImageHandler) Overview(c *gin.Context) {
	_, perPage := util.ParsePage("", c.Query("perPage"), defaultImagePerPage, maxImagePerPage)
	res, err := s.gallerySvc.Overview(c.Request.Context(), perPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
