package handler

import (
	"Waypoint/internal/api/dto"
	"Waypoint/internal/pkg/response"
	"Waypoint/internal/service"

	"github.com/gin-gonic/gin"
)

// AssetHandler 本地资源登记
type AssetHandler struct {
	assetSvc service.AssetService
}

func NewAssetHandler(assetSvc service.AssetService) *AssetHandler {
	return &AssetHandler{assetSvc: assetSvc}
}

func (s *AssetHandler) ListAssets(c *gin.Context) {
	res, err := s.assetSvc.ListAssets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *AssetHandler) GetAsset(c *gin.Context) {
	res, err := s.assetSvc.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *AssetHandler) RemoveAsset(c *gin.Context) {
	if err := s.assetSvc.RemoveAsset(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// CleanExpired 手动触发，定时任务也会执行
func (s *AssetHandler) CleanExpired(c *gin.Context) {
	n, err := s.assetSvc.CleanExpired(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.CleanResultDTO{Removed: n})
}
