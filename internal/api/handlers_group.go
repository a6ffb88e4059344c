package api

import "Waypoint/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	UploadHandler *handler.UploadHandler
	WsHandler     *handler.WsHandler
	ImageHandler  *handler.ImageHandler
	VideoHandler  *handler.VideoHandler
	AssetHandler  *handler.AssetHandler
	ReviewHandler *handler.ReviewHandler
}
