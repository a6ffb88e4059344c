package api

import (
	"Waypoint/internal/api/middleware"
	"Waypoint/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS & Metrics
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.MetricsMiddleware())
	logger.SetupGin(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"code":    200,
				"message": "pong",
			})
		})

		apiGroup.GET("/gallery", group.ImageHandler.Overview)

		uploadGroup := apiGroup.Group("/uploads")
		{
			uploadGroup.POST("", group.UploadHandler.Upload)
			uploadGroup.GET("", group.UploadHandler.ListUploads)
			uploadGroup.GET("/results", group.UploadHandler.Results)
			uploadGroup.GET("/ws", group.WsHandler.Connect)
			uploadGroup.GET("/:id", group.UploadHandler.GetUpload)
			uploadGroup.DELETE("/:id", group.UploadHandler.CancelUpload)
			uploadGroup.GET("/:id/preview", group.UploadHandler.Preview)
		}

		imageGroup := apiGroup.Group("/images")
		{
			imageGroup.POST("/upload-url", group.ImageHandler.CreateUploadURL)
			imageGroup.GET("", group.ImageHandler.ListImages)
			imageGroup.GET("/signed-url", group.ImageHandler.SignedURL)
			imageGroup.POST("/signed-url", group.ImageHandler.SignedBundle)
			imageGroup.GET("/:id", group.ImageHandler.GetImage)
			imageGroup.DELETE("/:id", group.ImageHandler.DeleteImage)
			imageGroup.PATCH("/:id/signed", group.ImageHandler.SetSigned)
		}

		videoGroup := apiGroup.Group("/videos")
		{
			videoGroup.POST("/upload-url", group.VideoHandler.CreateUploadURL)
			videoGroup.GET("", group.VideoHandler.ListVideos)
			videoGroup.GET("/:id", group.VideoHandler.GetVideo)
			videoGroup.DELETE("/:id", group.VideoHandler.DeleteVideo)
			videoGroup.PATCH("/:id/thumbnail", group.VideoHandler.SetThumbnail)
		}

		assetGroup := apiGroup.Group("/assets")
		{
			assetGroup.GET("", group.AssetHandler.ListAssets)
			assetGroup.POST("/clean", group.AssetHandler.CleanExpired)
			assetGroup.GET("/:id", group.AssetHandler.GetAsset)
			assetGroup.DELETE("/:id", group.AssetHandler.RemoveAsset)
		}

		reviewGroup := apiGroup.Group("/reviews")
		{
			reviewGroup.POST("", group.ReviewHandler.CreateReview)
			reviewGroup.GET("", group.ReviewHandler.ListReviews)
			reviewGroup.GET("/:id", group.ReviewHandler.GetReview)
			reviewGroup.DELETE("/:id", group.ReviewHandler.DeleteReview)
		}
	}

	return r
}
