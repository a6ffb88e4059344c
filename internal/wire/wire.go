package wire

import (
	"Waypoint/internal/api"
	"Waypoint/internal/api/config"
	"Waypoint/internal/api/handler"
	"Waypoint/internal/job"
	"Waypoint/internal/pkg/cloudflare"
	"Waypoint/internal/pkg/cron"
	"Waypoint/internal/pkg/events"
	"Waypoint/internal/pkg/kafka"
	"Waypoint/internal/pkg/logger"
	"Waypoint/internal/pkg/minio"
	"Waypoint/internal/pkg/signer"
	"Waypoint/internal/pkg/staging"
	"Waypoint/internal/repository"
	"Waypoint/internal/service"
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router        *gin.Engine
	DB            *gorm.DB
	CronMgr       *cron.Manager
	UploadService service.UploadService
	Producer      *kafka.UploadEventProducer
}

func BuildApplication(ctx context.Context, db *gorm.DB, rdb *redis.Client, cfg *config.Config) (*ApplicationContainer, error) {
	cfCfg := cfg.Cloudflare
	cfClient, err := cloudflare.New(cloudflare.Credentials{
		AccountID:   cfCfg.AccountID,
		AccountHash: cfCfg.AccountHash,
		APIToken:    cfCfg.APIToken,
		AuthEmail:   cfCfg.AuthEmail,
	},
		cloudflare.WithBaseURL(cfCfg.APIBaseURL),
		cloudflare.WithTimeout(time.Duration(cfCfg.Timeout)*time.Second),
		cloudflare.WithTransport(logger.NewHTTPTransport("cloudflare")),
	)
	if err != nil {
		return nil, err
	}

	urlSigner, err := signer.New(cfCfg.AccountHash, cfCfg.SigningKey, signer.WithOrigin(cfCfg.ImageDeliveryOrigin))
	if err != nil {
		return nil, err
	}

	store, err := newStagingStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	producer, err := kafka.NewUploadEventProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	publisher := events.Multi{events.NewRedisPublisher(rdb)}
	if producer != nil {
		publisher = append(publisher, producer)
	}

	registryRepo := repository.NewAssetRegistryRepo(rdb)
	reviewRepo := repository.NewReviewRepo(db)

	uploadService := service.NewUploadService(cfClient, urlSigner, registryRepo, store, publisher, cfg)
	galleryService := service.NewGalleryService(cfClient, urlSigner, cfg)
	assetService := service.NewAssetService(registryRepo, uploadService, cfg)
	reviewService := service.NewReviewService(reviewRepo)

	handlers := &api.HandlersGroup{
		UploadHandler: handler.NewUploadHandler(uploadService, cfg.Upload.MaxFileSize),
		WsHandler:     handler.NewWsHandler(rdb),
		ImageHandler:  handler.NewImageHandler(galleryService),
		VideoHandler:  handler.NewVideoHandler(galleryService),
		AssetHandler:  handler.NewAssetHandler(assetService),
		ReviewHandler: handler.NewReviewHandler(reviewService),
	}
	router := api.SetupRouter(handlers)

	retention := time.Duration(cfg.Registry.TaskRetention) * time.Minute
	cleanJob := job.NewRegistryCleanJob(rdb, assetService, uploadService, retention)
	cronMgr := cron.NewCronManager(cfg.Registry.CleanCron, cleanJob)

	return &ApplicationContainer{
		Router:        router,
		DB:            db,
		CronMgr:       cronMgr,
		UploadService: uploadService,
		Producer:      producer,
	}, nil
}

func newStagingStore(ctx context.Context, cfg *config.Config) (staging.Store, error) {
	switch cfg.Staging.Driver {
	case "minio":
		log.Info("upload staging on minio", "bucket", cfg.MinIO.TempBucket)
		return minio.NewStore(ctx, cfg.MinIO)
	case "", "disk":
		log.Info("upload staging on disk", "dir", cfg.Staging.Dir)
		return staging.NewDiskStore(cfg.Staging.Dir)
	default:
		return nil, fmt.Errorf("unknown staging driver %q", cfg.Staging.Driver)
	}
}
