package service

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"Waypoint/internal/api/config"
	"Waypoint/internal/api/dto"
	"Waypoint/internal/pkg/cloudflare"
	"Waypoint/internal/pkg/signer"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

var galleryCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "waypoint_gallery_cache_total",
		Help: "图片详情缓存命中情况",
	},
	[]string{"result"},
)

const defaultPerPage = 48

// GalleryProvider 图库用到的远端能力，*cloudflare.Client 实现
type GalleryProvider interface {
	AccountHash() string
	CreateImageDirectUpload(ctx context.Context, opts cloudflare.DirectUploadOptions) (*cloudflare.DirectUpload, error)
	CreateStreamDirectUpload(ctx context.Context, opts cloudflare.DirectUploadOptions) (*cloudflare.DirectUpload, error)
	ListImages(ctx context.Context, page, perPage int) (*cloudflare.ImageList, error)
	GetImage(ctx context.Context, id string) (*cloudflare.Image, error)
	DeleteImage(ctx context.Context, id string) error
	UpdateImageAccess(ctx context.Context, id string, requireSigned bool) (*cloudflare.Image, error)
	ListVideos(ctx context.Context) ([]cloudflare.Video, error)
	GetVideo(ctx context.Context, uid string) (*cloudflare.Video, error)
	DeleteVideo(ctx context.Context, uid string) error
	UpdateVideoThumbnail(ctx context.Context, uid string, pct float64) (*cloudflare.Video, error)
}

type GalleryService interface {
	CreateImageUploadURL(ctx context.Context, req *dto.DirectUploadReqDTO) (*dto.DirectUploadDTO, error)
	CreateVideoUploadURL(ctx context.Context, req *dto.DirectUploadReqDTO) (*dto.DirectUploadDTO, error)
	ListImages(ctx context.Context, page, perPage int) (*dto.ImageListDTO, error)
	GetImage(ctx context.Context, id string) (*dto.ImageDTO, error)
	DeleteImage(ctx context.Context, id string) error
	SetImageSigned(ctx context.Context, id string, requireSigned bool) (*dto.ImageDTO, error)
	SignURL(ctx context.Context, id, variant string) (*signer.SignedURL, error)
	SignBundle(ctx context.Context, id string) (*signer.Bundle, error)
	ListVideos(ctx context.Context) ([]*dto.VideoDTO, error)
	GetVideo(ctx context.Context, uid string) (*dto.VideoDTO, error)
	DeleteVideo(ctx context.Context, uid string) error
	SetVideoThumbnail(ctx context.Context, uid string, pct float64) (*dto.VideoDTO, error)
	Overview(ctx context.Context, perPage int) (*dto.GalleryOverviewDTO, error)
}

type galleryServiceImpl struct {
	provider    GalleryProvider
	signer      *signer.Signer
	cache       *expirable.LRU[string, *cloudflare.Image]
	imageOrigin string
	videoOrigin string
	maxDuration int
}

// NewGalleryService signer 为 nil 时签名接口返回 ErrSigningDisabled
func NewGalleryService(provider GalleryProvider, urlSigner *signer.Signer, cfg *config.Config) GalleryService {
	size := cfg.Cache.ImageSize
	if size <= 0 {
		size = 1024
	}
	ttl := time.Duration(cfg.Cache.ImageTTL) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &galleryServiceImpl{
		provider:    provider,
		signer:      urlSigner,
		cache:       expirable.NewLRU[string, *cloudflare.Image](size, nil, ttl),
		imageOrigin: cfg.Cloudflare.ImageDeliveryOrigin,
		videoOrigin: cfg.Cloudflare.VideoDeliveryOrigin,
		maxDuration: cfg.Upload.MaxVideoDuration,
	}
}

// upstreamError 统一远端错误，保留原始信息
func upstreamError(err error) error {
	if errors.Is(err, cloudflare.ErrMalformedResponse) {
		return fmt.Errorf("%w: %v", ErrUpstreamMalformed, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

func (s *galleryServiceImpl) CreateImageUploadURL(ctx context.Context, req *dto.DirectUploadReqDTO) (*dto.DirectUploadDTO, error) {
	du, err := s.provider.CreateImageDirectUpload(ctx, cloudflare.DirectUploadOptions{
		ID:                req.ID,
		RequireSignedURLs: req.RequireSignedURLs,
		Metadata:          req.Metadata,
	})
	if err != nil {
		return nil, upstreamError(err)
	}
	return &dto.DirectUploadDTO{ID: du.AssetID(), UploadURL: du.UploadURL, RequireSignedURLs: req.RequireSignedURLs}, nil
}

func (s *galleryServiceImpl) CreateVideoUploadURL(ctx context.Context, req *dto.DirectUploadReqDTO) (*dto.DirectUploadDTO, error) {
	maxDuration := req.MaxDurationSeconds
	if maxDuration <= 0 {
		maxDuration = s.maxDuration
	}
	du, err := s.provider.CreateStreamDirectUpload(ctx, cloudflare.DirectUploadOptions{
		RequireSignedURLs:  req.RequireSignedURLs,
		Metadata:           req.Metadata,
		MaxDurationSeconds: maxDuration,
	})
	if err != nil {
		return nil, upstreamError(err)
	}
	return &dto.DirectUploadDTO{ID: du.AssetID(), UploadURL: du.UploadURL, RequireSignedURLs: req.RequireSignedURLs}, nil
}

func (s *galleryServiceImpl) ListImages(ctx context.Context, page, perPage int) (*dto.ImageListDTO, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	list, err := s.provider.ListImages(ctx, page, perPage)
	if err != nil {
		return nil, upstreamError(err)
	}

	out := &dto.ImageListDTO{
		Images:  make([]*dto.ImageDTO, 0, len(list.Images)),
		Page:    page,
		PerPage: perPage,
		HasMore: len(list.Images) >= perPage,
	}
	for i := range list.Images {
		out.Images = append(out.Images, s.toImageDTO(&list.Images[i]))
	}
	if out.HasMore {
		out.NextPage = page + 1
	}
	return out, nil
}

// GetImage 详情走短期缓存
func (s *galleryServiceImpl) GetImage(ctx context.Context, id string) (*dto.ImageDTO, error) {
	if img, ok := s.cache.Get(id); ok {
		galleryCacheTotal.WithLabelValues("hit").Inc()
		return s.toImageDTO(img), nil
	}
	galleryCacheTotal.WithLabelValues("miss").Inc()

	img, err := s.provider.GetImage(ctx, id)
	if err != nil {
		if cloudflare.IsNotFound(err) {
			return nil, ErrImageNotFound
		}
		return nil, upstreamError(err)
	}
	s.cache.Add(id, img)
	return s.toImageDTO(img), nil
}

// DeleteImage 远端 404 视为已删除
func (s *galleryServiceImpl) DeleteImage(ctx context.Context, id string) error {
	s.cache.Remove(id)
	if err := s.provider.DeleteImage(ctx, id); err != nil {
		if cloudflare.IsNotFound(err) {
			log.InfoContext(ctx, "image already deleted", "id", id)
			return nil
		}
		return upstreamError(err)
	}
	return nil
}

func (s *galleryServiceImpl) SetImageSigned(ctx context.Context, id string, requireSigned bool) (*dto.ImageDTO, error) {
	s.cache.Remove(id)
	img, err := s.provider.UpdateImageAccess(ctx, id, requireSigned)
	if err != nil {
		if cloudflare.IsNotFound(err) {
			return nil, ErrImageNotFound
		}
		return nil, upstreamError(err)
	}
	return s.toImageDTO(img), nil
}

func (s *galleryServiceImpl) SignURL(_ context.Context, id, variant string) (*signer.SignedURL, error) {
	if s.signer == nil {
		return nil, ErrSigningDisabled
	}
	u, err := s.signer.Sign(id, variant)
	if err != nil {
		return nil, ErrParamInvalid
	}
	return u, nil
}

func (s *galleryServiceImpl) SignBundle(_ context.Context, id string) (*signer.Bundle, error) {
	if s.signer == nil {
		return nil, ErrSigningDisabled
	}
	b, err := s.signer.SignAll(id)
	if err != nil {
		return nil, ErrParamInvalid
	}
	return b, nil
}

func (s *galleryServiceImpl) ListVideos(ctx context.Context) ([]*dto.VideoDTO, error) {
	videos, err := s.provider.ListVideos(ctx)
	if err != nil {
		return nil, upstreamError(err)
	}
	out := make([]*dto.VideoDTO, 0, len(videos))
	for i := range videos {
		out = append(out, s.toVideoDTO(&videos[i]))
	}
	return out, nil
}

func (s *galleryServiceImpl) GetVideo(ctx context.Context, uid string) (*dto.VideoDTO, error) {
	video, err := s.provider.GetVideo(ctx, uid)
	if err != nil {
		if cloudflare.IsNotFound(err) {
			return nil, ErrVideoNotFound
		}
		return nil, upstreamError(err)
	}
	return s.toVideoDTO(video), nil
}

// DeleteVideo 与图片相同，404 视为已删除
func (s *galleryServiceImpl) DeleteVideo(ctx context.Context, uid string) error {
	if err := s.provider.DeleteVideo(ctx, uid); err != nil {
		if cloudflare.IsNotFound(err) {
			log.InfoContext(ctx, "video already deleted", "uid", uid)
			return nil
		}
		return upstreamError(err)
	}
	return nil
}

func (s *galleryServiceImpl) SetVideoThumbnail(ctx context.Context, uid string, pct float64) (*dto.VideoDTO, error) {
	video, err := s.provider.UpdateVideoThumbnail(ctx, uid, pct)
	if err != nil {
		if cloudflare.IsNotFound(err) {
			return nil, ErrVideoNotFound
		}
		return nil, upstreamError(err)
	}
	return s.toVideoDTO(video), nil
}

// Overview 并发拉取首页图片与全部视频
func (s *galleryServiceImpl) Overview(ctx context.Context, perPage int) (*dto.GalleryOverviewDTO, error) {
	out := &dto.GalleryOverviewDTO{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.ListImages(gctx, 1, perPage)
		if err != nil {
			return err
		}
		out.Images = list.Images
		return nil
	})
	g.Go(func() error {
		videos, err := s.ListVideos(gctx)
		if err != nil {
			return err
		}
		out.Videos = videos
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *galleryServiceImpl) toImageDTO(img *cloudflare.Image) *dto.ImageDTO {
	hash := s.provider.AccountHash()
	out := &dto.ImageDTO{
		ID:                img.ID,
		Filename:          img.Filename,
		Uploaded:          img.Uploaded,
		RequireSignedURLs: img.RequireSignedURLs,
		Meta:              img.Meta,
		Gallery:           cloudflare.BuildGalleryURLs(s.imageOrigin, hash, img.ID),
	}
	if img.RequireSignedURLs && s.signer != nil {
		if bundle, err := s.signer.SignAll(img.ID); err == nil {
			out.Signed = bundle
			return out
		}
	}
	urls := cloudflare.BuildImageURLs(s.imageOrigin, hash, img.ID)
	out.URLs = &urls
	return out
}

func (s *galleryServiceImpl) toVideoDTO(v *cloudflare.Video) *dto.VideoDTO {
	var urls cloudflare.VideoURLs
	if v.RequireSignedURLs {
		urls = cloudflare.BuildSignedVideoURLs(s.provider.AccountHash(), v.UID)
	} else {
		urls = cloudflare.BuildVideoURLs(s.videoOrigin, v.UID)
	}
	return &dto.VideoDTO{
		UID:               v.UID,
		ReadyToStream:     v.ReadyToStream,
		State:             v.Status.State,
		PctComplete:       v.Status.PctComplete,
		ErrorReason:       v.Status.ErrorReasonText,
		Duration:          v.Duration,
		Size:              v.Size,
		Created:           v.Created,
		RequireSignedURLs: v.RequireSignedURLs,
		Meta:              v.Meta,
		URLs:              urls,
	}
}
