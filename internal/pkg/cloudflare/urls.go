package cloudflare

import (
	"strings"

	"Waypoint/internal/pkg/signer"
)

const (
	DefaultImageDeliveryOrigin = "https://imagedelivery.net"
	DefaultVideoDeliveryOrigin = "https://videodelivery.net"
	iframeOrigin               = "https://iframe.videodelivery.net"
)

type ImageVariants struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
	Webp   string `json:"webp"`
}

// ImageURLs 公开图片的投递地址
type ImageURLs struct {
	BaseURL      string        `json:"baseUrl"`
	OriginalURL  string        `json:"originalUrl"`
	WebpURL      string        `json:"webpUrl"`
	ThumbnailURL string        `json:"thumbnailUrl"`
	Variants     ImageVariants `json:"variants"`
}

// VideoURLs 视频的投递地址
type VideoURLs struct {
	BaseURL              string `json:"baseUrl"`
	StreamURL            string `json:"streamUrl"`
	HlsURL               string `json:"hlsUrl"`
	DashURL              string `json:"dashUrl"`
	ThumbnailURL         string `json:"thumbnailUrl"`
	AnimatedThumbnailURL string `json:"animatedThumbnailUrl"`
	IframeURL            string `json:"iframeUrl"`
}

func ImageBaseURL(origin, accountHash, id string) string {
	if origin == "" {
		origin = DefaultImageDeliveryOrigin
	}
	return strings.TrimRight(origin, "/") + "/" + accountHash + "/" + id
}

func imageVariantURL(base, variant string) string {
	return base + "/" + variant + "?" + strings.TrimPrefix(signer.TransformParams(variant), "&")
}

// BuildImageURLs 未签名的变体地址，变换参数与签名 URL 一致
func BuildImageURLs(origin, accountHash, id string) ImageURLs {
	base := ImageBaseURL(origin, accountHash, id)
	return ImageURLs{
		BaseURL:      base,
		OriginalURL:  imageVariantURL(base, signer.VariantPublic),
		WebpURL:      imageVariantURL(base, signer.VariantWebp),
		ThumbnailURL: imageVariantURL(base, signer.VariantThumbnail),
		Variants: ImageVariants{
			Small:  imageVariantURL(base, signer.VariantSmall),
			Medium: imageVariantURL(base, signer.VariantMedium),
			Large:  imageVariantURL(base, signer.VariantLarge),
			Webp:   imageVariantURL(base, signer.VariantWebpQ85),
		},
	}
}

// GalleryURLs 列表展示用
type GalleryURLs struct {
	DisplayURL   string `json:"displayUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	SquareURL    string `json:"squareUrl"`
}

func BuildGalleryURLs(origin, accountHash, id string) GalleryURLs {
	base := ImageBaseURL(origin, accountHash, id)
	return GalleryURLs{
		DisplayURL:   base + "/" + signer.VariantPublic + "?f=auto",
		ThumbnailURL: base + "/" + signer.VariantStandardThumbnail + "?f=auto",
		SquareURL:    base + "/" + signer.VariantReviewMedium + "?f=auto",
	}
}

// BuildVideoURLs 公开视频走 videodelivery.net
func BuildVideoURLs(origin, uid string) VideoURLs {
	if origin == "" {
		origin = DefaultVideoDeliveryOrigin
	}
	base := strings.TrimRight(origin, "/") + "/" + uid
	return VideoURLs{
		BaseURL:              base,
		StreamURL:            base + "/downloads/default.mp4",
		HlsURL:               base + "/manifest/video.m3u8",
		DashURL:              base + "/manifest/video.mpd",
		ThumbnailURL:         base + "/thumbnails/thumbnail.jpg",
		AnimatedThumbnailURL: base + "/thumbnails/thumbnail.gif",
		IframeURL:            iframeOrigin + "/" + uid,
	}
}

// BuildSignedVideoURLs 需要签名的视频走客户子域
func BuildSignedVideoURLs(accountHash, uid string) VideoURLs {
	base := "https://customer-" + accountHash + ".cloudflarestream.com/" + uid
	return VideoURLs{
		BaseURL:              base,
		StreamURL:            base + "/manifest/video.m3u8",
		HlsURL:               base + "/manifest/video.m3u8",
		DashURL:              base + "/manifest/video.mpd",
		ThumbnailURL:         base + "/thumbnails/thumbnail.jpg",
		AnimatedThumbnailURL: base + "/thumbnails/thumbnail.gif",
		IframeURL:            base + "/iframe",
	}
}
