package cloudflare

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const DefaultMaxDurationSeconds = 3600

type VideoStatus struct {
	State           string `json:"state"`
	PctComplete     string `json:"pctComplete,omitempty"`
	ErrorReasonCode string `json:"errorReasonCode,omitempty"`
	ErrorReasonText string `json:"errorReasonText,omitempty"`
}

type Playback struct {
	HLS  string `json:"hls,omitempty"`
	Dash string `json:"dash,omitempty"`
}

type Video struct {
	UID               string         `json:"uid"`
	Thumbnail         string         `json:"thumbnail,omitempty"`
	Preview           string         `json:"preview,omitempty"`
	ReadyToStream     bool           `json:"readyToStream"`
	Status            VideoStatus    `json:"status"`
	Meta              map[string]any `json:"meta,omitempty"`
	Created           time.Time      `json:"created"`
	Modified          time.Time      `json:"modified"`
	Size              int64          `json:"size"`
	Duration          float64        `json:"duration"`
	Playback          Playback       `json:"playback"`
	RequireSignedURLs bool           `json:"requireSignedURLs"`
}

type streamDirectUploadBody struct {
	MaxDurationSeconds int               `json:"maxDurationSeconds"`
	RequireSignedURLs  bool              `json:"requireSignedURLs,omitempty"`
	AllowedOrigins     []string          `json:"allowedOrigins,omitempty"`
	Meta               map[string]string `json:"meta,omitempty"`
	Expiry             string            `json:"expiry,omitempty"`
}

// CreateStreamDirectUpload POST stream/direct_upload
func (s *Client) CreateStreamDirectUpload(ctx context.Context, opts DirectUploadOptions) (*DirectUpload, error) {
	body := streamDirectUploadBody{
		MaxDurationSeconds: opts.MaxDurationSeconds,
		RequireSignedURLs:  opts.RequireSignedURLs,
		AllowedOrigins:     opts.AllowedOrigins,
		Meta:               opts.Metadata,
	}
	if body.MaxDurationSeconds <= 0 {
		body.MaxDurationSeconds = DefaultMaxDurationSeconds
	}
	if opts.RequireSignedURLs && len(body.AllowedOrigins) == 0 {
		body.AllowedOrigins = []string{"*"}
	}
	if !opts.Expiry.IsZero() {
		body.Expiry = opts.Expiry.UTC().Format(time.RFC3339)
	}

	req := s.newRequest(ctx).SetHeader("Content-Type", "application/json").SetBody(body)
	result, _, err := call[DirectUpload](req, http.MethodPost, s.accountPath("stream/direct_upload"))
	if err != nil {
		return nil, err
	}
	if result.UploadURL == "" || result.UID == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "direct upload without uploadURL or uid")
	}
	return &result, nil
}

// UploadVideo POST stream，使用 API Token 代理上传
func (s *Client) UploadVideo(ctx context.Context, file File, opts UploadOptions, progress ProgressFunc) (*Video, error) {
	fields, err := opts.fields()
	if err != nil {
		return nil, errors.Wrap(err, "cloudflare: encode metadata")
	}
	video, err := uploadMultipart[Video](ctx, s, s.accountPath("stream"), file, fields, progress)
	if err != nil {
		return nil, err
	}
	if video.UID == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "video upload without uid")
	}
	return &video, nil
}

func (s *Client) ListVideos(ctx context.Context) ([]Video, error) {
	result, _, err := call[[]Video](s.newRequest(ctx), http.MethodGet, s.accountPath("stream"))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetVideo 包含处理状态与进度
func (s *Client) GetVideo(ctx context.Context, uid string) (*Video, error) {
	result, _, err := call[Video](s.newRequest(ctx), http.MethodGet, s.accountPath("stream/%s", uid))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Client) DeleteVideo(ctx context.Context, uid string) error {
	return execNoResult(s.newRequest(ctx), http.MethodDelete, s.accountPath("stream/%s", uid))
}

// UpdateVideoThumbnail PATCH stream/{uid}，pct 为缩略图所在时长比例
func (s *Client) UpdateVideoThumbnail(ctx context.Context, uid string, pct float64) (*Video, error) {
	body := map[string]any{"thumbnailTimestampPct": pct}
	req := s.newRequest(ctx).SetHeader("Content-Type", "application/json").SetBody(body)

	result, _, err := call[Video](req, http.MethodPatch, s.accountPath("stream/%s", uid))
	if err != nil {
		return nil, err
	}
	return &result, nil
}
