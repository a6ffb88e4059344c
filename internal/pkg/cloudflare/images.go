package cloudflare

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type Image struct {
	ID                string         `json:"id"`
	Filename          string         `json:"filename"`
	Uploaded          time.Time      `json:"uploaded"`
	RequireSignedURLs bool           `json:"requireSignedURLs"`
	Variants          []string       `json:"variants"`
	Meta              map[string]any `json:"meta,omitempty"`
	Draft             bool           `json:"draft,omitempty"`
}

type ImageList struct {
	Images            []Image `json:"images"`
	ContinuationToken string  `json:"continuation_token,omitempty"`
}

// DirectUploadOptions 一次性上传地址的参数
type DirectUploadOptions struct {
	ID                 string
	RequireSignedURLs  bool
	Metadata           map[string]string
	Expiry             time.Time
	MaxDurationSeconds int
	AllowedOrigins     []string
}

// DirectUpload 图片返回 id，视频返回 uid
type DirectUpload struct {
	ID        string `json:"id,omitempty"`
	UID       string `json:"uid,omitempty"`
	UploadURL string `json:"uploadURL"`
}

func (d *DirectUpload) AssetID() string {
	if d.ID != "" {
		return d.ID
	}
	return d.UID
}

// UploadOptions 代理直传附带的表单字段
type UploadOptions struct {
	ID                string
	RequireSignedURLs bool
	Metadata          map[string]string
}

func (o UploadOptions) fields() (map[string]string, error) {
	fields := map[string]string{}
	if o.ID != "" {
		fields["id"] = o.ID
	}
	if o.RequireSignedURLs {
		fields["requireSignedURLs"] = "true"
	}
	if len(o.Metadata) > 0 {
		b, err := json.Marshal(o.Metadata)
		if err != nil {
			return nil, err
		}
		fields["metadata"] = string(b)
	}
	return fields, nil
}

// CreateImageDirectUpload POST images/v2/direct_upload
func (s *Client) CreateImageDirectUpload(ctx context.Context, opts DirectUploadOptions) (*DirectUpload, error) {
	form := map[string]string{
		"requireSignedURLs": strconv.FormatBool(opts.RequireSignedURLs),
	}
	if opts.ID != "" {
		form["id"] = opts.ID
	}
	if len(opts.Metadata) > 0 {
		b, err := json.Marshal(opts.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "cloudflare: encode metadata")
		}
		form["metadata"] = string(b)
	}
	if !opts.Expiry.IsZero() {
		form["expiry"] = opts.Expiry.UTC().Format(time.RFC3339)
	}

	req := s.newRequest(ctx).SetMultipartFormData(form)
	result, _, err := call[DirectUpload](req, http.MethodPost, s.accountPath("images/v2/direct_upload"))
	if err != nil {
		return nil, err
	}
	if result.UploadURL == "" || result.ID == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "direct upload without uploadURL or id")
	}
	return &result, nil
}

// UploadImage POST images/v1，使用 API Token 代理上传
func (s *Client) UploadImage(ctx context.Context, file File, opts UploadOptions, progress ProgressFunc) (*Image, error) {
	fields, err := opts.fields()
	if err != nil {
		return nil, errors.Wrap(err, "cloudflare: encode metadata")
	}
	img, err := uploadMultipart[Image](ctx, s, s.accountPath("images/v1"), file, fields, progress)
	if err != nil {
		return nil, err
	}
	if img.ID == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "image upload without id")
	}
	return &img, nil
}

// ListImages 分页列出图片
func (s *Client) ListImages(ctx context.Context, page, perPage int) (*ImageList, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 48
	}
	req := s.newRequest(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("per_page", strconv.Itoa(perPage))

	result, _, err := call[ImageList](req, http.MethodGet, s.accountPath("images/v1"))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Client) GetImage(ctx context.Context, id string) (*Image, error) {
	result, _, err := call[Image](s.newRequest(ctx), http.MethodGet, s.accountPath("images/v1/%s", id))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteImage 按策略顺序尝试鉴权，只有 401/403 才换下一个
func (s *Client) DeleteImage(ctx context.Context, id string) error {
	path := s.accountPath("images/v1/%s", id)

	var lastErr error
	for _, strategy := range s.strategies {
		req := s.api.R().SetContext(ctx)
		strategy.Apply(req)

		lastErr = execNoResult(req, http.MethodDelete, path)
		if lastErr == nil {
			return nil
		}
		status := StatusOf(lastErr)
		if status != http.StatusUnauthorized && status != http.StatusForbidden {
			return lastErr
		}
	}
	return lastErr
}

// UpdateImageAccess PATCH images/v1/{id}，切换是否需要签名访问
func (s *Client) UpdateImageAccess(ctx context.Context, id string, requireSigned bool) (*Image, error) {
	body := map[string]any{
		"requireSignedURLs": requireSigned,
		"metadata": map[string]string{
			"signedURLRequired": strconv.FormatBool(requireSigned),
			"updatedAt":         time.Now().UTC().Format(time.RFC3339),
		},
	}
	req := s.newRequest(ctx).SetHeader("Content-Type", "application/json").SetBody(body)

	result, _, err := call[Image](req, http.MethodPatch, s.accountPath("images/v1/%s", id))
	if err != nil {
		return nil, err
	}
	return &result, nil
}
