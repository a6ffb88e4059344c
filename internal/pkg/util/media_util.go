package util

import (
	"io"
	"mime"
	"strings"

	"Waypoint/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

const OctetStream = "application/octet-stream"

var imageTypes = map[string]struct{}{
	"image/jpeg":    {},
	"image/jpg":     {},
	"image/png":     {},
	"image/gif":     {},
	"image/webp":    {},
	"image/svg+xml": {},
}

var videoTypes = map[string]struct{}{
	"video/mp4":        {},
	"video/webm":       {},
	"video/quicktime":  {},
	"video/x-matroska": {},
	"video/x-msvideo":  {},
	"video/mpeg":       {},
}

// NormalizeContentType 去掉参数并转小写
func NormalizeContentType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// KindOf 白名单内的类型返回对应的媒体种类
func KindOf(contentType string) (model.MediaKind, bool) {
	ct := NormalizeContentType(contentType)
	if _, ok := imageTypes[ct]; ok {
		return model.MediaKindImage, true
	}
	if _, ok := videoTypes[ct]; ok {
		return model.MediaKindVideo, true
	}
	return "", false
}

// DetectContentType 读取文件头判断类型，结束后把读取位置复位
func DetectContentType(r io.ReadSeeker) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return NormalizeContentType(mt.String()), nil
}

// ResolveContentType 声明类型缺失或为 octet-stream 时才嗅探
func ResolveContentType(declared string, r io.ReadSeeker) (string, error) {
	ct := NormalizeContentType(declared)
	if ct != "" && ct != OctetStream {
		return ct, nil
	}
	return DetectContentType(r)
}
