package thumbnail

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	DefaultSize    = 200
	DefaultQuality = 90
)

// Generate 等比缩放到 size×size 以内，输出 JPEG
// 带 EXIF 方向信息的图片会先摆正
func Generate(r io.Reader, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "thumbnail: decode")
	}

	var dst image.Image = src
	b := src.Bounds()
	if b.Dx() > size || b.Dy() > size {
		dst = imaging.Fit(src, size, size, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err = imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(DefaultQuality)); err != nil {
		return nil, errors.Wrap(err, "thumbnail: encode")
	}
	return buf.Bytes(), nil
}

// Supported imaging 能解码的类型，svg 不在其中
func Supported(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png", "image/gif":
		return true
	}
	return false
}
