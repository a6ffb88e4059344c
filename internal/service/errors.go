package service

import (
	"errors"
	"fmt"

	"Waypoint/internal/model"
)

const (
	BadRequest          = 400
	NotFound            = 404
	Conflict            = 409
	PayloadTooLarge     = 413
	InternalServerError = 500
	BadGateway          = 502
)

var (
	ErrParamInvalid      = errors.New("参数错误")
	ErrFileNotSupported  = errors.New("不支持的文件类型")
	ErrFileTooLarge      = errors.New("文件超过大小限制")
	ErrFileEmpty         = errors.New("文件为空")
	ErrTaskNotFound      = errors.New("上传任务不存在")
	ErrTaskFinished      = errors.New("上传任务已结束")
	ErrPreviewNotFound   = errors.New("预览图不存在")
	ErrAssetNotFound     = errors.New("资源记录不存在")
	ErrImageNotFound     = errors.New("图片不存在")
	ErrVideoNotFound     = errors.New("视频不存在")
	ErrReviewNotFound    = errors.New("评价不存在")
	ErrTooManyFiles      = errors.New("媒体文件数量超过限制")
	ErrConsentRequired   = errors.New("需要同意隐私条款")
	ErrSigningDisabled   = errors.New("签名 URL 未配置")
	ErrUpstream          = errors.New("媒体服务请求失败")
	ErrUpstreamMalformed = errors.New("媒体服务返回格式错误")
	UnExpectedError      = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:      BadRequest,
	ErrFileNotSupported:  BadRequest,
	ErrFileTooLarge:      PayloadTooLarge,
	ErrFileEmpty:         BadRequest,
	ErrTaskNotFound:      NotFound,
	ErrTaskFinished:      Conflict,
	ErrPreviewNotFound:   NotFound,
	ErrAssetNotFound:     NotFound,
	ErrImageNotFound:     NotFound,
	ErrVideoNotFound:     NotFound,
	ErrReviewNotFound:    NotFound,
	ErrTooManyFiles:      BadRequest,
	ErrConsentRequired:   BadRequest,
	ErrSigningDisabled:   InternalServerError,
	ErrUpstream:          BadGateway,
	ErrUpstreamMalformed: BadGateway,
	UnExpectedError:      InternalServerError,
}

// CodeOf 先精确匹配，再沿包装链查找
func CodeOf(err error) (int, bool) {
	if code, ok := ErrorMap[err]; ok {
		return code, true
	}
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return code, true
		}
	}
	return 0, false
}

// UploadError 上传失败，携带失败阶段
type UploadError struct {
	Step model.UploadStep
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func stepError(step model.UploadStep, err error) *UploadError {
	return &UploadError{Step: step, Err: err}
}
