package handler

import (
	"Waypoint/internal/api/dto"
	"Waypoint/internal/model"
	"Waypoint/internal/pkg/consts"
	"Waypoint/internal/pkg/response"
	"Waypoint/internal/pkg/util"
	"Waypoint/internal/service"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// multipartOverhead 表单字段与分隔符的余量
const multipartOverhead = 1 << 20

type UploadHandler struct {
	uploadSvc   service.UploadService
	maxBodySize int64
}

// NewUploadHandler maxFileSize 为单个文件上限，请求体上限在此基础上加表单余量
func NewUploadHandler(uploadSvc service.UploadService, maxFileSize int64) *UploadHandler {
	return &UploadHandler{uploadSvc: uploadSvc, maxBodySize: maxFileSize + multipartOverhead}
}

// Upload 同步模式阻塞到任务结束，async=true 时立即返回任务
func (s *UploadHandler) Upload(c *gin.Context) {
	if s.maxBodySize > multipartOverhead {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodySize)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, &service.UploadError{Step: model.StepValidate, Err: service.ErrFileTooLarge})
			return
		}
		response.Error(c, &service.UploadError{Step: model.StepValidate, Err: service.ErrParamInvalid})
		return
	}

	var form dto.UploadFormDTO
	if err = c.ShouldBind(&form); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = util.ValidateDTO(&form); err != nil {
		response.Error(c, err)
		return
	}

	var metadata map[string]string
	if form.Metadata != "" {
		if err = json.Unmarshal([]byte(form.Metadata), &metadata); err != nil {
			response.Error(c, &service.UploadError{Step: model.StepValidate, Err: service.ErrParamInvalid})
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, &service.UploadError{Step: model.StepStage, Err: service.ErrParamInvalid})
		return
	}
	defer func() { _ = file.Close() }()

	ctx := c.Request.Context()
	task, err := s.uploadSvc.Start(ctx, &service.UploadInput{
		Reader:      file,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		CustomID:    form.CustomID,
		Metadata:    metadata,
		Strategy:    model.UploadStrategy(form.Strategy),
		SessionID:   c.GetHeader(consts.HeaderSessionID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if form.Async {
		response.Success(c, task)
		return
	}

	taskID := task.ID
	task, err = s.uploadSvc.Wait(ctx, taskID)
	if err != nil {
		// 客户端断开，同步上传没有接收方了
		if errors.Is(err, context.Canceled) {
			if _, cErr := s.uploadSvc.Cancel(context.WithoutCancel(ctx), taskID); cErr != nil {
				log.WarnContext(ctx, "cancel abandoned upload failed", "err", cErr)
			}
		}
		response.Error(c, err)
		return
	}
	if task.State == model.UploadStateFailed {
		response.Error(c, &service.UploadError{
			Step: task.Step,
			Err:  fmt.Errorf("%w: %s", service.ErrUpstream, task.Error),
		})
		return
	}
	response.Success(c, task)
}

func (s *UploadHandler) ListUploads(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = c.GetHeader(consts.HeaderSessionID)
	}
	tasks, err := s.uploadSvc.List(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tasks)
}

func (s *UploadHandler) Results(c *gin.Context) {
	results, err := s.uploadSvc.Results(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, results)
}

func (s *UploadHandler) GetUpload(c *gin.Context) {
	task, err := s.uploadSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}

func (s *UploadHandler) CancelUpload(c *gin.Context) {
	task, err := s.uploadSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}

// Preview 本地生成的缩略图
func (s *UploadHandler) Preview(c *gin.Context) {
	b, err := s.uploadSvc.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/jpeg", b)
}
