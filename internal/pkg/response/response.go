package response

import (
	"Waypoint/internal/api/dto"
	"Waypoint/internal/pkg/util"
	"Waypoint/internal/service"
	stdjson "encoding/json"
	"errors"
	"io"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	NotFound            = 404
	InternalServerError = 500
)

// Success 成功返回封装
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.Response{
		Success: true,
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装
func Fail(c *gin.Context, businessCode int, message string) {
	FailWithDetails(c, businessCode, message, nil)
}

func FailWithDetails(c *gin.Context, businessCode int, message string, details interface{}) {
	c.JSON(http.StatusOK, dto.Response{
		Success: false,
		Code:    businessCode,
		Message: message,
		Error:   message,
		Details: details,
	})
}

// Error 处理错误，路由边界上所有错误都在这里收敛
func Error(c *gin.Context, err error) {
	var details interface{}
	var ue *service.UploadError
	if errors.As(err, &ue) {
		details = dto.UploadStepDTO{Step: string(ue.Step)}
	}

	var ve *util.ValidationError
	if errors.As(err, &ve) {
		FailWithDetails(c, BadRequest, ve.Error(), details)
		return
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		FailWithDetails(c, BadRequest, "参数错误", details)
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	var syntaxError *json.SyntaxError
	var stdTypeError *stdjson.UnmarshalTypeError
	var stdSyntaxError *stdjson.SyntaxError
	if errors.As(err, &unmarshalTypeError) || errors.As(err, &syntaxError) ||
		errors.As(err, &stdTypeError) || errors.As(err, &stdSyntaxError) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		FailWithDetails(c, BadRequest, "Json错误", details)
		return
	}

	code, ok := service.CodeOf(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "Error", "err", err)
		FailWithDetails(c, InternalServerError, service.UnExpectedError.Error(), details)
		return
	}
	FailWithDetails(c, code, err.Error(), details)
}
