package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"Waypoint/internal/api/dto"
	"Waypoint/internal/model"
	"Waypoint/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, fn func(c *gin.Context)) dto.Response {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	resp := render(t, func(c *gin.Context) { Success(c, gin.H{"a": 1}) })
	assert.True(t, resp.Success)
	assert.Equal(t, Ok, resp.Code)
	assert.Empty(t, resp.Error)
}

func TestError_UploadStepDetails(t *testing.T) {
	err := &service.UploadError{Step: model.StepValidate, Err: service.ErrFileNotSupported}
	resp := render(t, func(c *gin.Context) { Error(c, err) })

	assert.False(t, resp.Success)
	assert.Equal(t, BadRequest, resp.Code)
	assert.Equal(t, map[string]interface{}{"step": "validate"}, resp.Details)
}

func TestError_Mapped(t *testing.T) {
	resp := render(t, func(c *gin.Context) { Error(c, service.ErrReviewNotFound) })
	assert.Equal(t, NotFound, resp.Code)
	assert.Equal(t, service.ErrReviewNotFound.Error(), resp.Message)
}

func TestError_Unknown(t *testing.T) {
	resp := render(t, func(c *gin.Context) { Error(c, errors.New("dial tcp: refused")) })
	assert.Equal(t, InternalServerError, resp.Code)
	assert.Equal(t, service.UnExpectedError.Error(), resp.Message)
}
