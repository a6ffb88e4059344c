package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Waypoint/internal/api/dto"
	"Waypoint/internal/model"
	"Waypoint/internal/pkg/consts"
	"Waypoint/internal/pkg/signer"
	"Waypoint/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploadService struct {
	started *service.UploadInput
	body    []byte
	final   *service.UploadTask
	preview []byte
}

func (f *fakeUploadService) Start(_ context.Context, in *service.UploadInput) (*service.UploadTask, error) {
	f.started = in
	f.body, _ = io.ReadAll(in.Reader)
	return &service.UploadTask{ID: "t1", State: model.UploadStatePending, FileName: in.FileName}, nil
}

func (f *fakeUploadService) Wait(_ context.Context, id string) (*service.UploadTask, error) {
	if f.final == nil {
		return nil, service.ErrTaskNotFound
	}
	return f.final, nil
}

func (f *fakeUploadService) Cancel(_ context.Context, id string) (*service.UploadTask, error) {
	return nil, service.ErrTaskFinished
}

func (f *fakeUploadService) Get(_ context.Context, id string) (*service.UploadTask, error) {
	return nil, service.ErrTaskNotFound
}

func (f *fakeUploadService) List(_ context.Context, sessionID string) ([]*service.UploadTask, error) {
	return []*service.UploadTask{{ID: "t1", SessionID: sessionID}}, nil
}

func (f *fakeUploadService) Results(context.Context) ([]*service.UploadResult, error) {
	return []*service.UploadResult{}, nil
}

func (f *fakeUploadService) Preview(_ context.Context, id string) ([]byte, error) {
	if f.preview == nil {
		return nil, service.ErrPreviewNotFound
	}
	return f.preview, nil
}

func (f *fakeUploadService) PruneFinished(context.Context, time.Time) int { return 0 }

func (f *fakeUploadService) InFlight(context.Context) []string { return nil }

func (f *fakeUploadService) Shutdown(context.Context) error { return nil }

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadRouter(svc service.UploadService) *gin.Engine {
	return uploadRouterWithLimit(svc, 0)
}

func uploadRouterWithLimit(svc service.UploadService, maxFileSize int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewUploadHandler(svc, maxFileSize)
	r.POST("/uploads", h.Upload)
	r.GET("/uploads", h.ListUploads)
	r.GET("/uploads/:id", h.GetUpload)
	r.DELETE("/uploads/:id", h.CancelUpload)
	r.GET("/uploads/:id/preview", h.Preview)
	return r
}

func TestUploadHandler_Sync(t *testing.T) {
	svc := &fakeUploadService{final: &service.UploadTask{ID: "t1", State: model.UploadStateUploaded, AssetID: "cf-1"}}
	body, ct := multipartBody(t, map[string]string{
		"strategy": "signed",
		"metadata": `{"tour":"kyoto"}`,
	}, "a.png", []byte("png-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(consts.HeaderSessionID, "s1")
	w := httptest.NewRecorder()
	uploadRouter(svc).ServeHTTP(w, req)

	resp := decode(t, w)
	require.True(t, resp.Success, resp.Message)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "cf-1", data["assetId"])

	require.NotNil(t, svc.started)
	assert.Equal(t, "a.png", svc.started.FileName)
	assert.Equal(t, model.StrategySigned, svc.started.Strategy)
	assert.Equal(t, "s1", svc.started.SessionID)
	assert.Equal(t, map[string]string{"tour": "kyoto"}, svc.started.Metadata)
	assert.Equal(t, []byte("png-bytes"), svc.body)
}

func TestUploadHandler_Async(t *testing.T) {
	svc := &fakeUploadService{}
	body, ct := multipartBody(t, map[string]string{"async": "true"}, "a.png", []byte("x"))

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	uploadRouter(svc).ServeHTTP(w, req)

	resp := decode(t, w)
	require.True(t, resp.Success)
	assert.Equal(t, "pending", resp.Data.(map[string]interface{})["state"])
}

func TestUploadHandler_FailedTaskReportsStep(t *testing.T) {
	svc := &fakeUploadService{final: &service.UploadTask{
		ID:    "t1",
		State: model.UploadStateFailed,
		Step:  model.StepTransfer,
		Error: "boom",
	}}
	body, ct := multipartBody(t, nil, "a.png", []byte("x"))

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	uploadRouter(svc).ServeHTTP(w, req)

	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, service.BadGateway, resp.Code)
	assert.Equal(t, map[string]interface{}{"step": "transfer"}, resp.Details)
}

func TestUploadHandler_BadInput(t *testing.T) {
	cases := map[string]map[string]string{
		"bad strategy": {"strategy": "ftp"},
		"bad metadata": {"metadata": "{not json"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeUploadService{}
			body, ct := multipartBody(t, fields, "a.png", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/uploads", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			uploadRouter(svc).ServeHTTP(w, req)

			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, service.BadRequest, resp.Code)
			assert.Nil(t, svc.started)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"strategy": "direct"}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/uploads", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		uploadRouter(&fakeUploadService{}).ServeHTTP(w, req)

		resp := decode(t, w)
		assert.Equal(t, service.BadRequest, resp.Code)
		assert.Equal(t, map[string]interface{}{"step": "validate"}, resp.Details)
	})
}

func TestUploadHandler_BodyOverCeiling(t *testing.T) {
	svc := &fakeUploadService{}
	const maxFileSize = 4 << 20
	body, ct := multipartBody(t, map[string]string{"strategy": "direct"}, "big.png", bytes.Repeat([]byte("x"), maxFileSize+multipartOverhead+1024))

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	uploadRouterWithLimit(svc, maxFileSize).ServeHTTP(w, req)

	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, service.PayloadTooLarge, resp.Code)
	assert.Equal(t, map[string]interface{}{"step": "validate"}, resp.Details)
	assert.Nil(t, svc.started)
}

func TestUploadHandler_BodyWithinCeiling(t *testing.T) {
	svc := &fakeUploadService{final: &service.UploadTask{ID: "t1", State: model.UploadStateUploaded}}
	const maxFileSize = 4 << 20
	content := bytes.Repeat([]byte("x"), maxFileSize)
	body, ct := multipartBody(t, nil, "ok.png", content)

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	uploadRouterWithLimit(svc, maxFileSize).ServeHTTP(w, req)

	require.True(t, decode(t, w).Success)
	require.NotNil(t, svc.started)
	assert.Equal(t, int64(maxFileSize), svc.started.Size)
}

func TestUploadHandler_Queries(t *testing.T) {
	svc := &fakeUploadService{preview: []byte{0xff, 0xd8}}
	r := uploadRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads?session=s9", nil))
	resp := decode(t, w)
	items := resp.Data.([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "s9", items[0].(map[string]interface{})["sessionId"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/nope", nil))
	assert.Equal(t, service.NotFound, decode(t, w).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/uploads/t1", nil))
	assert.Equal(t, service.Conflict, decode(t, w).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/t1/preview", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0xff, 0xd8}, w.Body.Bytes())
}

type fakeGalleryService struct {
	service.GalleryService
	signedID      string
	signedVariant string
	access        *bool
	thumbPct      *float64
}

func (f *fakeGalleryService) SetVideoThumbnail(_ context.Context, uid string, pct float64) (*dto.VideoDTO, error) {
	f.thumbPct = &pct
	if uid == "missing" {
		return nil, service.ErrVideoNotFound
	}
	return &dto.VideoDTO{UID: uid}, nil
}

func (f *fakeGalleryService) SignURL(_ context.Context, id, variant string) (*signer.SignedURL, error) {
	f.signedID, f.signedVariant = id, variant
	return &signer.SignedURL{URL: "https://imagedelivery.net/h/" + id + "/" + variant + "?exp=1&sig=x"}, nil
}

func (f *fakeGalleryService) SetImageSigned(_ context.Context, id string, requireSigned bool) (*dto.ImageDTO, error) {
	f.access = &requireSigned
	return &dto.ImageDTO{ID: id, RequireSignedURLs: requireSigned}, nil
}

func (f *fakeGalleryService) DeleteImage(context.Context, string) error { return nil }

func (f *fakeGalleryService) SignBundle(context.Context, string) (*signer.Bundle, error) {
	return nil, service.ErrSigningDisabled
}

func TestImageHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeGalleryService{}
	h := NewImageHandler(svc)
	r := gin.New()
	r.GET("/images/signed-url", h.SignedURL)
	r.PATCH("/images/:id/signed", h.SetSigned)
	r.DELETE("/images/:id", h.DeleteImage)
	r.POST("/images/signed-url", h.SignedBundle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/signed-url?imageId=img1", nil))
	require.True(t, decode(t, w).Success)
	assert.Equal(t, "img1", svc.signedID)
	assert.Equal(t, signer.VariantPublic, svc.signedVariant)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/signed-url", nil))
	assert.Equal(t, service.BadRequest, decode(t, w).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/images/img1/signed", bytes.NewBufferString(`{"requireSignedURLs":false}`)))
	require.True(t, decode(t, w).Success)
	require.NotNil(t, svc.access)
	assert.False(t, *svc.access)

	// 缺少字段
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/images/img1/signed", bytes.NewBufferString(`{}`)))
	assert.Equal(t, service.BadRequest, decode(t, w).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/images/img1", nil))
	assert.True(t, decode(t, w).Success)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/images/signed-url", bytes.NewBufferString(`{"imageId":"img1"}`)))
	assert.Equal(t, service.InternalServerError, decode(t, w).Code)
}

func TestVideoHandler_SetThumbnail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeGalleryService{}
	r := gin.New()
	r.PATCH("/videos/:id/thumbnail", NewVideoHandler(svc).SetThumbnail)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/videos/v1/thumbnail", bytes.NewBufferString(`{"thumbnailTimestampPct":0.1}`)))
	require.True(t, decode(t, w).Success)
	require.NotNil(t, svc.thumbPct)
	assert.InDelta(t, 0.1, *svc.thumbPct, 0.0001)

	// 0 是合法位置
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/videos/v1/thumbnail", bytes.NewBufferString(`{"thumbnailTimestampPct":0}`)))
	assert.True(t, decode(t, w).Success)

	for _, body := range []string{`{}`, `{"thumbnailTimestampPct":1.5}`, `{"thumbnailTimestampPct":-0.1}`} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/videos/v1/thumbnail", bytes.NewBufferString(body)))
		assert.Equal(t, service.BadRequest, decode(t, w).Code, body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/videos/missing/thumbnail", bytes.NewBufferString(`{"thumbnailTimestampPct":0.5}`)))
	assert.Equal(t, service.NotFound, decode(t, w).Code)
}

type fakeReviewService struct {
	service.ReviewService
	companion string
	page      int
	pageSize  int
}

func (f *fakeReviewService) ListReviews(_ context.Context, companion string, page, pageSize int) (*dto.ListDTO[*dto.ReviewDTO], error) {
	f.companion, f.page, f.pageSize = companion, page, pageSize
	return &dto.ListDTO[*dto.ReviewDTO]{Items: []*dto.ReviewDTO{}, Page: page, PageSize: pageSize}, nil
}

func (f *fakeReviewService) CreateReview(context.Context, *dto.ReviewCreateDTO) (*dto.ReviewDTO, error) {
	return nil, service.ErrConsentRequired
}

func TestReviewHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeReviewService{}
	h := NewReviewHandler(svc)
	r := gin.New()
	r.GET("/reviews", h.ListReviews)
	r.POST("/reviews", h.CreateReview)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reviews?companion=family&page=2&pageSize=500", nil))
	require.True(t, decode(t, w).Success)
	assert.Equal(t, "family", svc.companion)
	assert.Equal(t, 2, svc.page)
	assert.Equal(t, maxReviewPageSize, svc.pageSize)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString(`{"companion":`)))
	assert.Equal(t, service.BadRequest, decode(t, w).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString(`{"companion":"alone"}`)))
	resp := decode(t, w)
	assert.Equal(t, service.BadRequest, resp.Code)
	assert.Equal(t, service.ErrConsentRequired.Error(), resp.Message)
}
