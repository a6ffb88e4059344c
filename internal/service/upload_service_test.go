package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"Waypoint/internal/api/config"
	"Waypoint/internal/model"
	"Waypoint/internal/pkg/cloudflare"
	"Waypoint/internal/pkg/events"
	"Waypoint/internal/pkg/signer"
	"Waypoint/internal/pkg/staging"
	"Waypoint/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []model.UploadEvent
}

func (r *eventRecorder) publisher() events.Publisher {
	return events.PublisherFunc(func(_ context.Context, evt model.UploadEvent) error {
		r.mu.Lock()
		r.events = append(r.events, evt)
		r.mu.Unlock()
		return nil
	})
}

func (r *eventRecorder) all() []model.UploadEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.UploadEvent, len(r.events))
	copy(out, r.events)
	return out
}

type uploadFixture struct {
	svc      UploadService
	registry repository.AssetRegistryRepo
	recorder *eventRecorder
	stageDir string
}

func newUploadFixture(t *testing.T, h http.HandlerFunc) (*uploadFixture, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := cloudflare.New(cloudflare.Credentials{
		AccountID:   "acc",
		AccountHash: "hash",
		APIToken:    "tok",
	}, cloudflare.WithBaseURL(srv.URL))
	require.NoError(t, err)

	urlSigner, err := signer.New("hash", "secret")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	registry := repository.NewAssetRegistryRepo(rdb)

	dir := t.TempDir()
	store, err := staging.NewDiskStore(dir)
	require.NoError(t, err)

	rec := &eventRecorder{}
	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxFileSize:      1 << 20,
			MaxVideoDuration: 600,
			PreviewSize:      64,
		},
	}
	svc := NewUploadService(client, urlSigner, registry, store, rec.publisher(), cfg)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	return &uploadFixture{svc: svc, registry: registry, recorder: rec, stageDir: dir}, srv
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for x := 0; x < 300; x++ {
		for y := 0; y < 200; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func waitTerminal(t *testing.T, svc UploadService, id string) *UploadTask {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	task, err := svc.Wait(ctx, id)
	require.NoError(t, err)
	return task
}

func TestUpload_DirectImage(t *testing.T) {
	var srvURL string
	var received []byte
	fx, srv := newUploadFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/acc/images/v2/direct_upload":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "false", r.FormValue("requireSignedURLs"))
			assert.Equal(t, "my-id", r.FormValue("id"))
			writeEnvelope(w, http.StatusOK, `{"success":true,"result":{"id":"my-id","uploadURL":"`+srvURL+`/target/1"}}`)
		case "/target/1":
			assert.Empty(t, r.Header.Get("Authorization"))
			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			received, _ = io.ReadAll(file)
			writeEnvelope(w, http.StatusOK, `{"success":true}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	srvURL = srv.URL

	data := pngBytes(t)
	started, err := fx.svc.Start(context.Background(), &UploadInput{
		Reader:      bytes.NewReader(data),
		FileName:    "photo.png",
		ContentType: "image/png",
		Size:        int64(len(data)),
		CustomID:    "my-id",
		Strategy:    model.StrategyDirect,
		SessionID:   "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MediaKindImage, started.Kind)

	task := waitTerminal(t, fx.svc, started.ID)
	assert.Equal(t, model.UploadStateUploaded, task.State)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, "my-id", task.AssetID)
	require.NotNil(t, task.URLs)
	require.NotNil(t, task.URLs.Image)
	assert.Equal(t, "https://imagedelivery.net/hash/my-id", task.URLs.Image.BaseURL)
	assert.Equal(t, data, received)

	// 登记表
	record, err := fx.registry.GetByID(context.Background(), started.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, model.AssetStatusUploaded, record.Status)
	assert.Equal(t, "my-id", record.AssetID)
	assert.Equal(t, "https://imagedelivery.net/hash/my-id", record.DeliveryBaseURL)

	// 结果列表
	results, err := fx.svc.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "my-id", results[0].AssetID)

	// 预览
	preview, err := fx.svc.Preview(context.Background(), started.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, preview)

	// 暂存已释放
	entries, err := os.ReadDir(fx.stageDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// 事件进度单调
	evts := fx.recorder.all()
	require.NotEmpty(t, evts)
	assert.Equal(t, model.UploadStatePending, evts[0].State)
	assert.Equal(t, model.UploadStateUploaded, evts[len(evts)-1].State)
	last := -1
	for _, e := range evts {
		assert.GreaterOrEqual(t, e.Progress, last)
		last = e.Progress
		assert.Equal(t, "s1", e.SessionID)
	}
}

func TestUpload_SignedImageReturnsSignedBundle(t *testing.T) {
	var srvURL string
	fx, srv := newUploadFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/acc/images/v2/direct_upload":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "true", r.FormValue("requireSignedURLs"))
			writeEnvelope(w, http.StatusOK, `{"success":true,"result":{"id":"img-9","uploadURL":"`+srvURL+`/target"}}`)
		default:
			_, _ = io.Copy(io.Discard, r.Body)
			writeEnvelope(w, http.StatusOK, `{"success":true}`)
		}
	})
	srvURL = srv.URL

	data := []byte("\xff\xd8\xff\xe0 not really a jpeg")
	started, err := fx.svc.Start(context.Background(), &UploadInput{
		Reader:      bytes.NewReader(data),
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(data)),
		Strategy:    model.StrategySigned,
	})
	require.NoError(t, err)

	task := waitTerminal(t, fx.svc, started.ID)
	require.Equal(t, model.UploadStateUploaded, task.State)
	require.NotNil(t, task.URLs.Signed)
	assert.True(t, strings.HasPrefix(task.URLs.Signed.OriginalURL, "https://imagedelivery.net/hash/img-9/public?exp="))
	assert.True(t, signer.Verify("secret", task.URLs.Signed.OriginalURL, time.Now()))

	// 解码失败的图片没有预览，但上传不受影响
	_, err = fx.svc.Preview(context.Background(), started.ID)
	assert.ErrorIs(t, err, ErrPreviewNotFound)

	record, err := fx.registry.GetByID(context.Background(), started.ID)
	require.NoError(t, err)
	assert.True(t, record.RequiresSignedURL)
}

func TestUpload_ProxiedVideo(t *testing.T) {
	fx, _ := newUploadFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acc/stream", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.Copy(io.Discard, r.Body)
		writeEnvelope(w, http.StatusOK, `{"success":true,"result":{"uid":"vid-1","status":{"state":"queued"}}}`)
	})

	data := bytes.Repeat([]byte{1}, 4096)
	started, err := fx.svc.Start(context.Background(), &UploadInput{
		Reader:      bytes.NewReader(data),
		FileName:    "clip.mp4",
		ContentType: "video/mp4",
		Size:        int64(len(data)),
		Strategy:    model.StrategyProxied,
	})
	require.NoError(t, err)
	assert.Equal(t, model.MediaKindVideo, started.Kind)

	task := waitTerminal(t, fx.svc, started.ID)
	assert.Equal(t, model.UploadStateUploaded, task.State)
	assert.Equal(t, "vid-1", task.AssetID)
	require.NotNil(t, task.URLs.Video)
	assert.Equal(t, "https://videodelivery.net/vid-1/manifest/video.m3u8", task.URLs.Video.HlsURL)
}

func TestUpload_RequestTargetFailure(t *testing.T) {
	fx, _ := newUploadFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, `{"success":false,"errors":[{"code":5400,"message":"boom"}]}`)
	})

	data := []byte("\xff\xd8\xff\xe0 jpeg")
	started, err := fx.svc.Start(context.Background(), &UploadInput{
		Reader:      bytes.NewReader(data),
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(data)),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StrategyDirect, started.Strategy)

	task := waitTerminal(t, fx.svc, started.ID)
	assert.Equal(t, model.UploadStateFailed, task.State)
	assert.Equal(t, model.StepRequestTarget, task.Step)
	assert.NotEmpty(t, task.Error)

	record, err := fx.registry.GetByID(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssetStatusFailed, record.Status)

	results, err := fx.svc.Results(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpload_Validation(t *testing.T) {
	fx, _ := newUploadFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no network call expected, got %s", r.URL.Path)
	})
	ctx := context.Background()

	_, err := fx.svc.Start(ctx, &UploadInput{
		Reader:      strings.NewReader("%PDF-1.4"),
		FileName:    "doc.pdf",
		ContentType: "application/pdf",
		Size:        8,
	})
	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, model.StepValidate, ue.Step)
	assert.ErrorIs(t, err, ErrFileNotSupported)

	_, err = fx.svc.Start(ctx, &UploadInput{
		Reader:      strings.NewReader("x"),
		FileName:    "big.jpg",
		ContentType: "image/jpeg",
		Size:        2 << 20,
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = fx.svc.Start(ctx, &UploadInput{
		Reader:      strings.NewReader("x"),
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
		Size:        1,
		Strategy:    "carrier-pigeon",
	})
	assert.ErrorIs(t, err, ErrParamInvalid)

	tasks, err := fx.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUpload_Cancel(t *testing.T) {
	var srvURL string
	transferStarted := make(chan struct{}, 1)
	fx, srv := newUploadFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/acc/images/v2/direct_upload":
			writeEnvelope(w, http.StatusOK, `{"success":true,"result":{"id":"img-c","uploadURL":"`+srvURL+`/slow"}}`)
		case "/slow":
			_, _ = io.Copy(io.Discard, r.Body)
			transferStarted <- struct{}{}
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			writeEnvelope(w, http.StatusOK, `{"success":true}`)
		}
	})
	srvURL = srv.URL

	data := []byte("\xff\xd8\xff\xe0 jpeg")
	started, err := fx.svc.Start(context.Background(), &UploadInput{
		Reader:      bytes.NewReader(data),
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(data)),
		SessionID:   "s2",
	})
	require.NoError(t, err)

	select {
	case <-transferStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not start")
	}

	assert.Equal(t, []string{started.ID}, fx.svc.InFlight(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	task, err := fx.svc.Cancel(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UploadStateCancelled, task.State)
	assert.Empty(t, fx.svc.InFlight(context.Background()))

	record, err := fx.registry.GetByID(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Nil(t, record)

	entries, err := os.ReadDir(fx.stageDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = fx.svc.Cancel(ctx, started.ID)
	assert.ErrorIs(t, err, ErrTaskFinished)

	_, err = fx.svc.Cancel(ctx, "nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	evts := fx.recorder.all()
	assert.Equal(t, model.UploadStateCancelled, evts[len(evts)-1].State)
}

func TestUpload_ListAndPrune(t *testing.T) {
	fx, _ := newUploadFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeEnvelope(w, http.StatusOK, `{"success":true,"result":{"id":"p-1"}}`)
	})
	ctx := context.Background()

	start := func(session string) string {
		data := []byte("\xff\xd8\xff\xe0 jpeg")
		task, err := fx.svc.Start(ctx, &UploadInput{
			Reader:      bytes.NewReader(data),
			FileName:    "a.jpg",
			ContentType: "image/jpeg",
			Size:        int64(len(data)),
			Strategy:    model.StrategyProxied,
			SessionID:   session,
		})
		require.NoError(t, err)
		waitTerminal(t, fx.svc, task.ID)
		return task.ID
	}
	a := start("s1")
	start("s2")

	mine, err := fx.svc.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a, mine[0].ID)

	all, err := fx.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Equal(t, 2, fx.svc.PruneFinished(ctx, time.Now().Add(time.Second)))
	_, err = fx.svc.Get(ctx, a)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// 结果列表只追加
	results, err := fx.svc.Results(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestTransferProgress(t *testing.T) {
	assert.Equal(t, 10, transferProgress(0, 100))
	assert.Equal(t, 52, transferProgress(50, 100))
	assert.Equal(t, 95, transferProgress(100, 100))
	assert.Equal(t, 95, transferProgress(200, 100))
	assert.Equal(t, 10, transferProgress(5, 0))
}

func TestUploadTask_Transitions(t *testing.T) {
	task := newUploadTask(UploadTask{ID: "t", State: model.UploadStatePending})

	_, ok := task.transition(model.UploadStateUploaded, nil)
	assert.False(t, ok, "pending cannot jump to uploaded")

	_, ok = task.transition(model.UploadStateUploading, nil)
	require.True(t, ok)

	_, changed := task.advance(40)
	assert.True(t, changed)
	_, changed = task.advance(30)
	assert.False(t, changed)
	assert.Equal(t, 40, task.snapshot().Progress)

	_, ok = task.transition(model.UploadStateFailed, nil)
	require.True(t, ok)
	for _, to := range []model.UploadState{model.UploadStateUploading, model.UploadStateUploaded, model.UploadStateCancelled} {
		_, ok = task.transition(to, nil)
		assert.False(t, ok)
	}
	assert.False(t, task.requestCancel())
}

// lateProvider 传输阶段等到 ctx 结束后仍返回成功，模拟远端已接收文件时才到达的取消
type lateProvider struct {
	transferring chan struct{}
}

func (p *lateProvider) AccountHash() string { return "hash" }

func (p *lateProvider) CreateImageDirectUpload(context.Context, cloudflare.DirectUploadOptions) (*cloudflare.DirectUpload, error) {
	return &cloudflare.DirectUpload{ID: "img-late", UploadURL: "https://upload.example.com/late"}, nil
}

func (p *lateProvider) CreateStreamDirectUpload(context.Context, cloudflare.DirectUploadOptions) (*cloudflare.DirectUpload, error) {
	return &cloudflare.DirectUpload{UID: "vid-late", UploadURL: "https://upload.example.com/late"}, nil
}

func (p *lateProvider) UploadToTarget(ctx context.Context, _ string, file cloudflare.File, _ cloudflare.ProgressFunc) error {
	_, _ = io.Copy(io.Discard, file.Reader)
	p.transferring <- struct{}{}
	<-ctx.Done()
	return nil
}

func (p *lateProvider) UploadImage(context.Context, cloudflare.File, cloudflare.UploadOptions, cloudflare.ProgressFunc) (*cloudflare.Image, error) {
	return nil, ErrUpstream
}

func (p *lateProvider) UploadVideo(context.Context, cloudflare.File, cloudflare.UploadOptions, cloudflare.ProgressFunc) (*cloudflare.Video, error) {
	return nil, ErrUpstream
}

func TestUpload_LateCancelStillRecordsUploaded(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	registry := repository.NewAssetRegistryRepo(rdb)

	store, err := staging.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	var mu sync.Mutex
	var last model.UploadEvent
	var lastCtxErr error
	publisher := events.PublisherFunc(func(ctx context.Context, evt model.UploadEvent) error {
		mu.Lock()
		defer mu.Unlock()
		last, lastCtxErr = evt, ctx.Err()
		return nil
	})

	provider := &lateProvider{transferring: make(chan struct{}, 1)}
	cfg := &config.Config{Upload: config.UploadConfig{MaxFileSize: 1 << 20}}
	svc := NewUploadService(provider, nil, registry, store, publisher, cfg)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	data := []byte("\xff\xd8\xff\xe0 jpeg")
	started, err := svc.Start(context.Background(), &UploadInput{
		Reader:      bytes.NewReader(data),
		FileName:    "late.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(data)),
	})
	require.NoError(t, err)

	select {
	case <-provider.transferring:
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	task, err := svc.Cancel(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UploadStateUploaded, task.State)
	assert.Equal(t, "img-late", task.AssetID)

	record, err := registry.GetByID(context.Background(), started.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, model.AssetStatusUploaded, record.Status)
	assert.Equal(t, "img-late", record.AssetID)
	assert.Equal(t, "https://imagedelivery.net/hash/img-late", record.DeliveryBaseURL)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, model.UploadStateUploaded, last.State)
	assert.NoError(t, lastCtxErr)
}
