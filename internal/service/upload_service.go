package service

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"sort"
	"sync"
	"time"

	"Waypoint/internal/api/config"
	"Waypoint/internal/model"
	"Waypoint/internal/pkg/cloudflare"
	"Waypoint/internal/pkg/consts"
	"Waypoint/internal/pkg/events"
	"Waypoint/internal/pkg/logger"
	"Waypoint/internal/pkg/signer"
	"Waypoint/internal/pkg/staging"
	"Waypoint/internal/pkg/thumbnail"
	"Waypoint/internal/pkg/util"
	"Waypoint/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_uploads_total",
			Help: "上传任务结束数量",
		},
		[]string{"kind", "strategy", "result"},
	)
	uploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_upload_bytes_total",
			Help: "成功上传的字节数",
		},
		[]string{"kind"},
	)
	uploadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waypoint_uploads_in_flight",
			Help: "进行中的上传任务",
		},
	)
)

// MediaProvider 上传流程用到的远端能力，*cloudflare.Client 实现
type MediaProvider interface {
	AccountHash() string
	CreateImageDirectUpload(ctx context.Context, opts cloudflare.DirectUploadOptions) (*cloudflare.DirectUpload, error)
	CreateStreamDirectUpload(ctx context.Context, opts cloudflare.DirectUploadOptions) (*cloudflare.DirectUpload, error)
	UploadToTarget(ctx context.Context, uploadURL string, file cloudflare.File, progress cloudflare.ProgressFunc) error
	UploadImage(ctx context.Context, file cloudflare.File, opts cloudflare.UploadOptions, progress cloudflare.ProgressFunc) (*cloudflare.Image, error)
	UploadVideo(ctx context.Context, file cloudflare.File, opts cloudflare.UploadOptions, progress cloudflare.ProgressFunc) (*cloudflare.Video, error)
}

// UploadInput 一次上传请求，Reader 由调用方关闭
type UploadInput struct {
	Reader      io.ReadSeeker
	FileName    string
	ContentType string
	Size        int64
	CustomID    string
	Metadata    map[string]string
	Strategy    model.UploadStrategy
	SessionID   string
}

type UploadService interface {
	Start(ctx context.Context, in *UploadInput) (*UploadTask, error)
	Wait(ctx context.Context, id string) (*UploadTask, error)
	Cancel(ctx context.Context, id string) (*UploadTask, error)
	Get(ctx context.Context, id string) (*UploadTask, error)
	List(ctx context.Context, sessionID string) ([]*UploadTask, error)
	Results(ctx context.Context) ([]*UploadResult, error)
	Preview(ctx context.Context, id string) ([]byte, error)
	PruneFinished(ctx context.Context, before time.Time) int
	InFlight(ctx context.Context) []string
	Shutdown(ctx context.Context) error
}

type uploadServiceImpl struct {
	provider  MediaProvider
	signer    *signer.Signer
	registry  repository.AssetRegistryRepo
	store     staging.Store
	publisher events.Publisher
	uploadCfg config.UploadConfig
	cfCfg     config.CloudflareConfig

	mu      sync.RWMutex
	tasks   map[string]*uploadTask
	results []*UploadResult
	wg      sync.WaitGroup
}

// NewUploadService signer 可为 nil，此时 signed 策略只返回未签名地址
func NewUploadService(
	provider MediaProvider,
	urlSigner *signer.Signer,
	registry repository.AssetRegistryRepo,
	store staging.Store,
	publisher events.Publisher,
	cfg *config.Config,
) UploadService {
	return &uploadServiceImpl{
		provider:  provider,
		signer:    urlSigner,
		registry:  registry,
		store:     store,
		publisher: publisher,
		uploadCfg: cfg.Upload,
		cfCfg:     cfg.Cloudflare,
		tasks:     make(map[string]*uploadTask),
		results:   make([]*UploadResult, 0),
	}
}

// Start 校验并暂存文件后立即返回，上传在独立协程中进行
func (s *uploadServiceImpl) Start(ctx context.Context, in *UploadInput) (*UploadTask, error) {
	if in == nil || in.Reader == nil {
		return nil, stepError(model.StepValidate, ErrParamInvalid)
	}
	if in.Strategy == "" {
		in.Strategy = model.StrategyDirect
	}
	if !in.Strategy.Valid() {
		return nil, stepError(model.StepValidate, ErrParamInvalid)
	}
	if in.Size == 0 {
		return nil, stepError(model.StepValidate, ErrFileEmpty)
	}
	if in.Size > s.uploadCfg.MaxFileSize {
		return nil, stepError(model.StepValidate, ErrFileTooLarge)
	}

	contentType, err := util.ResolveContentType(in.ContentType, in.Reader)
	if err != nil {
		return nil, stepError(model.StepValidate, err)
	}
	kind, ok := util.KindOf(contentType)
	if !ok {
		return nil, stepError(model.StepValidate, ErrFileNotSupported)
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = consts.DefaultSessionID
	}
	id := uuid.NewString()
	ctx = logger.WithTaskID(ctx, id)

	if err = s.store.Put(ctx, id, in.Reader, in.Size, contentType); err != nil {
		log.ErrorContext(ctx, "stage upload failed", "err", err)
		return nil, stepError(model.StepStage, err)
	}

	now := time.Now()
	task := newUploadTask(UploadTask{
		ID:          id,
		SessionID:   sessionID,
		FileName:    in.FileName,
		ContentType: contentType,
		Size:        in.Size,
		Kind:        kind,
		Strategy:    in.Strategy,
		State:       model.UploadStatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	task.metadata = in.Metadata
	task.customID = in.CustomID
	task.blobKey = id

	// 乐观登记
	record := &model.AssetRecord{
		ID:                id,
		FileName:          in.FileName,
		Kind:              kind,
		UploadedAt:        now,
		Status:            model.AssetStatusPending,
		RequiresSignedURL: in.Strategy == model.StrategySigned,
	}
	if err = s.registry.Add(ctx, record); err != nil {
		log.WarnContext(ctx, "registry add failed", "err", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task.cancel = cancel

	s.mu.Lock()
	s.tasks[id] = task
	s.mu.Unlock()

	log.InfoContext(ctx, "upload accepted",
		"file", in.FileName,
		"kind", kind,
		"strategy", in.Strategy,
		"size", util.HumanBytes(in.Size),
	)
	s.publish(ctx, task)

	s.wg.Add(1)
	uploadsInFlight.Inc()
	go func() {
		defer s.wg.Done()
		defer uploadsInFlight.Dec()
		defer cancel()
		s.run(runCtx, task)
	}()

	snap := task.snapshot()
	return &snap, nil
}

// run 单个任务的完整流程，每个阶段失败即终止，不自动重试
func (s *uploadServiceImpl) run(ctx context.Context, task *uploadTask) {
	defer close(task.done)
	defer s.release(ctx, task)

	if ctx.Err() != nil {
		s.finishCancelled(ctx, task)
		return
	}
	if _, ok := task.transition(model.UploadStateUploading, nil); !ok {
		return
	}
	s.publish(ctx, task)

	snap := task.snapshot()
	if snap.Kind == model.MediaKindImage && thumbnail.Supported(snap.ContentType) {
		s.buildPreview(ctx, task)
	}

	assetID, err := s.transfer(ctx, task)
	if err != nil {
		if ctx.Err() != nil && task.wasCancelled() {
			s.finishCancelled(ctx, task)
			return
		}
		s.finishFailed(ctx, task, err)
		return
	}
	s.finishUploaded(ctx, task, assetID)
}

// transfer 申请上传地址（代理模式跳过）并推送文件，返回远端资源 ID
func (s *uploadServiceImpl) transfer(ctx context.Context, task *uploadTask) (string, error) {
	snap := task.snapshot()
	signed := snap.Strategy == model.StrategySigned

	var target *cloudflare.DirectUpload
	if snap.Strategy != model.StrategyProxied {
		task.setStep(model.StepRequestTarget)
		opts := cloudflare.DirectUploadOptions{
			ID:                 task.customID,
			RequireSignedURLs:  signed,
			Metadata:           task.metadata,
			MaxDurationSeconds: s.uploadCfg.MaxVideoDuration,
		}
		var err error
		if snap.Kind == model.MediaKindVideo {
			target, err = s.provider.CreateStreamDirectUpload(ctx, opts)
		} else {
			target, err = s.provider.CreateImageDirectUpload(ctx, opts)
		}
		if err != nil {
			return "", err
		}
		task.setAssetID(target.AssetID())
		s.updateRecord(ctx, snap.ID, model.AssetPatch{AssetID: util.Ptr(target.AssetID())})
	}

	task.setStep(model.StepTransfer)
	s.progress(ctx, task, progressTargetReady)

	blob, err := s.store.Open(ctx, task.blobKey)
	if err != nil {
		return "", err
	}
	defer func() { _ = blob.Close() }()

	file := cloudflare.File{
		Name:        snap.FileName,
		ContentType: snap.ContentType,
		Size:        snap.Size,
		Reader:      blob,
	}
	onProgress := func(read int64) {
		s.progress(ctx, task, transferProgress(read, snap.Size))
	}

	if target != nil {
		if err = s.provider.UploadToTarget(ctx, target.UploadURL, file, onProgress); err != nil {
			return "", err
		}
		return target.AssetID(), nil
	}

	opts := cloudflare.UploadOptions{ID: task.customID, Metadata: task.metadata}
	if snap.Kind == model.MediaKindVideo {
		video, err := s.provider.UploadVideo(ctx, file, opts, onProgress)
		if err != nil {
			return "", err
		}
		return video.UID, nil
	}
	img, err := s.provider.UploadImage(ctx, file, opts, onProgress)
	if err != nil {
		return "", err
	}
	return img.ID, nil
}

func (s *uploadServiceImpl) buildPreview(ctx context.Context, task *uploadTask) {
	blob, err := s.store.Open(ctx, task.blobKey)
	if err != nil {
		log.WarnContext(ctx, "open staged blob for preview failed", "err", err)
		return
	}
	defer func() { _ = blob.Close() }()

	b, err := thumbnail.Generate(blob, s.uploadCfg.PreviewSize)
	if err != nil {
		log.DebugContext(ctx, "preview skipped", "err", err)
		return
	}
	task.setPreview(b)
}

func (s *uploadServiceImpl) progress(ctx context.Context, task *uploadTask, p int) {
	if _, changed := task.advance(p); changed {
		s.publish(ctx, task)
	}
}

// finishUploaded 远端已接收文件，此时的取消不再生效，ctx 可能已取消
func (s *uploadServiceImpl) finishUploaded(ctx context.Context, task *uploadTask, assetID string) {
	ctx = context.WithoutCancel(ctx)
	urls := s.buildURLs(ctx, task.snapshot(), assetID)
	snap, ok := task.transition(model.UploadStateUploaded, func(t *UploadTask) {
		t.AssetID = assetID
		t.Progress = progressComplete
		t.URLs = urls
		t.Step = ""
	})
	if !ok {
		return
	}

	status := model.AssetStatusUploaded
	s.updateRecord(ctx, snap.ID, model.AssetPatch{
		AssetID:         &assetID,
		Status:          &status,
		DeliveryBaseURL: util.Ptr(deliveryBaseURL(urls)),
	})

	s.mu.Lock()
	s.results = append(s.results, &UploadResult{
		TaskID:      snap.ID,
		AssetID:     assetID,
		FileName:    snap.FileName,
		Kind:        snap.Kind,
		Strategy:    snap.Strategy,
		URLs:        urls,
		CompletedAt: snap.UpdatedAt,
	})
	s.mu.Unlock()

	uploadsTotal.WithLabelValues(string(snap.Kind), string(snap.Strategy), string(model.UploadStateUploaded)).Inc()
	uploadBytesTotal.WithLabelValues(string(snap.Kind)).Add(float64(snap.Size))
	log.InfoContext(ctx, "upload completed", "asset_id", assetID, "size", util.HumanBytes(snap.Size))
	s.publish(ctx, task)
}

func (s *uploadServiceImpl) finishFailed(ctx context.Context, task *uploadTask, err error) {
	ctx = context.WithoutCancel(ctx)
	snap, ok := task.transition(model.UploadStateFailed, func(t *UploadTask) {
		t.Error = err.Error()
	})
	if !ok {
		return
	}

	status := model.AssetStatusFailed
	s.updateRecord(ctx, snap.ID, model.AssetPatch{Status: &status})

	uploadsTotal.WithLabelValues(string(snap.Kind), string(snap.Strategy), string(model.UploadStateFailed)).Inc()
	log.ErrorContext(ctx, "upload failed", "step", snap.Step, "status", cloudflare.StatusOf(err), "err", err)
	s.publish(ctx, task)
}

// finishCancelled 取消时撤回乐观登记，任务 ctx 此时已取消
func (s *uploadServiceImpl) finishCancelled(ctx context.Context, task *uploadTask) {
	ctx = context.WithoutCancel(ctx)
	snap, ok := task.transition(model.UploadStateCancelled, nil)
	if !ok {
		return
	}
	if err := s.registry.Remove(ctx, snap.ID); err != nil {
		log.WarnContext(ctx, "registry remove failed", "err", err)
	}
	task.setPreview(nil)

	uploadsTotal.WithLabelValues(string(snap.Kind), string(snap.Strategy), string(model.UploadStateCancelled)).Inc()
	log.InfoContext(ctx, "upload cancelled", "step", snap.Step)
	s.publish(ctx, task)
}

// release 释放暂存文件，任务的 ctx 可能已取消
func (s *uploadServiceImpl) release(ctx context.Context, task *uploadTask) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, task.blobKey); err != nil && !errors.Is(err, staging.ErrBlobNotFound) {
		log.WarnContext(ctx, "release staged blob failed", "err", err)
	}
}

func (s *uploadServiceImpl) buildURLs(ctx context.Context, snap UploadTask, assetID string) *UploadURLs {
	signed := snap.Strategy == model.StrategySigned
	if snap.Kind == model.MediaKindVideo {
		var urls cloudflare.VideoURLs
		if signed {
			urls = cloudflare.BuildSignedVideoURLs(s.provider.AccountHash(), assetID)
		} else {
			urls = cloudflare.BuildVideoURLs(s.cfCfg.VideoDeliveryOrigin, assetID)
		}
		return &UploadURLs{Video: &urls}
	}

	if signed && s.signer != nil {
		bundle, err := s.signer.SignAll(assetID)
		if err == nil {
			return &UploadURLs{Signed: bundle}
		}
		log.WarnContext(ctx, "sign upload urls failed", "err", err)
	}
	urls := cloudflare.BuildImageURLs(s.cfCfg.ImageDeliveryOrigin, s.provider.AccountHash(), assetID)
	return &UploadURLs{Image: &urls}
}

func deliveryBaseURL(urls *UploadURLs) string {
	switch {
	case urls == nil:
		return ""
	case urls.Video != nil:
		return urls.Video.BaseURL
	case urls.Image != nil:
		return urls.Image.BaseURL
	case urls.Signed != nil:
		return urls.Signed.OriginalURL
	}
	return ""
}

func (s *uploadServiceImpl) updateRecord(ctx context.Context, id string, patch model.AssetPatch) {
	if _, err := s.registry.Update(ctx, id, patch); err != nil {
		log.WarnContext(ctx, "registry update failed", "err", err)
	}
}

func (s *uploadServiceImpl) publish(ctx context.Context, task *uploadTask) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, task.event()); err != nil {
		log.WarnContext(ctx, "publish upload event failed", "err", err)
	}
}

func (s *uploadServiceImpl) task(id string) (*uploadTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Wait 阻塞到任务进入终态或 ctx 结束
func (s *uploadServiceImpl) Wait(ctx context.Context, id string) (*UploadTask, error) {
	task, err := s.task(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-task.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	snap := task.snapshot()
	return &snap, nil
}

// Cancel 触发取消并等待任务结束；传输已完成时任务仍以 uploaded 结束
func (s *uploadServiceImpl) Cancel(ctx context.Context, id string) (*UploadTask, error) {
	task, err := s.task(id)
	if err != nil {
		return nil, err
	}
	if !task.requestCancel() {
		return nil, ErrTaskFinished
	}
	log.InfoContext(logger.WithTaskID(ctx, id), "upload cancel requested")
	return s.Wait(ctx, id)
}

func (s *uploadServiceImpl) Get(_ context.Context, id string) (*UploadTask, error) {
	task, err := s.task(id)
	if err != nil {
		return nil, err
	}
	snap := task.snapshot()
	return &snap, nil
}

// List sessionID 为空时返回全部，按创建时间新→旧
func (s *uploadServiceImpl) List(_ context.Context, sessionID string) ([]*UploadTask, error) {
	s.mu.RLock()
	out := make([]*UploadTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		snap := task.snapshot()
		if sessionID != "" && snap.SessionID != sessionID {
			continue
		}
		out = append(out, &snap)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *uploadServiceImpl) Results(_ context.Context) ([]*UploadResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*UploadResult, len(s.results))
	copy(out, s.results)
	return out, nil
}

func (s *uploadServiceImpl) Preview(_ context.Context, id string) ([]byte, error) {
	task, err := s.task(id)
	if err != nil {
		return nil, err
	}
	b := task.getPreview()
	if len(b) == 0 {
		return nil, ErrPreviewNotFound
	}
	return b, nil
}

// PruneFinished 从任务索引中移除早于 before 的终态任务，结果列表不受影响
func (s *uploadServiceImpl) PruneFinished(_ context.Context, before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, task := range s.tasks {
		snap := task.snapshot()
		if snap.State.Terminal() && snap.UpdatedAt.Before(before) {
			delete(s.tasks, id)
			n++
		}
	}
	return n
}

// InFlight 未进入终态的任务 ID，与登记表中的记录 ID 相同
func (s *uploadServiceImpl) InFlight(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, task := range s.tasks {
		if !task.snapshot().State.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Shutdown 取消所有未结束的任务并等待协程退出
func (s *uploadServiceImpl) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, task := range s.tasks {
		task.requestCancel()
	}
	s.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
