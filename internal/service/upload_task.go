package service

import (
	"context"
	"sync"
	"time"

	"Waypoint/internal/model"
	"Waypoint/internal/pkg/cloudflare"
	"Waypoint/internal/pkg/signer"
)

// validTransitions 上传任务的状态迁移表，终态没有出边
// uploading → uploading 用于进度更新
var validTransitions = map[model.UploadState]map[model.UploadState]bool{
	model.UploadStatePending: {
		model.UploadStateUploading: true,
		model.UploadStateFailed:    true,
		model.UploadStateCancelled: true,
	},
	model.UploadStateUploading: {
		model.UploadStateUploading: true,
		model.UploadStateUploaded:  true,
		model.UploadStateFailed:    true,
		model.UploadStateCancelled: true,
	},
	model.UploadStateUploaded:  {},
	model.UploadStateFailed:    {},
	model.UploadStateCancelled: {},
}

func canTransition(from, to model.UploadState) bool {
	return validTransitions[from][to]
}

// UploadTask 任务快照，对外只暴露副本
type UploadTask struct {
	ID          string               `json:"id"`
	SessionID   string               `json:"sessionId"`
	FileName    string               `json:"fileName"`
	ContentType string               `json:"contentType"`
	Size        int64                `json:"size"`
	Kind        model.MediaKind      `json:"kind"`
	Strategy    model.UploadStrategy `json:"strategy"`
	State       model.UploadState    `json:"state"`
	Progress    int                  `json:"progress"`
	Step        model.UploadStep     `json:"step,omitempty"`
	Error       string               `json:"error,omitempty"`
	AssetID     string               `json:"assetId,omitempty"`
	HasPreview  bool                 `json:"hasPreview"`
	URLs        *UploadURLs          `json:"urls,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// UploadURLs 按类型与策略只填其中之一
type UploadURLs struct {
	Image  *cloudflare.ImageURLs `json:"image,omitempty"`
	Signed *signer.Bundle        `json:"signed,omitempty"`
	Video  *cloudflare.VideoURLs `json:"video,omitempty"`
}

// UploadResult 成功上传的结果，只追加
type UploadResult struct {
	TaskID      string               `json:"taskId"`
	AssetID     string               `json:"assetId"`
	FileName    string               `json:"fileName"`
	Kind        model.MediaKind      `json:"kind"`
	Strategy    model.UploadStrategy `json:"strategy"`
	URLs        *UploadURLs          `json:"urls,omitempty"`
	CompletedAt time.Time            `json:"completedAt"`
}

// uploadTask 内部任务，字段由 mu 保护
type uploadTask struct {
	mu              sync.Mutex
	snap            UploadTask
	metadata        map[string]string
	customID        string
	blobKey         string
	preview         []byte
	cancel          context.CancelFunc
	cancelRequested bool
	done            chan struct{}
}

func newUploadTask(snap UploadTask) *uploadTask {
	return &uploadTask{
		snap: snap,
		done: make(chan struct{}),
	}
}

func (t *uploadTask) snapshot() UploadTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.snap
	out.HasPreview = len(t.preview) > 0
	return out
}

// transition 非法迁移直接忽略并返回 false
func (t *uploadTask) transition(to model.UploadState, mutate func(*UploadTask)) (UploadTask, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !canTransition(t.snap.State, to) {
		return t.snap, false
	}
	t.snap.State = to
	if mutate != nil {
		mutate(&t.snap)
	}
	t.snap.UpdatedAt = time.Now()
	return t.snap, true
}

// advance 进度只增不减，返回是否有变化
func (t *uploadTask) advance(progress int) (UploadTask, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.State != model.UploadStateUploading || progress <= t.snap.Progress {
		return t.snap, false
	}
	if progress > 100 {
		progress = 100
	}
	t.snap.Progress = progress
	t.snap.UpdatedAt = time.Now()
	return t.snap, true
}

func (t *uploadTask) setStep(step model.UploadStep) {
	t.mu.Lock()
	t.snap.Step = step
	t.mu.Unlock()
}

func (t *uploadTask) setAssetID(id string) {
	t.mu.Lock()
	t.snap.AssetID = id
	t.mu.Unlock()
}

func (t *uploadTask) setPreview(b []byte) {
	t.mu.Lock()
	t.preview = b
	t.mu.Unlock()
}

func (t *uploadTask) getPreview() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.preview
}

// requestCancel 终态返回 false
func (t *uploadTask) requestCancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.State.Terminal() {
		return false
	}
	t.cancelRequested = true
	if t.cancel != nil {
		t.cancel()
	}
	return true
}

func (t *uploadTask) wasCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelRequested
}

func (t *uploadTask) event() model.UploadEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return model.UploadEvent{
		TaskID:    t.snap.ID,
		SessionID: t.snap.SessionID,
		FileName:  t.snap.FileName,
		State:     t.snap.State,
		Progress:  t.snap.Progress,
		Step:      t.snap.Step,
		AssetID:   t.snap.AssetID,
		Error:     t.snap.Error,
		At:        t.snap.UpdatedAt,
	}
}

// transferProgress 把已传字节映射到 10..95
func transferProgress(read, size int64) int {
	if size <= 0 {
		return progressTargetReady
	}
	if read > size {
		read = size
	}
	span := progressTransferDone - progressTargetReady
	return progressTargetReady + int(int64(span)*read/size)
}

const (
	progressTargetReady  = 10
	progressTransferDone = 95
	progressComplete     = 100
)
