package model

import "time"

// UploadState 上传任务状态
type UploadState string

const (
	UploadStatePending   UploadState = "pending"
	UploadStateUploading UploadState = "uploading"
	UploadStateUploaded  UploadState = "uploaded"
	UploadStateFailed    UploadState = "failed"
	UploadStateCancelled UploadState = "cancelled"
)

// Terminal 终态不可再迁移
func (s UploadState) Terminal() bool {
	return s == UploadStateUploaded || s == UploadStateFailed || s == UploadStateCancelled
}

// UploadStep 上传流程中的阶段，失败时用于定位
type UploadStep string

const (
	StepValidate      UploadStep = "validate"
	StepStage         UploadStep = "stage"
	StepRequestTarget UploadStep = "request_target"
	StepTransfer      UploadStep = "transfer"
)

// UploadStrategy 上传方式
type UploadStrategy string

const (
	// StrategyDirect 先申请一次性上传地址，再推送文件
	StrategyDirect UploadStrategy = "direct"
	// StrategyProxied 直接通过 API Token 上传
	StrategyProxied UploadStrategy = "proxied"
	// StrategySigned 与 direct 相同，但资源需要签名 URL 访问
	StrategySigned UploadStrategy = "signed"
)

func (s UploadStrategy) Valid() bool {
	return s == StrategyDirect || s == StrategyProxied || s == StrategySigned
}

// UploadEvent 任务状态变化事件，推送给 UI 与下游
type UploadEvent struct {
	TaskID    string      `json:"taskId"`
	SessionID string      `json:"sessionId,omitempty"`
	FileName  string      `json:"fileName,omitempty"`
	State     UploadState `json:"state"`
	Progress  int         `json:"progress"`
	Step      UploadStep  `json:"step,omitempty"`
	AssetID   string      `json:"assetId,omitempty"`
	Error     string      `json:"error,omitempty"`
	At        time.Time   `json:"at"`
}
