package dto

// UploadFormDTO multipart 表单中除文件外的字段
type UploadFormDTO struct {
	Strategy string `form:"strategy" json:"strategy" validate:"omitempty,oneof=direct proxied signed"`
	CustomID string `form:"customId" json:"customId" validate:"omitempty,max=1024"`
	Metadata string `form:"metadata" json:"metadata"`
	Async    bool   `form:"async" json:"async"`
}

// DirectUploadReqDTO 申请一次性上传地址
type DirectUploadReqDTO struct {
	ID                 string            `json:"id" validate:"omitempty,max=1024"`
	RequireSignedURLs  bool              `json:"requireSignedURLs"`
	Metadata           map[string]string `json:"metadata"`
	MaxDurationSeconds int               `json:"maxDurationSeconds" validate:"omitempty,min=1,max=21600"`
}

// DirectUploadDTO 一次性上传地址
type DirectUploadDTO struct {
	ID                string `json:"id"`
	UploadURL         string `json:"uploadURL"`
	RequireSignedURLs bool   `json:"requireSignedURLs"`
}

// UploadStepDTO 上传失败时放在 details 中
type UploadStepDTO struct {
	Step string `json:"step"`
}
