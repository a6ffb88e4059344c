package dto

// CleanResultDTO 清理过期登记
type CleanResultDTO struct {
	Removed int `json:"removed"`
}
