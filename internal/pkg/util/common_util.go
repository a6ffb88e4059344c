package util

import (
	"strconv"

	"github.com/dustin/go-humanize"
)

// Ptr 取任意值的指针
func Ptr[T any](v T) *T {
	return &v
}

// HumanBytes 日志中展示文件大小
func HumanBytes(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(n))
}

// ParsePage 解析分页参数，非法值回落到默认值，size 不超过 max
func ParsePage(pageStr, sizeStr string, defSize, max int) (page, size int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(sizeStr)
	if err != nil || size < 1 {
		size = defSize
	}
	if size > max {
		size = max
	}
	return page, size
}
