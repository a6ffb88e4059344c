package consts

const (
	HeaderTraceID   = "X-Trace-ID"
	HeaderSessionID = "X-Session-ID"
)

const (
	// MaxReviewFiles 一条评价最多附带的媒体数
	MaxReviewFiles = 5
	// DefaultSessionID 未携带会话头时的事件频道
	DefaultSessionID = "anonymous"
)
