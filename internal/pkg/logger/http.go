package logger

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"time"
)

const bodyLogLimit = 1000

// HTTPTransport 记录外部 API 调用：方法、地址、状态码、耗时
// multipart 请求体是流式的，不做读取
type HTTPTransport struct {
	Transport http.RoundTripper
	Name      string
}

func NewHTTPTransport(name string) *HTTPTransport {
	return &HTTPTransport{Transport: http.DefaultTransport, Name: name}
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	next := t.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	var reqBody []byte
	if req.Body != nil && isJSON(req.Header.Get("Content-Type")) {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	resp, err := next.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("api", t.Name),
		log.String("method", req.Method),
		log.String("url", redact(req.URL.String())),
		log.Duration("latency", elapsed),
	}
	if len(reqBody) > 0 {
		fields = append(fields, log.String("req_body", truncate(string(reqBody))))
	}

	if err != nil {
		log.ErrorContext(req.Context(), "HTTP_CALL_ERROR", append(fields, log.Any("err", err))...)
		return nil, err
	}

	fields = append(fields, log.Int("status", resp.StatusCode))
	if resp.Body != nil && isJSON(resp.Header.Get("Content-Type")) {
		resBody, _ := io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(resBody))
		fields = append(fields, log.String("res_body", truncate(string(resBody))))
	}

	switch {
	case resp.StatusCode >= 500:
		log.ErrorContext(req.Context(), "HTTP_CALL", fields...)
	case resp.StatusCode >= 400 || elapsed > 2*time.Second:
		log.WarnContext(req.Context(), "HTTP_CALL", fields...)
	default:
		log.InfoContext(req.Context(), "HTTP_CALL", fields...)
	}

	return resp, nil
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

// redact 去掉查询串，签名参数不进日志
func redact(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

func truncate(s string) string {
	if len(s) > bodyLogLimit {
		return s[:bodyLogLimit] + "...[truncated]"
	}
	return s
}
