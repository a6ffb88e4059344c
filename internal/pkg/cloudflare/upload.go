package cloudflare

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"Waypoint/internal/pkg/util"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// File 待上传文件，Reader 由调用方负责关闭
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// ProgressFunc 传输层已读取的字节数
type ProgressFunc func(read int64)

// UploadToTarget 将文件推送到一次性上传地址，不带鉴权头
func (s *Client) UploadToTarget(ctx context.Context, uploadURL string, file File, progress ProgressFunc) error {
	req := s.transfer.R().SetContext(ctx)
	closeBody := streamMultipart(req, file, nil, progress)
	defer closeBody()

	resp, err := req.Post(uploadURL)
	if err != nil {
		return errors.Wrap(err, "cloudflare: upload to target")
	}
	if !resp.IsSuccess() {
		return &APIError{Status: resp.StatusCode(), Body: truncate(resp.String())}
	}
	return nil
}

// streamMultipart 通过管道边读边写 multipart，避免整个文件进内存
// 返回的函数在请求结束后调用，用于释放写端协程
func streamMultipart(req *resty.Request, file File, fields map[string]string, progress ProgressFunc) func() {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	var src io.Reader = file.Reader
	if progress != nil {
		src = util.NewProgressReader(file.Reader, func(n int64) { progress(n) })
	}

	go func() {
		err := writeMultipart(mw, file, src, fields)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req.SetHeader("Content-Type", mw.FormDataContentType()).SetBody(pr)
	return func() { _ = pr.Close() }
}

func writeMultipart(mw *multipart.Writer, file File, src io.Reader, fields map[string]string) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+escapeQuotes(file.Name)+`"`)
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// uploadMultipart 带鉴权的直传 (images/v1, stream)
func uploadMultipart[T any](ctx context.Context, s *Client, path string, file File, fields map[string]string, progress ProgressFunc) (T, error) {
	req := s.newRequest(ctx)
	closeBody := streamMultipart(req, file, fields, progress)
	defer closeBody()

	result, _, err := call[T](req, http.MethodPost, path)
	return result, err
}
