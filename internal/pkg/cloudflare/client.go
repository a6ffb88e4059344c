package cloudflare

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

var (
	ErrNotFound           = errors.New("cloudflare: resource not found")
	ErrMalformedResponse  = errors.New("cloudflare: malformed response")
	ErrCredentialsMissing = errors.New("cloudflare: account id or api token is not configured")
)

// Credentials 显式注入，不读全局配置
type Credentials struct {
	AccountID   string
	AccountHash string
	APIToken    string
	AuthEmail   string
}

// Message Cloudflare 响应中的 errors / messages 条目
type Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

type envelope[T any] struct {
	Success    bool        `json:"success"`
	Result     T           `json:"result"`
	Errors     []Message   `json:"errors"`
	Messages   []Message   `json:"messages"`
	ResultInfo *ResultInfo `json:"result_info"`
}

// APIError 非 2xx 或 success=false
type APIError struct {
	Status int
	Errors []Message
	Body   string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		msgs := make([]string, 0, len(e.Errors))
		for _, m := range e.Errors {
			msgs = append(msgs, fmt.Sprintf("%d: %s", m.Code, m.Message))
		}
		return fmt.Sprintf("cloudflare: status %d: %s", e.Status, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("cloudflare: status %d", e.Status)
}

// Client Cloudflare Images / Stream REST 客户端
type Client struct {
	creds      Credentials
	strategies []AuthStrategy
	api        *resty.Client
	transfer   *resty.Client
}

type Option func(*options)

type options struct {
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
}

func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTransport 例如日志 RoundTripper
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

func New(creds Credentials, opts ...Option) (*Client, error) {
	if creds.AccountID == "" || creds.APIToken == "" {
		return nil, ErrCredentialsMissing
	}

	o := &options{baseURL: DefaultBaseURL, timeout: 120 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	api := resty.New().
		SetBaseURL(o.baseURL).
		SetTimeout(o.timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	// 文件传输耗时取决于大小，只受 ctx 控制
	transfer := resty.New().
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	if o.transport != nil {
		api.SetTransport(o.transport)
		transfer.SetTransport(o.transport)
	}

	return &Client{
		creds:      creds,
		strategies: DefaultStrategies(creds),
		api:        api,
		transfer:   transfer,
	}, nil
}

// AccountHash 投递 URL 使用
func (s *Client) AccountHash() string {
	return s.creds.AccountHash
}

func (s *Client) accountPath(format string, args ...any) string {
	return "/accounts/" + s.creds.AccountID + "/" + fmt.Sprintf(format, args...)
}

// newRequest 默认使用第一个鉴权策略
func (s *Client) newRequest(ctx context.Context) *resty.Request {
	req := s.api.R().SetContext(ctx)
	if len(s.strategies) > 0 {
		s.strategies[0].Apply(req)
	}
	return req
}

// call 执行请求并解析信封
func call[T any](req *resty.Request, method, path string) (T, *ResultInfo, error) {
	var zero T

	resp, err := req.Execute(method, path)
	if err != nil {
		return zero, nil, errors.Wrapf(err, "cloudflare: %s %s", method, path)
	}

	env, err := decode[T](resp)
	if err != nil {
		return zero, nil, err
	}
	return env.Result, env.ResultInfo, nil
}

// execNoResult 用于删除类请求，2xx 空响应体也视为成功
func execNoResult(req *resty.Request, method, path string) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "cloudflare: %s %s", method, path)
	}
	if resp.IsSuccess() && len(bytes.TrimSpace(resp.Body())) == 0 {
		return nil
	}
	_, err = decode[any](resp)
	return err
}

func decode[T any](resp *resty.Response) (*envelope[T], error) {
	status := resp.StatusCode()
	body := resp.Body()

	if status == http.StatusNotFound {
		return nil, errors.Wrapf(ErrNotFound, "cloudflare: %s", resp.Request.URL)
	}

	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		if !resp.IsSuccess() {
			return nil, &APIError{Status: status, Body: truncate(string(body))}
		}
		return nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}

	if !resp.IsSuccess() || !env.Success {
		return nil, &APIError{Status: status, Errors: env.Errors, Body: truncate(string(body))}
	}
	return &env, nil
}

func truncate(s string) string {
	const limit = 1000
	if len(s) > limit {
		return s[:limit] + "...[truncated]"
	}
	return s
}

// IsNotFound 判定 404
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusOf 取出 APIError 的状态码，其他错误返回 0
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
