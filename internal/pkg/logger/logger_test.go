package logger

import (
	"bytes"
	"context"
	"io"
	log "log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&ContextHandler{log.NewJSONHandler(&buf, nil)})

	ctx := context.WithValue(context.Background(), TraceIDKey, "trace-1")
	ctx = WithTaskID(ctx, "task-1")
	l.With("component", "upload").InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"trace-1"`)
	assert.Contains(t, out, `"task_id":"task-1"`)
	assert.Contains(t, out, `"component":"upload"`)
}

func TestRemoteFilterHandler_DropsRecordsWithoutTrace(t *testing.T) {
	var local, remote bytes.Buffer
	tee := &TeeHandler{handlers: []log.Handler{
		log.NewJSONHandler(&local, nil),
		&RemoteFilterHandler{next: log.NewJSONHandler(&remote, nil)},
	}}
	l := log.New(&ContextHandler{tee})

	l.Info("background")
	assert.Contains(t, local.String(), "background")
	assert.Empty(t, remote.String())

	ctx := context.WithValue(context.Background(), TraceIDKey, "trace-2")
	l.InfoContext(ctx, "request")
	assert.Contains(t, remote.String(), "request")
	assert.Contains(t, remote.String(), "trace-2")
}

func TestHTTPTransport_PreservesBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewHTTPTransport("test")}
	resp, err := client.Post(srv.URL+"/echo?sig=secret", "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(body))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://imagedelivery.net/h/id/public", redact("https://imagedelivery.net/h/id/public?exp=1&sig=abc"))
	assert.Equal(t, "https://example.com/x", redact("https://example.com/x"))
}
