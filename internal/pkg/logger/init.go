package logger

import (
	"Waypoint/internal/api/config"
	"io"
	log "log/slog"
	"net"
	"os"
	"time"
)

var (
	LogWriter io.Writer = os.Stdout

	logToken    string
	targetIndex = "logstash-waypoint"
)

// InitLogger stdout JSON 日志；配置了 Logstash 时额外上报带 trace_id 的记录
func InitLogger(cfg config.LogstashConfig) {
	hStdout := log.NewJSONHandler(os.Stdout, &log.HandlerOptions{Level: log.LevelInfo})

	var finalHandler log.Handler = hStdout

	logToken = cfg.Token
	if cfg.Index != "" {
		targetIndex = cfg.Index
	}

	if cfg.Address != "" {
		conn, err := net.DialTimeout("tcp", cfg.Address, 3*time.Second)
		if err == nil {
			hRemote := log.NewJSONHandler(conn, &log.HandlerOptions{Level: log.LevelInfo}).
				WithAttrs([]log.Attr{
					log.String("target_index", targetIndex),
					log.String("log_token", logToken),
				})

			finalHandler = &TeeHandler{
				handlers: []log.Handler{hStdout, &RemoteFilterHandler{next: hRemote}},
			}
			LogWriter = io.MultiWriter(os.Stdout, conn)
		} else {
			log.Warn("Failed to connect to Logstash, logging to stdout only", "err", err)
		}
	}

	logger := log.New(&ContextHandler{finalHandler})
	log.SetDefault(logger)
}
