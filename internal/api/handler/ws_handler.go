package handler

import (
	"Waypoint/internal/pkg/consts"
	"Waypoint/internal/pkg/events"
	"Waypoint/internal/pkg/response"
	"Waypoint/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WsHandler 推送上传进度
type WsHandler struct {
	rdb *redis.Client
}

func NewWsHandler(rdb *redis.Client) *WsHandler {
	return &WsHandler{rdb: rdb}
}

// Connect 只推送所属会话的事件，必须携带会话 ID
func (s *WsHandler) Connect(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = c.GetHeader(consts.HeaderSessionID)
	}
	if sessionID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.WithoutCancel(c.Request.Context())
	pubsub := s.rdb.Subscribe(ctx, events.Channel(sessionID))
	defer func() {
		_ = pubsub.Close()
	}()

	log.InfoContext(ctx, "上传进度 WS 连接已建立", "session", sessionID)

	stopChan := make(chan struct{})

	// 读循环：监听客户端主动断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(stopChan)
				return
			}
		}
	}()

	// 写循环：转发 Redis 事件
	redisCh := pubsub.Channel()
	for {
		select {
		case msg, ok := <-redisCh:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err = conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.WarnContext(ctx, "WS 推送失败", "session", sessionID, "err", err)
				return
			}
		case <-stopChan:
			log.InfoContext(ctx, "上传进度 WS 连接已断开", "session", sessionID)
			return
		}
	}
}
