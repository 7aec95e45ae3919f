package feedserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cheers-go/internal/auth"
	"cheers-go/internal/config"
	"cheers-go/internal/metrics"
	"cheers-go/internal/middleware"
	ws "cheers-go/internal/websocket"

	gorillaws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler 负责处理实时动态的 WebSocket 连接请求。
type WebSocketHandler struct {
	ctx      context.Context
	hub      *ws.Hub
	upgrader *gorillaws.Upgrader
	authMW   *middleware.AuthMiddleware
	wsCfg    config.WebSocketConfig
	log      logrus.FieldLogger
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。ctx 结束后不再接受新连接。
func NewWebSocketHandler(ctx context.Context, hub *ws.Hub, authMW *middleware.AuthMiddleware, cfg config.Config, log logrus.FieldLogger) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:      ctx,
		hub:      hub,
		upgrader: ws.NewUpgrader(cfg.APIServer.CORS.AllowedOrigins),
		authMW:   authMW,
		wsCfg:    cfg.WebSocket,
		log:      log.WithField("handler", "feed-websocket"),
	}
}

// ServeWS 使用与 API 相同的会话 cookie 认证，然后把连接升级为 WebSocket。
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.authMW.Authenticate(r)
	if err != nil {
		status, msg := http.StatusUnauthorized, middleware.MsgAuthenticationRequired
		if errors.Is(err, auth.ErrInvalidToken) {
			h.log.WithError(err).Debug("feed connection rejected")
			metrics.RecordAuthFailure("invalid_session")
		} else {
			h.log.WithError(err).Error("feed session check failed")
			status, msg = http.StatusInternalServerError, "internal server error"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
		return
	}

	h.log.WithField("user_id", claims.UserID).Debug("feed connection accepted")
	ws.ServeFeed(h.ctx, h.hub, h.upgrader, claims.UserID, w, r, h.wsCfg)
}
