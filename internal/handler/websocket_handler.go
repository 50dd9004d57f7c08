package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xmrtdao/eliza-go/internal/identity"
	"github.com/xmrtdao/eliza-go/internal/model"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境应该检查 Origin 白名单
		return true
	},
}

// wsConn 单个 WebSocket 连接
type wsConn struct {
	conn          *websocket.Conn
	identity      identity.Identity
	lastHeartbeat time.Time
	mu            sync.Mutex // 保护并发写入
}

// writeJSON 向连接写入消息（线程安全）
func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// wsResponse 推送给前端的回复帧
type wsResponse struct {
	Type     string                    `json:"type"`
	Response *model.StructuredResponse `json:"response"`
}

// WebSocketHandler WebSocket 聊天处理器
type WebSocketHandler struct {
	dispatcher Dispatcher
	conns      map[string]*wsConn // sessionId -> conn
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(dispatcher Dispatcher, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		dispatcher: dispatcher,
		conns:      make(map[string]*wsConn),
		logger:     logger,
	}
}

// OnlineCount 当前在线连接数
func (h *WebSocketHandler) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// HandleWebSocket WebSocket 连接入口
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	id := identity.FromRequest(c.Request, c.ClientIP())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	wc := &wsConn{
		conn:          conn,
		identity:      id,
		lastHeartbeat: time.Now(),
	}

	h.mu.Lock()
	h.conns[sessionID] = wc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.conns, sessionID)
		h.mu.Unlock()
	}()

	h.logger.Info("WebSocket 连接建立",
		zap.String("sessionId", sessionID),
		zap.String("key", id.Key()))

	// 消息循环
	for {
		var msg model.WSMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket 读取错误", zap.Error(err))
			}
			break
		}

		h.handleMessage(wc, &msg)
	}

	h.logger.Info("WebSocket 连接断开", zap.String("sessionId", sessionID))
}

// handleMessage 处理单条 WebSocket 消息
func (h *WebSocketHandler) handleMessage(wc *wsConn, msg *model.WSMessage) {
	switch msg.Type {
	case "CHAT":
		// 立即确认，异步分发，回复通过推送送达
		ack := model.WSAck{
			Type:      "ACK",
			Success:   true,
			MessageID: msg.MessageID,
			Message:   "message received",
		}
		if err := wc.writeJSON(ack); err != nil {
			h.logger.Error("发送确认失败", zap.Error(err))
			return
		}

		go h.dispatchAndPush(wc, msg.Content)

	case "HEARTBEAT":
		wc.mu.Lock()
		wc.lastHeartbeat = time.Now()
		wc.mu.Unlock()
		h.logger.Debug("收到心跳", zap.String("key", wc.identity.Key()))

	default:
		h.logger.Warn("未知消息类型",
			zap.String("key", wc.identity.Key()),
			zap.String("type", msg.Type))
	}
}

// dispatchAndPush 分发消息并推送结构化回复。
// 连接已断开时推送失败，仅记录日志。
func (h *WebSocketHandler) dispatchAndPush(wc *wsConn, text string) {
	resp := h.dispatcher.Dispatch(context.Background(), wc.identity, text)

	push := wsResponse{
		Type:     "AI_RESPONSE",
		Response: resp,
	}
	if err := wc.writeJSON(push); err != nil {
		h.logger.Error("推送回复失败",
			zap.String("key", wc.identity.Key()),
			zap.Error(err))
	}
}
