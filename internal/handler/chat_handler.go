package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xmrtdao/eliza-go/internal/identity"
	"github.com/xmrtdao/eliza-go/internal/model"
	"github.com/xmrtdao/eliza-go/internal/service"
	"go.uber.org/zap"
)

// Dispatcher 消息分发入口
type Dispatcher interface {
	Dispatch(ctx context.Context, id identity.Identity, text string) *model.StructuredResponse
}

// MemoryGateway 对话记忆读取/清除入口
type MemoryGateway interface {
	Retrieve(ctx context.Context, id identity.Identity) (*model.ConversationRecord, error)
	Clear(ctx context.Context, id identity.Identity) error
}

// StatusProvider 端点状态读取入口
type StatusProvider interface {
	Snapshot() []model.EndpointRecord
	Metrics() *model.EcosystemMetrics
	OnlineCount() int
}

// ChatHandler Eliza API 处理器
type ChatHandler struct {
	dispatcher Dispatcher
	memory     MemoryGateway
	monitor    StatusProvider
	speech     service.SpeechSynthesizer // 未配置时为 nil
	voiceID    string
	logger     *zap.Logger
}

// NewChatHandler 创建 API 处理器
func NewChatHandler(
	dispatcher Dispatcher,
	memory MemoryGateway,
	monitor StatusProvider,
	speech service.SpeechSynthesizer,
	voiceID string,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		dispatcher: dispatcher,
		memory:     memory,
		monitor:    monitor,
		speech:     speech,
		voiceID:    voiceID,
		logger:     logger,
	}
}

// Chat 聊天接口：无论 AI 后端状态如何都返回 200 和结构化回复
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}

	id := identity.FromRequest(c.Request, c.ClientIP())

	h.logger.Info("收到聊天请求",
		zap.String("key", id.Key()),
		zap.Int("length", len(req.Message)))

	resp := h.dispatcher.Dispatch(c.Request.Context(), id, req.Message)
	c.JSON(200, resp)
}

// Status 生态系统状态接口
func (h *ChatHandler) Status(c *gin.Context) {
	c.JSON(200, gin.H{
		"endpoints": h.monitor.Snapshot(),
		"metrics":   h.monitor.Metrics(),
	})
}

// GetMemory 读取当前身份的对话记录
func (h *ChatHandler) GetMemory(c *gin.Context) {
	id := identity.FromRequest(c.Request, c.ClientIP())

	record, err := h.memory.Retrieve(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRecordNotFound) {
			c.JSON(404, gin.H{"error": true, "code": "not_found", "message": "no conversation record"})
			return
		}
		apiErr := model.ClassifyError(err)
		h.logger.Error("读取对话记录失败", zap.String("key", id.Key()), zap.Error(err))
		c.JSON(500, apiErr)
		return
	}

	c.JSON(200, record)
}

// ClearMemory 清除当前身份的对话记录
func (h *ChatHandler) ClearMemory(c *gin.Context) {
	id := identity.FromRequest(c.Request, c.ClientIP())

	if err := h.memory.Clear(c.Request.Context(), id); err != nil {
		h.logger.Error("清除对话记录失败", zap.String("key", id.Key()), zap.Error(err))
		c.JSON(500, model.ClassifyError(err))
		return
	}

	c.JSON(200, gin.H{"success": true})
}

// Speech 语音合成接口（此路径会向调用方返回统一错误形状）
func (h *ChatHandler) Speech(c *gin.Context) {
	var req struct {
		Text    string `json:"text" binding:"required"`
		VoiceID string `json:"voiceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}

	if h.speech == nil {
		c.JSON(503, gin.H{"error": true, "code": "unknown", "message": "speech synthesis not configured"})
		return
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = h.voiceID
	}

	speech, err := h.speech.Synthesize(c.Request.Context(), req.Text, voiceID)
	if err != nil {
		h.logger.Error("语音合成失败", zap.Error(err))
		c.JSON(502, model.ClassifyError(err))
		return
	}

	c.JSON(200, speech)
}
