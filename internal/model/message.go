package model

import "time"

// 消息发送方
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// 消息类型
const (
	KindText   = "text"
	KindSystem = "system"
	KindError  = "error"
)

// Message 单条对话消息（创建后不可变）
type Message struct {
	MessageID string    `json:"messageId"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"` // user, assistant
	Kind      string    `json:"kind"`   // text, system, error
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// WSMessage WebSocket 消息帧
type WSMessage struct {
	MessageID string `json:"messageId,omitempty"`
	Type      string `json:"type"` // CHAT, HEARTBEAT, AI_RESPONSE, ACK
	Content   string `json:"content,omitempty"`
}

// WSAck WebSocket 收到确认
type WSAck struct {
	Type      string `json:"type"`
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Message   string `json:"message,omitempty"`
}
