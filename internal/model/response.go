package model

import "time"

// 决策类型
const (
	DecisionAutonomous = "autonomous"
	DecisionAdvisory   = "advisory"
	DecisionEmergency  = "emergency"
	DecisionGeneral    = "general"
)

// 建议操作风险等级
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// StructuredResponse 每轮用户消息的结构化回复（返回后不再修改）
type StructuredResponse struct {
	MessageID        string            `json:"messageId"`
	Content          string            `json:"content"`
	Confidence       float64           `json:"confidence"`
	DecisionKind     string            `json:"decisionKind"`
	SuggestedActions []SuggestedAction `json:"suggestedActions"`
	SystemStatus     SystemStatus      `json:"systemStatus"`
	AvatarState      *AvatarState      `json:"avatarState,omitempty"`
	Endpoints        []EndpointRecord  `json:"endpoints,omitempty"`
	Metrics          *EcosystemMetrics `json:"metrics,omitempty"`
	Speech           *Speech           `json:"speech,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

// SuggestedAction 建议操作
type SuggestedAction struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	RiskLevel   string `json:"riskLevel"` // low, medium, high
}

// SystemStatus 系统状态快照
type SystemStatus struct {
	UptimeSeconds int64 `json:"uptimeSeconds"`
	QueueSize     int   `json:"queueSize"`
	ActiveAgents  int   `json:"activeAgents"`
}

// AvatarState 虚拟形象状态
type AvatarState struct {
	Emotion   string    `json:"emotion"`
	Speaking  bool      `json:"speaking"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EcosystemMetrics 根据监控快照派生的生态指标
type EcosystemMetrics struct {
	HealthScore       float64 `json:"healthScore"` // 在线端点占比 [0,1]
	OnlineEndpoints   int     `json:"onlineEndpoints"`
	TotalEndpoints    int     `json:"totalEndpoints"`
	AvgResponseTimeMs int64   `json:"avgResponseTimeMs"`
}

// Speech 语音合成结果
type Speech struct {
	AudioContent string `json:"audioContent"` // base64 编码音频
	MimeType     string `json:"mimeType"`
	VoiceID      string `json:"voiceId"`
}
