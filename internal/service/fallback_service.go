package service

import (
	"strings"

	"github.com/xmrtdao/eliza-go/internal/model"
)

// 兜底回复固定置信度
const fallbackConfidence = 0.85

// fallbackRule 兜底触发规则，按顺序首个命中生效
type fallbackRule struct {
	terms   []string
	kind    string
	content string
}

var fallbackRules = []fallbackRule{
	{
		terms: []string{"governance", "proposal", "vote", "dao"},
		kind:  model.DecisionAutonomous,
		content: "I'm currently operating in autonomous mode. The XMRT DAO governance system is active — " +
			"I continue to evaluate proposals and cast votes according to community-aligned parameters. " +
			"Full governance analysis will resume once my reasoning backend reconnects.",
	},
	{
		terms: []string{"treasury", "fund", "balance", "budget"},
		kind:  model.DecisionAutonomous,
		content: "Treasury operations remain under autonomous management. Reserve allocations and " +
			"scheduled disbursements are proceeding normally. Detailed treasury analytics will be " +
			"available once my reasoning backend reconnects.",
	},
	{
		terms: []string{"security", "emergency", "attack", "threat"},
		kind:  model.DecisionEmergency,
		content: "Security monitoring is active. I have flagged your message for priority review — " +
			"all critical XMRT systems report nominal status. If this is an active incident, please " +
			"also alert the community moderators directly.",
	},
	{
		terms: []string{"hello", "hey", "greetings"},
		kind:  model.DecisionGeneral,
		content: "Hello! I'm Eliza, the autonomous AI of the XMRT DAO. My primary reasoning backend is " +
			"temporarily unreachable, but my core systems remain operational. Ask me about governance, " +
			"the treasury, or mobile mining and I'll do my best to help.",
	},
}

var fallbackDefault = fallbackRule{
	kind: model.DecisionGeneral,
	content: "I'm operating on my local decision systems right now — my primary reasoning backend is " +
		"temporarily unreachable. Core XMRT ecosystem functions continue autonomously. Please try " +
		"again shortly for a full response.",
}

// fallbackAction 兜底回复附带的固定建议操作
var fallbackAction = model.SuggestedAction{
	Kind:        "status_check",
	Description: "Check ecosystem endpoint status",
	RiskLevel:   model.RiskLow,
}

// FallbackService 兜底回复服务：纯函数，无副作用，无网络调用
type FallbackService struct{}

// NewFallbackService 创建兜底回复服务
func NewFallbackService() *FallbackService {
	return &FallbackService{}
}

// Respond 根据输入文本生成固定模板回复，结果确定且可重复。
// MessageID、时间戳与系统快照由分发器补齐。
func (s *FallbackService) Respond(input string) *model.StructuredResponse {
	lower := strings.ToLower(input)

	rule := fallbackDefault
	for _, r := range fallbackRules {
		if containsAny(lower, r.terms) {
			rule = r
			break
		}
	}

	return &model.StructuredResponse{
		Content:          rule.content,
		Confidence:       fallbackConfidence,
		DecisionKind:     rule.kind,
		SuggestedActions: []model.SuggestedAction{fallbackAction},
	}
}
