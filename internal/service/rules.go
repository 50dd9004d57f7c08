package service

import (
	"strings"

	"github.com/xmrtdao/eliza-go/internal/model"
)

// decisionRule 决策类型规则，按优先级排列，命中即返回
type decisionRule struct {
	kind  string
	terms []string
}

// 优先级：紧急 > 治理/资金 > 咨询 > 通用
var decisionRules = []decisionRule{
	{
		kind:  model.DecisionEmergency,
		terms: []string{"emergency", "urgent", "critical", "attack", "exploit", "breach", "hack"},
	},
	{
		kind:  model.DecisionAutonomous,
		terms: []string{"governance", "proposal", "vote", "treasury", "fund", "budget", "dao"},
	},
	{
		kind:  model.DecisionAdvisory,
		terms: []string{"should", "recommend", "advice", "suggest", "strategy", "consider"},
	},
}

// actionRule 建议操作规则，各条独立判断，互不排斥
type actionRule struct {
	terms  []string
	action model.SuggestedAction
}

var actionRules = []actionRule{
	{
		terms: []string{"governance", "proposal", "vote"},
		action: model.SuggestedAction{
			Kind:        "governance_review",
			Description: "Review active governance proposals in the XMRT DAO",
			RiskLevel:   model.RiskMedium,
		},
	},
	{
		terms: []string{"treasury", "fund", "budget"},
		action: model.SuggestedAction{
			Kind:        "treasury_analysis",
			Description: "Analyze current treasury allocation and reserves",
			RiskLevel:   model.RiskLow,
		},
	},
	{
		terms: []string{"mining", "miner", "hashrate", "pool"},
		action: model.SuggestedAction{
			Kind:        "mining_status",
			Description: "Check mobile mining pool status and contribution",
			RiskLevel:   model.RiskLow,
		},
	},
	{
		terms: []string{"security", "attack", "exploit", "vulnerability"},
		action: model.SuggestedAction{
			Kind:        "security_audit",
			Description: "Initiate a security review of affected components",
			RiskLevel:   model.RiskHigh,
		},
	},
}

// emotionRule 情绪标签规则，按顺序首个命中生效
type emotionRule struct {
	label string
	terms []string
}

var emotionRules = []emotionRule{
	{label: "alert", terms: []string{"emergency", "attack", "exploit", "error", "fail"}},
	{label: "concerned", terms: []string{"warning", "risk", "caution", "issue"}},
	{label: "confident", terms: []string{"great", "excellent", "success", "optimal"}},
}

const defaultEmotion = "neutral"

// ClassifyDecision 根据关键词子串匹配判定决策类型
func ClassifyDecision(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range decisionRules {
		if containsAny(lower, rule.terms) {
			return rule.kind
		}
	}
	return model.DecisionGeneral
}

// ScanActions 扫描文本中的操作指示词，生成建议操作列表
func ScanActions(text string) []model.SuggestedAction {
	lower := strings.ToLower(text)
	var actions []model.SuggestedAction
	for _, rule := range actionRules {
		if containsAny(lower, rule.terms) {
			actions = append(actions, rule.action)
		}
	}
	return actions
}

// DeriveEmotion 从文本派生情绪标签
func DeriveEmotion(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range emotionRules {
		if containsAny(lower, rule.terms) {
			return rule.label
		}
	}
	return defaultEmotion
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
