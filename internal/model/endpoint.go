package model

import (
	"encoding/json"
	"time"
)

// 端点状态
const (
	StatusOnline   = "online"
	StatusDegraded = "degraded"
	StatusOffline  = "offline"
)

// EndpointRecord 被监控端点的最近一次检查结果
type EndpointRecord struct {
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Status         string          `json:"status"` // online, degraded, offline
	LastChecked    time.Time       `json:"lastChecked"`
	ResponseTimeMs int64           `json:"responseTimeMs"`
	LastPayload    json.RawMessage `json:"lastPayload,omitempty"`
}
