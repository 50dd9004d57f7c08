package model

import (
	"encoding/json"
	"time"
)

// ConversationRecord 远端对话记忆记录（按 IP + 指纹定位）
type ConversationRecord struct {
	Turns        []Message                  `json:"turns"`
	Interactions int64                      `json:"interactions"`
	Annotations  map[string]json.RawMessage `json:"annotations,omitempty"`
	RetrievedAt  time.Time                  `json:"retrievedAt"`
}
