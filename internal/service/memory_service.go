package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xmrtdao/eliza-go/internal/identity"
	"github.com/xmrtdao/eliza-go/internal/model"
	"go.uber.org/zap"
)

var ErrRecordNotFound = fmt.Errorf("对话记录不存在")

// MemoryService 对话记忆网关：以 (IP, 指纹) 为键的远端持久化。
// 记录持续增长，直到显式清除；不做重试，不额外设置超时。
type MemoryService struct {
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewMemoryService 创建对话记忆服务
func NewMemoryService(redisClient *redis.Client, logger *zap.Logger) *MemoryService {
	return &MemoryService{
		redisClient: redisClient,
		logger:      logger,
	}
}

func turnsKey(id identity.Identity) string {
	return fmt.Sprintf("conversation:%s:turns", id.Key())
}

func countKey(id identity.Identity) string {
	return fmt.Sprintf("conversation:%s:count", id.Key())
}

func annotationsKey(id identity.Identity) string {
	return fmt.Sprintf("conversation:%s:annotations", id.Key())
}

// Store 追加一条消息到远端记录并递增交互计数。
// 记录不存在时自动创建。
func (s *MemoryService) Store(ctx context.Context, id identity.Identity, msg model.Message, annotations map[string]json.RawMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	if err := s.redisClient.RPush(ctx, turnsKey(id), data).Err(); err != nil {
		return fmt.Errorf("写入对话记录失败: %w", err)
	}
	if err := s.redisClient.Incr(ctx, countKey(id)).Err(); err != nil {
		return fmt.Errorf("更新交互计数失败: %w", err)
	}

	for field, blob := range annotations {
		if err := s.redisClient.HSet(ctx, annotationsKey(id), field, []byte(blob)).Err(); err != nil {
			return fmt.Errorf("写入标注失败: %w", err)
		}
	}

	s.logger.Debug("消息已持久化",
		zap.String("key", id.Key()),
		zap.String("sender", msg.Sender))
	return nil
}

// Retrieve 读取完整对话记录；记录不存在时返回 ErrRecordNotFound
func (s *MemoryService) Retrieve(ctx context.Context, id identity.Identity) (*model.ConversationRecord, error) {
	vals, err := s.redisClient.LRange(ctx, turnsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取对话记录失败: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrRecordNotFound
	}

	turns := make([]model.Message, 0, len(vals))
	for _, v := range vals {
		var msg model.Message
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			s.logger.Warn("跳过无法解析的历史消息", zap.Error(err))
			continue
		}
		turns = append(turns, msg)
	}

	count, err := s.redisClient.Get(ctx, countKey(id)).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("读取交互计数失败: %w", err)
	}

	record := &model.ConversationRecord{
		Turns:        turns,
		Interactions: count,
		RetrievedAt:  time.Now(),
	}

	raw, err := s.redisClient.HGetAll(ctx, annotationsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取标注失败: %w", err)
	}
	if len(raw) > 0 {
		record.Annotations = make(map[string]json.RawMessage, len(raw))
		for field, blob := range raw {
			record.Annotations[field] = json.RawMessage(blob)
		}
	}

	return record, nil
}

// Clear 删除该身份的全部对话记录
func (s *MemoryService) Clear(ctx context.Context, id identity.Identity) error {
	if err := s.redisClient.Del(ctx, turnsKey(id), countKey(id), annotationsKey(id)).Err(); err != nil {
		return fmt.Errorf("清除对话记录失败: %w", err)
	}

	s.logger.Info("对话记录已清除", zap.String("key", id.Key()))
	return nil
}
