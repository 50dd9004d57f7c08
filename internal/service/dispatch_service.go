package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xmrtdao/eliza-go/internal/config"
	"github.com/xmrtdao/eliza-go/internal/identity"
	"github.com/xmrtdao/eliza-go/internal/model"
	"go.uber.org/zap"
)

// AIGenerator 生成式 AI 后端
type AIGenerator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// SpeechSynthesizer 语音合成后端
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*model.Speech, error)
}

// ConversationMemory 对话记忆网关
type ConversationMemory interface {
	Store(ctx context.Context, id identity.Identity, msg model.Message, annotations map[string]json.RawMessage) error
	Retrieve(ctx context.Context, id identity.Identity) (*model.ConversationRecord, error)
}

// EndpointMonitor 端点状态来源
type EndpointMonitor interface {
	Snapshot() []model.EndpointRecord
	Metrics() *model.EcosystemMetrics
	OnlineCount() int
}

// AI 回复路径的固定置信度
const aiConfidence = 0.9

// DispatchService 消息分发服务：每轮用户消息必定产出一个结构化回复，
// AI 调用失败时退回兜底回复，调用方永远不会收到错误。
type DispatchService struct {
	ai       AIGenerator
	speech   SpeechSynthesizer
	memory   ConversationMemory
	monitor  EndpointMonitor
	fallback *FallbackService

	voiceID      string
	historyTurns int
	timeout      time.Duration
	logger       *zap.Logger

	startTime time.Time
	inFlight  atomic.Int64

	avatarMu sync.RWMutex
	avatar   model.AvatarState
}

// NewDispatchService 创建消息分发服务。
// ai 和 speech 允许为 nil（未配置对应后端时）。
func NewDispatchService(
	ai AIGenerator,
	speech SpeechSynthesizer,
	memory ConversationMemory,
	monitor EndpointMonitor,
	fallback *FallbackService,
	cfg config.DispatchConfig,
	voiceID string,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		ai:           ai,
		speech:       speech,
		memory:       memory,
		monitor:      monitor,
		fallback:     fallback,
		voiceID:      voiceID,
		historyTurns: cfg.HistoryTurns,
		timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:       logger,
		startTime:    time.Now(),
		avatar:       model.AvatarState{Emotion: defaultEmotion, UpdatedAt: time.Now()},
	}
}

// Dispatch 处理一轮用户消息
func (s *DispatchService) Dispatch(ctx context.Context, id identity.Identity, text string) *model.StructuredResponse {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	userMsg := model.Message{
		MessageID: uuid.New().String(),
		Content:   text,
		Sender:    model.SenderUser,
		Kind:      model.KindText,
		Timestamp: time.Now(),
	}

	// 先落库再取上下文，保证本轮消息一定在自己的上下文中；失败仅记录
	if err := s.memory.Store(ctx, id, userMsg, nil); err != nil {
		s.logger.Warn("持久化用户消息失败", zap.String("key", id.Key()), zap.Error(err))
	}

	if s.ai == nil {
		s.logger.Info("AI 后端未配置，使用兜底回复", zap.String("key", id.Key()))
		return s.finalize(s.fallback.Respond(text))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := s.buildSystemPrompt(ctx, id, userMsg.MessageID)

	reply, err := s.ai.Generate(callCtx, prompt, text)
	if err != nil {
		// 唯一的错误恢复路径：分类记录后替换为兜底回复，不重试
		apiErr := model.ClassifyError(err)
		s.logger.Error("AI 调用失败，使用兜底回复",
			zap.String("key", id.Key()),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message))
		return s.finalize(s.fallback.Respond(text))
	}

	assistantMsg := model.Message{
		MessageID: uuid.New().String(),
		Content:   reply,
		Sender:    model.SenderAssistant,
		Kind:      model.KindText,
		Timestamp: time.Now(),
	}
	if err := s.memory.Store(ctx, id, assistantMsg, nil); err != nil {
		s.logger.Warn("持久化助手回复失败", zap.String("key", id.Key()), zap.Error(err))
	}

	emotion := DeriveEmotion(reply)
	s.setAvatar(emotion, false)

	resp := &model.StructuredResponse{
		MessageID:        assistantMsg.MessageID,
		Content:          reply,
		Confidence:       aiConfidence,
		DecisionKind:     ClassifyDecision(reply),
		SuggestedActions: ScanActions(reply),
		Timestamp:        time.Now(),
	}
	s.attachSnapshot(resp)

	if s.speech != nil {
		s.synthesizeSpeech(ctx, reply, resp)
	}

	s.logger.Info("消息分发完成",
		zap.String("key", id.Key()),
		zap.String("decisionKind", resp.DecisionKind),
		zap.Int("actions", len(resp.SuggestedActions)))

	return resp
}

// finalize 为兜底回复补齐 ID、时间戳与系统快照
func (s *DispatchService) finalize(resp *model.StructuredResponse) *model.StructuredResponse {
	resp.MessageID = uuid.New().String()
	resp.Timestamp = time.Now()
	s.attachSnapshot(resp)
	return resp
}

// attachSnapshot 附加端点快照、生态指标与系统状态
func (s *DispatchService) attachSnapshot(resp *model.StructuredResponse) {
	if s.monitor != nil {
		resp.Endpoints = s.monitor.Snapshot()
		resp.Metrics = s.monitor.Metrics()
	}
	resp.SystemStatus = s.systemStatus()
	resp.AvatarState = s.snapshotAvatar()
}

func (s *DispatchService) systemStatus() model.SystemStatus {
	status := model.SystemStatus{
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		QueueSize:     int(s.inFlight.Load()),
	}
	if s.monitor != nil {
		status.ActiveAgents = s.monitor.OnlineCount()
	}
	return status
}

// buildSystemPrompt 构建嵌入最近历史的系统提示词。
// currentID 对应本轮刚落库的用户消息，历史中跳过以免重复。
func (s *DispatchService) buildSystemPrompt(ctx context.Context, id identity.Identity, currentID string) string {
	var builder strings.Builder
	builder.WriteString("You are Eliza, the autonomous AI agent of the XMRT DAO ecosystem. ")
	builder.WriteString("You manage governance analysis, treasury insight and mobile mining support. ")
	builder.WriteString("Respond helpfully and concisely.\n")

	record, err := s.memory.Retrieve(ctx, id)
	if err != nil {
		if err != ErrRecordNotFound {
			s.logger.Warn("读取对话历史失败", zap.String("key", id.Key()), zap.Error(err))
		}
		return builder.String()
	}

	turns := record.Turns
	if n := len(turns); n > 0 && turns[n-1].MessageID == currentID {
		turns = turns[:n-1]
	}
	if len(turns) > s.historyTurns {
		turns = turns[len(turns)-s.historyTurns:]
	}

	if len(turns) > 0 {
		builder.WriteString("\nRecent conversation:\n")
		for _, turn := range turns {
			builder.WriteString(turn.Sender)
			builder.WriteString(": ")
			builder.WriteString(turn.Content)
			builder.WriteString("\n")
		}
	}

	return builder.String()
}

// synthesizeSpeech 语音合成副作用：失败仅记录，不影响回复
func (s *DispatchService) synthesizeSpeech(ctx context.Context, text string, resp *model.StructuredResponse) {
	speech, err := s.speech.Synthesize(ctx, text, s.voiceID)
	if err != nil {
		s.logger.Warn("语音合成失败", zap.Error(err))
		return
	}
	resp.Speech = speech
	s.setAvatar(resp.AvatarState.Emotion, true)
	resp.AvatarState = s.snapshotAvatar()
}

// setAvatar 更新虚拟形象状态（唯一写入口）
func (s *DispatchService) setAvatar(emotion string, speaking bool) {
	s.avatarMu.Lock()
	defer s.avatarMu.Unlock()
	s.avatar = model.AvatarState{
		Emotion:   emotion,
		Speaking:  speaking,
		UpdatedAt: time.Now(),
	}
}

func (s *DispatchService) snapshotAvatar() *model.AvatarState {
	s.avatarMu.RLock()
	defer s.avatarMu.RUnlock()
	state := s.avatar
	return &state
}
