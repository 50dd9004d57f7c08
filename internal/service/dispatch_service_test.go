package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmrtdao/eliza-go/internal/config"
	"github.com/xmrtdao/eliza-go/internal/identity"
	"github.com/xmrtdao/eliza-go/internal/model"
	"go.uber.org/zap"
)

type fakeAI struct {
	reply          string
	err            error
	capturedPrompt string
	calls          int
}

func (f *fakeAI) Generate(_ context.Context, systemPrompt, _ string) (string, error) {
	f.calls++
	f.capturedPrompt = systemPrompt
	return f.reply, f.err
}

type fakeSpeech struct {
	speech *model.Speech
	err    error
}

func (f *fakeSpeech) Synthesize(_ context.Context, _, voiceID string) (*model.Speech, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := *f.speech
	out.VoiceID = voiceID
	return &out, nil
}

type fakeMemory struct {
	mu       sync.Mutex
	msgs     []model.Message
	storeErr error
}

func (f *fakeMemory) Store(_ context.Context, _ identity.Identity, msg model.Message, _ map[string]json.RawMessage) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeMemory) Retrieve(_ context.Context, _ identity.Identity) (*model.ConversationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		return nil, ErrRecordNotFound
	}
	turns := make([]model.Message, len(f.msgs))
	copy(turns, f.msgs)
	return &model.ConversationRecord{Turns: turns, Interactions: int64(len(turns))}, nil
}

type fakeMonitor struct{}

func (f *fakeMonitor) Snapshot() []model.EndpointRecord {
	return []model.EndpointRecord{
		{Name: "XMRT Ecosystem", Status: model.StatusOnline, LastChecked: time.Now()},
	}
}

func (f *fakeMonitor) Metrics() *model.EcosystemMetrics {
	return &model.EcosystemMetrics{HealthScore: 1, OnlineEndpoints: 1, TotalEndpoints: 1}
}

func (f *fakeMonitor) OnlineCount() int { return 1 }

func newTestDispatch(ai AIGenerator, speech SpeechSynthesizer, mem ConversationMemory) *DispatchService {
	return NewDispatchService(
		ai, speech, mem, &fakeMonitor{}, NewFallbackService(),
		config.DispatchConfig{HistoryTurns: 5, TimeoutSeconds: 30},
		"eliza-default",
		zap.NewNop(),
	)
}

func testIdentity() identity.Identity {
	return identity.Identity{IP: "203.0.113.7", Fingerprint: "abcd1234abcd1234"}
}

func TestDispatchNoAIConfigured(t *testing.T) {
	mem := &fakeMemory{}
	s := newTestDispatch(nil, nil, mem)

	resp := s.Dispatch(context.Background(), testIdentity(), "hello")

	// 未配置 AI 后端时走兜底路径：问候模板、general、0.85
	require.NotNil(t, resp)
	assert.Equal(t, model.DecisionGeneral, resp.DecisionKind)
	assert.Equal(t, 0.85, resp.Confidence)
	assert.Equal(t, NewFallbackService().Respond("hello").Content, resp.Content)

	// 分发器补齐的字段
	assert.NotEmpty(t, resp.MessageID)
	assert.False(t, resp.Timestamp.IsZero())
	assert.NotEmpty(t, resp.Endpoints)
	require.NotNil(t, resp.AvatarState)

	// 用户消息仍然要落库
	require.Len(t, mem.msgs, 1)
	assert.Equal(t, model.SenderUser, mem.msgs[0].Sender)
}

func TestDispatchAIFailureFallsBack(t *testing.T) {
	ai := &fakeAI{err: errors.New("connection refused")}
	mem := &fakeMemory{}
	s := newTestDispatch(ai, nil, mem)

	// AI 调用失败绝不向上抛错，替换为兜底回复
	resp := s.Dispatch(context.Background(), testIdentity(), "what about the treasury")

	require.NotNil(t, resp)
	assert.Equal(t, 0.85, resp.Confidence)
	assert.Equal(t, model.DecisionAutonomous, resp.DecisionKind)
	assert.Equal(t, 1, ai.calls, "不重试")
}

func TestDispatchAISuccess(t *testing.T) {
	ai := &fakeAI{reply: "The treasury holds 12000 XMR. I recommend reviewing the governance proposal."}
	mem := &fakeMemory{}
	s := newTestDispatch(ai, nil, mem)

	resp := s.Dispatch(context.Background(), testIdentity(), "treasury status?")

	require.NotNil(t, resp)
	assert.Equal(t, ai.reply, resp.Content)
	assert.Equal(t, 0.9, resp.Confidence)
	// 回复文本含 treasury/governance，无紧急词 → autonomous
	assert.Equal(t, model.DecisionAutonomous, resp.DecisionKind)
	assert.NotEmpty(t, resp.SuggestedActions)

	// 用户消息和助手回复都要落库
	require.Len(t, mem.msgs, 2)
	assert.Equal(t, model.SenderUser, mem.msgs[0].Sender)
	assert.Equal(t, model.SenderAssistant, mem.msgs[1].Sender)

	// 系统快照
	assert.Equal(t, 1, resp.SystemStatus.ActiveAgents)
	require.NotNil(t, resp.Metrics)
	assert.Equal(t, float64(1), resp.Metrics.HealthScore)
}

func TestDispatchConfidenceBounds(t *testing.T) {
	inputs := []string{"hello", "emergency!", "treasury", "what should I do", ""}
	for _, ai := range []AIGenerator{nil, &fakeAI{reply: "ok"}, &fakeAI{err: errors.New("boom")}} {
		s := newTestDispatch(ai, nil, &fakeMemory{})
		for _, input := range inputs {
			resp := s.Dispatch(context.Background(), testIdentity(), input)
			require.NotNil(t, resp)
			assert.GreaterOrEqual(t, resp.Confidence, 0.0)
			assert.LessOrEqual(t, resp.Confidence, 1.0)
			assert.Contains(t, []string{
				model.DecisionAutonomous, model.DecisionAdvisory,
				model.DecisionEmergency, model.DecisionGeneral,
			}, resp.DecisionKind)
		}
	}
}

func TestDispatchPromptIncludesHistory(t *testing.T) {
	ai := &fakeAI{reply: "ok"}
	mem := &fakeMemory{msgs: []model.Message{
		{MessageID: "m1", Content: "earlier question about mining", Sender: model.SenderUser, Kind: model.KindText},
		{MessageID: "m2", Content: "earlier answer", Sender: model.SenderAssistant, Kind: model.KindText},
	}}
	s := newTestDispatch(ai, nil, mem)

	s.Dispatch(context.Background(), testIdentity(), "follow-up question")

	assert.Contains(t, ai.capturedPrompt, "earlier question about mining")
	assert.Contains(t, ai.capturedPrompt, "earlier answer")
	// 本轮消息刚落库，不应重复出现在历史里
	assert.NotContains(t, ai.capturedPrompt, "follow-up question")
}

func TestDispatchStoreFailureIsAbsorbed(t *testing.T) {
	ai := &fakeAI{reply: "fine"}
	mem := &fakeMemory{storeErr: errors.New("redis down")}
	s := newTestDispatch(ai, nil, mem)

	// 记忆网关失败只降级，不影响回复
	resp := s.Dispatch(context.Background(), testIdentity(), "hello")
	require.NotNil(t, resp)
	assert.Equal(t, "fine", resp.Content)
}

func TestDispatchSpeechAttached(t *testing.T) {
	ai := &fakeAI{reply: "hello from eliza"}
	speech := &fakeSpeech{speech: &model.Speech{AudioContent: "UklGRg==", MimeType: "audio/mpeg"}}
	s := newTestDispatch(ai, speech, &fakeMemory{})

	resp := s.Dispatch(context.Background(), testIdentity(), "say hi")

	require.NotNil(t, resp.Speech)
	assert.Equal(t, "audio/mpeg", resp.Speech.MimeType)
	assert.Equal(t, "eliza-default", resp.Speech.VoiceID)
	require.NotNil(t, resp.AvatarState)
	assert.True(t, resp.AvatarState.Speaking)
}

func TestDispatchSpeechFailureIsAbsorbed(t *testing.T) {
	ai := &fakeAI{reply: "hello"}
	speech := &fakeSpeech{err: errors.New("function unavailable")}
	s := newTestDispatch(ai, speech, &fakeMemory{})

	resp := s.Dispatch(context.Background(), testIdentity(), "say hi")

	assert.Nil(t, resp.Speech)
	assert.Equal(t, "hello", resp.Content)
}
