package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmrtdao/eliza-go/internal/identity"
	"github.com/xmrtdao/eliza-go/internal/model"
	"go.uber.org/zap"
)

func newTestMemory(t *testing.T) *MemoryService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return NewMemoryService(client, zap.NewNop())
}

func memTestIdentity() identity.Identity {
	return identity.Identity{IP: "198.51.100.1", Fingerprint: "feedface00000001"}
}

func TestMemoryStoreRetrieve(t *testing.T) {
	s := newTestMemory(t)
	ctx := context.Background()
	id := memTestIdentity()

	msg := model.Message{
		MessageID: "m1",
		Content:   "hello eliza",
		Sender:    model.SenderUser,
		Kind:      model.KindText,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, s.Store(ctx, id, msg, nil))

	record, err := s.Retrieve(ctx, id)
	require.NoError(t, err)
	require.Len(t, record.Turns, 1)
	assert.Equal(t, "hello eliza", record.Turns[0].Content)
	assert.Equal(t, int64(1), record.Interactions)
}

func TestMemoryInteractionCounter(t *testing.T) {
	s := newTestMemory(t)
	ctx := context.Background()
	id := memTestIdentity()

	for i := 0; i < 3; i++ {
		msg := model.Message{MessageID: "m", Content: "x", Sender: model.SenderUser, Kind: model.KindText}
		require.NoError(t, s.Store(ctx, id, msg, nil))
	}

	record, err := s.Retrieve(ctx, id)
	require.NoError(t, err)
	assert.Len(t, record.Turns, 3)
	assert.Equal(t, int64(3), record.Interactions)
}

func TestMemoryAnnotations(t *testing.T) {
	s := newTestMemory(t)
	ctx := context.Background()
	id := memTestIdentity()

	// 标注是不透明的 JSON blob，原样存取
	annotations := map[string]json.RawMessage{
		"neuralEmbeddings": json.RawMessage(`[0.1,0.2,0.3]`),
		"multimodal":       json.RawMessage(`{"frames":2}`),
	}
	msg := model.Message{MessageID: "m1", Content: "x", Sender: model.SenderUser, Kind: model.KindText}
	require.NoError(t, s.Store(ctx, id, msg, annotations))

	record, err := s.Retrieve(ctx, id)
	require.NoError(t, err)
	require.Contains(t, record.Annotations, "neuralEmbeddings")
	assert.JSONEq(t, `[0.1,0.2,0.3]`, string(record.Annotations["neuralEmbeddings"]))
}

func TestMemoryClear(t *testing.T) {
	s := newTestMemory(t)
	ctx := context.Background()
	id := memTestIdentity()

	msg := model.Message{MessageID: "m1", Content: "x", Sender: model.SenderUser, Kind: model.KindText}
	require.NoError(t, s.Store(ctx, id, msg, nil))

	require.NoError(t, s.Clear(ctx, id))

	// 清除后再读取返回未找到
	_, err := s.Retrieve(ctx, id)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryRetrieveNotFound(t *testing.T) {
	s := newTestMemory(t)

	_, err := s.Retrieve(context.Background(), memTestIdentity())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryIdentityIsolation(t *testing.T) {
	s := newTestMemory(t)
	ctx := context.Background()

	first := identity.Identity{IP: "198.51.100.1", Fingerprint: "aaaa"}
	second := identity.Identity{IP: "198.51.100.1", Fingerprint: "bbbb"}

	msg := model.Message{MessageID: "m1", Content: "only for first", Sender: model.SenderUser, Kind: model.KindText}
	require.NoError(t, s.Store(ctx, first, msg, nil))

	// 相同 IP、不同指纹是不同的记录
	_, err := s.Retrieve(ctx, second)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	record, err := s.Retrieve(ctx, first)
	require.NoError(t, err)
	assert.Len(t, record.Turns, 1)
}
