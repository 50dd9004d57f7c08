package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/xmrtdao/eliza-go/internal/model"
	"go.uber.org/zap"
)

// SpeechClient 语音合成远程函数客户端
type SpeechClient struct {
	functionURL string
	apiKey      string
	logger      *zap.Logger
	client      *http.Client
}

// SpeechRequest 合成请求
type SpeechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

// SpeechResponse 合成响应
type SpeechResponse struct {
	AudioContent string `json:"audioContent"` // base64 编码
	MimeType     string `json:"mimeType"`
}

// NewSpeechClient 创建语音合成客户端
func NewSpeechClient(functionURL, apiKey string, logger *zap.Logger) *SpeechClient {
	return &SpeechClient{
		functionURL: functionURL,
		apiKey:      apiKey,
		logger:      logger,
		client:      &http.Client{},
	}
}

// Synthesize 合成语音
func (c *SpeechClient) Synthesize(ctx context.Context, text, voiceID string) (*model.Speech, error) {
	c.logger.Info("合成语音", zap.Int("length", len(text)), zap.String("voiceId", voiceID))

	reqBody := SpeechRequest{
		Text:    text,
		VoiceID: voiceID,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.functionURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 返回错误 %d: %s", resp.StatusCode, string(body))
	}

	var speechResp SpeechResponse
	if err := json.Unmarshal(body, &speechResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if speechResp.AudioContent == "" {
		return nil, fmt.Errorf("no audio returned")
	}

	return &model.Speech{
		AudioContent: speechResp.AudioContent,
		MimeType:     speechResp.MimeType,
		VoiceID:      voiceID,
	}, nil
}
