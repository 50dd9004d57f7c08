package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Speech   SpeechConfig   `yaml:"speech"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GeminiConfig Gemini 大模型配置
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// SpeechConfig 语音合成服务配置
type SpeechConfig struct {
	FunctionURL string `yaml:"functionUrl"`
	APIKey      string `yaml:"apiKey"`
	VoiceID     string `yaml:"voiceId"`
}

// MonitorConfig 端点监控配置
type MonitorConfig struct {
	IntervalSeconds int              `yaml:"intervalSeconds"`
	TimeoutSeconds  int              `yaml:"timeoutSeconds"`
	Endpoints       []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig 被监控端点
type EndpointConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DispatchConfig 消息分发配置
type DispatchConfig struct {
	HistoryTurns   int `yaml:"historyTurns"`
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// LoadConfig 加载配置文件并应用环境变量覆盖
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnv 环境变量覆盖（密钥和服务地址优先从环境读取）
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("SPEECH_FUNCTION_URL"); v != "" {
		c.Speech.FunctionURL = v
	}
	if v := os.Getenv("SPEECH_API_KEY"); v != "" {
		c.Speech.APIKey = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

// applyDefaults 填充默认值
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "eliza"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Speech.VoiceID == "" {
		c.Speech.VoiceID = "eliza-default"
	}
	if c.Monitor.IntervalSeconds == 0 {
		c.Monitor.IntervalSeconds = 30
	}
	if c.Monitor.TimeoutSeconds == 0 {
		c.Monitor.TimeoutSeconds = 10
	}
	if len(c.Monitor.Endpoints) == 0 {
		c.Monitor.Endpoints = DefaultEndpoints()
	}
	if c.Dispatch.HistoryTurns == 0 {
		c.Dispatch.HistoryTurns = 10
	}
	if c.Dispatch.TimeoutSeconds == 0 {
		c.Dispatch.TimeoutSeconds = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// DefaultEndpoints XMRT 生态系统固定监控端点列表
func DefaultEndpoints() []EndpointConfig {
	return []EndpointConfig{
		{Name: "XMRT Ecosystem", URL: "https://xmrt-ecosystem-1-20k6.onrender.com/health"},
		{Name: "XMRT DAO Hub", URL: "https://xmrt-dao-hub.onrender.com/api/status"},
		{Name: "Mining Pool", URL: "https://www.supportxmr.com/api/pool/stats"},
	}
}

// HasGemini 是否配置了 Gemini（仅做存在性检查）
func (c *Config) HasGemini() bool {
	return c.Gemini.APIKey != ""
}

// HasSpeech 是否配置了语音合成服务
func (c *Config) HasSpeech() bool {
	return c.Speech.FunctionURL != ""
}
