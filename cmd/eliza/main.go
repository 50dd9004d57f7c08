package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/xmrtdao/eliza-go/internal/client"
	"github.com/xmrtdao/eliza-go/internal/config"
	"github.com/xmrtdao/eliza-go/internal/handler"
	"github.com/xmrtdao/eliza-go/internal/middleware"
	"github.com/xmrtdao/eliza-go/internal/service"
	"github.com/xmrtdao/eliza-go/pkg/logger"
	"github.com/xmrtdao/eliza-go/pkg/redis"
	"go.uber.org/zap"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/eliza.yaml"
	}

	// 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("eliza 服务启动中...")

	// 初始化 Redis
	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("连接 Redis 失败", zap.Error(err))
	}

	// 初始化 AI / 语音客户端（仅做存在性检查，未配置时走兜底路径）
	var aiClient service.AIGenerator
	if cfg.HasGemini() {
		aiClient = client.NewGeminiClient(
			cfg.Gemini.APIKey,
			cfg.Gemini.Model,
			time.Duration(cfg.Dispatch.TimeoutSeconds)*time.Second,
			zapLogger,
		)
	} else {
		zapLogger.Warn("GEMINI_API_KEY 未配置，所有回复将使用兜底路径")
	}

	var speechClient service.SpeechSynthesizer
	if cfg.HasSpeech() {
		speechClient = client.NewSpeechClient(cfg.Speech.FunctionURL, cfg.Speech.APIKey, zapLogger)
	}

	// 初始化服务
	memoryService := service.NewMemoryService(redisClient, zapLogger)
	monitorService := service.NewMonitorService(cfg.Monitor, zapLogger)
	fallbackService := service.NewFallbackService()
	dispatchService := service.NewDispatchService(
		aiClient,
		speechClient,
		memoryService,
		monitorService,
		fallbackService,
		cfg.Dispatch,
		cfg.Speech.VoiceID,
		zapLogger,
	)

	// 启动端点监控（随服务生命周期停止）
	monitorService.Start()
	defer monitorService.Stop()

	// 初始化处理器
	chatHandler := handler.NewChatHandler(
		dispatchService,
		memoryService,
		monitorService,
		speechClient,
		cfg.Speech.VoiceID,
		zapLogger,
	)
	wsHandler := handler.NewWebSocketHandler(dispatchService, zapLogger)

	// 初始化路由
	r := gin.Default()
	r.Use(middleware.CORS())

	r.POST("/api/eliza/chat", chatHandler.Chat)
	r.GET("/api/eliza/status", chatHandler.Status)
	r.GET("/api/eliza/memory", chatHandler.GetMemory)
	r.DELETE("/api/eliza/memory", chatHandler.ClearMemory)
	r.POST("/api/eliza/speech", chatHandler.Speech)
	r.GET("/ws", wsHandler.HandleWebSocket)

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":      "UP",
			"service":     cfg.Server.Name,
			"connections": wsHandler.OnlineCount(),
		})
	})

	// 启动服务
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		zapLogger.Info("eliza 服务启动成功", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号，停止监控后优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("eliza 服务关闭中...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("服务关闭失败", zap.Error(err))
	}
}
