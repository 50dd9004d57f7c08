package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/xmrtdao/eliza-go/internal/config"
	"github.com/xmrtdao/eliza-go/internal/model"
	"go.uber.org/zap"
)

// MonitorService 端点监控服务。
// 端点状态仅由本服务写入，其他组件通过 Snapshot 读取副本。
type MonitorService struct {
	endpoints  []model.EndpointRecord
	mu         sync.RWMutex
	httpClient *http.Client
	interval   time.Duration
	timeout    time.Duration
	logger     *zap.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	startTime time.Time
}

// NewMonitorService 创建端点监控服务
func NewMonitorService(cfg config.MonitorConfig, logger *zap.Logger) *MonitorService {
	endpoints := make([]model.EndpointRecord, len(cfg.Endpoints))
	for i, ep := range cfg.Endpoints {
		endpoints[i] = model.EndpointRecord{
			Name:   ep.Name,
			URL:    ep.URL,
			Status: model.StatusOffline,
		}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	return &MonitorService{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: timeout},
		interval:   time.Duration(cfg.IntervalSeconds) * time.Second,
		timeout:    timeout,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Start 启动监控：先立即执行一轮检查，之后按固定间隔轮询。
// 通过 Stop 取消，不会泄漏定时器。
func (s *MonitorService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.CheckAll(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CheckAll(ctx)
			}
		}
	}()

	s.logger.Info("端点监控已启动",
		zap.Int("endpoints", len(s.endpoints)),
		zap.Duration("interval", s.interval))
}

// Stop 停止监控并等待轮询协程退出
func (s *MonitorService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("端点监控已停止")
}

// CheckAll 并发检查所有端点，全部完成（无论成败）后返回。
// 单个端点的失败不影响其他端点的结果。
func (s *MonitorService) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for i := range s.endpoints {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			s.checkEndpoint(ctx, idx)
		}(i)
	}
	wg.Wait()
}

// checkEndpoint 检查单个端点并原地更新其记录
func (s *MonitorService) checkEndpoint(ctx context.Context, idx int) {
	s.mu.RLock()
	name := s.endpoints[idx].Name
	url := s.endpoints[idx].URL
	s.mu.RUnlock()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	status, payload := s.probe(reqCtx, url)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.endpoints[idx].Status = status
	s.endpoints[idx].LastChecked = time.Now()
	s.endpoints[idx].ResponseTimeMs = elapsed.Milliseconds()
	s.endpoints[idx].LastPayload = payload
	s.mu.Unlock()

	s.logger.Debug("端点检查完成",
		zap.String("name", name),
		zap.String("status", status),
		zap.Int64("responseTimeMs", elapsed.Milliseconds()))
}

// probe 发起一次 GET 检查：2xx 为 online，其他 HTTP 响应为 degraded，
// 网络/超时错误为 offline。响应体尽力解析为 JSON，否则记录错误标记。
func (s *MonitorService) probe(ctx context.Context, url string) (string, json.RawMessage) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.StatusOffline, errorMarker(err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.StatusOffline, errorMarker(err)
	}
	defer resp.Body.Close()

	status := model.StatusDegraded
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		status = model.StatusOnline
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return status, errorMarker(err)
	}
	return status, body
}

func errorMarker(err error) json.RawMessage {
	marker, _ := json.Marshal(map[string]string{"error": err.Error()})
	return marker
}

// Snapshot 返回当前端点记录的副本
func (s *MonitorService) Snapshot() []model.EndpointRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]model.EndpointRecord, len(s.endpoints))
	copy(snapshot, s.endpoints)
	return snapshot
}

// OnlineCount 当前在线端点数
func (s *MonitorService) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, ep := range s.endpoints {
		if ep.Status == model.StatusOnline {
			count++
		}
	}
	return count
}

// Metrics 根据当前快照派生生态指标
func (s *MonitorService) Metrics() *model.EcosystemMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.endpoints)
	online := 0
	var totalMs int64
	for _, ep := range s.endpoints {
		if ep.Status == model.StatusOnline {
			online++
		}
		totalMs += ep.ResponseTimeMs
	}

	metrics := &model.EcosystemMetrics{
		OnlineEndpoints: online,
		TotalEndpoints:  total,
	}
	if total > 0 {
		metrics.HealthScore = float64(online) / float64(total)
		metrics.AvgResponseTimeMs = totalMs / int64(total)
	}
	return metrics
}

// Uptime 监控服务运行时长
func (s *MonitorService) Uptime() time.Duration {
	return time.Since(s.startTime)
}
