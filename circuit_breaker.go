package raffle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerRecorder 带熔断器的结果记录器
type CircuitBreakerRecorder struct {
	recorder Recorder

	mu      sync.RWMutex
	breaker *gobreaker.CircuitBreaker
	logger  Logger
	config  *CircuitBreakerConfig
}

// NewCircuitBreakerRecorder 创建带熔断器的结果记录器
func NewCircuitBreakerRecorder(recorder Recorder, config *CircuitBreakerConfig, logger Logger) *CircuitBreakerRecorder {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if logger == nil {
		logger = &DefaultLogger{}
	}

	c := &CircuitBreakerRecorder{
		recorder: recorder,
		logger:   logger,
		config:   config,
	}
	if config.Enabled {
		// 未启用时透传
		c.breaker = c.newBreaker()
	}
	return c
}

func (c *CircuitBreakerRecorder) newBreaker() *gobreaker.CircuitBreaker {
	config := c.config
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 请求数达到最小要求且失败率超过阈值时熔断
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange {
				c.logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
	})
}

func (c *CircuitBreakerRecorder) currentBreaker() *gobreaker.CircuitBreaker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.breaker
}

// executeWithBreaker 使用熔断器执行操作
func (c *CircuitBreakerRecorder) executeWithBreaker(operation func() error) error {
	breaker := c.currentBreaker()
	if breaker == nil {
		return operation()
	}

	_, err := breaker.Execute(func() (any, error) {
		return nil, operation()
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return ErrCircuitBreakerOpen.WithDetails("circuit breaker is open, records are being rejected")
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrCircuitBreakerOpen.WithDetails("too many requests, circuit breaker is half-open")
	}
	return err
}

// RecordAward 记录一次中奖
func (c *CircuitBreakerRecorder) RecordAward(ctx context.Context, sessionID string, award Award) error {
	return c.executeWithBreaker(func() error {
		return c.recorder.RecordAward(ctx, sessionID, award)
	})
}

// RecordComplete 记录抽奖汇总
func (c *CircuitBreakerRecorder) RecordComplete(ctx context.Context, sessionID string, awards []Award) error {
	return c.executeWithBreaker(func() error {
		return c.recorder.RecordComplete(ctx, sessionID, awards)
	})
}

// GetCircuitBreakerState 获取熔断器状态
func (c *CircuitBreakerRecorder) GetCircuitBreakerState() string {
	breaker := c.currentBreaker()
	if breaker == nil {
		return "disabled"
	}

	switch breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// GetCircuitBreakerCounts 获取熔断器统计信息
func (c *CircuitBreakerRecorder) GetCircuitBreakerCounts() gobreaker.Counts {
	breaker := c.currentBreaker()
	if breaker == nil {
		return gobreaker.Counts{}
	}

	return breaker.Counts()
}

// ResetCircuitBreaker 重置熔断器. gobreaker has no Reset, so the breaker is recreated.
func (c *CircuitBreakerRecorder) ResetCircuitBreaker() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.breaker == nil {
		return
	}
	c.breaker = c.newBreaker()
	c.logger.Info("Circuit breaker '%s' has been reset (recreated)", c.config.Name)
}

// Check 执行健康检查
func (c *CircuitBreakerRecorder) Check() map[string]any {
	result := map[string]any{
		"circuit_breaker_enabled": c.config.Enabled,
		"timestamp":               time.Now().Unix(),
	}

	if c.currentBreaker() == nil {
		result["state"] = "disabled"
		result["healthy"] = true
		return result
	}

	state := c.GetCircuitBreakerState()
	counts := c.GetCircuitBreakerCounts()

	result["state"] = state
	result["requests"] = counts.Requests
	result["total_successes"] = counts.TotalSuccesses
	result["total_failures"] = counts.TotalFailures
	result["consecutive_failures"] = counts.ConsecutiveFailures

	if counts.Requests > 0 {
		result["failure_rate"] = float64(counts.TotalFailures) / float64(counts.Requests)
	} else {
		result["failure_rate"] = 0.0
	}

	healthy := true
	switch state {
	case "open":
		healthy = false
	case "half-open":
		// 半开状态下连续失败过多视为不健康
		if counts.ConsecutiveFailures > 2 {
			healthy = false
		}
	}
	result["healthy"] = healthy

	return result
}
