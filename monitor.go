package raffle

import (
	"sync"
	"sync/atomic"
	"time"
)

// DrawMetrics 抽奖指标
type DrawMetrics struct {
	// 会话统计
	SessionsStarted   int64 `json:"sessions_started"`   // 开局次数
	SessionsCompleted int64 `json:"sessions_completed"` // 完成次数
	SessionsFaulted   int64 `json:"sessions_faulted"`   // 一致性故障次数

	// 轮次统计
	Rounds         int64 `json:"rounds"`           // 已完成轮次
	TotalRoundTime int64 `json:"total_round_time"` // 轮次总耗时(纳秒)

	// 奖品选择方式
	FinalPicks    int64 `json:"final_picks"`    // 终局强制
	LatePicks     int64 `json:"late_picks"`     // 倒数第k轮强制
	LastAnyPicks  int64 `json:"last_any_picks"` // 最后一个普通奖强制
	AnimatedPicks int64 `json:"animated_picks"` // 随机选择

	// 记录器统计
	RecorderErrors int64 `json:"recorder_errors"` // 记录失败次数

	// 时间戳
	StartTime      int64 `json:"start_time"`
	LastUpdateTime int64 `json:"last_update_time"`
}

// GetCompletionRate 获取完成率
func (m *DrawMetrics) GetCompletionRate() float64 {
	started := atomic.LoadInt64(&m.SessionsStarted)
	if started == 0 {
		return 0.0
	}
	completed := atomic.LoadInt64(&m.SessionsCompleted)
	return float64(completed) / float64(started) * 100.0
}

// GetAverageRoundTime 获取平均轮次耗时
func (m *DrawMetrics) GetAverageRoundTime() time.Duration {
	rounds := atomic.LoadInt64(&m.Rounds)
	if rounds == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.TotalRoundTime) / rounds)
}

// ForcedPicks returns the number of prizes chosen without a random pick
func (m *DrawMetrics) ForcedPicks() int64 {
	return atomic.LoadInt64(&m.FinalPicks) + atomic.LoadInt64(&m.LatePicks) + atomic.LoadInt64(&m.LastAnyPicks)
}

// Reset 重置指标
func (m *DrawMetrics) Reset() {
	atomic.StoreInt64(&m.SessionsStarted, 0)
	atomic.StoreInt64(&m.SessionsCompleted, 0)
	atomic.StoreInt64(&m.SessionsFaulted, 0)
	atomic.StoreInt64(&m.Rounds, 0)
	atomic.StoreInt64(&m.TotalRoundTime, 0)
	atomic.StoreInt64(&m.FinalPicks, 0)
	atomic.StoreInt64(&m.LatePicks, 0)
	atomic.StoreInt64(&m.LastAnyPicks, 0)
	atomic.StoreInt64(&m.AnimatedPicks, 0)
	atomic.StoreInt64(&m.RecorderErrors, 0)
	atomic.StoreInt64(&m.StartTime, time.Now().UnixNano())
	atomic.StoreInt64(&m.LastUpdateTime, time.Now().UnixNano())
}

// ================================================================================

// DrawMonitor 抽奖监控器
type DrawMonitor struct {
	metrics *DrawMetrics
	mu      sync.RWMutex
	enabled bool
}

// NewDrawMonitor 创建新的监控器
func NewDrawMonitor() *DrawMonitor {
	dm := &DrawMonitor{
		metrics: &DrawMetrics{},
		enabled: true,
	}
	dm.metrics.Reset()
	return dm
}

// Enable 启用监控
func (dm *DrawMonitor) Enable() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.enabled = true
}

// Disable 禁用监控
func (dm *DrawMonitor) Disable() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.enabled = false
}

// IsEnabled 检查是否启用了监控
func (dm *DrawMonitor) IsEnabled() bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	return dm.enabled
}

func (dm *DrawMonitor) add(counter *int64) {
	if !dm.IsEnabled() {
		return
	}
	atomic.AddInt64(counter, 1)
	atomic.StoreInt64(&dm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordSessionStart 记录开局
func (dm *DrawMonitor) RecordSessionStart() { dm.add(&dm.metrics.SessionsStarted) }

// RecordSessionComplete 记录完成
func (dm *DrawMonitor) RecordSessionComplete() { dm.add(&dm.metrics.SessionsCompleted) }

// RecordFault 记录一致性故障
func (dm *DrawMonitor) RecordFault() { dm.add(&dm.metrics.SessionsFaulted) }

// RecordRecorderError 记录结果记录失败
func (dm *DrawMonitor) RecordRecorderError() { dm.add(&dm.metrics.RecorderErrors) }

// RecordRound 记录一轮抽奖及其奖品选择方式
func (dm *DrawMonitor) RecordRound(path FastPath, duration time.Duration) {
	if !dm.IsEnabled() {
		return
	}

	atomic.AddInt64(&dm.metrics.Rounds, 1)
	atomic.AddInt64(&dm.metrics.TotalRoundTime, int64(duration))

	switch path {
	case FastPathFinal:
		atomic.AddInt64(&dm.metrics.FinalPicks, 1)
	case FastPathLate:
		atomic.AddInt64(&dm.metrics.LatePicks, 1)
	case FastPathLastAny:
		atomic.AddInt64(&dm.metrics.LastAnyPicks, 1)
	default:
		atomic.AddInt64(&dm.metrics.AnimatedPicks, 1)
	}

	atomic.StoreInt64(&dm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// GetMetrics 获取指标副本
func (dm *DrawMonitor) GetMetrics() DrawMetrics {
	return DrawMetrics{
		SessionsStarted:   atomic.LoadInt64(&dm.metrics.SessionsStarted),
		SessionsCompleted: atomic.LoadInt64(&dm.metrics.SessionsCompleted),
		SessionsFaulted:   atomic.LoadInt64(&dm.metrics.SessionsFaulted),
		Rounds:            atomic.LoadInt64(&dm.metrics.Rounds),
		TotalRoundTime:    atomic.LoadInt64(&dm.metrics.TotalRoundTime),
		FinalPicks:        atomic.LoadInt64(&dm.metrics.FinalPicks),
		LatePicks:         atomic.LoadInt64(&dm.metrics.LatePicks),
		LastAnyPicks:      atomic.LoadInt64(&dm.metrics.LastAnyPicks),
		AnimatedPicks:     atomic.LoadInt64(&dm.metrics.AnimatedPicks),
		RecorderErrors:    atomic.LoadInt64(&dm.metrics.RecorderErrors),
		StartTime:         atomic.LoadInt64(&dm.metrics.StartTime),
		LastUpdateTime:    atomic.LoadInt64(&dm.metrics.LastUpdateTime),
	}
}

// ResetMetrics 重置指标
func (dm *DrawMonitor) ResetMetrics() { dm.metrics.Reset() }
