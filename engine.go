package raffle

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Presenter shows rounds to the audience. PresentRound blocks until the
// operator acknowledges the round.
type Presenter interface {
	PresentRound(ctx context.Context, outcome *RoundOutcome) error
	PresentComplete(ctx context.Context, awards []Award) error
}

// Option configures a DrawEngine
type Option func(*DrawEngine)

// WithRandomGenerator sets the generator behind name and prize picks
func WithRandomGenerator(generator RandomGenerator) Option {
	return func(e *DrawEngine) { e.selector = NewSelector(generator) }
}

// WithRecorder sets where awards are archived
func WithRecorder(recorder Recorder) Option {
	return func(e *DrawEngine) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

// WithMonitor shares a monitor between engines
func WithMonitor(monitor *DrawMonitor) Option {
	return func(e *DrawEngine) {
		if monitor != nil {
			e.monitor = monitor
		}
	}
}

// DrawEngine validates prize pools and starts draw sessions
type DrawEngine struct {
	config *Config
	logger Logger
	mu     sync.RWMutex // 保护配置和日志的并发访问

	selector *Selector
	recorder Recorder
	monitor  *DrawMonitor
}

func newDrawEngine(config *Config, logger Logger, opts []Option) *DrawEngine {
	e := &DrawEngine{
		config:   config,
		logger:   logger,
		selector: NewSelector(nil),
		recorder: NopRecorder{},
		monitor:  NewDrawMonitor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDrawEngine creates a draw engine with the default configuration
func NewDrawEngine(opts ...Option) *DrawEngine {
	return newDrawEngine(DefaultConfig(), &DefaultLogger{}, opts)
}

// NewDrawEngineWithLogger creates a draw engine with a custom logger
func NewDrawEngineWithLogger(logger Logger, opts ...Option) *DrawEngine {
	if logger == nil {
		logger = &DefaultLogger{}
	}
	return newDrawEngine(DefaultConfig(), logger, opts)
}

// NewDrawEngineWithConfig creates a draw engine from a config manager. When
// the recorder is enabled and no WithRecorder option is given, awards are
// archived to Redis behind a circuit breaker.
func NewDrawEngineWithConfig(cm *ConfigManager, opts ...Option) (*DrawEngine, error) {
	return NewDrawEngineWithConfigAndLogger(cm, &DefaultLogger{}, opts...)
}

// NewDrawEngineWithConfigAndLogger creates a draw engine from a config manager and a custom logger
func NewDrawEngineWithConfigAndLogger(cm *ConfigManager, logger Logger, opts ...Option) (*DrawEngine, error) {
	if cm == nil {
		return nil, ErrInvalidParameters.WithDetails("config manager cannot be nil")
	}
	if logger == nil {
		logger = &DefaultLogger{}
	}

	config := cm.GetConfig()
	if config == nil {
		return nil, ErrConfigInvalid.WithDetails("config manager holds no configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	recorder, err := NewRecorderFromConfig(config, logger)
	if err != nil {
		return nil, err
	}

	return newDrawEngine(config.clone(), logger, append([]Option{WithRecorder(recorder)}, opts...)), nil
}

// NewRecorderFromConfig builds the recorder described by config: NopRecorder
// when disabled, otherwise a RedisRecorder wrapped in a CircuitBreakerRecorder.
func NewRecorderFromConfig(config *Config, logger Logger) (Recorder, error) {
	if config == nil || config.Recorder == nil || !config.Recorder.Enabled {
		return NopRecorder{}, nil
	}

	redisRecorder, err := NewRedisRecorderFromConfig(NewRedisClientFromConfig(config.Redis), config.Recorder, logger)
	if err != nil {
		return nil, err
	}
	return NewCircuitBreakerRecorder(redisRecorder, config.CircuitBreaker, logger), nil
}

// GetConfig returns a copy of the current configuration
func (e *DrawEngine) GetConfig() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.config.clone()
}

// UpdateConfig replaces the configuration at runtime. Running sessions keep
// the animation timing they started with.
func (e *DrawEngine) UpdateConfig(newConfig *Config) error {
	if newConfig == nil {
		e.GetLogger().Error("UpdateConfig failed: nil configuration")
		return ErrInvalidParameters
	}

	if err := newConfig.Validate(); err != nil {
		e.GetLogger().Error("UpdateConfig validation failed: %v", err)
		return err
	}

	e.mu.Lock()
	e.config = newConfig.clone()
	e.mu.Unlock()

	e.GetLogger().Info("Draw engine configuration updated")
	return nil
}

// SetLogger sets a custom logger for the draw engine
func (e *DrawEngine) SetLogger(logger Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if logger != nil {
		e.logger = logger
	}
}

// GetLogger returns the current logger
func (e *DrawEngine) GetLogger() Logger {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.logger
}

// Monitor returns the engine's draw monitor
func (e *DrawEngine) Monitor() *DrawMonitor { return e.monitor }

// GetDrawMetrics returns a snapshot of the draw metrics
func (e *DrawEngine) GetDrawMetrics() DrawMetrics { return e.monitor.GetMetrics() }

// ResetDrawMetrics resets the draw metrics
func (e *DrawEngine) ResetDrawMetrics() { e.monitor.ResetMetrics() }

// EnableMonitoring enables draw monitoring
func (e *DrawEngine) EnableMonitoring() { e.monitor.Enable() }

// DisableMonitoring disables draw monitoring
func (e *DrawEngine) DisableMonitoring() { e.monitor.Disable() }

// Validate checks prize rows against the names and returns the validated pool
func (e *DrawEngine) Validate(names []string, raw []RawPrize) (*PrizePool, error) {
	pool, err := Validate(names, raw)
	if err != nil {
		e.GetLogger().Debug("Prize pool rejected for %d names: %v", len(names), err)
		return nil, err
	}

	e.GetLogger().Debug("Prize pool accepted: %d prizes, total %s", pool.Size(), pool.Total())
	return pool, nil
}

// Start opens a new draw session at round 1
func (e *DrawEngine) Start(ctx context.Context, names []string, pool *PrizePool) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(names) < MinNames {
		return nil, ErrInsufficientNames.WithDetails(fmt.Sprintf("got %d", len(names)))
	}
	if pool == nil {
		return nil, ErrInvalidParameters.WithDetails("prize pool cannot be nil")
	}
	if pool.Size() != len(names) {
		return nil, newCountMismatchError(pool.Size(), len(names))
	}

	config := e.GetConfig()
	session := newSession(uuid.NewString(), names, pool, *config.Animation, e.GetLogger(), e)

	session.begin()
	e.monitor.RecordSessionStart()
	session.logger.Info("Session %s started: %d names, prize total %s", session.ID(), len(names), pool.Total())

	return session, nil
}

// Run plays a whole draw through presenter and returns the awards in round order.
// The session is returned as well so a caller can inspect a partial draw on error.
func (e *DrawEngine) Run(ctx context.Context, names []string, pool *PrizePool, presenter Presenter) (*Session, []Award, error) {
	if presenter == nil {
		return nil, nil, ErrInvalidParameters.WithDetails("presenter cannot be nil")
	}

	session, err := e.Start(ctx, names, pool)
	if err != nil {
		return nil, nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return session, session.Results(), err
		}

		outcome, err := session.RequestNextRound(ctx)
		if err != nil {
			return session, session.Results(), err
		}

		if err := presenter.PresentRound(ctx, outcome); err != nil {
			return session, session.Results(), fmt.Errorf("present round %d: %w", outcome.Round, err)
		}

		ack, err := session.Acknowledge(ctx)
		if err != nil {
			return session, session.Results(), err
		}
		if !ack.Complete {
			continue
		}

		if err := presenter.PresentComplete(ctx, ack.Awards); err != nil {
			return session, ack.Awards, fmt.Errorf("present results: %w", err)
		}
		return session, ack.Awards, nil
	}
}
