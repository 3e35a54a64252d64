package raffle

import "time"

const (
	// MinNames is the smallest number of names a draw can start with
	MinNames = 2

	// MaxLateOffset is the largest k accepted for a Late(k) prize
	MaxLateOffset = 5

	// NoWinner marks a prize or name that has not been awarded yet
	NoWinner = -1
)

const (
	// DefaultNameDuration is how long the name highlight animation runs
	DefaultNameDuration = 5 * time.Second

	// DefaultNameHold is the pause after the name animation lands
	DefaultNameHold = 3 * time.Second

	// DefaultPrizeDuration is how long the prize highlight animation runs
	DefaultPrizeDuration = 5 * time.Second

	// DefaultPrizeHold is the pause after the prize animation lands
	DefaultPrizeHold = 0

	// DefaultMinInterval is the first (fastest) highlight interval
	DefaultMinInterval = 28 * time.Millisecond

	// DefaultMaxInterval is the last (slowest) highlight interval
	DefaultMaxInterval = 300 * time.Millisecond

	// MaxAnimationDuration bounds configured animation durations
	MaxAnimationDuration = 1 * time.Minute
)

const (
	// DefaultAnyAmount is the amount used for Any rows in the default template
	DefaultAnyAmount = 500

	// DefaultLateAmount is the amount used for the Late(1) row in the default template
	DefaultLateAmount = 1000

	// DefaultFinalAmount is the amount used for the Final row in the default template
	DefaultFinalAmount = 2000
)

const (
	// RecorderKeyPrefix is the prefix for Redis keys written by RedisRecorder
	RecorderKeyPrefix = "raffle:draw:"

	// DefaultRecordTTL is how long recorded draws are kept in Redis
	DefaultRecordTTL = 24 * time.Hour

	// DefaultRetryAttempts is the default number of recorder retry attempts
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the base interval between recorder retries
	DefaultRetryInterval = 100 * time.Millisecond

	// MaxRetryAttempts is the maximum number of retry attempts allowed
	MaxRetryAttempts = 10

	// MaxRetryDelay caps the exponential backoff between recorder retries
	MaxRetryDelay = 5 * time.Second
)

const (
	// DefaultCircuitBreakerName is the default name for the recorder circuit breaker
	DefaultCircuitBreakerName = "raffle-recorder"

	// DefaultCircuitBreakerMaxRequests is the default max requests in half-open state
	DefaultCircuitBreakerMaxRequests = 3

	// DefaultCircuitBreakerInterval is the default interval for clearing counts
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default open-state timeout
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests before tripping
	DefaultCircuitBreakerMinRequests = 3

	// DefaultCircuitBreakerOnStateChange is the default on state change logging
	DefaultCircuitBreakerOnStateChange = true
)

const (
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 2
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second
)
