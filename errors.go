package raffle

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 错误代码常量
const (
	// 奖池校验错误 (1000-1999)
	ErrCodeInvalidAmount        ErrorCode = "RAFFLE_1000"
	ErrCodeMissingFinal         ErrorCode = "RAFFLE_1001"
	ErrCodeDuplicateFinal       ErrorCode = "RAFFLE_1002"
	ErrCodeDuplicateLate        ErrorCode = "RAFFLE_1003"
	ErrCodeCountMismatch        ErrorCode = "RAFFLE_1004"
	ErrCodeUnreachableLateRound ErrorCode = "RAFFLE_1005"
	ErrCodeInvalidRule          ErrorCode = "RAFFLE_1006"

	// 开局错误 (2000-2999)
	ErrCodeInsufficientNames ErrorCode = "RAFFLE_2000"
	ErrCodeInvalidParameters ErrorCode = "RAFFLE_2001"

	// 一致性故障 (3000-3999)
	ErrCodeAlreadyAwarded       ErrorCode = "RAFFLE_3000"
	ErrCodeOutOfSequence        ErrorCode = "RAFFLE_3001"
	ErrCodeEligibilityExhausted ErrorCode = "RAFFLE_3002"
	ErrCodeEmptyCandidateSet    ErrorCode = "RAFFLE_3003"
	ErrCodeRoundOutOfRange      ErrorCode = "RAFFLE_3004"
	ErrCodeSessionFaulted       ErrorCode = "RAFFLE_3005"

	// 基础设施错误 (4000-4999)
	ErrCodeConfigInvalid        ErrorCode = "RAFFLE_4000"
	ErrCodeRecorderFailure      ErrorCode = "RAFFLE_4001"
	ErrCodeCircuitBreakerOpen   ErrorCode = "RAFFLE_4002"
	ErrCodeSerializationFailed  ErrorCode = "RAFFLE_4003"
	ErrCodeInvalidTiming        ErrorCode = "RAFFLE_4004"
	ErrCodeInvalidRetryAttempts ErrorCode = "RAFFLE_4005"
	ErrCodeInvalidRetryInterval ErrorCode = "RAFFLE_4006"
)

// ErrorSeverity 错误严重程度
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
)

// Metadata keys carried by parameterised validation errors
const (
	metaOffset = "offset"
	metaTotal  = "total"
	metaNames  = "names"
	metaRound  = "round"
)

// RaffleError 增强的错误类型
type RaffleError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Details    string         `json:"details,omitempty"`
	Severity   ErrorSeverity  `json:"severity"`
	Timestamp  time.Time      `json:"timestamp"`
	Operation  string         `json:"operation,omitempty"`
	StackTrace string         `json:"stack_trace,omitempty"`
	Cause      error          `json:"-"`
	Retryable  bool           `json:"retryable"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Error 实现 error 接口
func (e *RaffleError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *RaffleError) Unwrap() error { return e.Cause }

// Is 实现 errors.Is 接口, 按错误代码匹配
func (e *RaffleError) Is(target error) bool {
	if t, ok := target.(*RaffleError); ok {
		return e.Code == t.Code
	}
	return false
}

// clone returns a shallow copy so the predefined errors are never mutated.
func (e *RaffleError) clone() *RaffleError {
	c := *e
	c.Timestamp = time.Now()
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// WithCause 返回带原因错误的副本
func (e *RaffleError) WithCause(cause error) *RaffleError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails 返回带详细信息的副本
func (e *RaffleError) WithDetails(details string) *RaffleError {
	c := e.clone()
	c.Details = details
	return c
}

// WithOperation 返回带操作信息的副本
func (e *RaffleError) WithOperation(operation string) *RaffleError {
	c := e.clone()
	c.Operation = operation
	return c
}

// WithMetadata 返回带元数据的副本
func (e *RaffleError) WithMetadata(key string, value any) *RaffleError {
	c := e.clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
	return c
}

// withStackTrace 添加堆栈跟踪
func (e *RaffleError) withStackTrace() *RaffleError {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	e.StackTrace = string(buf[:n])
	return e
}

func (e *RaffleError) metaInt(key string) int {
	if v, ok := e.Metadata[key].(int); ok {
		return v
	}
	return 0
}

// Offset returns k for DuplicateLate(k) and UnreachableLateRound(k, N).
func (e *RaffleError) Offset() int { return e.metaInt(metaOffset) }

// Total returns the prize count reported by CountMismatch(total, N).
func (e *RaffleError) Total() int { return e.metaInt(metaTotal) }

// Names returns N for CountMismatch and UnreachableLateRound.
func (e *RaffleError) Names() int { return e.metaInt(metaNames) }

// NewError 创建新的错误
func NewError(code ErrorCode, message string) *RaffleError {
	return &RaffleError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
	}
}

// NewRetryableError 创建可重试的错误
func NewRetryableError(code ErrorCode, message string) *RaffleError {
	err := NewError(code, message)
	err.Retryable = true
	return err
}

// NewCriticalError 创建一致性故障. These are never retried.
func NewCriticalError(code ErrorCode, message string) *RaffleError {
	err := NewError(code, message)
	err.Severity = SeverityCritical
	return err
}

// 预定义的错误实例
var (
	// 奖池校验错误
	ErrInvalidAmount        = NewError(ErrCodeInvalidAmount, "all prizes must be positive numbers")
	ErrMissingFinal         = NewError(ErrCodeMissingFinal, "exactly one final prize is required")
	ErrDuplicateFinal       = NewError(ErrCodeDuplicateFinal, "only one final prize is allowed")
	ErrDuplicateLate        = NewError(ErrCodeDuplicateLate, "only one late prize is allowed per round offset")
	ErrCountMismatch        = NewError(ErrCodeCountMismatch, "total prizes must equal number of names")
	ErrUnreachableLateRound = NewError(ErrCodeUnreachableLateRound, "late prize targets a round that does not exist")
	ErrInvalidRule          = NewError(ErrCodeInvalidRule, "unknown prize rule")

	// 开局错误
	ErrInsufficientNames = NewError(ErrCodeInsufficientNames, "at least 2 names are required")
	ErrInvalidParameters = NewError(ErrCodeInvalidParameters, "invalid parameters provided")

	// 一致性故障
	ErrAlreadyAwarded       = NewCriticalError(ErrCodeAlreadyAwarded, "name or prize already awarded")
	ErrOutOfSequence        = NewCriticalError(ErrCodeOutOfSequence, "operation called out of sequence")
	ErrEligibilityExhausted = NewCriticalError(ErrCodeEligibilityExhausted, "no eligible prize left for round")
	ErrEmptyCandidateSet    = NewCriticalError(ErrCodeEmptyCandidateSet, "cannot pick from an empty candidate set")
	ErrRoundOutOfRange      = NewCriticalError(ErrCodeRoundOutOfRange, "round outside 1..N")
	ErrSessionFaulted       = NewCriticalError(ErrCodeSessionFaulted, "draw session aborted after a consistency fault")

	// 基础设施错误
	ErrConfigInvalid        = NewError(ErrCodeConfigInvalid, "configuration is invalid")
	ErrRecorderFailure      = NewRetryableError(ErrCodeRecorderFailure, "failed to record draw")
	ErrCircuitBreakerOpen   = NewRetryableError(ErrCodeCircuitBreakerOpen, "circuit breaker is open")
	ErrSerializationFailed  = NewError(ErrCodeSerializationFailed, "serialization failed")
	ErrInvalidTiming        = NewError(ErrCodeInvalidTiming, "invalid animation timing")
	ErrInvalidRetryAttempts = NewError(ErrCodeInvalidRetryAttempts, "invalid retry attempts: must be between 0 and 10")
	ErrInvalidRetryInterval = NewError(ErrCodeInvalidRetryInterval, "invalid retry interval: cannot be negative")
)

func newDuplicateLateError(k int) *RaffleError {
	return ErrDuplicateLate.
		WithMetadata(metaOffset, k).
		WithDetails(fmt.Sprintf("only one late prize allowed for N-%d", k))
}

func newCountMismatchError(total, n int) *RaffleError {
	return ErrCountMismatch.
		WithMetadata(metaTotal, total).
		WithMetadata(metaNames, n).
		WithDetails(fmt.Sprintf("total prizes (%d) must equal number of names (%d)", total, n))
}

func newUnreachableLateRoundError(k, n int) *RaffleError {
	return ErrUnreachableLateRound.
		WithMetadata(metaOffset, k).
		WithMetadata(metaNames, n).
		WithDetails(fmt.Sprintf("N-%d is not a valid round with only %d names", k, n))
}

// fault builds a consistency fault with a stack trace attached.
func fault(base *RaffleError, operation, details string) *RaffleError {
	return base.WithOperation(operation).WithDetails(details).withStackTrace()
}

// IsConsistencyFault reports whether err is a programming-contract violation
// rather than a user-facing validation or start error.
func IsConsistencyFault(err error) bool {
	var re *RaffleError
	if errors.As(err, &re) {
		return re.Severity == SeverityCritical
	}
	return false
}

// IsValidationError reports whether err was produced by pool validation.
func IsValidationError(err error) bool {
	var re *RaffleError
	if errors.As(err, &re) {
		return strings.HasPrefix(string(re.Code), "RAFFLE_1")
	}
	return false
}

// IsRetryableError 检查是否为可重试错误
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var re *RaffleError
	if errors.As(err, &re) && re.Retryable {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"network is unreachable",
		"temporary failure",
		"server closed",
		"broken pipe",
		"i/o timeout",
		"dial tcp",
		"connection timed out",
		"no route to host",
		"redis: connection pool timeout",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
