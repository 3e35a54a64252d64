package raffle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// Recorder archives applied awards outside the session.
//
// A recorder never takes part in the draw: failures are logged and counted by
// the session and an applied award is never rolled back.
type Recorder interface {
	RecordAward(ctx context.Context, sessionID string, award Award) error
	RecordComplete(ctx context.Context, sessionID string, awards []Award) error
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RecordAward(context.Context, string, Award) error      { return nil }
func (NopRecorder) RecordComplete(context.Context, string, []Award) error { return nil }

// DrawSummary is the completion record stored for a session
type DrawSummary struct {
	SessionID string          `json:"session_id"`
	Rounds    int             `json:"rounds"`
	Total     decimal.Decimal `json:"total"`
	Awards    []Award         `json:"awards"`
}

// RedisRecorder appends awards to a Redis list and stores a summary once the
// draw completes. Keys expire after ttl.
type RedisRecorder struct {
	redisClient    *redis.Client
	logger         Logger
	ttl            time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration
}

// NewRedisRecorder creates a recorder with the default TTL and retry settings
func NewRedisRecorder(redisClient *redis.Client, logger Logger) *RedisRecorder {
	if logger == nil {
		logger = &DefaultLogger{}
	}
	return &RedisRecorder{
		redisClient:    redisClient,
		logger:         logger,
		ttl:            DefaultRecordTTL,
		retryAttempts:  DefaultRetryAttempts,
		retryBaseDelay: DefaultRetryInterval,
	}
}

// NewRedisRecorderFromConfig creates a recorder using RecorderConfig settings
func NewRedisRecorderFromConfig(redisClient *redis.Client, config *RecorderConfig, logger Logger) (*RedisRecorder, error) {
	r := NewRedisRecorder(redisClient, logger)
	if config == nil {
		return r, nil
	}
	if config.RetryAttempts < 0 || config.RetryAttempts > MaxRetryAttempts {
		return nil, ErrInvalidRetryAttempts
	}
	if config.RetryInterval < 0 {
		return nil, ErrInvalidRetryInterval
	}
	if config.TTL > 0 {
		r.ttl = config.TTL
	}
	r.retryAttempts = config.RetryAttempts
	r.retryBaseDelay = config.RetryInterval
	return r, nil
}

// AwardsKey returns the list key holding a session's awards
func AwardsKey(sessionID string) string {
	return RecorderKeyPrefix + sessionID + ":awards"
}

// SummaryKey returns the key holding a session's completion summary
func SummaryKey(sessionID string) string {
	return RecorderKeyPrefix + sessionID + ":summary"
}

// RecordAward appends the award to the session's list and refreshes its TTL
func (r *RedisRecorder) RecordAward(ctx context.Context, sessionID string, award Award) error {
	if sessionID == "" {
		return ErrInvalidParameters.WithDetails("empty session id")
	}

	data, err := json.Marshal(award)
	if err != nil {
		return ErrSerializationFailed.WithCause(err).WithOperation("RecordAward")
	}

	key := AwardsKey(sessionID)
	err = r.executeWithRetry(ctx, fmt.Sprintf("record[%s#%d]", key, award.Round), func() error {
		if err := r.redisClient.RPush(ctx, key, string(data)).Err(); err != nil {
			return err
		}
		return r.redisClient.Expire(ctx, key, r.ttl).Err()
	})
	if err != nil {
		return ErrRecorderFailure.WithCause(err).WithOperation("RecordAward").
			WithDetails(fmt.Sprintf("session=%s round=%d", sessionID, award.Round))
	}

	r.logger.Debug("Recorded award: session=%s, round=%d, entrant=%q, amount=%s",
		sessionID, award.Round, award.Entrant.Label, award.Prize.Amount)
	return nil
}

// RecordComplete stores the summary of a completed session
func (r *RedisRecorder) RecordComplete(ctx context.Context, sessionID string, awards []Award) error {
	if sessionID == "" {
		return ErrInvalidParameters.WithDetails("empty session id")
	}

	data, err := json.Marshal(newDrawSummary(sessionID, awards))
	if err != nil {
		return ErrSerializationFailed.WithCause(err).WithOperation("RecordComplete")
	}

	key := SummaryKey(sessionID)
	err = r.executeWithRetry(ctx, fmt.Sprintf("summary[%s]", key), func() error {
		return r.redisClient.Set(ctx, key, string(data), r.ttl).Err()
	})
	if err != nil {
		return ErrRecorderFailure.WithCause(err).WithOperation("RecordComplete").
			WithDetails(fmt.Sprintf("session=%s", sessionID))
	}

	r.logger.Info("Recorded draw summary: session=%s, rounds=%d, size=%d bytes", sessionID, len(awards), len(data))
	return nil
}

// LoadAwards reads back the archived awards of a session in round order
func (r *RedisRecorder) LoadAwards(ctx context.Context, sessionID string) ([]Award, error) {
	var raw []string
	err := r.executeWithRetry(ctx, fmt.Sprintf("load[%s]", sessionID), func() error {
		var err error
		raw, err = r.redisClient.LRange(ctx, AwardsKey(sessionID), 0, -1).Result()
		return err
	})
	if err != nil {
		return nil, ErrRecorderFailure.WithCause(err).WithOperation("LoadAwards")
	}

	awards := make([]Award, 0, len(raw))
	for _, item := range raw {
		var award Award
		if err := json.Unmarshal([]byte(item), &award); err != nil {
			return nil, ErrSerializationFailed.WithCause(err).WithOperation("LoadAwards")
		}
		awards = append(awards, award)
	}
	return awards, nil
}

func newDrawSummary(sessionID string, awards []Award) *DrawSummary {
	total := decimal.Zero
	for _, award := range awards {
		total = total.Add(award.Prize.Amount)
	}
	return &DrawSummary{
		SessionID: sessionID,
		Rounds:    len(awards),
		Total:     total,
		Awards:    awards,
	}
}

// executeWithRetry runs a Redis operation with exponential backoff
func (r *RedisRecorder) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	startTime := time.Now()

	for attempt := 0; attempt <= r.retryAttempts; attempt++ {
		if attempt > 0 {
			// baseDelay * 2^(attempt-1)
			delay := time.Duration(1<<(attempt-1)) * r.retryBaseDelay
			if delay > MaxRetryDelay {
				delay = MaxRetryDelay
			}

			r.logger.Debug("Retrying %s (attempt %d/%d) after %v, total elapsed: %v",
				operation, attempt, r.retryAttempts, delay, time.Since(startTime))

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry for %s after %v: %w",
					operation, time.Since(startTime), ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("Completed %s after %d retries (total time: %v)", operation, attempt, time.Since(startTime))
			}
			return nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			r.logger.Debug("Non-retryable error for %s (attempt %d): %v", operation, attempt+1, err)
			break
		}
		r.logger.Debug("Retryable error for %s (attempt %d/%d): %v", operation, attempt+1, r.retryAttempts+1, err)
	}

	return fmt.Errorf("%s failed after %v: %w", operation, time.Since(startTime), lastErr)
}
