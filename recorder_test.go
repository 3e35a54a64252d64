package raffle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAward(round int, label string, amount int64) Award {
	value := decimal.NewFromInt(amount)
	return Award{
		Round:   round,
		Entrant: Entrant{ID: round - 1, Label: label, Consumed: true, AwardedAmount: &value},
		Prize:   Prize{ID: round - 1, Amount: value, Rule: RuleAny, Consumed: true, WinnerID: round - 1, Winner: label},
	}
}

func newTestRecorder(t *testing.T) (*RedisRecorder, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	recorder, err := NewRedisRecorderFromConfig(db, &RecorderConfig{
		Enabled:       true,
		TTL:           time.Hour,
		RetryAttempts: 2,
		RetryInterval: time.Millisecond,
	}, NewSilentLogger())
	require.NoError(t, err)
	return recorder, mock
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestRedisRecorder_RecordAward(t *testing.T) {
	ctx := context.Background()
	recorder, mock := newTestRecorder(t)

	award := testAward(1, "Ana", 500)
	key := AwardsKey("s1")
	assert.Equal(t, "raffle:draw:s1:awards", key)

	mock.ExpectRPush(key, mustJSON(t, award)).SetVal(1)
	mock.ExpectExpire(key, time.Hour).SetVal(true)

	require.NoError(t, recorder.RecordAward(ctx, "s1", award))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRecorder_RetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	recorder, mock := newTestRecorder(t)

	award := testAward(2, "Ben", 1000)
	key := AwardsKey("s1")
	payload := mustJSON(t, award)

	mock.ExpectRPush(key, payload).SetErr(errors.New("dial tcp 127.0.0.1:6379: connection refused"))
	mock.ExpectRPush(key, payload).SetVal(1)
	mock.ExpectExpire(key, time.Hour).SetVal(true)

	require.NoError(t, recorder.RecordAward(ctx, "s1", award))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRecorder_GivesUp(t *testing.T) {
	ctx := context.Background()

	t.Run("non-retryable error", func(t *testing.T) {
		recorder, mock := newTestRecorder(t)
		award := testAward(1, "Ana", 500)

		mock.ExpectRPush(AwardsKey("s1"), mustJSON(t, award)).
			SetErr(errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"))

		err := recorder.RecordAward(ctx, "s1", award)
		require.ErrorIs(t, err, ErrRecorderFailure)
		assert.True(t, IsRetryableError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries exhausted", func(t *testing.T) {
		recorder, mock := newTestRecorder(t)
		award := testAward(1, "Ana", 500)
		payload := mustJSON(t, award)

		// 1 次初始调用 + 2 次重试
		for i := 0; i < 3; i++ {
			mock.ExpectRPush(AwardsKey("s1"), payload).SetErr(errors.New("i/o timeout"))
		}

		err := recorder.RecordAward(ctx, "s1", award)
		require.ErrorIs(t, err, ErrRecorderFailure)
		assert.Contains(t, err.Error(), "session=s1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty session id", func(t *testing.T) {
		recorder, mock := newTestRecorder(t)
		assert.ErrorIs(t, recorder.RecordAward(ctx, "", testAward(1, "Ana", 500)), ErrInvalidParameters)
		assert.ErrorIs(t, recorder.RecordComplete(ctx, "", nil), ErrInvalidParameters)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisRecorder_RecordComplete(t *testing.T) {
	ctx := context.Background()
	recorder, mock := newTestRecorder(t)

	awards := []Award{testAward(1, "Ana", 500), testAward(2, "Ben", 2000)}
	summary := newDrawSummary("s1", awards)
	assert.Equal(t, 2, summary.Rounds)
	assert.True(t, decimal.NewFromInt(2500).Equal(summary.Total))

	mock.ExpectSet(SummaryKey("s1"), mustJSON(t, summary), time.Hour).SetVal("OK")

	require.NoError(t, recorder.RecordComplete(ctx, "s1", awards))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRecorder_LoadAwards(t *testing.T) {
	ctx := context.Background()
	recorder, mock := newTestRecorder(t)

	stored := []Award{testAward(1, "Ana", 500), testAward(2, "Ben", 2000)}
	mock.ExpectLRange(AwardsKey("s1"), 0, -1).SetVal([]string{mustJSON(t, stored[0]), mustJSON(t, stored[1])})

	awards, err := recorder.LoadAwards(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, awards, 2)
	for i, award := range awards {
		assert.Equal(t, stored[i].Round, award.Round)
		assert.Equal(t, stored[i].Entrant.Label, award.Entrant.Label)
		assert.Equal(t, stored[i].Prize.Rule, award.Prize.Rule)
		assert.True(t, stored[i].Prize.Amount.Equal(award.Prize.Amount))
	}

	mock.ExpectLRange(AwardsKey("broken"), 0, -1).SetVal([]string{"{not json"})
	_, err = recorder.LoadAwards(ctx, "broken")
	assert.ErrorIs(t, err, ErrSerializationFailed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisRecorderFromConfig(t *testing.T) {
	db, _ := redismock.NewClientMock()

	_, err := NewRedisRecorderFromConfig(db, &RecorderConfig{TTL: time.Hour, RetryAttempts: MaxRetryAttempts + 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidRetryAttempts)

	_, err = NewRedisRecorderFromConfig(db, &RecorderConfig{TTL: time.Hour, RetryInterval: -time.Second}, nil)
	assert.ErrorIs(t, err, ErrInvalidRetryInterval)

	recorder, err := NewRedisRecorderFromConfig(db, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRecordTTL, recorder.ttl)
	assert.Equal(t, DefaultRetryAttempts, recorder.retryAttempts)
}

func TestRedisRecorder_FailuresDoNotStopDraw(t *testing.T) {
	// 没有设置任何期望, 每条命令都会失败
	db, mock := redismock.NewClientMock()
	recorder := NewRedisRecorder(db, NewSilentLogger())
	engine := newTestEngine(t, newScriptedGenerator(), WithRecorder(recorder))

	names := namesOf(2)
	session, err := engine.Start(context.Background(), names, mustValidate(t, names, DefaultPrizeTemplate(2)))
	require.NoError(t, err)

	outcomes := playAll(t, session)
	require.Len(t, outcomes, 2)
	assert.Len(t, session.Results(), 2)
	assert.Equal(t, StateComplete, session.State())

	// 两次 RecordAward 加一次 RecordComplete
	assert.Equal(t, int64(3), engine.GetDrawMetrics().RecorderErrors)
	assert.NoError(t, mock.ExpectationsWereMet())
}
