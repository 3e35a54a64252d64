package raffle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedGenerator 按顺序返回预设值, 用完后返回 min
type scriptedGenerator struct {
	mu     sync.Mutex
	values []int
	calls  int
}

func newScriptedGenerator(values ...int) *scriptedGenerator {
	return &scriptedGenerator{values: values}
}

func (g *scriptedGenerator) GenerateInRange(min, max int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if len(g.values) == 0 {
		return min, nil
	}
	v := g.values[0]
	g.values = g.values[1:]
	if v < min || v > max {
		return 0, errors.New("scripted value out of range")
	}
	return v, nil
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls
}

// failingGenerator fails the test if it is ever used
type failingGenerator struct {
	t *testing.T
}

func (g *failingGenerator) GenerateInRange(min, max int) (int, error) {
	g.t.Helper()
	g.t.Fatalf("random generator called with [%d, %d]", min, max)
	return 0, nil
}

// errGenerator always returns err
type errGenerator struct {
	err error
}

func (g *errGenerator) GenerateInRange(int, int) (int, error) { return 0, g.err }

// memoryRecorder keeps everything it is asked to record
type memoryRecorder struct {
	mu        sync.Mutex
	awards    []Award
	completed map[string][]Award
	err       error
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{completed: make(map[string][]Award)}
}

func (r *memoryRecorder) RecordAward(_ context.Context, _ string, award Award) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.awards = append(r.awards, award)
	return nil
}

func (r *memoryRecorder) RecordComplete(_ context.Context, sessionID string, awards []Award) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.completed[sessionID] = awards
	return nil
}

// instantTiming has no intermediate highlights, so Animate never draws random numbers
var instantTiming = AnimationTiming{
	Duration:    0,
	Hold:        0,
	MinInterval: time.Millisecond,
	MaxInterval: time.Millisecond,
}

func newTestEngine(t *testing.T, generator RandomGenerator, opts ...Option) *DrawEngine {
	t.Helper()

	opts = append([]Option{WithRandomGenerator(generator)}, opts...)
	engine := NewDrawEngineWithLogger(NewSilentLogger(), opts...)

	config := DefaultConfig()
	config.Animation.Name = instantTiming
	config.Animation.Prize = instantTiming
	require.NoError(t, engine.UpdateConfig(config))

	return engine
}

func mustValidate(t *testing.T, names []string, rows []RawPrize) *PrizePool {
	t.Helper()

	pool, err := Validate(names, rows)
	require.NoError(t, err)
	return pool
}

func namesOf(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	return names
}

// playAll drives a session to completion and returns every outcome
func playAll(t *testing.T, session *Session) []*RoundOutcome {
	t.Helper()

	ctx := context.Background()
	var outcomes []*RoundOutcome
	for {
		outcome, err := session.RequestNextRound(ctx)
		require.NoError(t, err)
		outcomes = append(outcomes, outcome)

		ack, err := session.Acknowledge(ctx)
		require.NoError(t, err)
		if ack.Complete {
			return outcomes
		}
	}
}
