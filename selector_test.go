package raffle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_Pick(t *testing.T) {
	t.Run("空候选集", func(t *testing.T) {
		selector := NewSelector(&failingGenerator{t: t})
		_, err := selector.Pick(0)
		assert.ErrorIs(t, err, ErrEmptyCandidateSet)
		assert.True(t, IsConsistencyFault(err))
	})

	t.Run("范围正确性", func(t *testing.T) {
		selector := NewSelector(nil)
		for i := 0; i < 1000; i++ {
			idx, err := selector.Pick(7)
			require.NoError(t, err)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, 7)
		}
	})

	t.Run("单个候选", func(t *testing.T) {
		idx, err := NewSelector(nil).Pick(1)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("生成器错误透传", func(t *testing.T) {
		boom := errors.New("entropy exhausted")
		_, err := NewSelector(&errGenerator{err: boom}).Pick(3)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("分布大致均匀", func(t *testing.T) {
		selector := NewSelector(nil)
		counts := make([]int, 4)
		const draws = 8000
		for i := 0; i < draws; i++ {
			idx, err := selector.Pick(len(counts))
			require.NoError(t, err)
			counts[idx]++
		}
		for i, c := range counts {
			assert.InDelta(t, draws/len(counts), c, draws/10, "index %d", i)
		}
	})
}

func TestSelector_PickAvoiding(t *testing.T) {
	selector := NewSelector(nil)
	for avoid := 0; avoid < 5; avoid++ {
		for i := 0; i < 200; i++ {
			idx, err := selector.pickAvoiding(5, avoid)
			require.NoError(t, err)
			require.NotEqual(t, avoid, idx)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, 5)
		}
	}

	idx, err := selector.pickAvoiding(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestAnimationTiming_Validate(t *testing.T) {
	valid := DefaultAnimationConfig().Name
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*AnimationTiming)
	}{
		{"negative duration", func(a *AnimationTiming) { a.Duration = -time.Second }},
		{"too long", func(a *AnimationTiming) { a.Duration = MaxAnimationDuration + time.Second }},
		{"negative hold", func(a *AnimationTiming) { a.Hold = -time.Second }},
		{"zero min interval", func(a *AnimationTiming) { a.MinInterval = 0 }},
		{"max below min", func(a *AnimationTiming) { a.MaxInterval = a.MinInterval / 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timing := valid
			tt.mutate(&timing)
			assert.ErrorIs(t, timing.Validate(), ErrInvalidTiming)
		})
	}
}

func TestAnimationTiming_Interval(t *testing.T) {
	timing := AnimationTiming{
		Duration:    5 * time.Second,
		MinInterval: 28 * time.Millisecond,
		MaxInterval: 300 * time.Millisecond,
	}

	assert.Equal(t, 28*time.Millisecond, timing.interval(0))
	assert.Equal(t, 300*time.Millisecond, timing.interval(5*time.Second))
	assert.Equal(t, 300*time.Millisecond, timing.interval(10*time.Second))

	// ease-out: half way is already 7/8 of the range
	half := timing.interval(2500 * time.Millisecond)
	assert.InDelta(t, float64(28*time.Millisecond+238*time.Millisecond), float64(half), float64(time.Millisecond))

	prev := time.Duration(0)
	for elapsed := time.Duration(0); elapsed <= timing.Duration; elapsed += 100 * time.Millisecond {
		cur := timing.interval(elapsed)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestSelector_Animate(t *testing.T) {
	timing := DefaultAnimationConfig().Name
	selector := NewSelector(nil)

	anim, err := selector.Animate(6, 4, timing)
	require.NoError(t, err)

	require.NotEmpty(t, anim.Steps)
	last := anim.Steps[len(anim.Steps)-1]
	assert.Equal(t, 4, last.Index)
	assert.Equal(t, 4, anim.Final)
	assert.Equal(t, timing.Hold, last.Delay)

	var spin time.Duration
	for i, step := range anim.Steps[:len(anim.Steps)-1] {
		assert.GreaterOrEqual(t, step.Delay, timing.MinInterval)
		assert.LessOrEqual(t, step.Delay, timing.MaxInterval)
		assert.NotEqual(t, step.Index, anim.Steps[i+1].Index, "step %d repeats the next highlight", i)
		spin += step.Delay
	}
	assert.GreaterOrEqual(t, spin, timing.Duration)
	assert.Equal(t, spin+timing.Hold, anim.Total)
}

func TestSelector_AnimateEdgeCases(t *testing.T) {
	t.Run("single candidate", func(t *testing.T) {
		anim, err := NewSelector(&failingGenerator{t: t}).Animate(1, 0, DefaultAnimationConfig().Prize)
		require.NoError(t, err)
		for _, step := range anim.Steps {
			assert.Equal(t, 0, step.Index)
		}
	})

	t.Run("zero duration lands immediately", func(t *testing.T) {
		anim, err := NewSelector(&failingGenerator{t: t}).Animate(3, 2, instantTiming)
		require.NoError(t, err)
		require.Len(t, anim.Steps, 1)
		assert.Equal(t, HighlightStep{Index: 2, Delay: 0}, anim.Steps[0])
		assert.Zero(t, anim.Total)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewSelector(nil).Animate(0, 0, instantTiming)
		assert.ErrorIs(t, err, ErrEmptyCandidateSet)
	})

	t.Run("final out of range", func(t *testing.T) {
		_, err := NewSelector(nil).Animate(3, 3, instantTiming)
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("invalid timing", func(t *testing.T) {
		_, err := NewSelector(nil).Animate(3, 0, AnimationTiming{})
		assert.ErrorIs(t, err, ErrInvalidTiming)
	})
}

func TestSecureRandomGenerator(t *testing.T) {
	gen := NewSecureRandomGenerator()

	for i := 0; i < 1000; i++ {
		result, err := gen.GenerateInRange(1, 100)
		require.NoError(t, err)
		require.GreaterOrEqual(t, result, 1)
		require.LessOrEqual(t, result, 100)
	}

	result, err := gen.GenerateInRange(5, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, result)

	_, err = gen.GenerateInRange(10, 1)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}
