package raffle

import (
	"fmt"
	"math"
	"time"
)

// AnimationTiming configures one highlight animation
type AnimationTiming struct {
	Duration    time.Duration `mapstructure:"duration" json:"duration"`
	Hold        time.Duration `mapstructure:"hold" json:"hold"`
	MinInterval time.Duration `mapstructure:"min_interval" json:"min_interval"`
	MaxInterval time.Duration `mapstructure:"max_interval" json:"max_interval"`
}

// Validate checks the timing bounds
func (t AnimationTiming) Validate() error {
	if t.Duration < 0 || t.Duration > MaxAnimationDuration {
		return ErrInvalidTiming.WithDetails(fmt.Sprintf("duration %v must be between 0 and %v", t.Duration, MaxAnimationDuration))
	}
	if t.Hold < 0 {
		return ErrInvalidTiming.WithDetails(fmt.Sprintf("hold %v cannot be negative", t.Hold))
	}
	if t.MinInterval <= 0 {
		return ErrInvalidTiming.WithDetails(fmt.Sprintf("min interval %v must be positive", t.MinInterval))
	}
	if t.MaxInterval < t.MinInterval {
		return ErrInvalidTiming.WithDetails(fmt.Sprintf("max interval %v is below min interval %v", t.MaxInterval, t.MinInterval))
	}
	return nil
}

// interval returns the wait after a highlight shown at elapsed, easing out cubically
// from MinInterval to MaxInterval.
func (t AnimationTiming) interval(elapsed time.Duration) time.Duration {
	progress := 1.0
	if t.Duration > 0 {
		progress = math.Min(1, float64(elapsed)/float64(t.Duration))
	}
	ease := 1 - math.Pow(1-progress, 3)
	return t.MinInterval + time.Duration(float64(t.MaxInterval-t.MinInterval)*ease)
}

// HighlightStep is one frame of a highlight animation
type HighlightStep struct {
	Index int           `json:"index"` // candidate position
	Delay time.Duration `json:"delay"` // wait before the next step
}

// Animation is a precomputed highlight sequence that lands on Final
type Animation struct {
	Steps []HighlightStep `json:"steps"`
	Final int             `json:"final"`
	Total time.Duration   `json:"total"`
}

// Selector picks candidates uniformly and plans their reveal animation
type Selector struct {
	generator RandomGenerator
}

// NewSelector creates a selector. A nil generator falls back to SecureRandomGenerator.
func NewSelector(generator RandomGenerator) *Selector {
	if generator == nil {
		generator = NewSecureRandomGenerator()
	}
	return &Selector{generator: generator}
}

// Pick returns a uniformly random index in [0, n)
func (s *Selector) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, fault(ErrEmptyCandidateSet, "Pick", "no candidates")
	}
	return s.generator.GenerateInRange(0, n-1)
}

// pickAvoiding returns a uniformly random index in [0, n) other than avoid.
func (s *Selector) pickAvoiding(n, avoid int) (int, error) {
	if n == 1 {
		return 0, nil
	}
	idx, err := s.generator.GenerateInRange(0, n-2)
	if err != nil {
		return 0, err
	}
	if idx >= avoid {
		idx++
	}
	return idx, nil
}

// Animate plans the highlight sequence for a pick that already landed on final.
//
// The schedule only depends on timing, so intermediate highlights are filled
// in backwards from final; no two consecutive steps share an index when n > 1.
func (s *Selector) Animate(n, final int, timing AnimationTiming) (*Animation, error) {
	if n <= 0 {
		return nil, fault(ErrEmptyCandidateSet, "Animate", "no candidates")
	}
	if final < 0 || final >= n {
		return nil, ErrInvalidParameters.WithDetails(fmt.Sprintf("final index %d outside [0, %d)", final, n))
	}
	if err := timing.Validate(); err != nil {
		return nil, err
	}

	var delays []time.Duration
	var elapsed time.Duration
	for elapsed < timing.Duration {
		wait := timing.interval(elapsed)
		delays = append(delays, wait)
		elapsed += wait
	}

	steps := make([]HighlightStep, len(delays)+1)
	steps[len(delays)] = HighlightStep{Index: final, Delay: timing.Hold}

	next := final
	for i := len(delays) - 1; i >= 0; i-- {
		idx, err := s.pickAvoiding(n, next)
		if err != nil {
			return nil, err
		}
		steps[i] = HighlightStep{Index: idx, Delay: delays[i]}
		next = idx
	}

	return &Animation{
		Steps: steps,
		Final: final,
		Total: elapsed + timing.Hold,
	}, nil
}
