package raffle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DrawState is the position of a session in its round loop
type DrawState int

const (
	StateIdle DrawState = iota
	StateRoundStart
	StateNameSelecting
	StatePrizeEligibilityCheck
	StatePrizeSelecting
	StateAwarding
	StateRoundEnd
	StateComplete
	StateFaulted
)

var stateNames = map[DrawState]string{
	StateIdle:                  "idle",
	StateRoundStart:            "round-start",
	StateNameSelecting:         "name-selecting",
	StatePrizeEligibilityCheck: "prize-eligibility-check",
	StatePrizeSelecting:        "prize-selecting",
	StateAwarding:              "awarding",
	StateRoundEnd:              "round-end",
	StateComplete:              "complete",
	StateFaulted:               "faulted",
}

func (s DrawState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is one draw over a fixed list of names and a validated pool.
//
// Rounds run strictly in order 1..N. Each call to RequestNextRound applies
// exactly one award and each Acknowledge advances by exactly one round.
// Calls made in the wrong state return ErrOutOfSequence without touching the
// session; a consistency fault moves it to StateFaulted for good.
type Session struct {
	id string

	mu       sync.Mutex
	state    DrawState
	round    int
	entrants []Entrant
	pool     *PrizePool
	awards   []Award
	failure  error

	selector  *Selector
	animation AnimationConfig
	recorder  Recorder
	monitor   *DrawMonitor
	logger    Logger
}

func newSession(id string, names []string, pool *PrizePool, animation AnimationConfig, logger Logger, e *DrawEngine) *Session {
	entrants := make([]Entrant, len(names))
	for i, name := range names {
		entrants[i] = Entrant{ID: i, Label: name}
	}

	return &Session{
		id:        id,
		state:     StateIdle,
		entrants:  entrants,
		pool:      pool.Clone(),
		awards:    make([]Award, 0, len(names)),
		selector:  e.selector,
		animation: animation,
		recorder:  e.recorder,
		monitor:   e.monitor,
		logger:    logger,
	}
}

// begin moves Idle -> RoundStart at round 1
func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.round = 1
	s.state = StateRoundStart
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Total returns N, the number of names and rounds
func (s *Session) Total() int { return len(s.entrants) }

// State returns the current state
func (s *Session) State() DrawState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Round returns the current round, 1-based
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.round
}

// Err returns the fault that aborted the session, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failure
}

// Entrants returns copies of all entrants in submission order
func (s *Session) Entrants() []Entrant {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entrant, len(s.entrants))
	copy(out, s.entrants)
	return out
}

// Prizes returns copies of the session's prizes in board order
func (s *Session) Prizes() []Prize {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.Prizes()
}

// Results returns the awards applied so far in round order
func (s *Session) Results() []Award {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.results()
}

func (s *Session) results() []Award {
	out := make([]Award, len(s.awards))
	copy(out, s.awards)
	return out
}

// checkState 校验当前状态
func (s *Session) checkState(operation string, want DrawState) error {
	if s.state == StateFaulted {
		return ErrSessionFaulted.WithOperation(operation).WithCause(s.failure)
	}
	if s.state != want {
		return ErrOutOfSequence.WithOperation(operation).
			WithDetails(fmt.Sprintf("session is %s at round %d, want %s", s.state, s.round, want))
	}
	return nil
}

// RequestNextRound runs name selection, prize eligibility, prize selection
// and the award for the current round. It is only valid in StateRoundStart
// and leaves the session in StateRoundEnd.
func (s *Session) RequestNextRound(ctx context.Context) (*RoundOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkState("RequestNextRound", StateRoundStart); err != nil {
		return nil, err
	}

	startTime := time.Now()
	outcome, err := s.playRound()
	if err != nil {
		s.abort(err)
		return nil, err
	}

	s.state = StateRoundEnd
	s.monitor.RecordRound(outcome.FastPath, time.Since(startTime))
	s.logger.Info("Round %d/%d: %q wins %s (%s) [session=%s, fast_path=%q]",
		outcome.Round, outcome.Total, outcome.Entrant.Label, outcome.Prize.Amount, outcome.Prize.Rule, s.id, outcome.FastPath)

	award := s.awards[len(s.awards)-1]
	if err := s.recorder.RecordAward(ctx, s.id, award); err != nil {
		s.monitor.RecordRecorderError()
		s.logger.Error("Failed to record round %d of session %s: %v", award.Round, s.id, err)
	}

	return outcome, nil
}

// playRound walks NameSelecting -> PrizeEligibilityCheck -> PrizeSelecting -> Awarding.
// Nothing is mutated before the award, so an error leaves the round replayable.
func (s *Session) playRound() (*RoundOutcome, error) {
	n := len(s.entrants)
	outcome := &RoundOutcome{
		SessionID: s.id,
		Round:     s.round,
		Total:     n,
	}

	// 选人
	s.state = StateNameSelecting
	remaining := s.remainingEntrants()
	expected := n - s.round + 1
	if len(remaining) != expected {
		return nil, fault(ErrEligibilityExhausted, "RequestNextRound",
			fmt.Sprintf("round %d expects %d remaining names, found %d", s.round, expected, len(remaining)))
	}

	var entrant Entrant
	if s.round == n {
		// 最后一轮: 唯一剩下的人, 不翻牌
		entrant = remaining[0]
	} else {
		idx, err := s.selector.Pick(len(remaining))
		if err != nil {
			return nil, err
		}
		anim, err := s.selector.Animate(len(remaining), idx, s.animation.Name)
		if err != nil {
			return nil, err
		}
		entrant = remaining[idx]
		outcome.NameCandidates = remaining
		outcome.NameAnimation = anim
		outcome.NameAnimated = true
		outcome.Flip = true
	}

	// 确定可抽奖品
	s.state = StatePrizeEligibilityCheck
	eligible, err := EligiblePrizes(s.round, n, s.pool)
	if err != nil {
		return nil, err
	}
	outcome.Eligible = eligible

	// 选奖
	s.state = StatePrizeSelecting
	var prize Prize
	switch {
	case eligible.IsFinal:
		prize = eligible.Prizes[0]
		outcome.FastPath = FastPathFinal
	case eligible.IsLate:
		prize = eligible.Prizes[0]
		outcome.FastPath = FastPathLate
	case len(eligible.Prizes) == 0:
		return nil, fault(ErrEligibilityExhausted, "RequestNextRound",
			fmt.Sprintf("no prize left for round %d of %d", s.round, n))
	case len(eligible.Prizes) == 1:
		prize = eligible.Prizes[0]
		outcome.FastPath = FastPathLastAny
	default:
		idx, err := s.selector.Pick(len(eligible.Prizes))
		if err != nil {
			return nil, err
		}
		anim, err := s.selector.Animate(len(eligible.Prizes), idx, s.animation.Prize)
		if err != nil {
			return nil, err
		}
		prize = eligible.Prizes[idx]
		outcome.PrizeCandidates = eligible.Prizes
		outcome.PrizeAnimation = anim
		outcome.PrizeAnimated = true
	}

	// 发奖
	s.state = StateAwarding
	award, err := s.award(entrant.ID, prize.ID)
	if err != nil {
		return nil, err
	}
	outcome.Entrant = award.Entrant
	outcome.Prize = award.Prize

	return outcome, nil
}

func (s *Session) remainingEntrants() []Entrant {
	out := make([]Entrant, 0, len(s.entrants))
	for _, e := range s.entrants {
		if !e.Consumed {
			out = append(out, e)
		}
	}
	return out
}

// award pairs an entrant with a prize. Either side being consumed already is
// a consistency fault.
func (s *Session) award(entrantID, prizeID int) (Award, error) {
	if entrantID < 0 || entrantID >= len(s.entrants) {
		return Award{}, fault(ErrAlreadyAwarded, "award", fmt.Sprintf("unknown entrant %d", entrantID))
	}
	entrant := &s.entrants[entrantID]
	prize := s.pool.prize(prizeID)
	if prize == nil {
		return Award{}, fault(ErrAlreadyAwarded, "award", fmt.Sprintf("unknown prize %d", prizeID))
	}

	if entrant.Consumed {
		return Award{}, fault(ErrAlreadyAwarded, "award",
			fmt.Sprintf("name %q already won in round %d", entrant.Label, s.roundOf(entrantID)))
	}
	if prize.Consumed {
		return Award{}, fault(ErrAlreadyAwarded, "award",
			fmt.Sprintf("prize %d (%s) already awarded to %q", prize.ID, prize.Amount, prize.Winner))
	}

	amount := prize.Amount
	entrant.Consumed = true
	entrant.AwardedAmount = &amount
	prize.Consumed = true
	prize.WinnerID = entrant.ID
	prize.Winner = entrant.Label

	award := Award{Round: s.round, Entrant: *entrant, Prize: *prize}
	s.awards = append(s.awards, award)
	return award, nil
}

func (s *Session) roundOf(entrantID int) int {
	for _, a := range s.awards {
		if a.Entrant.ID == entrantID {
			return a.Round
		}
	}
	return 0
}

// abort handles a failed round. Consistency faults end the session; anything
// else rolls back to RoundStart since nothing was applied.
func (s *Session) abort(err error) {
	if !IsConsistencyFault(err) {
		s.state = StateRoundStart
		s.logger.Error("Round %d of session %s failed: %v", s.round, s.id, err)
		return
	}

	s.state = StateFaulted
	s.failure = err
	s.monitor.RecordFault()
	s.logger.Error("Session %s faulted in round %d: %v", s.id, s.round, err)
}

// Acknowledge confirms the presentation of the current round. It is only
// valid in StateRoundEnd; it advances to the next round or completes the draw.
func (s *Session) Acknowledge(ctx context.Context) (*AckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkState("Acknowledge", StateRoundEnd); err != nil {
		return nil, err
	}

	if s.round < len(s.entrants) {
		s.advanceRound()
		return &AckResult{NextRound: s.round}, nil
	}

	s.state = StateComplete
	s.monitor.RecordSessionComplete()
	s.logger.Info("Session %s complete: %d rounds, total %s", s.id, len(s.awards), s.pool.Total())

	awards := s.results()
	if err := s.recorder.RecordComplete(ctx, s.id, awards); err != nil {
		s.monitor.RecordRecorderError()
		s.logger.Error("Failed to record summary of session %s: %v", s.id, err)
	}

	return &AckResult{Complete: true, Awards: awards}, nil
}

// advanceRound increments the round by exactly one
func (s *Session) advanceRound() {
	s.round++
	s.state = StateRoundStart
}
