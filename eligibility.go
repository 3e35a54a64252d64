package raffle

import "fmt"

// Eligibility is the prize subset that may be drawn in a round
type Eligibility struct {
	Prizes  []Prize `json:"prizes"`
	IsFinal bool    `json:"is_final"`
	IsLate  bool    `json:"is_late"`
	Offset  int     `json:"offset"` // N - round
}

// Forced reports whether exactly one prize is eligible
func (e *Eligibility) Forced() bool { return len(e.Prizes) == 1 }

// EligiblePrizes resolves which prizes may be drawn in the given round.
//
// offset = n - round. Offset 0 yields the Final prize, offsets 1..5 yield the
// unconsumed Late(offset) prize when one exists, and everything else falls
// through to the unconsumed Any prizes. The result may be empty in the last
// case; callers decide whether that is a fault.
func EligiblePrizes(round, n int, pool *PrizePool) (*Eligibility, error) {
	if pool == nil {
		return nil, ErrInvalidParameters.WithDetails("nil prize pool")
	}
	if round < 1 || round > n {
		return nil, fault(ErrRoundOutOfRange, "EligiblePrizes", fmt.Sprintf("round %d with N=%d", round, n)).
			WithMetadata(metaRound, round)
	}

	offset := n - round

	if offset == 0 {
		if pool.final == NoWinner {
			return nil, fault(ErrEligibilityExhausted, "EligiblePrizes", "pool has no final prize")
		}
		final := pool.prizes[pool.final]
		if final.Consumed {
			return nil, fault(ErrEligibilityExhausted, "EligiblePrizes",
				fmt.Sprintf("final prize already awarded to %q before round %d", final.Winner, round))
		}
		return &Eligibility{Prizes: []Prize{final}, IsFinal: true, Offset: offset}, nil
	}

	if offset >= 1 && offset <= MaxLateOffset {
		if late, ok := pool.Late(offset); ok && !late.Consumed {
			return &Eligibility{Prizes: []Prize{late}, IsLate: true, Offset: offset}, nil
		}
	}

	return &Eligibility{Prizes: pool.remainingAny(), Offset: offset}, nil
}
