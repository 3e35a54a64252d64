package raffle

import (
	"github.com/shopspring/decimal"
)

// Entrant is one participant name. Names are identified by position, so
// duplicate labels are distinct entrants.
type Entrant struct {
	ID            int              `json:"id"`
	Label         string           `json:"label"`
	Consumed      bool             `json:"consumed"`
	AwardedAmount *decimal.Decimal `json:"awarded_amount,omitempty"`
}

// FastPath tells why a prize was chosen without a randomized pick
type FastPath string

const (
	FastPathNone    FastPath = ""
	FastPathFinal   FastPath = "final"    // round N: last name, Final prize
	FastPathLate    FastPath = "late"     // round N-k with a Late(k) prize
	FastPathLastAny FastPath = "last-any" // only one Any prize left
)

// Award is one applied (name, prize, round) pairing
type Award struct {
	Round   int     `json:"round"`
	Entrant Entrant `json:"entrant"`
	Prize   Prize   `json:"prize"`
}

// RoundOutcome reports what happened in a round for the presentation layer
type RoundOutcome struct {
	SessionID string       `json:"session_id"`
	Round     int          `json:"round"`
	Total     int          `json:"total"`
	Entrant   Entrant      `json:"entrant"`
	Prize     Prize        `json:"prize"`
	Eligible  *Eligibility `json:"eligible"`
	FastPath  FastPath     `json:"fast_path,omitempty"`

	// NameAnimated and PrizeAnimated are false for forced picks
	NameAnimated  bool `json:"name_animated"`
	PrizeAnimated bool `json:"prize_animated"`

	// Flip is true when the board turns from names to prizes; the final round never flips
	Flip bool `json:"flip"`

	// Candidate lists the animations index into
	NameCandidates  []Entrant `json:"name_candidates,omitempty"`
	PrizeCandidates []Prize   `json:"prize_candidates,omitempty"`

	NameAnimation  *Animation `json:"name_animation,omitempty"`
	PrizeAnimation *Animation `json:"prize_animation,omitempty"`
}

// IsFinal reports whether this was the last round
func (o *RoundOutcome) IsFinal() bool { return o.Round == o.Total }

// AckResult is returned after the presentation layer acknowledges a round
type AckResult struct {
	Complete  bool    `json:"complete"`
	NextRound int     `json:"next_round,omitempty"`
	Awards    []Award `json:"awards,omitempty"` // set once the draw completes
}
