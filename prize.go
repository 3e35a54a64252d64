package raffle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RuleKind is the placement category of a prize
type RuleKind int

const (
	RuleKindAny RuleKind = iota
	RuleKindLate
	RuleKindFinal
)

// Rule decides which round a prize may be drawn in
type Rule struct {
	Kind   RuleKind
	Offset int // k for Late(k), zero otherwise
}

var (
	// RuleAny prizes are drawn in any round without a pinned rule
	RuleAny = Rule{Kind: RuleKindAny}

	// RuleFinal prizes are drawn in round N
	RuleFinal = Rule{Kind: RuleKindFinal}
)

// RuleLate returns the rule pinning a prize to round N-k
func RuleLate(k int) Rule { return Rule{Kind: RuleKindLate, Offset: k} }

// String returns the rule tag: "any", "late-k" or "final"
func (r Rule) String() string {
	switch r.Kind {
	case RuleKindLate:
		return fmt.Sprintf("late-%d", r.Offset)
	case RuleKindFinal:
		return "final"
	default:
		return "any"
	}
}

// IsLate reports whether the rule is Late(k) for some k
func (r Rule) IsLate() bool { return r.Kind == RuleKindLate }

// MarshalText encodes the rule as its tag
func (r Rule) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText decodes a rule tag
func (r *Rule) UnmarshalText(text []byte) error {
	parsed, err := ParseRule(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRule parses a rule tag. An empty tag means "any".
func ParseRule(tag string) (Rule, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))

	switch {
	case tag == "" || tag == "any":
		return RuleAny, nil
	case tag == "final":
		return RuleFinal, nil
	case strings.HasPrefix(tag, "late-"):
		k, err := strconv.Atoi(strings.TrimPrefix(tag, "late-"))
		if err != nil || k < 1 || k > MaxLateOffset {
			return Rule{}, ErrInvalidRule.WithDetails(fmt.Sprintf("late prize must be N-1 to N-%d, got %q", MaxLateOffset, tag))
		}
		return RuleLate(k), nil
	default:
		return Rule{}, ErrInvalidRule.WithDetails(fmt.Sprintf("%q", tag))
	}
}

// RawPrize is one unvalidated prize row as entered during setup
type RawPrize struct {
	Amount float64 `json:"amount" mapstructure:"amount"`
	When   string  `json:"when" mapstructure:"when"`
}

// Prize is one validated prize of a pool
type Prize struct {
	ID       int             `json:"id"` // position in the submitted rows
	Amount   decimal.Decimal `json:"amount"`
	Rule     Rule            `json:"rule"`
	Consumed bool            `json:"consumed"`
	WinnerID int             `json:"winner_id"` // entrant position, NoWinner until awarded
	Winner   string          `json:"winner,omitempty"`
}

// PrizePool holds validated prizes partitioned into Any, Late(1..5) and Final.
//
// The pool returned by Validate is never mutated. A draw session works on its
// own clone and only flips Consumed / Winner fields on it.
type PrizePool struct {
	prizes []Prize
	any    []int
	late   [MaxLateOffset + 1]int // index by k, NoWinner when absent
	final  int
}

func newPrizePool(capacity int) *PrizePool {
	pool := &PrizePool{
		prizes: make([]Prize, 0, capacity),
		final:  NoWinner,
	}
	for k := range pool.late {
		pool.late[k] = NoWinner
	}
	return pool
}

// Validate checks rows against the name count and builds an immutable pool.
//
// Rules are applied in order: positive finite amounts, a single Final, at most
// one Late(k) per k, prize count equal to name count, and every Late(k)
// reachable (N-k >= 1).
func Validate(names []string, raw []RawPrize) (*PrizePool, error) {
	n := len(names)
	pool := newPrizePool(len(raw))

	for i, row := range raw {
		if math.IsNaN(row.Amount) || math.IsInf(row.Amount, 0) || row.Amount <= 0 {
			return nil, ErrInvalidAmount.WithDetails(fmt.Sprintf("row %d has amount %v", i+1, row.Amount))
		}

		rule, err := ParseRule(row.When)
		if err != nil {
			return nil, err
		}

		switch rule.Kind {
		case RuleKindFinal:
			if pool.final != NoWinner {
				return nil, ErrDuplicateFinal
			}
			pool.final = i
		case RuleKindLate:
			if pool.late[rule.Offset] != NoWinner {
				return nil, newDuplicateLateError(rule.Offset)
			}
			pool.late[rule.Offset] = i
		default:
			pool.any = append(pool.any, i)
		}

		pool.prizes = append(pool.prizes, Prize{
			ID:       i,
			Amount:   decimal.NewFromFloat(row.Amount),
			Rule:     rule,
			WinnerID: NoWinner,
		})
	}

	if pool.final == NoWinner {
		return nil, ErrMissingFinal
	}

	total := len(pool.any) + pool.LateCount() + 1
	if total != n {
		return nil, newCountMismatchError(total, n)
	}

	for k := 1; k <= MaxLateOffset; k++ {
		if pool.late[k] != NoWinner && n-k < 1 {
			return nil, newUnreachableLateRoundError(k, n)
		}
	}

	return pool, nil
}

// Size returns the number of prizes, which equals the number of names
func (p *PrizePool) Size() int { return len(p.prizes) }

// LateCount returns how many Late(k) slots are filled
func (p *PrizePool) LateCount() int {
	count := 0
	for k := 1; k <= MaxLateOffset; k++ {
		if p.late[k] != NoWinner {
			count++
		}
	}
	return count
}

// Any returns copies of all Any prizes, consumed or not
func (p *PrizePool) Any() []Prize {
	out := make([]Prize, 0, len(p.any))
	for _, idx := range p.any {
		out = append(out, p.prizes[idx])
	}
	return out
}

// Late returns a copy of the Late(k) prize when present
func (p *PrizePool) Late(k int) (Prize, bool) {
	if k < 1 || k > MaxLateOffset || p.late[k] == NoWinner {
		return Prize{}, false
	}
	return p.prizes[p.late[k]], true
}

// Final returns a copy of the Final prize
func (p *PrizePool) Final() Prize { return p.prizes[p.final] }

// Prizes returns copies of all prizes in board order: Any, Late(1..5), Final
func (p *PrizePool) Prizes() []Prize {
	out := p.Any()
	for k := 1; k <= MaxLateOffset; k++ {
		if prize, ok := p.Late(k); ok {
			out = append(out, prize)
		}
	}
	return append(out, p.Final())
}

// Total returns the sum of all prize amounts
func (p *PrizePool) Total() decimal.Decimal {
	total := decimal.Zero
	for _, prize := range p.prizes {
		total = total.Add(prize.Amount)
	}
	return total
}

// Remaining returns how many prizes have not been awarded
func (p *PrizePool) Remaining() int {
	count := 0
	for _, prize := range p.prizes {
		if !prize.Consumed {
			count++
		}
	}
	return count
}

// Clone returns a deep copy that can be mutated independently
func (p *PrizePool) Clone() *PrizePool {
	c := &PrizePool{
		prizes: make([]Prize, len(p.prizes)),
		any:    make([]int, len(p.any)),
		late:   p.late,
		final:  p.final,
	}
	copy(c.prizes, p.prizes)
	copy(c.any, p.any)
	return c
}

// remainingAny returns copies of the unconsumed Any prizes
func (p *PrizePool) remainingAny() []Prize {
	out := make([]Prize, 0, len(p.any))
	for _, idx := range p.any {
		if !p.prizes[idx].Consumed {
			out = append(out, p.prizes[idx])
		}
	}
	return out
}

// prize returns the mutable prize with the given ID
func (p *PrizePool) prize(id int) *Prize {
	if id < 0 || id >= len(p.prizes) {
		return nil
	}
	return &p.prizes[id]
}
