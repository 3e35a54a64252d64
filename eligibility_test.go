package raffle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligiblePrizes(t *testing.T) {
	// N=6: Any x3, Late(1), Late(3), Final
	names := namesOf(6)
	pool := mustValidate(t, names, []RawPrize{
		{Amount: 10, When: "any"},
		{Amount: 20, When: "any"},
		{Amount: 30, When: "late-3"},
		{Amount: 40, When: "any"},
		{Amount: 50, When: "late-1"},
		{Amount: 60, When: "final"},
	})

	tests := []struct {
		round     int
		wantIDs   []int
		wantFinal bool
		wantLate  bool
		offset    int
	}{
		{round: 1, wantIDs: []int{0, 1, 3}, offset: 5},
		{round: 2, wantIDs: []int{0, 1, 3}, offset: 4},
		{round: 3, wantIDs: []int{2}, wantLate: true, offset: 3},
		{round: 4, wantIDs: []int{0, 1, 3}, offset: 2},
		{round: 5, wantIDs: []int{4}, wantLate: true, offset: 1},
		{round: 6, wantIDs: []int{5}, wantFinal: true, offset: 0},
	}

	for _, tt := range tests {
		eligible, err := EligiblePrizes(tt.round, len(names), pool)
		require.NoError(t, err)

		var ids []int
		for _, p := range eligible.Prizes {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, tt.wantIDs, ids, "round %d", tt.round)
		assert.Equal(t, tt.wantFinal, eligible.IsFinal, "round %d", tt.round)
		assert.Equal(t, tt.wantLate, eligible.IsLate, "round %d", tt.round)
		assert.Equal(t, tt.offset, eligible.Offset, "round %d", tt.round)
		assert.Equal(t, len(ids) == 1, eligible.Forced(), "round %d", tt.round)
	}
}

func TestEligiblePrizes_SkipsConsumed(t *testing.T) {
	names := namesOf(4)
	pool := mustValidate(t, names, []RawPrize{
		{Amount: 10, When: "any"},
		{Amount: 20, When: "any"},
		{Amount: 30, When: "late-1"},
		{Amount: 40, When: "final"},
	})

	pool.prize(0).Consumed = true
	eligible, err := EligiblePrizes(1, 4, pool)
	require.NoError(t, err)
	require.Len(t, eligible.Prizes, 1)
	assert.Equal(t, 1, eligible.Prizes[0].ID)

	// a consumed Late(k) falls through to the Any prizes
	pool.prize(2).Consumed = true
	eligible, err = EligiblePrizes(3, 4, pool)
	require.NoError(t, err)
	assert.False(t, eligible.IsLate)
	require.Len(t, eligible.Prizes, 1)
	assert.Equal(t, 1, eligible.Prizes[0].ID)

	// nothing left is not a fault here
	pool.prize(1).Consumed = true
	eligible, err = EligiblePrizes(2, 4, pool)
	require.NoError(t, err)
	assert.Empty(t, eligible.Prizes)
}

func TestEligiblePrizes_Faults(t *testing.T) {
	names := namesOf(3)
	pool := mustValidate(t, names, DefaultPrizeTemplate(3))

	_, err := EligiblePrizes(0, 3, pool)
	assert.ErrorIs(t, err, ErrRoundOutOfRange)
	assert.True(t, IsConsistencyFault(err))

	_, err = EligiblePrizes(4, 3, pool)
	assert.ErrorIs(t, err, ErrRoundOutOfRange)

	_, err = EligiblePrizes(1, 3, nil)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	// Final consumed before round N
	pool.prize(2).Consumed = true
	pool.prize(2).Winner = "A"
	_, err = EligiblePrizes(3, 3, pool)
	assert.ErrorIs(t, err, ErrEligibilityExhausted)
	assert.True(t, IsConsistencyFault(err))

	var re *RaffleError
	require.ErrorAs(t, err, &re)
	assert.NotEmpty(t, re.StackTrace)
}
