package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPools(t *testing.T) {
	p := NewPools()
	a := p.Add(PoolOpponent, sightingAt(3, 1, 0))
	b := p.Add(PoolOpponent, sightingAt(4, 2, 0))
	c := p.Add(PoolUnknownPlayer, sightingAt(UnknownUnum, 3, 0))

	assert.Equal(t, SightingRef{Pool: PoolOpponent, Index: 1}, b)
	assert.Equal(t, 3, p.Total())
	assert.Equal(t, 4, p.Get(b).Unum)

	p.Consume(a)
	assert.True(t, p.Consumed(a))
	assert.False(t, p.Consumed(c))
	assert.Equal(t, []SightingRef{b}, p.Remaining(PoolOpponent))

	p.Compact()
	require.Equal(t, 1, p.Len(PoolOpponent))
	assert.Equal(t, 4, p.Get(SightingRef{Pool: PoolOpponent}).Unum)
	assert.Len(t, p.Remaining(PoolOpponent), 1)
	assert.Equal(t, 2, p.Total())
}

func TestPoolSide(t *testing.T) {
	tests := []struct {
		pool   PoolID
		side   Side
		roster RosterID
	}{
		{PoolTeammate, SideOurs, RosterTeammates},
		{PoolUnknownTeammate, SideOurs, RosterTeammates},
		{PoolOpponent, SideTheirs, RosterOpponents},
		{PoolUnknownOpponent, SideTheirs, RosterOpponents},
		{PoolUnknownPlayer, SideUnknown, RosterUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.pool.String(), func(t *testing.T) {
			assert.Equal(t, tt.side, tt.pool.Side())
			assert.Equal(t, tt.roster, rosterFor(tt.pool.Side()))
		})
	}
	assert.Len(t, RosterUnknown.scanPools(), 5)
	assert.NotContains(t, RosterTeammates.scanPools(), PoolOpponent)
	assert.NotContains(t, RosterOpponents.scanPools(), PoolTeammate)
}
