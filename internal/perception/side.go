package perception

import "fmt"

// Side is the team a player belongs to, relative to the agent.
type Side int

const (
	SideUnknown Side = iota
	SideOurs
	SideTheirs
)

func (s Side) String() string {
	switch s {
	case SideOurs:
		return "ours"
	case SideTheirs:
		return "theirs"
	}
	return "unknown"
}

// PoolID identifies one of the five per-cycle sighting pools.
type PoolID int

const (
	PoolTeammate        PoolID = iota // own team, uniform number seen
	PoolUnknownTeammate               // own team, uniform number not seen
	PoolOpponent                      // opponent, uniform number seen
	PoolUnknownOpponent               // opponent, uniform number not seen
	PoolUnknownPlayer                 // side not seen
	numPools
)

// AllPools lists every pool in scan order.
var AllPools = [numPools]PoolID{
	PoolTeammate, PoolUnknownTeammate, PoolOpponent, PoolUnknownOpponent, PoolUnknownPlayer,
}

// Side returns the side a sighting in this pool was classified as.
func (p PoolID) Side() Side {
	switch p {
	case PoolTeammate, PoolUnknownTeammate:
		return SideOurs
	case PoolOpponent, PoolUnknownOpponent:
		return SideTheirs
	}
	return SideUnknown
}

func (p PoolID) String() string {
	switch p {
	case PoolTeammate:
		return "teammate"
	case PoolUnknownTeammate:
		return "unknown_teammate"
	case PoolOpponent:
		return "opponent"
	case PoolUnknownOpponent:
		return "unknown_opponent"
	case PoolUnknownPlayer:
		return "unknown_player"
	}
	return fmt.Sprintf("pool(%d)", int(p))
}

// RosterID identifies one of the three tracked-player rosters.
type RosterID int

const (
	RosterTeammates RosterID = iota
	RosterOpponents
	RosterUnknown
)

// scanPools lists the sighting pools a tracked player in the roster may be
// matched against.
func (r RosterID) scanPools() []PoolID {
	switch r {
	case RosterTeammates:
		return []PoolID{PoolTeammate, PoolUnknownTeammate, PoolUnknownPlayer}
	case RosterOpponents:
		return []PoolID{PoolOpponent, PoolUnknownOpponent, PoolUnknownPlayer}
	}
	return AllPools[:]
}

// rosterFor returns the roster holding players of the given side.
func rosterFor(side Side) RosterID {
	switch side {
	case SideOurs:
		return RosterTeammates
	case SideTheirs:
		return RosterOpponents
	}
	return RosterUnknown
}
