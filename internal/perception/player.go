package perception

import "gonum.org/v1/gonum/spatial/r2"

// CountUnknown is the staleness count of a position that was never
// observed.
const CountUnknown = 1000

// PlayerType carries the per-type movement limits that widen a tracked
// player's uncertainty radius.
type PlayerType struct {
	ID           int
	RealMaxSpeed float64
}

// PlayerObject is one tracked player. Counts are cycles since the
// corresponding information was last refreshed.
type PlayerObject struct {
	ID     int
	Side   Side
	Unum   int
	Goalie bool
	Type   *PlayerType

	Pos      r2.Vec
	PosCount int

	SeenPos      r2.Vec
	SeenPosCount int

	HeardPos      r2.Vec
	HeardPosCount int

	Vel      r2.Vec
	VelCount int
}

func newPlayerObject(id int, side Side, s Sighting) *PlayerObject {
	p := &PlayerObject{
		ID:            id,
		PosCount:      CountUnknown,
		SeenPosCount:  CountUnknown,
		HeardPosCount: CountUnknown,
		VelCount:      CountUnknown,
	}
	p.UpdateBySighting(side, s)
	return p
}

// SideCommitted reports whether the player's side has been established.
func (p *PlayerObject) SideCommitted() bool {
	return p.Side != SideUnknown
}

// UpdateBySighting refreshes the player from a bound sighting. A known
// uniform number in the sighting overrides the tracked one.
func (p *PlayerObject) UpdateBySighting(side Side, s Sighting) {
	p.Side = side
	if s.Unum != UnknownUnum {
		p.Unum = s.Unum
		p.Goalie = s.Goalie
	}
	p.Pos = s.Pos
	p.PosCount = 0
	p.SeenPos = s.Pos
	p.SeenPosCount = 0
	if s.HasVel {
		p.Vel = s.Vel
		p.VelCount = 0
	}
}

// UpdateByHearing records a position reported over the radio.
func (p *PlayerObject) UpdateByHearing(pos r2.Vec) {
	p.HeardPos = pos
	p.HeardPosCount = 0
	if p.PosCount > 0 {
		p.Pos = pos
		p.PosCount = 0
	}
}

// Age advances every staleness count by one cycle.
func (p *PlayerObject) Age() {
	p.PosCount = ageCount(p.PosCount)
	p.SeenPosCount = ageCount(p.SeenPosCount)
	p.HeardPosCount = ageCount(p.HeardPosCount)
	p.VelCount = ageCount(p.VelCount)
}

func ageCount(c int) int {
	if c >= CountUnknown {
		return CountUnknown
	}
	return c + 1
}

// HeardPosValid reports whether a radio position has ever been received.
func (p *PlayerObject) HeardPosValid() bool {
	return p.HeardPosCount < CountUnknown
}

// SeenPosValid reports whether the player has ever been seen.
func (p *PlayerObject) SeenPosValid() bool {
	return p.SeenPosCount < CountUnknown
}

// realMaxSpeed returns the type's speed limit, or fallback when the type
// is unknown.
func (p *PlayerObject) realMaxSpeed(fallback float64) float64 {
	if p.Type != nil && p.Type.RealMaxSpeed > 0 {
		return p.Type.RealMaxSpeed
	}
	return fallback
}

// Rosters holds the three tracked-player collections.
type Rosters struct {
	Teammates []*PlayerObject
	Opponents []*PlayerObject
	Unknown   []*PlayerObject

	nextID int
}

// Roster returns the slice for id.
func (r *Rosters) Roster(id RosterID) []*PlayerObject {
	switch id {
	case RosterTeammates:
		return r.Teammates
	case RosterOpponents:
		return r.Opponents
	}
	return r.Unknown
}

func (r *Rosters) set(id RosterID, players []*PlayerObject) {
	switch id {
	case RosterTeammates:
		r.Teammates = players
	case RosterOpponents:
		r.Opponents = players
	default:
		r.Unknown = players
	}
}

// Len returns the total number of tracked players.
func (r *Rosters) Len() int {
	return len(r.Teammates) + len(r.Opponents) + len(r.Unknown)
}

// Each calls fn for every tracked player in teammates, opponents, unknown
// order.
func (r *Rosters) Each(fn func(RosterID, *PlayerObject)) {
	for _, id := range []RosterID{RosterTeammates, RosterOpponents, RosterUnknown} {
		for _, p := range r.Roster(id) {
			fn(id, p)
		}
	}
}

// Find returns the tracked player with the given side and uniform number.
func (r *Rosters) Find(side Side, unum int) *PlayerObject {
	if unum == UnknownUnum {
		return nil
	}
	for _, p := range r.Roster(rosterFor(side)) {
		if p.Unum == unum {
			return p
		}
	}
	return nil
}

// spawn creates a tracked player from s and appends it to the roster for
// side.
func (r *Rosters) spawn(side Side, s Sighting) *PlayerObject {
	r.nextID++
	p := newPlayerObject(r.nextID, side, s)
	id := rosterFor(side)
	r.set(id, append(r.Roster(id), p))
	return p
}

// promote moves unknown-roster players whose side has become committed
// into the matching side roster. It returns the number moved.
func (r *Rosters) promote() int {
	kept := r.Unknown[:0]
	moved := 0
	for _, p := range r.Unknown {
		if !p.SideCommitted() {
			kept = append(kept, p)
			continue
		}
		id := rosterFor(p.Side)
		r.set(id, append(r.Roster(id), p))
		moved++
	}
	clear(r.Unknown[len(kept):])
	r.Unknown = kept
	return moved
}
