package perception

import "gonum.org/v1/gonum/spatial/r2"

// WorldModel is the agent's view of the other players across cycles.
type WorldModel struct {
	Self    SelfState
	Rosters Rosters

	tracker *Tracker
	types   map[int]*PlayerType
}

// NewWorldModel returns an empty world model that matches sightings with
// tracker.
func NewWorldModel(tracker *Tracker) *WorldModel {
	return &WorldModel{tracker: tracker, types: make(map[int]*PlayerType)}
}

// NewCycle ages every tracked player by one cycle.
func (w *WorldModel) NewCycle() {
	w.Rosters.Each(func(_ RosterID, p *PlayerObject) { p.Age() })
}

// UpdateByVisual records the agent's own pose and reconciles the cycle's
// sightings with the rosters.
func (w *WorldModel) UpdateByVisual(self SelfState, pools *Pools) (Report, error) {
	rep, err := w.tracker.Update(self, pools, &w.Rosters)
	if err != nil {
		return rep, err
	}
	w.Self = self
	return rep, nil
}

// UpdateByHearing records a player position reported over the radio. An
// unknown player is tracked from the heard position alone.
func (w *WorldModel) UpdateByHearing(side Side, unum int, pos r2.Vec) *PlayerObject {
	p := w.Rosters.Find(side, unum)
	if p == nil {
		w.Rosters.nextID++
		p = &PlayerObject{
			ID:           w.Rosters.nextID,
			Side:         side,
			Unum:         unum,
			PosCount:     CountUnknown,
			SeenPosCount: CountUnknown,
			VelCount:     CountUnknown,
		}
		id := rosterFor(side)
		w.Rosters.set(id, append(w.Rosters.Roster(id), p))
	}
	p.UpdateByHearing(pos)
	return p
}

// SetPlayerType registers or replaces a player type definition.
func (w *WorldModel) SetPlayerType(pt PlayerType) {
	t := pt
	w.types[pt.ID] = &t
}

// AssignPlayerType sets the type of the tracked player with the given side
// and uniform number. It reports false when the player or type is unknown.
func (w *WorldModel) AssignPlayerType(side Side, unum, typeID int) bool {
	pt, ok := w.types[typeID]
	if !ok {
		return false
	}
	p := w.Rosters.Find(side, unum)
	if p == nil {
		return false
	}
	p.Type = pt
	return true
}
