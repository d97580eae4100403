package perception

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/rcss.agent/internal/config"
	"github.com/banshee-data/rcss.agent/internal/monitoring"
)

// ErrInvalidSelfPose is returned by Update when the agent's own pose is not
// localized; no tracked player is modified.
var ErrInvalidSelfPose = errors.New("perception: self pose is not valid")

// TrackerConfig holds the gating and search parameters for Tracker.
type TrackerConfig struct {
	DashNoiseFactor       float64 // player_rand
	SelfLocalizationError float64
	HeardSensorError      float64 // sensor error used when gating from a heard position
	ErrorScale            float64 // multiplier on sensor error
	ExhaustiveLimit       int     // above this many ambiguous players the combination search uses Hungarian
	ExhaustiveNodeBudget  int     // search nodes the exhaustive search may visit before falling back to Hungarian
	DefaultRealMaxSpeed   float64 // used when a player's type is unknown
}

// TrackerConfigFromConfig builds a TrackerConfig from a loaded AgentConfig.
func TrackerConfigFromConfig(cfg *config.AgentConfig) TrackerConfig {
	return TrackerConfig{
		DashNoiseFactor:       cfg.GetPlayerRand(),
		SelfLocalizationError: cfg.GetSelfLocalizationError(),
		HeardSensorError:      cfg.GetHeardSensorError(),
		ErrorScale:            cfg.GetErrorScale(),
		ExhaustiveLimit:       cfg.GetExhaustiveLimit(),
		ExhaustiveNodeBudget:  cfg.GetExhaustiveNodeBudget(),
		DefaultRealMaxSpeed:   cfg.GetDefaultRealMaxSpeed(),
	}
}

// DefaultTrackerConfig returns the built-in defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfigFromConfig(config.EmptyAgentConfig())
}

// SelfState is the agent's own localized pose for the current cycle.
type SelfState struct {
	Pos   r2.Vec
	Vel   r2.Vec
	Face  float64
	Valid bool
}

// Phase identifies the matching step that produced a binding.
type Phase int

const (
	PhaseIdentity    Phase = 1
	PhaseUnambiguous Phase = 3
	PhaseCombination Phase = 4
)

func (p Phase) String() string {
	switch p {
	case PhaseIdentity:
		return "identity"
	case PhaseUnambiguous:
		return "unambiguous"
	case PhaseCombination:
		return "combination"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Binding records one sighting applied to one tracked player.
type Binding struct {
	Player   *PlayerObject
	Sighting Sighting
	Pool     PoolID
	Dist2    float64
	Phase    Phase
}

// Search strategies used for the ambiguous residual.
const (
	StrategyNone       = ""
	StrategyExhaustive = "exhaustive"
	StrategyHungarian  = "hungarian"
)

// Report summarises one Update call.
type Report struct {
	Bindings  []Binding
	Created   []*PlayerObject
	Promoted  int    // unknown-side players moved to a side roster
	Ambiguous int    // players entering the combination search
	Strategy  string // search used for the ambiguous residual
	Mean      float64
}

// Count returns the number of bindings made in phase p.
func (r Report) Count(p Phase) int {
	n := 0
	for _, b := range r.Bindings {
		if b.Phase == p {
			n++
		}
	}
	return n
}

// Tracker reconciles sighting pools with the tracked-player rosters.
type Tracker struct {
	cfg  TrackerConfig
	logf func(format string, v ...interface{})
}

// NewTracker returns a Tracker using cfg.
func NewTracker(cfg TrackerConfig) *Tracker {
	return &Tracker{cfg: cfg, logf: monitoring.Tagged("tracker")}
}

// Config returns the tracker's configuration.
func (t *Tracker) Config() TrackerConfig { return t.cfg }

type candidate struct {
	ref   SightingRef
	dist2 float64
}

type pending struct {
	player     *PlayerObject
	candidates []candidate
}

// prune drops candidates whose sighting has been consumed.
func (p *pending) prune(pools *Pools) {
	kept := p.candidates[:0]
	for _, c := range p.candidates {
		if !pools.Consumed(c.ref) {
			kept = append(kept, c)
		}
	}
	p.candidates = kept
}

// Update matches this cycle's sightings against rosters, refreshes the
// bound players, removes consumed sightings from pools and creates tracked
// players for the sightings left over.
func (t *Tracker) Update(self SelfState, pools *Pools, rosters *Rosters) (Report, error) {
	var rep Report
	if !self.Valid {
		return rep, ErrInvalidSelfPose
	}

	bound := make(map[*PlayerObject]bool)
	bind := func(p *PlayerObject, c candidate, phase Phase) {
		s := pools.Get(c.ref)
		pools.Consume(c.ref)
		bound[p] = true
		rep.Bindings = append(rep.Bindings, Binding{
			Player:   p,
			Sighting: s,
			Pool:     c.ref.Pool,
			Dist2:    c.dist2,
			Phase:    phase,
		})
	}

	t.matchIdentities(pools, rosters, bound, bind)

	residual := t.collectCandidates(pools, rosters, bound)
	residual = resolveUnambiguous(pools, residual, bind)
	t.resolveCombination(pools, residual, &rep, bind)

	for _, b := range rep.Bindings {
		side := b.Pool.Side()
		if b.Player.SideCommitted() {
			side = b.Player.Side
		}
		b.Player.UpdateBySighting(side, b.Sighting)
	}

	pools.Compact()
	for _, pool := range AllPools {
		for _, ref := range pools.Remaining(pool) {
			rep.Created = append(rep.Created, rosters.spawn(pool.Side(), pools.Get(ref)))
		}
	}
	rep.Promoted = rosters.promote()

	if rep.Ambiguous > 0 {
		t.logf("bound %d identity, %d unambiguous, %d of %d ambiguous via %s (mean %.3f); created %d",
			rep.Count(PhaseIdentity), rep.Count(PhaseUnambiguous), rep.Count(PhaseCombination),
			rep.Ambiguous, rep.Strategy, rep.Mean, len(rep.Created))
	}
	return rep, nil
}

// matchIdentities binds numbered sightings to the tracked player of the
// same side and uniform number, regardless of distance.
func (t *Tracker) matchIdentities(pools *Pools, rosters *Rosters, bound map[*PlayerObject]bool, bind func(*PlayerObject, candidate, Phase)) {
	for _, pool := range []PoolID{PoolTeammate, PoolOpponent} {
		roster := rosters.Roster(rosterFor(pool.Side()))
		for _, ref := range pools.Remaining(pool) {
			s := pools.Get(ref)
			if s.Unum == UnknownUnum {
				continue
			}
			for _, p := range roster {
				if p.Unum != s.Unum || bound[p] {
					continue
				}
				c := candidate{ref: ref, dist2: r2.Norm2(r2.Sub(s.Pos, p.Pos))}
				bind(p, c, PhaseIdentity)
				break
			}
		}
	}
}

// UncertaintyRadius returns the gating reference position for p and the
// radius within which s may be matched to it. The reference is the more
// recently refreshed of the seen and heard positions.
func (t *Tracker) UncertaintyRadius(p *PlayerObject, s Sighting) (r2.Vec, float64) {
	ref := p.SeenPos
	count := p.SeenPosCount
	sensorErr := s.DistError
	if p.HeardPosValid() && (p.HeardPosCount < p.SeenPosCount || !p.SeenPosValid()) {
		ref = p.HeardPos
		count = p.HeardPosCount
		sensorErr = t.cfg.HeardSensorError
	}
	speed := p.realMaxSpeed(t.cfg.DefaultRealMaxSpeed)
	radius := speed*(1+t.cfg.DashNoiseFactor)*float64(count) +
		t.cfg.SelfLocalizationError +
		sensorErr*t.cfg.ErrorScale
	return ref, radius
}

// collectCandidates gates every unbound tracked player against the pools
// it may be matched from. Candidate lists are sorted by distance.
func (t *Tracker) collectCandidates(pools *Pools, rosters *Rosters, bound map[*PlayerObject]bool) []*pending {
	var out []*pending
	rosters.Each(func(id RosterID, p *PlayerObject) {
		if bound[p] {
			return
		}
		e := &pending{player: p}
		for _, pool := range id.scanPools() {
			for _, ref := range pools.Remaining(pool) {
				s := pools.Get(ref)
				if s.Unum != UnknownUnum && p.Unum != UnknownUnum && s.Unum != p.Unum {
					continue
				}
				center, radius := t.UncertaintyRadius(p, s)
				d2 := r2.Norm2(r2.Sub(s.Pos, center))
				if d2 > radius*radius {
					continue
				}
				e.candidates = append(e.candidates, candidate{ref: ref, dist2: d2})
			}
		}
		if len(e.candidates) == 0 {
			return
		}
		sort.SliceStable(e.candidates, func(i, j int) bool {
			return e.candidates[i].dist2 < e.candidates[j].dist2
		})
		out = append(out, e)
	})
	return out
}

// resolveUnambiguous repeatedly binds a player whose only remaining
// candidate is not also the only candidate of another player. It returns
// the players still holding candidates.
func resolveUnambiguous(pools *Pools, players []*pending, bind func(*PlayerObject, candidate, Phase)) []*pending {
	for {
		live := players[:0]
		for _, e := range players {
			e.prune(pools)
			if len(e.candidates) > 0 {
				live = append(live, e)
			}
		}
		players = live

		found := -1
		for i, e := range players {
			if len(e.candidates) != 1 {
				continue
			}
			shared := false
			for j, o := range players {
				if j != i && len(o.candidates) == 1 && o.candidates[0].ref == e.candidates[0].ref {
					shared = true
					break
				}
			}
			if !shared {
				found = i
				break
			}
		}
		if found < 0 {
			return players
		}
		bind(players[found].player, players[found].candidates[0], PhaseUnambiguous)
		players = append(players[:found], players[found+1:]...)
	}
}

// resolveCombination assigns the ambiguous residual, exhaustively when the
// search fits the player limit and node budget, by Hungarian assignment
// otherwise.
func (t *Tracker) resolveCombination(pools *Pools, players []*pending, rep *Report, bind func(*PlayerObject, candidate, Phase)) {
	if len(players) == 0 {
		return
	}

	index := make(map[SightingRef]int)
	var refs []SightingRef
	options := make([][]Choice, len(players))
	for i, e := range players {
		for _, c := range e.candidates {
			k, ok := index[c.ref]
			if !ok {
				k = len(refs)
				index[c.ref] = k
				refs = append(refs, c.ref)
			}
			options[i] = append(options[i], Choice{Sighting: k, Cost: c.dist2})
		}
	}

	rep.Ambiguous = len(players)
	var a Assignment
	complete := false
	if len(players) <= t.cfg.ExhaustiveLimit {
		a, complete = BestCombinationWithin(options, t.cfg.ExhaustiveNodeBudget)
		if !complete {
			t.logf("combination search over %d players and %d sightings exceeded %d nodes",
				len(players), len(refs), t.cfg.ExhaustiveNodeBudget)
		}
	}
	if complete {
		rep.Strategy = StrategyExhaustive
	} else {
		rep.Strategy = StrategyHungarian
		a = assignByHungarian(options, len(refs))
	}
	rep.Mean = a.Mean

	for i, k := range a.Targets {
		if k < 0 {
			continue
		}
		for _, c := range players[i].candidates {
			if c.ref == refs[k] {
				bind(players[i].player, c, PhaseCombination)
				break
			}
		}
	}
}

// SetConfig replaces the tracker's configuration, e.g. after the server
// announces player_rand.
func (t *Tracker) SetConfig(cfg TrackerConfig) { t.cfg = cfg }
