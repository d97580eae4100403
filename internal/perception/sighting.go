package perception

import "gonum.org/v1/gonum/spatial/r2"

// UnknownUnum marks a sighting or tracked player whose uniform number is
// not known.
const UnknownUnum = 0

// Sighting is one localized observation of a player in the current cycle.
type Sighting struct {
	Unum      int
	Goalie    bool
	Pos       r2.Vec
	Vel       r2.Vec
	HasVel    bool
	DistError float64 // distance-dependent observation error
}

// SightingRef addresses a sighting inside Pools.
type SightingRef struct {
	Pool  PoolID
	Index int
}

// Pools holds the five per-cycle sighting pools. Sightings are never
// copied between pools; consumption is a flag on the slot until Compact
// removes consumed slots.
type Pools struct {
	items    [numPools][]Sighting
	consumed [numPools][]bool
}

// NewPools returns an empty set of pools.
func NewPools() *Pools {
	return &Pools{}
}

// Add appends s to the given pool and returns its reference.
func (p *Pools) Add(pool PoolID, s Sighting) SightingRef {
	p.items[pool] = append(p.items[pool], s)
	p.consumed[pool] = append(p.consumed[pool], false)
	return SightingRef{Pool: pool, Index: len(p.items[pool]) - 1}
}

// Get returns the sighting at ref.
func (p *Pools) Get(ref SightingRef) Sighting {
	return p.items[ref.Pool][ref.Index]
}

// Len returns the number of sightings held in pool, consumed or not.
func (p *Pools) Len(pool PoolID) int {
	return len(p.items[pool])
}

// Total returns the number of sightings across every pool.
func (p *Pools) Total() int {
	n := 0
	for _, items := range p.items {
		n += len(items)
	}
	return n
}

// Consume marks ref as bound to a tracked player.
func (p *Pools) Consume(ref SightingRef) {
	p.consumed[ref.Pool][ref.Index] = true
}

// Consumed reports whether ref has been bound this cycle.
func (p *Pools) Consumed(ref SightingRef) bool {
	return p.consumed[ref.Pool][ref.Index]
}

// Remaining returns references to the unconsumed sightings of pool, in
// insertion order.
func (p *Pools) Remaining(pool PoolID) []SightingRef {
	var refs []SightingRef
	for i, used := range p.consumed[pool] {
		if !used {
			refs = append(refs, SightingRef{Pool: pool, Index: i})
		}
	}
	return refs
}

// Compact drops every consumed sighting. References obtained before the
// call are invalidated.
func (p *Pools) Compact() {
	for pool := range p.items {
		kept := p.items[pool][:0]
		for i, s := range p.items[pool] {
			if !p.consumed[pool][i] {
				kept = append(kept, s)
			}
		}
		p.items[pool] = kept
		p.consumed[pool] = make([]bool, len(kept))
	}
}
