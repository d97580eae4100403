package perception

// Choice is one admissible pairing of a tracked player with a sighting in
// the combination search. Sighting is a dense index shared by every
// player's choice list; Cost is the squared displacement.
type Choice struct {
	Sighting int
	Cost     float64
}

// Assignment is the result of a combination search. Targets[i] is the
// sighting chosen for player i, or -1.
type Assignment struct {
	Targets []int
	Mean    float64
	Found   bool
}

// Assigned returns the number of players that received a sighting.
func (a Assignment) Assigned() int {
	n := 0
	for _, t := range a.Targets {
		if t >= 0 {
			n++
		}
	}
	return n
}

// BestCombination searches every assignment of players to distinct
// sightings and returns the one minimising the mean squared displacement
// over the assigned pairs. Players are visited in order; each takes every
// free choice in turn and is left unassigned only when none is free. Among
// equal means the first assignment found is kept.
func BestCombination(options [][]Choice) Assignment {
	a, _ := BestCombinationWithin(options, 0)
	return a
}

// BestCombinationWithin runs the BestCombination search visiting at most
// budget nodes; budget <= 0 means no limit. complete is false when the
// budget ran out, in which case the returned assignment is not optimal.
func BestCombinationWithin(options [][]Choice, budget int) (a Assignment, complete bool) {
	s := &search{options: options, budget: budget}
	s.partial = make([]int, len(options))
	width := 0
	for i, choices := range options {
		s.partial[i] = -1
		for _, c := range choices {
			if c.Sighting >= width {
				width = c.Sighting + 1
			}
		}
	}
	s.used = make([]bool, width)
	s.best = Assignment{Targets: cloneTargets(s.partial)}
	s.combine(0, 0, 0)
	return s.best, !s.exhausted
}

type search struct {
	options   [][]Choice
	used      []bool
	partial   []int
	best      Assignment
	budget    int
	nodes     int
	exhausted bool
}

func (s *search) combine(player int, sum float64, n int) {
	s.nodes++
	if s.budget > 0 && s.nodes > s.budget {
		s.exhausted = true
		return
	}
	if player == len(s.options) {
		if n == 0 {
			return
		}
		mean := sum / float64(n)
		if !s.best.Found || mean < s.best.Mean {
			s.best = Assignment{Targets: cloneTargets(s.partial), Mean: mean, Found: true}
		}
		return
	}

	tried := false
	for _, c := range s.options[player] {
		if s.used[c.Sighting] {
			continue
		}
		tried = true
		s.used[c.Sighting] = true
		s.partial[player] = c.Sighting
		s.combine(player+1, sum+c.Cost, n+1)
		s.partial[player] = -1
		s.used[c.Sighting] = false
		if s.exhausted {
			return
		}
	}
	if !tried {
		s.combine(player+1, sum, n)
	}
}

func cloneTargets(targets []int) []int {
	out := make([]int, len(targets))
	copy(out, targets)
	return out
}

// assignByHungarian solves the same problem for inputs too large to
// enumerate. It returns a maximum-cardinality assignment of minimum total
// cost, which has the minimum mean among assignments of that size.
func assignByHungarian(options [][]Choice, sightings int) Assignment {
	cost := make([][]float64, len(options))
	for i, choices := range options {
		row := make([]float64, sightings)
		for j := range row {
			row[j] = inf
		}
		for _, c := range choices {
			row[c.Sighting] = c.Cost
		}
		cost[i] = row
	}
	targets := hungarianAssign(cost)
	if targets == nil {
		targets = []int{}
	}
	a := Assignment{Targets: targets}
	sum := 0.0
	for i, t := range targets {
		if t >= 0 {
			sum += cost[i][t]
		}
	}
	if n := a.Assigned(); n > 0 {
		a.Mean = sum / float64(n)
		a.Found = true
	}
	return a
}
