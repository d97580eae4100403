package perception

import "math"

var inf = math.Inf(1)

// hungarianAssign solves the rectangular assignment problem for an n×m cost
// matrix with the Kuhn-Munkres algorithm in O(dim³). Entries that are +Inf
// (or NaN) are forbidden. It returns assignments[i] = column assigned to
// row i, or -1 if row i is left unassigned.
//
// Forbidden and padding cells are replaced by a penalty larger than the sum
// of every admissible cost, so the solver first maximises the number of
// admissible pairs and then minimises their total cost.
func hungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := 0
	for _, row := range cost {
		if len(row) > m {
			m = len(row)
		}
	}
	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	if m == 0 {
		return result
	}

	admissible := func(i, j int) bool {
		if j >= len(cost[i]) {
			return false
		}
		x := cost[i][j]
		return !math.IsInf(x, 0) && !math.IsNaN(x)
	}

	penalty := 1.0
	for i := range cost {
		for j := range cost[i] {
			if admissible(i, j) {
				penalty += math.Abs(cost[i][j])
			}
		}
	}

	dim := max(n, m)
	c := make([][]float64, dim)
	for i := range dim {
		c[i] = make([]float64, dim)
		for j := range dim {
			if i < n && admissible(i, j) {
				c[i][j] = cost[i][j]
			} else {
				c[i][j] = penalty
			}
		}
	}

	// Potentials, 1-indexed; column 0 is the virtual start column.
	const inf = math.MaxFloat64 / 2
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				break
			}
			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	for j := 1; j <= dim; j++ {
		row := p[j] - 1
		col := j - 1
		if row >= 0 && row < n && admissible(row, col) {
			result[row] = col
		}
	}
	return result
}
