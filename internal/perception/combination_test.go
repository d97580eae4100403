package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	s1 = iota
	s2
	s3
)

func TestBestCombination(t *testing.T) {
	tests := []struct {
		name    string
		options [][]Choice
		want    []int
		mean    float64
		found   bool
	}{
		{
			name:    "no players",
			options: nil,
			want:    []int{},
		},
		{
			name:    "no choices",
			options: [][]Choice{nil, nil},
			want:    []int{-1, -1},
		},
		{
			name: "nearest first is not optimal",
			options: [][]Choice{
				{{s1, 1.0}, {s2, 1.44}},
				{{s1, 1.21}, {s2, 9.0}},
			},
			want:  []int{s2, s1},
			mean:  (1.44 + 1.21) / 2,
			found: true,
		},
		{
			name: "player left unassigned when every choice is taken",
			options: [][]Choice{
				{{s1, 1.0}, {s2, 25.0}},
				{{s1, 1.21}, {s3, 1.0}},
				{{s3, 1.1025}},
			},
			want:  []int{s1, s3, -1},
			mean:  1.0,
			found: true,
		},
		{
			name: "equal means keep the first found",
			options: [][]Choice{
				{{s1, 4}, {s2, 4}},
			},
			want:  []int{s1},
			mean:  4,
			found: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BestCombination(tt.options)
			assert.Equal(t, tt.want, got.Targets)
			assert.Equal(t, tt.found, got.Found)
			assert.InDelta(t, tt.mean, got.Mean, 1e-9)
		})
	}
}

func TestBestCombination_DistinctSightings(t *testing.T) {
	options := [][]Choice{
		{{s1, 1}, {s2, 2}, {s3, 3}},
		{{s1, 1}, {s2, 2}, {s3, 3}},
		{{s1, 1}, {s2, 2}, {s3, 3}},
	}
	got := BestCombination(options)
	seen := map[int]bool{}
	for _, k := range got.Targets {
		assert.False(t, seen[k], "sighting %d assigned twice", k)
		seen[k] = true
	}
	assert.Equal(t, 3, got.Assigned())
}

func TestBestCombinationWithin(t *testing.T) {
	dense := make([][]Choice, 6)
	for i := range dense {
		for k := range 10 {
			dense[i] = append(dense[i], Choice{Sighting: k, Cost: float64((i + k) % 7)})
		}
	}

	t.Run("budget exhausted", func(t *testing.T) {
		_, complete := BestCombinationWithin(dense, 500)
		assert.False(t, complete)
	})

	t.Run("no budget matches BestCombination", func(t *testing.T) {
		options := dense[:3]
		got, complete := BestCombinationWithin(options, 0)
		assert.True(t, complete)
		assert.Equal(t, BestCombination(options), got)
	})

	t.Run("budget large enough", func(t *testing.T) {
		// 1 + 3 + 3*2 + 3*2*1 nodes.
		options := [][]Choice{
			{{s1, 1}, {s2, 2}, {s3, 3}},
			{{s1, 1}, {s2, 2}, {s3, 3}},
			{{s1, 1}, {s2, 2}, {s3, 3}},
		}
		got, complete := BestCombinationWithin(options, 16)
		assert.True(t, complete)
		assert.Equal(t, 3, got.Assigned())

		_, complete = BestCombinationWithin(options, 15)
		assert.False(t, complete)
	})
}

func TestAssignByHungarian(t *testing.T) {
	t.Run("matches exhaustive search at equal cardinality", func(t *testing.T) {
		options := [][]Choice{
			{{s1, 1.0}, {s2, 1.44}},
			{{s1, 1.21}, {s2, 9.0}},
		}
		exhaustive := BestCombination(options)
		hungarian := assignByHungarian(options, 2)
		assert.Equal(t, exhaustive.Targets, hungarian.Targets)
		assert.InDelta(t, exhaustive.Mean, hungarian.Mean, 1e-9)
	})

	t.Run("maximises assigned players", func(t *testing.T) {
		options := [][]Choice{
			{{s1, 1.0}, {s2, 25.0}},
			{{s1, 1.21}, {s3, 1.0}},
			{{s3, 1.1025}},
		}
		got := assignByHungarian(options, 3)
		assert.Equal(t, []int{s2, s1, s3}, got.Targets)
		assert.Equal(t, 3, got.Assigned())
	})

	t.Run("empty", func(t *testing.T) {
		got := assignByHungarian(nil, 0)
		assert.False(t, got.Found)
		assert.Empty(t, got.Targets)
	})
}
