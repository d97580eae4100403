package gametime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Time
		want int
	}{
		{"equal", New(10, 2), New(10, 2), 0},
		{"cycle before", New(9, 5), New(10, 0), -1},
		{"cycle after", New(11, 0), New(10, 9), 1},
		{"stopped before", New(10, 1), New(10, 2), -1},
		{"stopped after", New(10, 3), New(10, 2), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, tt.want < 0, tt.a.Before(tt.b))
			assert.Equal(t, tt.want > 0, tt.a.After(tt.b))
		})
	}
}

func TestNextStopped(t *testing.T) {
	t.Parallel()

	tm := New(0, 0)
	assert.True(t, tm.IsZero())

	next := tm.NextStopped()
	assert.Equal(t, New(0, 1), next)
	assert.False(t, next.IsZero())
	assert.True(t, tm.Before(next))
	assert.Equal(t, "[0, 1]", next.String())
}
