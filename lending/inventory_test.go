package lending

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDelta(t *testing.T) {
	assert.Equal(t, 2, ApplyDelta(3, 3, -1))
	assert.Equal(t, 0, ApplyDelta(3, 0, -1))
	assert.Equal(t, 3, ApplyDelta(3, 3, 1))
	assert.Equal(t, 1, ApplyDelta(3, 0, 1))
}

func TestAdjustTotal(t *testing.T) {
	tests := []struct {
		name                     string
		total, available, newTot int
		wantTotal, wantAvailable int
	}{
		{"grow", 5, 3, 8, 8, 6},
		{"shrink within available", 5, 5, 3, 3, 3},
		{"shrink below zero clamps", 5, 1, 2, 2, 0},
		{"shrink with loans out", 5, 3, 3, 3, 1},
		{"negative total clamps to zero", 2, 2, -4, 0, 0},
		{"unchanged", 4, 2, 4, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, avail := AdjustTotal(tt.total, tt.available, tt.newTot)
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantAvailable, avail)
			assert.GreaterOrEqual(t, avail, 0)
			assert.LessOrEqual(t, avail, total)
		})
	}
}
