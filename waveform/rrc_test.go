package waveform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRRCTapsShape(t *testing.T) {
	taps := RRCTaps(0.35, 8, 10)
	require.Len(t, taps, 81)

	n := len(taps) - 1
	for i := 0; i <= n/2; i++ {
		assert.InDelta(t, taps[i], taps[n-i], 1e-9, "tap %d vs %d", i, n-i)
	}

	center := taps[n/2]
	for i, h := range taps {
		assert.LessOrEqual(t, h, center, "tap %d above center", i)
	}
}

func TestRRCTapsUnitEnergy(t *testing.T) {
	for _, rolloff := range []float64{0.1, 0.25, 0.35, 0.5, 1.0} {
		var energy float64
		for _, h := range RRCTaps(rolloff, 8, 10) {
			energy += float64(h) * float64(h)
		}
		assert.InDelta(t, 1.0, energy, 1e-6, "rolloff %g", rolloff)
	}
}

func TestRRCTapsSingularPoints(t *testing.T) {
	// rolloff 0.25 puts |t| = 1/(4*rolloff) = 1 exactly on a tap.
	taps := RRCTaps(0.25, 4, 6)
	for i, h := range taps {
		require.False(t, math.IsNaN(float64(h)) || math.IsInf(float64(h), 0), "tap %d not finite", i)
	}
}
