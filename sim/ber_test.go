package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTheoryBER(t *testing.T) {
	assert.InDelta(t, 0.0786, TheoryBER(0), 1e-3)
	assert.InDelta(t, 7.83e-4, TheoryBER(10), 5e-5)
	assert.Greater(t, TheoryBER(0), TheoryBER(6))
}

func TestSweepTracksTheory(t *testing.T) {
	cfg := Config{SNRMinDB: 0, SNRMaxDB: 12, SNRStepDB: 2, Bits: 40_000, Seed: 0}
	points := Sweep(cfg)
	require.Len(t, points, 7)

	for i, pt := range points {
		assert.InDelta(t, float64(2*i), pt.SNRdB, 1e-12)
		if i > 0 {
			// Allow a few counting flukes at the quiet end of the sweep.
			assert.LessOrEqual(t, pt.BER, points[i-1].BER+1e-4)
		}
		if th := TheoryBER(pt.SNRdB); th >= 5e-3 {
			assert.InDelta(t, th, pt.BER, 0.3*th, "SNR %v dB", pt.SNRdB)
		}
	}
}

func TestSweepDeterministic(t *testing.T) {
	cfg := Config{SNRMinDB: 0, SNRMaxDB: 4, SNRStepDB: 1, Bits: 10_000, Seed: 9}
	assert.Equal(t, Sweep(cfg), Sweep(cfg))
}
