package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, sampleRate, freqHz, amp float64) []complex64 {
	x := make([]complex64, n)
	w := 2 * math.Pi * freqHz / sampleRate
	for i := range x {
		x[i] = complex(float32(amp*math.Cos(w*float64(i))), float32(amp*math.Sin(w*float64(i))))
	}
	return x
}

func TestAverageGrid(t *testing.T) {
	const (
		fs     = 1e6
		center = 915e6
		nfft   = 1024
	)
	p := Average(make([]complex64, 4096), fs, center, nfft, 4)

	require.Len(t, p.FreqHz, nfft)
	require.Len(t, p.PowerDB, nfft)
	assert.InDelta(t, center-fs/2, p.FreqHz[0], 1e-3)
	assert.InDelta(t, center, p.FreqHz[nfft/2], 1e-3)
	assert.InDelta(t, fs/float64(nfft), p.FreqHz[1]-p.FreqHz[0], 1e-6)
}

func TestAverageFindsTone(t *testing.T) {
	const (
		fs     = 1e6
		nfft   = 4096
		navg   = 4
		offset = 100e3
	)
	x := tone(nfft*navg, fs, offset, 0.5)

	p := Average(x, fs, 0, nfft, navg)

	best := 0
	for i := range p.PowerDB {
		if p.PowerDB[i] > p.PowerDB[best] {
			best = i
		}
	}
	assert.InDelta(t, offset, p.FreqHz[best], fs/nfft+1)
}

func TestAverageRemovesDC(t *testing.T) {
	const (
		fs   = 1e6
		nfft = 4096
	)
	x := tone(nfft*2, fs, 200e3, 0.25)
	for i := range x {
		x[i] += complex(0.5, -0.3)
	}

	p := Average(x, fs, 0, nfft, 2)

	toneP := PeakNear(p, 200e3, 1e3)
	dcP := PeakNear(p, 0, 1e3)
	assert.Greater(t, toneP, dcP+20)
}

func TestPeakNear(t *testing.T) {
	p := PSD{
		FreqHz:  []float64{100, 200, 300, 400},
		PowerDB: []float64{-50, -10, -20, -60},
	}

	assert.InDelta(t, -10, PeakNear(p, 200, 50), 1e-12)
	assert.InDelta(t, -10, PeakNear(p, 250, 60), 1e-12)
	assert.True(t, math.IsNaN(PeakNear(p, 1000, 50)))

	// Window edges are exclusive.
	assert.True(t, math.IsNaN(PeakNear(p, 150, 50)))
}
