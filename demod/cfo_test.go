package demod

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/maxmyrtetus/rf-systems-im3-testbed/waveform"
)

func randomSymbols(n int, seed uint64) []complex64 {
	rng := rand.New(rand.NewPCG(seed, seed))
	bits := make([]byte, 2*n)
	for i := range bits {
		bits[i] = byte(rng.Uint64() & 1)
	}
	syms, _ := waveform.BitsToSymbols(bits)
	return syms
}

func TestRemoveDC(t *testing.T) {
	x := make([]complex64, 500)
	for i := range x {
		x[i] = complex(0.3, -0.2)
	}
	x[0] += complex(1, 1)

	RemoveDC(x)

	var re, im float64
	for _, s := range x {
		re += float64(real(s))
		im += float64(imag(s))
	}
	assert.InDelta(t, 0, re/500, 1e-5)
	assert.InDelta(t, 0, im/500, 1e-5)
}

func TestMixDownRoundTrip(t *testing.T) {
	x := randomSymbols(2000, 42)
	back := MixDown(MixDown(x, 2e6, 7500), 2e6, -7500)

	for i := range x {
		assert.InDelta(t, real(x[i]), real(back[i]), 1e-5)
		assert.InDelta(t, imag(x[i]), imag(back[i]), 1e-5)
	}
}

func TestCoarseCFOQPSK4(t *testing.T) {
	// Symbol-rate QPSK has a constant fourth power, so the quadrupled
	// phase step isolates the offset exactly.
	const fs, cfo = 2e6, 5000.0
	x := MixDown(randomSymbols(4000, 7), fs, -cfo)

	got := CoarseCFOQPSK4(x, fs)
	assert.InDelta(t, cfo, got, 1.0)
}

func TestCoarseCFOQPSK4Short(t *testing.T) {
	assert.Zero(t, CoarseCFOQPSK4(make([]complex64, 999), 2e6))
}

func TestCoarseCFOQPSK4AllZero(t *testing.T) {
	assert.Zero(t, CoarseCFOQPSK4(make([]complex64, 5000), 2e6))
}

func TestFineCFOChannelPureChannel(t *testing.T) {
	burst, err := waveform.Generate(waveform.Defaults())
	require.NoError(t, err)
	ref := burst.Samples

	h := cmplx.Rect(0.7, math.Pi/6)
	seg := make([]complex64, len(ref))
	for i, s := range ref {
		seg[i] = complex64(complex128(s) * h)
	}

	fine := FineCFOChannel(seg, ref, 2e6, 0.05)
	assert.InDelta(t, 0, fine.CFOHz, 0.01)
	assert.InDelta(t, 0.7, cmplx.Abs(fine.Channel), 1e-6)
	assert.InDelta(t, math.Pi/6, cmplx.Phase(fine.Channel), 1e-3)
}

func TestFineCFOChannelResidualOffset(t *testing.T) {
	burst, err := waveform.Generate(waveform.Defaults())
	require.NoError(t, err)
	ref := burst.Samples

	// Shift the segment up 300 Hz and expect the slope fit to find it.
	seg := MixDown(ref, 2e6, -300)

	fine := FineCFOChannel(seg, ref, 2e6, 0.05)
	assert.InDelta(t, 300, fine.CFOHz, 0.5)
	assert.InDelta(t, 1.0, cmplx.Abs(fine.Channel), 1e-4)
	assert.InDelta(t, 0, cmplx.Phase(fine.Channel), 1e-3)
}

func TestFineCFOChannelNeutralFallback(t *testing.T) {
	ref := make([]complex64, 100)
	seg := randomSymbols(100, 3)

	fine := FineCFOChannel(seg, ref, 2e6, 0.05)
	assert.Zero(t, fine.CFOHz)
	assert.Equal(t, complex128(1), fine.Channel)
	assert.Equal(t, seg, fine.Corrected)
}

func TestEqualize(t *testing.T) {
	h := cmplx.Rect(0.5, 1.0)
	x := randomSymbols(64, 11)
	scaled := make([]complex64, len(x))
	for i, s := range x {
		scaled[i] = complex64(complex128(s) * h)
	}

	eq := Equalize(scaled, h)
	for i := range x {
		assert.InDelta(t, real(x[i]), real(eq[i]), 1e-5)
		assert.InDelta(t, imag(x[i]), imag(eq[i]), 1e-5)
	}
}

func TestWrapPhase(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := rapid.Float64Range(-1e3, 1e3).Draw(t, "d")
		w := wrapPhase(d)
		assert.GreaterOrEqual(t, w, -math.Pi)
		assert.Less(t, w, math.Pi)

		turns := (d - w) / (2 * math.Pi)
		assert.InDelta(t, math.Round(turns), turns, 1e-6)
	})
}
