package waveform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(Defaults())
	require.NoError(t, err)
	b, err := Generate(Defaults())
	require.NoError(t, err)

	require.Equal(t, a.PayloadBits, b.PayloadBits)
	require.Equal(t, a.Samples, b.Samples)
	require.Equal(t, a.SymbolStream, b.SymbolStream)
}

func TestGenerateDimensions(t *testing.T) {
	burst, err := Generate(Defaults())
	require.NoError(t, err)

	assert.Len(t, burst.SymbolStream, 4528)
	assert.Len(t, burst.Samples, 36224)
	assert.Len(t, burst.PreambleSymbols, 128)
	assert.Len(t, burst.PayloadBits, 8000)
	assert.Len(t, burst.Taps, 81)
}

func TestGenerateLeadingGuardSilent(t *testing.T) {
	burst, err := Generate(Defaults())
	require.NoError(t, err)

	// The pulse shaper is causal, so the leading guard region stays zero.
	quiet := Defaults().GuardSymbols * Defaults().SamplesPerSymbol()
	for i := 0; i < quiet; i++ {
		require.Equal(t, complex64(0), burst.Samples[i], "sample %d", i)
	}
}

func TestGenerateQuantizationGrid(t *testing.T) {
	burst, err := Generate(Defaults())
	require.NoError(t, err)

	for i, s := range burst.Samples {
		for _, c := range []float64{float64(real(s)), float64(imag(s))} {
			require.LessOrEqual(t, math.Abs(c), 1.0, "sample %d out of range", i)
			code := c * 127
			require.InDelta(t, math.Round(code), code, 1e-3, "sample %d off grid", i)
		}
	}
}

func TestGenerateSeedChangesPayload(t *testing.T) {
	spec := Defaults()
	a, err := Generate(spec)
	require.NoError(t, err)

	spec.Seed = 5678
	b, err := Generate(spec)
	require.NoError(t, err)

	assert.NotEqual(t, a.PayloadBits, b.PayloadBits)
	assert.NotEqual(t, a.Samples, b.Samples)
}

func TestGenerateRejectsFractionalSPS(t *testing.T) {
	spec := Defaults()
	spec.SampleRate = 2_000_001
	_, err := Generate(spec)

	var serr *SpecError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "sample_rate", serr.Field)
}

func TestGenerateBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		symRate := rapid.IntRange(1, 50).Draw(t, "symRateK") * 1000
		spec := Spec{
			SampleRate:     symRate * rapid.IntRange(2, 8).Draw(t, "sps"),
			SymbolRate:     symRate,
			Rolloff:        rapid.Float64Range(0.05, 1.0).Draw(t, "rolloff"),
			SpanSymbols:    rapid.IntRange(4, 10).Draw(t, "span"),
			GuardSymbols:   rapid.IntRange(0, 50).Draw(t, "guard"),
			PreambleBits:   2 * rapid.IntRange(1, 32).Draw(t, "prePairs"),
			PayloadSymbols: rapid.IntRange(10, 200).Draw(t, "payload"),
			Seed:           rapid.Uint64().Draw(t, "seed"),
			Amplitude:      rapid.Float64Range(0.1, 1.0).Draw(t, "amp"),
			Generator:      GeneratorPCG64,
		}
		burst, err := Generate(spec)
		require.NoError(t, err)
		require.Len(t, burst.Samples, spec.BurstSamples())

		for _, s := range burst.Samples {
			assert.LessOrEqual(t, math.Abs(float64(real(s))), 1.0)
			assert.LessOrEqual(t, math.Abs(float64(imag(s))), 1.0)
		}
	})
}
