package waveform

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"github.com/racerxdl/segdsp/dsp"
)

// Burst is a fully regenerated reference waveform plus the intermediate
// products a receiver needs to lock onto it.
type Burst struct {
	Spec Spec

	// SymbolStream is guard + preamble + payload + guard at one sample
	// per symbol. PreambleSymbols aliases the preamble region.
	SymbolStream    []complex64
	PreambleSymbols []complex64

	// PayloadBits are the transmitted payload bits, 2 per payload symbol.
	PayloadBits []byte

	// Samples is the shaped burst after peak normalization and the int8
	// quantization round trip, exactly what a capture of the transmitted
	// file would contain at zero offset and unit channel.
	Samples []complex64

	Taps []float32
}

type bitSource struct {
	rng *rand.Rand
}

func newBitSource(seed uint64) *bitSource {
	return &bitSource{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (b *bitSource) draw(n int) []byte {
	bits := make([]byte, n)
	for i := range bits {
		bits[i] = byte(b.rng.Uint64() & 1)
	}
	return bits
}

// Generate regenerates the burst described by spec. The bit source is
// seeded from spec.Seed, preamble bits drawn first and payload bits
// second from the same stream, so any party holding an equal Spec
// produces identical samples.
func Generate(spec Spec) (*Burst, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	sps := spec.SamplesPerSymbol()

	src := newBitSource(spec.Seed)
	preBits := src.draw(spec.PreambleBits)
	payloadBits := src.draw(2 * spec.PayloadSymbols)

	pre, err := BitsToSymbols(preBits)
	if err != nil {
		return nil, err
	}
	payload, err := BitsToSymbols(payloadBits)
	if err != nil {
		return nil, err
	}

	stream := make([]complex64, 0, spec.BurstSymbols())
	stream = append(stream, make([]complex64, spec.GuardSymbols)...)
	stream = append(stream, pre...)
	stream = append(stream, payload...)
	stream = append(stream, make([]complex64, spec.GuardSymbols)...)

	up := make([]complex64, len(stream)*sps)
	for i, s := range stream {
		up[i*sps] = s
	}

	taps := RRCTaps(spec.Rolloff, sps, spec.SpanSymbols)
	shaped := dsp.MakeFirFilter(taps).Work(up)

	var peak float64
	for _, s := range shaped {
		if m := cmplx.Abs(complex128(s)); m > peak {
			peak = m
		}
	}
	scale := float32(spec.Amplitude / (peak + 1e-12))

	samples := make([]complex64, len(shaped))
	for i, s := range shaped {
		samples[i] = complex(quantizeInt8(real(s)*scale), quantizeInt8(imag(s)*scale))
	}

	nPre := spec.PreambleBits / 2
	return &Burst{
		Spec:            spec,
		SymbolStream:    stream,
		PreambleSymbols: stream[spec.GuardSymbols : spec.GuardSymbols+nPre],
		PayloadBits:     payloadBits,
		Samples:         samples,
		Taps:            taps,
	}, nil
}

// quantizeInt8 rounds to the nearest int8 code at full scale 127 and
// returns the dequantized value, reproducing the loss a sample suffers
// on its way through an int8 IQ file.
func quantizeInt8(x float32) float32 {
	q := math.Round(float64(x) * 127)
	if q > 127 {
		q = 127
	} else if q < -128 {
		q = -128
	}
	return float32(q / 127)
}
