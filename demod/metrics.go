package demod

import (
	"math"

	"github.com/racerxdl/segdsp/tools"
)

// EVM is the RMS error of x against ref normalized by the RMS of ref.
func EVM(x, ref []complex64) float64 {
	var errSum, refSum float64
	for i := range x {
		errSum += float64(tools.ComplexAbsSquared(x[i] - ref[i]))
		refSum += float64(tools.ComplexAbsSquared(ref[i]))
	}
	return math.Sqrt(errSum / refSum)
}

// EVMMasked is EVM restricted to the samples where mask is set.
func EVMMasked(x, ref []complex64, mask []bool) float64 {
	var errSum, refSum float64
	for i, on := range mask {
		if !on {
			continue
		}
		errSum += float64(tools.ComplexAbsSquared(x[i] - ref[i]))
		refSum += float64(tools.ComplexAbsSquared(ref[i]))
	}
	return math.Sqrt(errSum / refSum)
}

// BitErrors compares got against want over their common prefix and
// returns the error count and the number of bits compared.
func BitErrors(got, want []byte) (errs, compared int) {
	compared = len(got)
	if len(want) < compared {
		compared = len(want)
	}
	for i := 0; i < compared; i++ {
		if got[i] != want[i] {
			errs++
		}
	}
	return errs, compared
}

// CFOppm expresses a frequency offset as parts per million of the
// carrier.
func CFOppm(cfoHz, carrierHz float64) float64 {
	if carrierHz == 0 {
		return 0
	}
	return cfoHz / carrierHz * 1e6
}

// SNRM2M4 estimates SNR from the second and fourth moments of the
// symbol magnitudes, after Pauluzzi and Beaulieu, "A comparison of SNR
// estimation techniques for the AWGN channel". For a constant-modulus
// constellation S = sqrt(2*M2^2 - M4) and N = M2 - S. The result is
// clamped to [0, 100] dB so a noiseless capture stays representable.
func SNRM2M4(x []complex64) float64 {
	if len(x) == 0 {
		return 0
	}
	var m2, m4 float64
	for _, s := range x {
		p := float64(tools.ComplexAbsSquared(s))
		m2 += p
		m4 += p * p
	}
	m2 /= float64(len(x))
	m4 /= float64(len(x))

	radicand := 2*m2*m2 - m4
	if radicand < 0 {
		radicand = 0
	}
	signal := math.Sqrt(radicand)
	noise := m2 - signal
	if noise <= 0 {
		return 100
	}
	snr := 10 * math.Log10(signal/noise)
	if snr < 0 {
		return 0
	}
	if snr > 100 {
		return 100
	}
	return snr
}
