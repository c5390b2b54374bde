package demod

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Correlate cross-correlates rx against ref through the frequency
// domain and returns the valid-mode result: out[k] is the correlation
// of rx[k:k+len(ref)] with ref, for k in [0, len(rx)-len(ref)]. Returns
// nil when rx is shorter than ref.
func Correlate(rx, ref []complex64) []complex128 {
	n, l := len(rx), len(ref)
	if n < l || l == 0 {
		return nil
	}
	size := nextPow2(n + l - 1)
	fft := fourier.NewCmplxFFT(size)

	a := make([]complex128, size)
	for i, s := range rx {
		a[i] = complex128(s)
	}
	b := make([]complex128, size)
	for i, s := range ref {
		b[l-1-i] = cmplx.Conj(complex128(s))
	}

	av := fft.Coefficients(nil, a)
	bv := fft.Coefficients(nil, b)
	for i := range av {
		av[i] *= bv[i]
	}
	full := fft.Sequence(nil, av)

	scale := complex(1/float64(size), 0)
	out := make([]complex128, n-l+1)
	for k := range out {
		out[k] = full[k+l-1] * scale
	}
	return out
}

// Locate returns the lag maximizing the correlation magnitude, first
// maximum on ties, along with the magnitude curve.
func Locate(rx, ref []complex64) (int, []float64) {
	corr := Correlate(rx, ref)
	if len(corr) == 0 {
		return -1, nil
	}
	mag := make([]float64, len(corr))
	best := 0
	for i, c := range corr {
		mag[i] = cmplx.Abs(c)
		if mag[i] > mag[best] {
			best = i
		}
	}
	return best, mag
}

// FindBursts scans a correlation magnitude curve for repeated bursts.
// Samples above thresholdFrac of the global peak seed candidates; each
// candidate is refined to the local maximum within localWin samples,
// and accepted peaks must sit at least minSep samples apart.
func FindBursts(mag []float64, thresholdFrac float64, minSep, localWin int) []int {
	var peak float64
	for _, m := range mag {
		if m > peak {
			peak = m
		}
	}
	thr := thresholdFrac * peak

	var peaks []int
	last := -1 << 60
	for k, m := range mag {
		if m <= thr || k-last < minSep {
			continue
		}
		lo := k - localWin
		if lo < 0 {
			lo = 0
		}
		hi := k + localWin
		if hi > len(mag) {
			hi = len(mag)
		}
		kk := lo
		for i := lo; i < hi; i++ {
			if mag[i] > mag[kk] {
				kk = i
			}
		}
		if len(peaks) == 0 || kk-peaks[len(peaks)-1] >= minSep {
			peaks = append(peaks, kk)
			last = kk
		}
	}
	return peaks
}

func nextPow2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
