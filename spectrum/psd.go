// Package spectrum estimates power spectra of IQ captures and measures
// two-tone intermodulation products on them.
package spectrum

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Defaults for the averaged PSD. 262144 bins at 2 Msps is a 7.6 Hz
// grid, fine enough to separate tones from their IM3 neighbors.
const (
	DefaultNFFT = 262144
	DefaultNAvg = 10
)

// PSD is a power spectral density on an absolute frequency grid, DC in
// the middle.
type PSD struct {
	FreqHz  []float64
	PowerDB []float64
}

// Average estimates the PSD by Hann-windowing navg frames of nfft
// samples and averaging their magnitude spectra. The capture is
// DC-corrected over its full length first, then zero-padded or
// truncated to fill the frames. Frequencies come out absolute,
// centered on centerHz.
func Average(x []complex64, sampleRate, centerHz float64, nfft, navg int) PSD {
	var meanRe, meanIm float64
	if len(x) > 0 {
		for _, s := range x {
			meanRe += float64(real(s))
			meanIm += float64(imag(s))
		}
		meanRe /= float64(len(x))
		meanIm /= float64(len(x))
	}
	mean := complex(meanRe, meanIm)

	fft := fourier.NewCmplxFFT(nfft)
	frame := make([]complex128, nfft)
	coeff := make([]complex128, nfft)
	power := make([]float64, nfft)

	for f := 0; f < navg; f++ {
		base := f * nfft
		for i := range frame {
			if base+i < len(x) {
				frame[i] = complex128(x[base+i]) - mean
			} else {
				frame[i] = 0
			}
		}
		window.HannComplex(frame)
		coeff = fft.Coefficients(coeff, frame)
		for i, c := range coeff {
			power[i] += real(c)*real(c) + imag(c)*imag(c)
		}
	}

	// fftshift puts negative frequencies first.
	half := nfft / 2
	out := PSD{
		FreqHz:  make([]float64, nfft),
		PowerDB: make([]float64, nfft),
	}
	for i := range out.FreqHz {
		src := (i + nfft - half) % nfft
		out.FreqHz[i] = centerHz + float64(i-half)*sampleRate/float64(nfft)
		out.PowerDB[i] = 10 * math.Log10(power[src]/float64(navg)+1e-30)
	}
	return out
}

// PeakNear returns the highest power strictly inside (f0-halfWidth,
// f0+halfWidth), NaN when no grid point falls in the window.
func PeakNear(p PSD, f0, halfWidth float64) float64 {
	best := math.NaN()
	for i, f := range p.FreqHz {
		if f <= f0-halfWidth || f >= f0+halfWidth {
			continue
		}
		if math.IsNaN(best) || p.PowerDB[i] > best {
			best = p.PowerDB[i]
		}
	}
	return best
}
