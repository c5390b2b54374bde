package demod

import (
	"math"
	"math/cmplx"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"
)

// RemoveDC subtracts the complex mean from x in place and returns x.
func RemoveDC(x []complex64) []complex64 {
	if len(x) == 0 {
		return x
	}
	var re, im float64
	for _, s := range x {
		re += float64(real(s))
		im += float64(imag(s))
	}
	mean := complex(float32(re/float64(len(x))), float32(im/float64(len(x))))
	for i := range x {
		x[i] -= mean
	}
	return x
}

// MixDown shifts x down by freqHz, multiplying sample n by
// exp(-i*2*pi*freqHz*n/sampleRate). A negative freqHz shifts up.
func MixDown(x []complex64, sampleRate, freqHz float64) []complex64 {
	w := -2 * math.Pi * freqHz / sampleRate
	out := make([]complex64, len(x))
	for n, s := range x {
		rot := cmplx.Exp(complex(0, w*float64(n)))
		out[n] = complex64(complex128(s) * rot)
	}
	return out
}

// CoarseCFOQPSK4 estimates carrier offset by raising the signal to the
// fourth power, which wipes the QPSK modulation and leaves a tone at
// four times the offset. The phase step between consecutive quadrupled
// samples gives the estimate. Returns 0 when the capture is too short
// or the accumulator degenerates.
func CoarseCFOQPSK4(x []complex64, sampleRate float64) float64 {
	if len(x) < 1000 {
		log.Debugf("[cfo] %d samples is too short for the quadrupling estimate", len(x))
		return 0
	}
	var sum complex128
	var prev complex128
	for n, s := range x {
		z := complex128(s)
		z2 := z * z
		z4 := z2 * z2
		if n > 0 {
			sum += z4 * cmplx.Conj(prev)
		}
		prev = z4
	}
	mean := sum / complex(float64(len(x)-1), 0)
	if cmplx.IsNaN(mean) || cmplx.IsInf(mean) {
		log.Debugf("[cfo] quadrupling accumulator degenerated, using 0 Hz")
		return 0
	}
	return sampleRate * cmplx.Phase(mean) / (2 * math.Pi) / 4
}

// FineEstimate is the residual CFO and single-tap channel fitted over a
// burst-length segment.
type FineEstimate struct {
	CFOHz     float64
	Channel   complex128
	Corrected []complex64
	Mask      []bool
}

// FineCFOChannel fits the residual offset as the slope of the unwrapped
// phase of seg against the reference, restricted to samples where the
// reference magnitude clears maskFrac of its peak. The channel tap is
// the least-squares fit of the reference onto the corrected segment
// over the same mask. Fewer than 10 masked samples yields the neutral
// estimate (0 Hz, unit channel) with seg passed through untouched.
func FineCFOChannel(seg, ref []complex64, sampleRate, maskFrac float64) FineEstimate {
	var peak float64
	for _, s := range ref {
		if m := cmplx.Abs(complex128(s)); m > peak {
			peak = m
		}
	}
	thr := maskFrac * peak

	mask := make([]bool, len(ref))
	var idx, phi []float64
	prev := 0.0
	acc := 0.0
	for i := range ref {
		if cmplx.Abs(complex128(ref[i])) <= thr {
			continue
		}
		mask[i] = true
		raw := cmplx.Phase(complex128(seg[i]) * cmplx.Conj(complex128(ref[i])))
		if len(phi) == 0 {
			acc = raw
		} else {
			acc += wrapPhase(raw - prev)
		}
		prev = raw
		idx = append(idx, float64(i))
		phi = append(phi, acc)
	}

	if len(phi) < 10 {
		log.Debugf("[cfo] only %d masked samples, keeping neutral fine estimate", len(phi))
		return FineEstimate{CFOHz: 0, Channel: 1, Corrected: seg, Mask: mask}
	}

	_, slope := stat.LinearRegression(idx, phi, nil, false)
	cfo := slope * sampleRate / (2 * math.Pi)

	corrected := MixDown(seg, sampleRate, cfo)

	var num complex128
	var den float64
	for i, on := range mask {
		if !on {
			continue
		}
		r := complex128(ref[i])
		num += cmplx.Conj(r) * complex128(corrected[i])
		den += real(r)*real(r) + imag(r)*imag(r)
	}
	return FineEstimate{CFOHz: cfo, Channel: num / complex(den, 0), Corrected: corrected, Mask: mask}
}

// Equalize divides out the single-tap channel estimate.
func Equalize(x []complex64, h complex128) []complex64 {
	d := h + complex(1e-12, 0)
	out := make([]complex64, len(x))
	for i, s := range x {
		out[i] = complex64(complex128(s) / d)
	}
	return out
}

// wrapPhase maps a phase difference into [-pi, pi).
func wrapPhase(d float64) float64 {
	d = math.Mod(d+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d - math.Pi
}
