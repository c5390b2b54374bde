package waveform

import "math"

// RRCTaps builds a unit-energy root-raised-cosine pulse spanning
// spanSymbols symbol periods at sps samples per symbol. The filter has
// spanSymbols*sps+1 taps and is symmetric about the center tap, so its
// group delay is exactly spanSymbols*sps/2 samples. The two singular
// points of the closed form (t=0 and |t|=1/(4*rolloff)) use their limit
// values.
func RRCTaps(rolloff float64, sps, spanSymbols int) []float32 {
	n := spanSymbols * sps
	taps := make([]float64, n+1)

	for i := range taps {
		t := (float64(i) - float64(n)/2) / float64(sps)
		switch {
		case math.Abs(t) < 1e-12:
			taps[i] = 1 - rolloff + 4*rolloff/math.Pi
		case rolloff > 0 && math.Abs(math.Abs(t)-1/(4*rolloff)) < 1e-12:
			taps[i] = (rolloff / math.Sqrt2) *
				((1+2/math.Pi)*math.Sin(math.Pi/(4*rolloff)) +
					(1-2/math.Pi)*math.Cos(math.Pi/(4*rolloff)))
		default:
			num := math.Sin(math.Pi*t*(1-rolloff)) + 4*rolloff*t*math.Cos(math.Pi*t*(1+rolloff))
			den := math.Pi * t * (1 - (4*rolloff*t)*(4*rolloff*t))
			taps[i] = num / den
		}
	}

	var energy float64
	for _, h := range taps {
		energy += h * h
	}
	norm := math.Sqrt(energy)

	out := make([]float32, len(taps))
	for i, h := range taps {
		out[i] = float32(h / norm)
	}
	return out
}
