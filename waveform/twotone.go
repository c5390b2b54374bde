package waveform

import "math"

// TwoTone synthesizes two equal-power complex exponentials at the given
// baseband offsets, scaled so the envelope peaks at amp when the tones
// align in phase. Used as an intermodulation stimulus.
func TwoTone(sampleRate int, duration, offset1, offset2, amp float64) []complex64 {
	n := int(duration * float64(sampleRate))
	out := make([]complex64, n)
	w1 := 2 * math.Pi * offset1 / float64(sampleRate)
	w2 := 2 * math.Pi * offset2 / float64(sampleRate)
	for i := range out {
		t := float64(i)
		re := math.Cos(w1*t) + math.Cos(w2*t)
		im := math.Sin(w1*t) + math.Sin(w2*t)
		out[i] = complex(float32(amp*re/2), float32(amp*im/2))
	}
	return out
}
