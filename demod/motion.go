package demod

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"

	"github.com/maxmyrtetus/rf-systems-im3-testbed/waveform"
)

// MotionOptions carries the inputs of a burst-train stability pass.
type MotionOptions struct {
	SampleRateHz float64
	Seconds      float64
	MaskFrac     float64
	PeakThresh   float64
	MinSepMs     float64
}

func DefaultMotionOptions() MotionOptions {
	return MotionOptions{
		SampleRateHz: 2e6,
		Seconds:      2.0,
		MaskFrac:     0.05,
		PeakThresh:   0.6,
		MinSepMs:     5.0,
	}
}

// MotionReport summarizes channel stability across a train of repeated
// bursts. The variance fields are null in JSON when no burst was
// usable.
type MotionReport struct {
	IQFile     string   `json:"iq_file"`
	BurstsUsed int      `json:"bursts_used"`
	PhaseVar   *float64 `json:"phase_var"`
	MagVar     *float64 `json:"mag_var"`
	CFOMeanHz  *float64 `json:"cfo_mean_hz"`
	CFOStdHz   *float64 `json:"cfo_std_hz"`

	// Phases is the unwrapped per-burst channel phase track.
	Phases []float64 `json:"-"`
}

// TrackBursts locates every burst repetition in the first Seconds of
// the capture and fits the fine CFO and channel tap on each, giving a
// per-burst track of how the channel moved. No coarse CFO stage here,
// repeated bursts are assumed close to on-frequency.
func TrackBursts(rx []complex64, spec waveform.Spec, opts MotionOptions) (*MotionReport, error) {
	fs := opts.SampleRateHz
	spec.SampleRate = int(fs)

	burst, err := waveform.Generate(spec)
	if err != nil {
		return nil, err
	}
	ref := burst.Samples

	rx = RemoveDC(rx)
	if limit := int(opts.Seconds * fs); limit < len(rx) {
		rx = rx[:limit]
	}
	if len(rx) < len(ref) {
		return nil, fmt.Errorf("%w: burst is %d samples, capture has %d", ErrInsufficientSamples, len(ref), len(rx))
	}

	_, mag := Locate(rx, ref)
	minSep := int(opts.MinSepMs / 1000 * fs)
	peaks := FindBursts(mag, opts.PeakThresh, minSep, 50)
	log.Debugf("[motion] %d burst candidates above threshold", len(peaks))

	var phases, mags, cfos []float64
	for _, k := range peaks {
		if k+len(ref) > len(rx) {
			continue
		}
		fine := FineCFOChannel(rx[k:k+len(ref)], ref, fs, opts.MaskFrac)
		phases = append(phases, cmplx.Phase(fine.Channel))
		mags = append(mags, cmplx.Abs(fine.Channel))
		cfos = append(cfos, fine.CFOHz)
	}

	unwrapInPlace(phases)

	report := &MotionReport{BurstsUsed: len(phases), Phases: phases}
	if len(phases) > 0 {
		report.PhaseVar = ptr(popVariance(phases))
		report.MagVar = ptr(popVariance(mags))
		report.CFOMeanHz = ptr(stat.Mean(cfos, nil))
		report.CFOStdHz = ptr(popStdDev(cfos))
	}
	return report, nil
}

// unwrapInPlace removes 2*pi jumps from a phase sequence.
func unwrapInPlace(phi []float64) {
	for i := 1; i < len(phi); i++ {
		phi[i] = phi[i-1] + wrapPhase(phi[i]-phi[i-1])
	}
}

// popVariance divides by n, not n-1. The burst count is the whole
// population, not a sample of one.
func popVariance(x []float64) float64 {
	return stat.MomentAbout(2, x, stat.Mean(x, nil), nil)
}

func popStdDev(x []float64) float64 {
	return math.Sqrt(popVariance(x))
}

func ptr(v float64) *float64 { return &v }
