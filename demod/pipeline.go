// Package demod recovers QPSK bursts from raw IQ captures and measures
// link quality. The pipeline regenerates the transmitted burst from its
// waveform description, locates it in the capture by correlation, then
// strips carrier offset in two stages and fits a single-tap channel.
// Symbol timing is recovered by exhaustive phase search against the
// known preamble.
package demod

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/charmbracelet/log"
	"github.com/racerxdl/segdsp/dsp"

	"github.com/maxmyrtetus/rf-systems-im3-testbed/waveform"
)

// ErrInsufficientSamples means the capture cannot contain a whole burst.
var ErrInsufficientSamples = errors.New("insufficient samples")

// Coarse CFO estimator selection.
const (
	CoarseModeQPSK4 = "qpsk4"
	CoarseModeNone  = "none"
)

// Options carries the per-capture analysis inputs.
type Options struct {
	CarrierHz     float64
	SampleRateHz  float64
	SearchSeconds float64
	MaskFrac      float64
	Coarse        string
}

func DefaultOptions() Options {
	return Options{
		CarrierHz:     915e6,
		SampleRateHz:  2e6,
		SearchSeconds: 1.0,
		MaskFrac:      0.05,
		Coarse:        CoarseModeQPSK4,
	}
}

// Metrics is the JSON report of one analyzed capture. Field names are a
// wire contract shared with downstream plotting and logging tooling.
type Metrics struct {
	IQFile          string  `json:"iq_file"`
	FCHz            float64 `json:"fc_hz"`
	FSHz            float64 `json:"fs_hz"`
	BurstStart      int     `json:"burst_start_sample"`
	CoarseCFOHz     float64 `json:"coarse_cfo_hz"`
	FineCFOHz       float64 `json:"fine_cfo_hz"`
	CFOTotalHz      float64 `json:"cfo_total_hz"`
	CFOPPM          float64 `json:"cfo_ppm"`
	HHatMag         float64 `json:"h_hat_mag"`
	HHatPhaseDeg    float64 `json:"h_hat_phase_deg"`
	TimingTau       int     `json:"timing_tau_samples"`
	EVMPreamblePct  float64 `json:"evm_preamble_pct"`
	EVMSamplePct    float64 `json:"evm_sample_pct"`
	EVMSymbolPct    float64 `json:"evm_symbol_pct"`
	PayloadBER      float64 `json:"payload_ber"`
	PayloadBitsUsed int     `json:"payload_bits_used"`
	SNREstDB        float64 `json:"snr_est_db"`
	Notes           string  `json:"notes"`
}

const analysisNotes = "Correlation sync + coarse CFO(QPSK^4) + fine CFO slope + single-tap channel + matched filter + timing search + hard-decision BER"

// Result is the full output of Analyze, raw products included.
type Result struct {
	Burst          *waveform.Burst
	CorrelationMag []float64
	BurstStart     int
	CoarseCFOHz    float64
	FineCFOHz      float64
	Channel        complex128
	Tau            int
	Gain           complex128

	// Symbols is the gain-normalized recovered stream over the preamble
	// and payload region; PayloadSymbols aliases its payload part.
	Symbols        []complex64
	PayloadSymbols []complex64
	Bits           []byte

	Metrics Metrics
}

type Analyzer struct {
	opts Options
}

func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Analyze runs the burst recovery pipeline over a capture. The sample
// rate in spec is overridden by the analyzer's, since the receiver
// knows what rate it captured at. The capture slice is modified in
// place by DC removal.
func (a *Analyzer) Analyze(rx []complex64, spec waveform.Spec) (*Result, error) {
	fs := a.opts.SampleRateHz
	spec.SampleRate = int(fs)

	burst, err := waveform.Generate(spec)
	if err != nil {
		return nil, err
	}
	ref := burst.Samples

	rx = RemoveDC(rx)

	searchLen := len(rx)
	if limit := int(a.opts.SearchSeconds * fs); limit < searchLen {
		searchLen = limit
	}
	if searchLen < len(ref) {
		return nil, fmt.Errorf("%w: burst is %d samples, search window has %d", ErrInsufficientSamples, len(ref), searchLen)
	}

	coarse := 0.0
	if a.opts.Coarse == CoarseModeQPSK4 {
		coarse = CoarseCFOQPSK4(rx[:searchLen], fs)
		log.Debugf("[cfo] coarse estimate %+.1f Hz", coarse)
	}

	rxc := MixDown(rx, fs, coarse)

	start, mag := Locate(rxc[:searchLen], ref)
	log.Debugf("[sync] burst starts at sample %d", start)

	seg := rxc[start : start+len(ref)]
	fine := FineCFOChannel(seg, ref, fs, a.opts.MaskFrac)
	log.Debugf("[cfo] fine estimate %+.2f Hz", fine.CFOHz)
	log.Debugf("[channel] h magnitude %.4f, phase %.2f deg", cmplx.Abs(fine.Channel), phaseDeg(fine.Channel))

	eq := Equalize(fine.Corrected, fine.Channel)
	evmSample := EVMMasked(eq, ref, fine.Mask)

	log.Debugf("[timing] applying matched filter, %d taps", len(burst.Taps))
	y := dsp.MakeFirFilter(burst.Taps).Work(eq)

	groupDelay := (len(burst.Taps) - 1) / 2
	timing, err := RecoverTiming(y, burst.PreambleSymbols, spec.GuardSymbols, spec.SamplesPerSymbol(), groupDelay)
	if err != nil {
		return nil, err
	}

	nPre := spec.PreambleBits / 2
	startSym := spec.GuardSymbols
	endSym := startSym + nPre + spec.PayloadSymbols
	if endSym > len(timing.Symbols) {
		endSym = len(timing.Symbols)
	}

	g := timing.Gain + complex(1e-12, 0)
	symbols := make([]complex64, endSym-startSym)
	for i := range symbols {
		symbols[i] = complex64(complex128(timing.Symbols[startSym+i]) / g)
	}
	evmSymbol := EVM(symbols, burst.SymbolStream[startSym:endSym])

	payload := symbols[nPre:]
	bits := waveform.SymbolsToBits(payload)
	bitErrs, compared := BitErrors(bits, burst.PayloadBits)
	ber := math.NaN()
	if compared > 0 {
		ber = float64(bitErrs) / float64(compared)
	}

	total := coarse + fine.CFOHz
	res := &Result{
		Burst:          burst,
		CorrelationMag: mag,
		BurstStart:     start,
		CoarseCFOHz:    coarse,
		FineCFOHz:      fine.CFOHz,
		Channel:        fine.Channel,
		Tau:            timing.Tau,
		Gain:           timing.Gain,
		Symbols:        symbols,
		PayloadSymbols: payload,
		Bits:           bits,
		Metrics: Metrics{
			FCHz:            a.opts.CarrierHz,
			FSHz:            fs,
			BurstStart:      start,
			CoarseCFOHz:     coarse,
			FineCFOHz:       fine.CFOHz,
			CFOTotalHz:      total,
			CFOPPM:          CFOppm(total, a.opts.CarrierHz),
			HHatMag:         cmplx.Abs(fine.Channel),
			HHatPhaseDeg:    phaseDeg(fine.Channel),
			TimingTau:       timing.Tau,
			EVMPreamblePct:  timing.PreambleEVM * 100,
			EVMSamplePct:    evmSample * 100,
			EVMSymbolPct:    evmSymbol * 100,
			PayloadBER:      ber,
			PayloadBitsUsed: compared,
			SNREstDB:        SNRM2M4(payload),
			Notes:           analysisNotes,
		},
	}
	return res, nil
}

func phaseDeg(h complex128) float64 {
	return cmplx.Phase(h) * 180 / math.Pi
}
