package demod

import (
	"fmt"
	"math/cmplx"

	"github.com/charmbracelet/log"
)

// TimingLockError reports a symbol timing search that found no usable
// sampling phase.
type TimingLockError struct {
	PhasesTried int
	TooShort    int
	NoEnergy    int
	NeedSymbols int
}

func (e *TimingLockError) Error() string {
	return fmt.Sprintf("timing lock failed: %d sampling phases tried, %d too short, %d without preamble energy, need %d symbols",
		e.PhasesTried, e.TooShort, e.NoEnergy, e.NeedSymbols)
}

// TimingResult is the winning sampling phase of the timing search.
type TimingResult struct {
	Tau         int
	Gain        complex128
	PreambleEVM float64

	// Symbols is the full decimated stream at phase Tau, starting at
	// symbol index 0 of the reference stream, not gain-normalized.
	Symbols []complex64
}

// RecoverTiming decimates the matched-filter output y at each of the
// sps candidate phases and keeps the one whose preamble, after a
// per-phase complex gain fit, has the lowest EVM against the known
// preamble. The first strict minimum wins ties. Decimation starts at
// tau plus twice the filter group delay, one delay for the transmit
// pulse and one for the matched filter. A phase is usable only if it
// yields guardSymbols+len(preamble)+10 symbols and the recovered
// preamble carries nonzero energy; with no usable phase the search
// fails with a TimingLockError.
func RecoverTiming(y, preamble []complex64, guardSymbols, sps, groupDelay int) (TimingResult, error) {
	need := guardSymbols + len(preamble) + 10

	var preEnergy float64
	for _, s := range preamble {
		preEnergy += float64(real(s))*float64(real(s)) + float64(imag(s))*float64(imag(s))
	}

	best := TimingResult{Tau: -1}
	tooShort, noEnergy := 0, 0
	for tau := 0; tau < sps; tau++ {
		start := tau + 2*groupDelay
		if start >= len(y) {
			tooShort++
			continue
		}
		symbols := make([]complex64, 0, (len(y)-start+sps-1)/sps)
		for i := start; i < len(y); i += sps {
			symbols = append(symbols, y[i])
		}
		if len(symbols) < need {
			tooShort++
			continue
		}

		preRx := symbols[guardSymbols : guardSymbols+len(preamble)]
		var num complex128
		var energy float64
		for i, s := range preRx {
			num += cmplx.Conj(complex128(preamble[i])) * complex128(s)
			energy += float64(real(s))*float64(real(s)) + float64(imag(s))*float64(imag(s))
		}
		if energy == 0 {
			log.Debugf("[timing] phase %d recovered no preamble energy", tau)
			noEnergy++
			continue
		}

		gain := num / complex(preEnergy, 0)
		evm := gainAlignedEVM(preRx, preamble, gain)
		if best.Tau < 0 || evm < best.PreambleEVM {
			best = TimingResult{Tau: tau, Gain: gain, PreambleEVM: evm, Symbols: symbols}
		}
	}

	if best.Tau < 0 {
		return TimingResult{}, &TimingLockError{
			PhasesTried: sps,
			TooShort:    tooShort,
			NoEnergy:    noEnergy,
			NeedSymbols: need,
		}
	}
	log.Debugf("[timing] locked at phase %d, preamble EVM %.3f%%", best.Tau, best.PreambleEVM*100)
	return best, nil
}

// gainAlignedEVM divides the fitted gain out of rx and measures EVM
// against ref.
func gainAlignedEVM(rx, ref []complex64, gain complex128) float64 {
	g := gain + complex(1e-12, 0)
	aligned := make([]complex64, len(rx))
	for i, s := range rx {
		aligned[i] = complex64(complex128(s) / g)
	}
	return EVM(aligned, ref)
}
