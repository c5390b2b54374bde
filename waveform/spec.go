package waveform

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// GeneratorPCG64 identifies the seeded bit source used for reference
// regeneration: PCG-64 seeded with (seed, seed), one bit per draw from
// the low bit of Uint64. The identity is part of the waveform contract;
// changing the algorithm or the bit extraction needs a new identity
// string, otherwise receivers regenerate a different burst than the
// transmitter sent.
const GeneratorPCG64 = "pcg64-lsb/v1"

// Spec describes a QPSK burst waveform completely enough for a receiver
// to regenerate the transmitted samples bit for bit. Construct it from
// Defaults or ParseMeta and treat it as read-only afterwards.
type Spec struct {
	SampleRate     int
	SymbolRate     int
	Rolloff        float64
	SpanSymbols    int
	GuardSymbols   int
	PreambleBits   int
	PayloadSymbols int
	Seed           uint64
	Amplitude      float64
	Generator      string
}

// SpecError reports a waveform description that cannot produce a burst.
type SpecError struct {
	Field  string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("waveform spec: %s: %s", e.Field, e.Reason)
}

func Defaults() Spec {
	return Spec{
		SampleRate:     2_000_000,
		SymbolRate:     250_000,
		Rolloff:        0.35,
		SpanSymbols:    10,
		GuardSymbols:   200,
		PreambleBits:   256,
		PayloadSymbols: 4000,
		Seed:           1234,
		Amplitude:      0.25,
		Generator:      GeneratorPCG64,
	}
}

func (s Spec) Validate() error {
	if s.SymbolRate <= 0 {
		return &SpecError{Field: "symbol_rate", Reason: fmt.Sprintf("%d is not positive", s.SymbolRate)}
	}
	if s.SampleRate <= 0 {
		return &SpecError{Field: "sample_rate", Reason: fmt.Sprintf("%d is not positive", s.SampleRate)}
	}
	if s.SampleRate%s.SymbolRate != 0 {
		return &SpecError{Field: "sample_rate", Reason: fmt.Sprintf("%d is not an integer multiple of symbol rate %d", s.SampleRate, s.SymbolRate)}
	}
	if s.Rolloff <= 0 || s.Rolloff > 1 {
		return &SpecError{Field: "rolloff", Reason: fmt.Sprintf("%g is outside (0, 1]", s.Rolloff)}
	}
	if s.SpanSymbols < 1 {
		return &SpecError{Field: "span_symbols", Reason: fmt.Sprintf("%d is below 1", s.SpanSymbols)}
	}
	if s.GuardSymbols < 0 {
		return &SpecError{Field: "guard_symbols", Reason: fmt.Sprintf("%d is negative", s.GuardSymbols)}
	}
	if s.PreambleBits <= 0 || s.PreambleBits%2 != 0 {
		return &SpecError{Field: "preamble_bits", Reason: fmt.Sprintf("%d is not a positive even count", s.PreambleBits)}
	}
	if s.PayloadSymbols <= 0 {
		return &SpecError{Field: "payload_symbols", Reason: fmt.Sprintf("%d is not positive", s.PayloadSymbols)}
	}
	if s.Amplitude <= 0 || s.Amplitude > 1 {
		return &SpecError{Field: "amplitude", Reason: fmt.Sprintf("%g is outside (0, 1]", s.Amplitude)}
	}
	if s.Generator != GeneratorPCG64 {
		return &SpecError{Field: "generator", Reason: fmt.Sprintf("unknown bit source %q", s.Generator)}
	}
	return nil
}

// SamplesPerSymbol is only meaningful on a spec that passes Validate.
func (s Spec) SamplesPerSymbol() int { return s.SampleRate / s.SymbolRate }

// BurstSymbols is the symbol-stream length: guard + preamble + payload + guard.
func (s Spec) BurstSymbols() int {
	return 2*s.GuardSymbols + s.PreambleBits/2 + s.PayloadSymbols
}

// BurstSamples is the shaped waveform length, one symbol period per symbol.
func (s Spec) BurstSamples() int { return s.BurstSymbols() * s.SamplesPerSymbol() }

var metaNumber = regexp.MustCompile(`[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)

// ParseMeta reads the k=v metadata text written next to a generated
// waveform file, applied on top of Defaults. See WithMeta.
func ParseMeta(path string) (Spec, error) {
	return Defaults().WithMeta(path)
}

// WithMeta returns a copy of s with the fields present in the metadata
// file applied over it. Values may carry trailing annotations
// ("256 (128 syms)"); the first embedded number wins. Unknown keys and
// lines without an embedded number are skipped. A missing file, or an
// empty path, returns s unchanged. A declared sps that contradicts fs
// and sym_rate is an error; everything else is checked by Validate at
// generation time.
func (s Spec) WithMeta(path string) (Spec, error) {
	spec := s
	if path == "" {
		return spec, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return spec, nil
		}
		return spec, fmt.Errorf("read meta %s: %w", path, err)
	}

	sps := 0
	for _, line := range strings.Split(string(raw), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		num := metaNumber.FindString(strings.TrimSpace(v))
		if num == "" {
			continue
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		switch k {
		case "fs":
			spec.SampleRate = int(f)
		case "sym_rate":
			spec.SymbolRate = int(f)
		case "sps":
			sps = int(f)
		case "span_syms":
			spec.SpanSymbols = int(f)
		case "guard_syms":
			spec.GuardSymbols = int(f)
		case "payload_syms":
			spec.PayloadSymbols = int(f)
		case "beta":
			spec.Rolloff = f
		case "amp":
			spec.Amplitude = f
		}
	}

	if sps != 0 && sps*spec.SymbolRate != spec.SampleRate {
		return spec, &SpecError{
			Field:  "sps",
			Reason: fmt.Sprintf("declared %d contradicts fs=%d sym_rate=%d", sps, spec.SampleRate, spec.SymbolRate),
		}
	}
	return spec, nil
}
