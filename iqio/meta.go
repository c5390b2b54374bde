package iqio

import (
	"fmt"
	"os"
	"strings"

	"github.com/maxmyrtetus/rf-systems-im3-testbed/waveform"
)

// WriteMeta writes the k=v sidecar describing a generated waveform so a
// receiver can rebuild it with waveform.ParseMeta. The field set and
// line layout are a wire contract; add keys only at the end.
func WriteMeta(path string, spec waveform.Spec, note string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "fs=%d\n", spec.SampleRate)
	fmt.Fprintf(&b, "sym_rate=%d\n", spec.SymbolRate)
	fmt.Fprintf(&b, "sps=%d\n", spec.SamplesPerSymbol())
	fmt.Fprintf(&b, "beta=%g\n", spec.Rolloff)
	fmt.Fprintf(&b, "span_syms=%d\n", spec.SpanSymbols)
	fmt.Fprintf(&b, "guard_syms=%d\n", spec.GuardSymbols)
	fmt.Fprintf(&b, "preamble_bits=%d (%d syms)\n", spec.PreambleBits, spec.PreambleBits/2)
	fmt.Fprintf(&b, "payload_syms=%d\n", spec.PayloadSymbols)
	fmt.Fprintf(&b, "note=%s\n", note)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write meta %s: %w", path, err)
	}
	return nil
}
