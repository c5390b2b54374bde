package iqio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/maxmyrtetus/rf-systems-im3-testbed/waveform"
)

func writeRaw(t *testing.T, raw []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestReadRTLSDRU8(t *testing.T) {
	path := writeRaw(t, []byte{0, 255, 127, 128})

	x, err := ReadRTLSDRU8(path)
	require.NoError(t, err)
	require.Len(t, x, 2)

	assert.InDelta(t, -127.5/128, real(x[0]), 1e-6)
	assert.InDelta(t, 127.5/128, imag(x[0]), 1e-6)
	assert.InDelta(t, -0.5/128, real(x[1]), 1e-6)
	assert.InDelta(t, 0.5/128, imag(x[1]), 1e-6)
}

func TestReadHackRFI8(t *testing.T) {
	path := writeRaw(t, []byte{0x7F, 0x80, 0x00, 0xFF})

	x, err := ReadHackRFI8(path)
	require.NoError(t, err)
	require.Len(t, x, 2)

	assert.InDelta(t, 127.0/128, real(x[0]), 1e-6)
	assert.InDelta(t, -1.0, imag(x[0]), 1e-6)
	assert.InDelta(t, 0.0, real(x[1]), 1e-6)
	assert.InDelta(t, -1.0/128, imag(x[1]), 1e-6)
}

func TestReadDropsTrailingByte(t *testing.T) {
	path := writeRaw(t, []byte{1, 2, 3})

	x, err := ReadHackRFI8(path)
	require.NoError(t, err)
	assert.Len(t, x, 1)
}

func TestReadCaptureFormats(t *testing.T) {
	path := writeRaw(t, []byte{10, 20})

	_, err := ReadCapture(path, FormatRTLSDR)
	assert.NoError(t, err)
	_, err = ReadCapture(path, FormatHackRF)
	assert.NoError(t, err)
	_, err = ReadCapture(path, "u16")
	assert.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.bin")
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "n")
		x := make([]complex64, n)
		for i := range x {
			x[i] = complex(
				float32(rapid.Float64Range(-1, 1).Draw(t, "re")),
				float32(rapid.Float64Range(-1, 1).Draw(t, "im")),
			)
		}
		require.NoError(t, WriteHackRFI8(path, x))

		got, err := ReadHackRFI8(path)
		require.NoError(t, err)
		require.Len(t, got, n)

		// Write scales by 127, read by 1/128, so one quantization step
		// of slack on top of the scale mismatch.
		for i := range x {
			want := complex64(complex(
				float32(math.Round(float64(real(x[i]))*127)/128),
				float32(math.Round(float64(imag(x[i]))*127)/128),
			))
			assert.InDelta(t, real(want), real(got[i]), 1e-6)
			assert.InDelta(t, imag(want), imag(got[i]), 1e-6)
		}
	})
}

func TestWriteMetaRoundTrip(t *testing.T) {
	spec := waveform.Defaults()
	spec.SymbolRate = 125_000
	spec.SampleRate = 1_000_000
	spec.Rolloff = 0.25
	path := filepath.Join(t.TempDir(), "meta.txt")

	require.NoError(t, WriteMeta(path, spec, "int8 interleaved IQ for HackRF-style TX"))

	got, err := waveform.ParseMeta(path)
	require.NoError(t, err)
	assert.Equal(t, spec, got)
}
