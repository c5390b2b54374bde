// Package iqio reads and writes raw interleaved IQ captures in the two
// 8-bit byte conventions common to cheap SDR hardware.
package iqio

import (
	"fmt"
	"math"
	"os"
)

// Capture byte conventions. RTL-SDR dongles emit unsigned bytes with
// the zero level at 127.5; HackRF-style files carry signed bytes.
const (
	FormatRTLSDR = "rtlsdr"
	FormatHackRF = "hackrf"
)

// ReadCapture loads an interleaved IQ file in the named format.
func ReadCapture(path, format string) ([]complex64, error) {
	switch format {
	case FormatRTLSDR:
		return ReadRTLSDRU8(path)
	case FormatHackRF:
		return ReadHackRFI8(path)
	default:
		return nil, fmt.Errorf("read capture %s: unknown format %q", path, format)
	}
}

// ReadRTLSDRU8 decodes unsigned 8-bit interleaved IQ. A trailing odd
// byte is dropped.
func ReadRTLSDRU8(path string) ([]complex64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", path, err)
	}
	out := make([]complex64, len(raw)/2)
	for i := range out {
		out[i] = complex(u8Level(raw[2*i]), u8Level(raw[2*i+1]))
	}
	return out, nil
}

// ReadHackRFI8 decodes signed 8-bit interleaved IQ. A trailing odd byte
// is dropped.
func ReadHackRFI8(path string) ([]complex64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", path, err)
	}
	out := make([]complex64, len(raw)/2)
	for i := range out {
		out[i] = complex(i8Level(raw[2*i]), i8Level(raw[2*i+1]))
	}
	return out, nil
}

// WriteHackRFI8 stores samples as signed 8-bit interleaved IQ, rounding
// each component to the nearest code at full scale 127.
func WriteHackRFI8(path string, samples []complex64) error {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		buf[2*i] = byte(i8Code(real(s)))
		buf[2*i+1] = byte(i8Code(imag(s)))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write capture %s: %w", path, err)
	}
	return nil
}

func u8Level(b byte) float32 { return (float32(b) - 127.5) / 128.0 }

func i8Level(b byte) float32 { return float32(int8(b)) / 128.0 }

func i8Code(x float32) int8 {
	q := math.Round(float64(x) * 127)
	if q > 127 {
		q = 127
	} else if q < -128 {
		q = -128
	}
	return int8(q)
}
