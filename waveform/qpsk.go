package waveform

import "fmt"

const invSqrt2 = 0.7071067811865476

// BitsToSymbols Gray-maps bit pairs onto unit-energy QPSK symbols. The
// first bit of each pair selects the quadrature sign, the second the
// in-phase sign: 00 maps to (+1+1i)/sqrt2, 01 to (-1+1i)/sqrt2, 11 to
// (-1-1i)/sqrt2 and 10 to (+1-1i)/sqrt2. Adjacent constellation points
// differ in one bit, so a nearest-neighbor decision error costs one bit.
func BitsToSymbols(bits []byte) ([]complex64, error) {
	if len(bits)%2 != 0 {
		return nil, fmt.Errorf("qpsk map: odd bit count %d", len(bits))
	}
	syms := make([]complex64, len(bits)/2)
	for i := range syms {
		re := float32(invSqrt2)
		im := float32(invSqrt2)
		if bits[2*i] != 0 {
			im = -im
		}
		if bits[2*i+1] != 0 {
			re = -re
		}
		syms[i] = complex(re, im)
	}
	return syms, nil
}

// SymbolsToBits hard-decides each symbol back into its bit pair by
// quadrant, the inverse of BitsToSymbols.
func SymbolsToBits(syms []complex64) []byte {
	bits := make([]byte, 2*len(syms))
	for i, s := range syms {
		if imag(s) < 0 {
			bits[2*i] = 1
		}
		if real(s) < 0 {
			bits[2*i+1] = 1
		}
	}
	return bits
}
