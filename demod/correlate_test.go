package demod

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelateMatchesDirect(t *testing.T) {
	rx := randomSymbols(40, 21)
	ref := randomSymbols(7, 22)

	got := Correlate(rx, ref)
	require.Len(t, got, 34)

	for k := range got {
		var want complex128
		for i := range ref {
			want += complex128(rx[k+i]) * cmplx.Conj(complex128(ref[i]))
		}
		assert.InDelta(t, real(want), real(got[k]), 1e-6, "lag %d", k)
		assert.InDelta(t, imag(want), imag(got[k]), 1e-6, "lag %d", k)
	}
}

func TestCorrelateShortInput(t *testing.T) {
	assert.Nil(t, Correlate(randomSymbols(5, 1), randomSymbols(6, 2)))
}

func TestLocateEmbeddedReference(t *testing.T) {
	ref := randomSymbols(512, 31)
	rx := make([]complex64, 8192)
	copy(rx[5000:], ref)

	start, mag := Locate(rx, ref)
	assert.Equal(t, 5000, start)
	assert.Len(t, mag, len(rx)-len(ref)+1)
}

func TestLocateShortInput(t *testing.T) {
	start, mag := Locate(randomSymbols(5, 1), randomSymbols(6, 2))
	assert.Equal(t, -1, start)
	assert.Nil(t, mag)
}

func TestFindBursts(t *testing.T) {
	mag := make([]float64, 2000)
	mag[299], mag[300], mag[301] = 0.8, 1.0, 0.8
	mag[1199], mag[1200], mag[1201] = 0.7, 0.9, 0.7

	peaks := FindBursts(mag, 0.6, 500, 50)
	assert.Equal(t, []int{300, 1200}, peaks)
}

func TestFindBurstsMinimumSeparation(t *testing.T) {
	mag := make([]float64, 1000)
	mag[100] = 1.0
	mag[250] = 0.95

	peaks := FindBursts(mag, 0.6, 500, 50)
	assert.Equal(t, []int{100}, peaks)
}

func TestFindBurstsAllZero(t *testing.T) {
	assert.Empty(t, FindBursts(make([]float64, 1000), 0.6, 100, 50))
}
