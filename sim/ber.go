// Package sim runs link-level QPSK simulations used to sanity-check
// hardware measurements against theory.
package sim

import (
	"math"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/maxmyrtetus/rf-systems-im3-testbed/waveform"
)

// Config sets the SNR sweep. SNR is Es/N0 in dB.
type Config struct {
	SNRMinDB  float64
	SNRMaxDB  float64
	SNRStepDB float64
	Bits      int
	Seed      uint64
}

func DefaultConfig() Config {
	return Config{
		SNRMinDB:  0,
		SNRMaxDB:  12,
		SNRStepDB: 1,
		Bits:      400_000,
		Seed:      0,
	}
}

// Point is one measured sweep point.
type Point struct {
	SNRdB float64
	BER   float64
}

// Sweep simulates hard-decision QPSK over AWGN at each SNR point,
// drawing fresh bits per point from one seeded stream so runs
// reproduce exactly.
func Sweep(cfg Config) []Point {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	nBits := cfg.Bits - cfg.Bits%2

	steps := int((cfg.SNRMaxDB-cfg.SNRMinDB)/cfg.SNRStepDB+1e-9) + 1
	points := make([]Point, 0, steps)
	for i := 0; i < steps; i++ {
		snrDB := cfg.SNRMinDB + float64(i)*cfg.SNRStepDB
		sigma := math.Sqrt(1 / math.Pow(10, snrDB/10) / 2)

		bits := make([]byte, nBits)
		for j := range bits {
			bits[j] = byte(rng.Uint64() & 1)
		}
		syms, err := waveform.BitsToSymbols(bits)
		if err != nil {
			// nBits is forced even above.
			panic(err)
		}
		for j, s := range syms {
			syms[j] = s + complex(float32(sigma*rng.NormFloat64()), float32(sigma*rng.NormFloat64()))
		}

		errs := 0
		for j, b := range waveform.SymbolsToBits(syms) {
			if b != bits[j] {
				errs++
			}
		}
		ber := float64(errs) / float64(nBits)
		log.Infof("SNR=%2.0f dB  BER=%.3e", snrDB, ber)
		points = append(points, Point{SNRdB: snrDB, BER: ber})
	}
	return points
}

// TheoryBER is the exact QPSK bit error probability over AWGN with
// Gray mapping and hard decisions, 0.5*erfc(sqrt(Es/N0)/sqrt(2)).
func TheoryBER(snrDB float64) float64 {
	esn0 := math.Pow(10, snrDB/10)
	return 0.5 * math.Erfc(math.Sqrt(esn0)/math.Sqrt2)
}
