package spectrum

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/charmbracelet/log"
)

// IM3Report holds the fundamental and third-order product powers
// measured from a two-tone capture and the spacing between them.
// Powers are relative to the capture scale, so oip3_rel_db is an
// output-referred figure without absolute calibration. Field names
// are a wire contract.
type IM3Report struct {
	F1Hz       float64 `json:"f1_hz"`
	F2Hz       float64 `json:"f2_hz"`
	FIM3LowHz  float64 `json:"fim3_low_hz"`
	FIM3HighHz float64 `json:"fim3_high_hz"`
	P1DB       float64 `json:"p1_db"`
	P2DB       float64 `json:"p2_db"`
	PIM3LowDB  float64 `json:"pim3l_db"`
	PIM3HighDB float64 `json:"pim3h_db"`
	PFundDB    float64 `json:"pfund_db"`
	PIM3DB     float64 `json:"pim3_db"`
	DeltaDB    float64 `json:"delta_db"`
	OIP3RelDB  float64 `json:"oip3_rel_db"`
}

// IM3 reads tone and product powers off a PSD. The third-order
// products of tones at f1 and f2 land at 2*f1-f2 and 2*f2-f1; each
// power is the peak within halfWidth of its nominal spot. The relative
// OIP3 extrapolates from the fundamental-to-product spacing, half the
// delta above the fundamental.
func IM3(p PSD, f1, f2, halfWidth float64) IM3Report {
	fLow := 2*f1 - f2
	fHigh := 2*f2 - f1

	p1 := PeakNear(p, f1, halfWidth)
	p2 := PeakNear(p, f2, halfWidth)
	pLow := PeakNear(p, fLow, halfWidth)
	pHigh := PeakNear(p, fHigh, halfWidth)

	pFund := nanMean(p1, p2)
	pIM3 := nanMean(pLow, pHigh)
	delta := pFund - pIM3

	return IM3Report{
		F1Hz:       f1,
		F2Hz:       f2,
		FIM3LowHz:  fLow,
		FIM3HighHz: fHigh,
		P1DB:       p1,
		P2DB:       p2,
		PIM3LowDB:  pLow,
		PIM3HighDB: pHigh,
		PFundDB:    pFund,
		PIM3DB:     pIM3,
		DeltaDB:    delta,
		OIP3RelDB:  pFund + delta/2,
	}
}

func nanMean(a, b float64) float64 {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return math.NaN()
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	default:
		return (a + b) / 2
	}
}

// Candidate is a spectral peak considered as a tone.
type Candidate struct {
	FreqHz  float64
	PowerDB float64
}

// Candidates lists up to k peaks inside [fmin, fmax], skipping
// anything within excludeHalfWidth of excludeHz, strongest first, each
// more than minSep away from the ones already taken.
func Candidates(p PSD, fmin, fmax, excludeHz, excludeHalfWidth float64, k int, minSep float64) []Candidate {
	var pool []Candidate
	for i, f := range p.FreqHz {
		if f < fmin || f > fmax {
			continue
		}
		if math.Abs(f-excludeHz) <= excludeHalfWidth {
			continue
		}
		pool = append(pool, Candidate{FreqHz: f, PowerDB: p.PowerDB[i]})
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].PowerDB > pool[j].PowerDB })

	var chosen []Candidate
	for _, c := range pool {
		if len(chosen) == k {
			break
		}
		ok := true
		for _, prev := range chosen {
			if math.Abs(c.FreqHz-prev.FreqHz) <= minSep {
				ok = false
				break
			}
		}
		if ok {
			chosen = append(chosen, c)
		}
	}
	return chosen
}

// TonePair is a candidate pairing with f1 below f2.
type TonePair struct {
	F1Hz, F2Hz float64
	P1DB, P2DB float64
}

// ChooseTonePair ranks every cross pairing of the two candidate lists
// by closeness to the expected spacing, then total power, then
// centroid distance from centerHz. With requireStraddle the pair must
// bracket centerHz. Returns nil when no pairing qualifies.
func ChooseTonePair(c1, c2 []Candidate, expectedSep, centerHz float64, requireStraddle bool) *TonePair {
	const eps = 1e-9
	var best *TonePair
	var bestSep, bestSum, bestCtr float64

	for _, a := range c1 {
		for _, b := range c2 {
			f1, p1 := a.FreqHz, a.PowerDB
			f2, p2 := b.FreqHz, b.PowerDB
			if f1 > f2 {
				f1, f2 = f2, f1
				p1, p2 = p2, p1
			}
			if f2 <= f1 {
				continue
			}
			if requireStraddle && !(f1 < centerHz && centerHz < f2) {
				continue
			}

			sepErr := math.Abs((f2 - f1) - expectedSep)
			sumP := p1 + p2
			ctrErr := math.Abs((f1+f2)/2 - centerHz)

			better := false
			switch {
			case best == nil:
				better = true
			case sepErr < bestSep-eps:
				better = true
			case sepErr > bestSep+eps:
			case sumP > bestSum+eps:
				better = true
			case sumP < bestSum-eps:
			default:
				better = ctrErr < bestCtr-eps
			}
			if better {
				best = &TonePair{F1Hz: f1, F2Hz: f2, P1DB: p1, P2DB: p2}
				bestSep, bestSum, bestCtr = sepErr, sumP, ctrErr
			}
		}
	}
	return best
}

// TwoToneConfig drives AnalyzeTwoTone. The nominal tone frequencies
// and center are absolute.
type TwoToneConfig struct {
	CenterHz       float64
	SampleRateHz   float64
	F1Hz           float64
	F2Hz           float64
	NFFT           int
	NAvg           int
	SearchWindowHz float64
	ExcludeFCHz    float64
	CandidateK     int
	CandidateSepHz float64
	PeakWindowHz   float64
}

func DefaultTwoToneConfig() TwoToneConfig {
	return TwoToneConfig{
		CenterHz:       915e6,
		SampleRateHz:   2e6,
		F1Hz:           914.75e6,
		F2Hz:           915.25e6,
		NFFT:           DefaultNFFT,
		NAvg:           DefaultNAvg,
		SearchWindowHz: 250e3,
		ExcludeFCHz:    150e3,
		CandidateK:     6,
		CandidateSepHz: 10e3,
		PeakWindowHz:   30e3,
	}
}

// TwoToneResult is the IM3 report plus the tone-lock bookkeeping that
// explains which peaks were measured.
type TwoToneResult struct {
	IM3Report
	FCHz           float64 `json:"fc_hz"`
	FSHz           float64 `json:"fs_hz"`
	F1NomHz        float64 `json:"f1_nom_hz"`
	F2NomHz        float64 `json:"f2_nom_hz"`
	F1MeasHz       float64 `json:"f1_meas_hz"`
	F2MeasHz       float64 `json:"f2_meas_hz"`
	P1MeasDB       float64 `json:"p1_meas_db"`
	P2MeasDB       float64 `json:"p2_meas_db"`
	ExpectedSepHz  float64 `json:"expected_sep_hz"`
	MeasuredSepHz  float64 `json:"measured_sep_hz"`
	SepErrHz       float64 `json:"sep_err_hz"`
	ToneCenterHz   float64 `json:"tone_center_hz"`
	CenterErrHz    float64 `json:"center_err_hz"`
	ExcludeFCHz    float64 `json:"exclude_fc_hz"`
	SearchWindowHz float64 `json:"search_window_hz"`

	PSD PSD `json:"-"`
}

// AnalyzeTwoTone locks onto the measured tone pair near the nominal
// frequencies and measures IM3 on it. Peaks within ExcludeFCHz of the
// center are ignored so LO leakage cannot masquerade as a tone. When no
// pair straddles the center, the straddle requirement is relaxed before
// giving up.
func AnalyzeTwoTone(x []complex64, cfg TwoToneConfig) (*TwoToneResult, error) {
	psd := Average(x, cfg.SampleRateHz, cfg.CenterHz, cfg.NFFT, cfg.NAvg)

	cand1 := Candidates(psd, cfg.F1Hz-cfg.SearchWindowHz, cfg.F1Hz+cfg.SearchWindowHz,
		cfg.CenterHz, cfg.ExcludeFCHz, cfg.CandidateK, cfg.CandidateSepHz)
	cand2 := Candidates(psd, cfg.F2Hz-cfg.SearchWindowHz, cfg.F2Hz+cfg.SearchWindowHz,
		cfg.CenterHz, cfg.ExcludeFCHz, cfg.CandidateK, cfg.CandidateSepHz)
	if len(cand1) == 0 || len(cand2) == 0 {
		return nil, fmt.Errorf("no spectral peaks within %.0f Hz of the nominal tones", cfg.SearchWindowHz)
	}
	log.Debugf("[im3] %d and %d tone candidates", len(cand1), len(cand2))

	expectedSep := cfg.F2Hz - cfg.F1Hz
	pair := ChooseTonePair(cand1, cand2, expectedSep, cfg.CenterHz, true)
	if pair == nil {
		log.Debugf("[im3] no pair straddles the center, relaxing")
		pair = ChooseTonePair(cand1, cand2, expectedSep, cfg.CenterHz, false)
	}
	if pair == nil {
		return nil, errors.New("no usable tone pair among candidates")
	}
	log.Debugf("[im3] locked tones at %.1f and %.1f Hz", pair.F1Hz, pair.F2Hz)

	rep := IM3(psd, pair.F1Hz, pair.F2Hz, cfg.PeakWindowHz)
	if math.IsNaN(rep.PFundDB) || math.IsNaN(rep.PIM3DB) {
		return nil, fmt.Errorf("IM3 products at %.0f and %.0f Hz fall outside the analyzed span",
			rep.FIM3LowHz, rep.FIM3HighHz)
	}

	sep := pair.F2Hz - pair.F1Hz
	center := (pair.F1Hz + pair.F2Hz) / 2
	return &TwoToneResult{
		IM3Report:      rep,
		FCHz:           cfg.CenterHz,
		FSHz:           cfg.SampleRateHz,
		F1NomHz:        cfg.F1Hz,
		F2NomHz:        cfg.F2Hz,
		F1MeasHz:       pair.F1Hz,
		F2MeasHz:       pair.F2Hz,
		P1MeasDB:       pair.P1DB,
		P2MeasDB:       pair.P2DB,
		ExpectedSepHz:  expectedSep,
		MeasuredSepHz:  sep,
		SepErrHz:       math.Abs(sep - expectedSep),
		ToneCenterHz:   center,
		CenterErrHz:    math.Abs(center - cfg.CenterHz),
		ExcludeFCHz:    cfg.ExcludeFCHz,
		SearchWindowHz: cfg.SearchWindowHz,
		PSD:            psd,
	}, nil
}
