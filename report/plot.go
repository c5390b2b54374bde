package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/maxmyrtetus/rf-systems-im3-testbed/sim"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/spectrum"
)

func savePNG(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	log.Infof("Saved: %s", path)
	return nil
}

// SaveCorrelation plots the correlation magnitude around the detected
// burst, window samples each side.
func SaveCorrelation(path string, mag []float64, peak, window int) error {
	lo := peak - window
	if lo < 0 {
		lo = 0
	}
	hi := peak + window
	if hi > len(mag) {
		hi = len(mag)
	}

	pts := make(plotter.XYs, 0, hi-lo)
	for i := lo; i < hi; i++ {
		pts = append(pts, plotter.XY{X: float64(i), Y: mag[i]})
	}

	p := plot.New()
	p.Title.Text = "Burst detection via correlation"
	p.X.Label.Text = "Sample index"
	p.Y.Label.Text = "|corr|"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	p.Add(line)
	return savePNG(p, 8*vg.Inch, 3*vg.Inch, path)
}

// SaveConstellation scatters the recovered payload symbols on an
// equal-aspect IQ plane.
func SaveConstellation(path string, syms []complex64) error {
	pts := make(plotter.XYs, len(syms))
	r := 0.1
	for i, s := range syms {
		pts[i] = plotter.XY{X: float64(real(s)), Y: float64(imag(s))}
		for _, c := range []float64{pts[i].X, pts[i].Y} {
			if c > r {
				r = c
			} else if -c > r {
				r = -c
			}
		}
	}
	r *= 1.1

	p := plot.New()
	p.Title.Text = "RX constellation (payload, equalized)"
	p.X.Label.Text = "I"
	p.Y.Label.Text = "Q"
	p.X.Min, p.X.Max = -r, r
	p.Y.Min, p.Y.Max = -r, r

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	sc.GlyphStyle.Radius = vg.Points(1)
	p.Add(sc)
	return savePNG(p, 4*vg.Inch, 4*vg.Inch, path)
}

// Marker names a frequency of interest on a PSD plot.
type Marker struct {
	Label  string
	FreqHz float64
}

// SavePSD plots power against offset from centerHz in MHz, clipped to
// spanMHz, with dashed vertical markers.
func SavePSD(path string, psd spectrum.PSD, centerHz, spanMHz float64, markers []Marker) error {
	half := spanMHz / 2
	pts := make(plotter.XYs, 0, len(psd.FreqHz))
	yMin, yMax := 0.0, 0.0
	for i, f := range psd.FreqHz {
		x := (f - centerHz) / 1e6
		if x < -half || x > half {
			continue
		}
		y := psd.PowerDB[i]
		if len(pts) == 0 || y < yMin {
			yMin = y
		}
		if len(pts) == 0 || y > yMax {
			yMax = y
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}

	p := plot.New()
	p.Title.Text = "Two-tone PSD (locked)"
	p.X.Label.Text = "Offset from center (MHz)"
	p.Y.Label.Text = "PSD (dB)"
	p.X.Min, p.X.Max = -half, half

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	p.Add(line)

	for _, m := range markers {
		x := (m.FreqHz - centerHz) / 1e6
		if x < -half || x > half {
			continue
		}
		vline, err := plotter.NewLine(plotter.XYs{{X: x, Y: yMin}, {X: x, Y: yMax}})
		if err != nil {
			return fmt.Errorf("save plot %s: %w", path, err)
		}
		vline.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(vline)

		label, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{{X: x, Y: yMax - 5}},
			Labels: []string{m.Label},
		})
		if err != nil {
			return fmt.Errorf("save plot %s: %w", path, err)
		}
		p.Add(label)
	}
	return savePNG(p, 8*vg.Inch, 3*vg.Inch, path)
}

// SaveBER draws the measured sweep on a log BER axis with the
// theoretical curve dashed behind it. Zero-error points cannot sit on
// a log axis and are left out.
func SaveBER(path string, points []sim.Point) error {
	measured := make(plotter.XYs, 0, len(points))
	theory := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if pt.BER > 0 {
			measured = append(measured, plotter.XY{X: pt.SNRdB, Y: pt.BER})
		}
		if th := sim.TheoryBER(pt.SNRdB); th > 1e-12 {
			theory = append(theory, plotter.XY{X: pt.SNRdB, Y: th})
		}
	}

	p := plot.New()
	p.Title.Text = "QPSK BER vs SNR (AWGN simulation)"
	p.X.Label.Text = "SNR (dB), Es/N0"
	p.Y.Label.Text = "BER"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	thLine, err := plotter.NewLine(theory)
	if err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	thLine.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	p.Add(thLine)
	p.Legend.Add("theory", thLine)

	if len(measured) > 0 {
		line, scatter, err := plotter.NewLinePoints(measured)
		if err != nil {
			return fmt.Errorf("save plot %s: %w", path, err)
		}
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(line, scatter)
		p.Legend.Add("measured", line, scatter)
	}
	return savePNG(p, 6*vg.Inch, 4*vg.Inch, path)
}

// SavePhaseTrack plots the unwrapped per-burst channel phase. A track
// with no bursts is skipped quietly.
func SavePhaseTrack(path string, phases []float64) error {
	if len(phases) == 0 {
		log.Debugf("[motion] no bursts, skipping phase plot")
		return nil
	}
	pts := make(plotter.XYs, len(phases))
	for i, ph := range phases {
		pts[i] = plotter.XY{X: float64(i), Y: ph}
	}

	p := plot.New()
	p.Title.Text = "Estimated channel phase per burst (unwrap)"
	p.X.Label.Text = "Burst index"
	p.Y.Label.Text = "Phase (rad)"

	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(line, scatter)
	return savePNG(p, 8*vg.Inch, 3*vg.Inch, path)
}
