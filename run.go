package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/config"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/demod"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/iqio"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/report"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/sim"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/spectrum"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/waveform"
)

func waveformSpec(wf config.WaveformConf) waveform.Spec {
	return waveform.Spec{
		SampleRate:     wf.SampleRate,
		SymbolRate:     wf.SymbolRate,
		Rolloff:        wf.Rolloff,
		SpanSymbols:    wf.SpanSymbols,
		GuardSymbols:   wf.GuardSymbols,
		PreambleBits:   wf.PreambleBits,
		PayloadSymbols: wf.PayloadSymbols,
		Seed:           uint64(wf.Seed),
		Amplitude:      wf.Amplitude,
		Generator:      waveform.GeneratorPCG64,
	}
}

func loadCapture(path, format string, fs float64) []complex64 {
	rx, err := iqio.ReadCapture(path, format)
	if err != nil {
		log.Fatalf("Could not read capture: %v", err)
	}
	log.Infof("Loaded %d samples (%.3f s at fs=%.0f) from %s", len(rx), float64(len(rx))/fs, fs, path)
	return rx
}

func runAnalyze(cmd *analyzeCmd, conf config.Config) {
	spec, err := waveformSpec(conf.Waveform).WithMeta(cmd.Meta)
	if err != nil {
		log.Fatalf("Could not read burst metadata: %v", err)
	}
	rx := loadCapture(cmd.IQ, cmd.Format, cmd.FS)

	analyzer := demod.NewAnalyzer(demod.Options{
		CarrierHz:     cmd.FC,
		SampleRateHz:  cmd.FS,
		SearchSeconds: cmd.SearchS,
		MaskFrac:      conf.Analyze.MaskFrac,
		Coarse:        cmd.Coarse,
	})
	res, err := analyzer.Analyze(rx, spec)
	if err != nil {
		log.Fatalf("Burst analysis failed: %v", err)
	}
	res.Metrics.IQFile = cmd.IQ
	log.Infof("EVM %.2f%% on %d payload symbols, BER %.2e over %d bits, CFO %+.1f Hz",
		res.Metrics.EVMSymbolPct, len(res.PayloadSymbols),
		res.Metrics.PayloadBER, res.Metrics.PayloadBitsUsed, res.Metrics.CFOTotalHz)

	if err := report.WriteJSON(filepath.Join("results", cmd.Out+"_metrics.json"), res.Metrics); err != nil {
		log.Fatalf("Could not write metrics: %v", err)
	}
	if err := report.SaveCorrelation(filepath.Join("plots", cmd.Out+"_corr.png"), res.CorrelationMag, res.BurstStart, conf.Analyze.CorrPlotWindow); err != nil {
		log.Fatalf("Could not render correlation plot: %v", err)
	}
	if err := report.SaveConstellation(filepath.Join("plots", cmd.Out+"_constellation.png"), res.PayloadSymbols); err != nil {
		log.Fatalf("Could not render constellation: %v", err)
	}
}

func runMotion(cmd *motionCmd, conf config.Config) {
	spec, err := waveformSpec(conf.Waveform).WithMeta(cmd.Meta)
	if err != nil {
		log.Fatalf("Could not read burst metadata: %v", err)
	}
	rx := loadCapture(cmd.IQ, cmd.Format, cmd.FS)

	rep, err := demod.TrackBursts(rx, spec, demod.MotionOptions{
		SampleRateHz: cmd.FS,
		Seconds:      cmd.Seconds,
		MaskFrac:     conf.Motion.MaskFrac,
		PeakThresh:   conf.Motion.PeakThresh,
		MinSepMs:     conf.Motion.MinSepMs,
	})
	if err != nil {
		log.Fatalf("Burst tracking failed: %v", err)
	}
	rep.IQFile = cmd.IQ
	log.Infof("Tracked %d bursts", rep.BurstsUsed)

	if err := report.WriteJSON(filepath.Join("results", cmd.Out+"_motion_metrics.json"), rep); err != nil {
		log.Fatalf("Could not write motion metrics: %v", err)
	}
	if err := report.SavePhaseTrack(filepath.Join("plots", cmd.Out+"_phase.png"), rep.Phases); err != nil {
		log.Fatalf("Could not render phase track: %v", err)
	}
}

func runIM3(cmd *im3Cmd, conf config.Config) {
	rx := loadCapture(cmd.IQ, cmd.Format, cmd.FS)

	res, err := spectrum.AnalyzeTwoTone(rx, spectrum.TwoToneConfig{
		CenterHz:       cmd.FC,
		SampleRateHz:   cmd.FS,
		F1Hz:           cmd.F1,
		F2Hz:           cmd.F2,
		NFFT:           conf.IM3.NFFT,
		NAvg:           conf.IM3.NAvg,
		SearchWindowHz: conf.IM3.SearchWindowHz,
		ExcludeFCHz:    conf.IM3.ExcludeFCHz,
		CandidateK:     conf.IM3.CandK,
		CandidateSepHz: conf.IM3.CandMinSepHz,
		PeakWindowHz:   conf.IM3.PeakWindowHz,
	})
	if err != nil {
		log.Fatalf("Two-tone analysis failed: %v", err)
	}
	log.Infof("Tone lock: f1=%.0f Hz f2=%.0f Hz, IM3 delta %.1f dB, OIP3 %.1f dB above fundamental",
		res.F1MeasHz, res.F2MeasHz, res.DeltaDB, res.OIP3RelDB)

	if err := report.WriteJSON(filepath.Join("data", cmd.Tag+"_im3.json"), res); err != nil {
		log.Fatalf("Could not write IM3 report: %v", err)
	}
	markers := []report.Marker{
		{Label: "f1", FreqHz: res.F1MeasHz},
		{Label: "f2", FreqHz: res.F2MeasHz},
		{Label: "2f1-f2", FreqHz: res.FIM3LowHz},
		{Label: "2f2-f1", FreqHz: res.FIM3HighHz},
	}
	if err := report.SavePSD(filepath.Join("plots", cmd.Tag+"_im3_psd_locked.png"), res.PSD, cmd.FC, conf.IM3.SpanMHz, markers); err != nil {
		log.Fatalf("Could not render PSD plot: %v", err)
	}
}

func runBER(conf config.Config) {
	points := sim.Sweep(sim.Config{
		SNRMinDB:  conf.BER.SNRMinDB,
		SNRMaxDB:  conf.BER.SNRMaxDB,
		SNRStepDB: conf.BER.SNRStepDB,
		Bits:      conf.BER.Bits,
		Seed:      uint64(conf.BER.Seed),
	})

	rows := make([][]string, 0, len(points))
	for _, pt := range points {
		rows = append(rows, []string{
			strconv.FormatFloat(pt.SNRdB, 'g', -1, 64),
			strconv.FormatFloat(pt.BER, 'e', 6, 64),
		})
	}
	if err := report.WriteCSV(filepath.Join("results", "qpsk_ber_vs_snr.csv"), []string{"snr_db", "ber"}, rows); err != nil {
		log.Fatalf("Could not write BER table: %v", err)
	}
	if err := report.SaveBER(filepath.Join("plots", "qpsk_ber_vs_snr.png"), points); err != nil {
		log.Fatalf("Could not render BER plot: %v", err)
	}
}

func runGenQPSK(cmd *genQPSKCmd, conf config.Config) {
	spec := waveformSpec(conf.Waveform)
	burst, err := waveform.Generate(spec)
	if err != nil {
		log.Fatalf("Could not generate burst: %v", err)
	}
	if err := os.MkdirAll(cmd.OutDir, 0o755); err != nil {
		log.Fatalf("Could not create %s: %v", cmd.OutDir, err)
	}

	name := fmt.Sprintf("qpsk_fs%d_sym%d_rrc%g_i8iq.bin", spec.SampleRate, spec.SymbolRate, spec.Rolloff)
	path := filepath.Join(cmd.OutDir, name)
	if err := iqio.WriteHackRFI8(path, burst.Samples); err != nil {
		log.Fatalf("Could not write waveform: %v", err)
	}
	log.Infof("Saved: %s (%d samples, %.3f ms)", path, len(burst.Samples),
		1000*float64(len(burst.Samples))/float64(spec.SampleRate))

	metaPath := strings.TrimSuffix(path, ".bin") + ".txt"
	if err := iqio.WriteMeta(metaPath, spec, "int8 interleaved IQ for HackRF-style TX"); err != nil {
		log.Fatalf("Could not write metadata: %v", err)
	}
	log.Infof("Saved: %s", metaPath)
}

func runGenTwoTone(cmd *genTwoToneCmd, conf config.Config) {
	tt := conf.TwoTone
	x := waveform.TwoTone(tt.SampleRate, tt.Seconds, -tt.OffsetHz, tt.OffsetHz, tt.Amplitude)
	if err := os.MkdirAll(cmd.OutDir, 0o755); err != nil {
		log.Fatalf("Could not create %s: %v", cmd.OutDir, err)
	}

	name := fmt.Sprintf("twotone_fs%d_off%gk_i8iq.bin", tt.SampleRate, tt.OffsetHz/1000)
	path := filepath.Join(cmd.OutDir, name)
	if err := iqio.WriteHackRFI8(path, x); err != nil {
		log.Fatalf("Could not write waveform: %v", err)
	}
	log.Infof("Saved: %s (%d samples, %.1f s)", path, len(x), tt.Seconds)
}
