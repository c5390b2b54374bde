package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/maxmyrtetus/rf-systems-im3-testbed/config"

	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var configFile = koanf.New(".")

func getConfigPath() string {
	paths := []string{"/etc/rftestbed/config.hcl"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rftestbed", "config.hcl"))
	}
	paths = append(paths, "./config.hcl")
	for _, path := range paths {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			log.Infof("Found config file: %s", path)
			return path
		}
	}
	log.Info("Config file not found!")
	return ""
}

func cfgFloat(k *koanf.Koanf, path string, def float64) float64 {
	if k.Exists(path) {
		return k.Float64(path)
	}
	return def
}

func cfgInt(k *koanf.Koanf, path string, def int) int {
	if k.Exists(path) {
		return k.Int(path)
	}
	return def
}

func main() {
	log.Info("Starting rftestbed")
	flags := kong.Parse(&cli)
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if cli.Profile {
		prof, err := os.Create("./cpu.pprof")
		if err != nil {
			panic(err)
		}
		pprof.StartCPUProfile(prof)
		defer pprof.StopCPUProfile()
	}

	if path := getConfigPath(); path != "" {
		if err := configFile.Load(file.Provider(path), hcl.Parser(true)); err != nil {
			log.Fatalf("Could not read config file: %v", err)
		}
	}
	configFile.Load(env.Provider("", env.Opt{
		Prefix: "RFTESTBED_",
		TransformFunc: func(k, v string) (string, any) {
			key := strings.ToLower(strings.TrimPrefix(k, "RFTESTBED_"))
			k = strings.Replace(key, "_", ".", 1)
			fmt.Printf("Found config env var: %s=%v\n", k, v)
			return k, v
		},
	}), nil)

	conf := config.Config{
		Analyze: config.AnalyzeConf{
			MaskFrac:       cfgFloat(configFile, "analyze.mask_frac", 0.05),
			CorrPlotWindow: cfgInt(configFile, "analyze.corr_plot_window", 4000),
		},
		Motion: config.MotionConf{
			MaskFrac:   cfgFloat(configFile, "motion.mask_frac", 0.05),
			PeakThresh: cfgFloat(configFile, "motion.peak_thresh", 0.6),
			MinSepMs:   cfgFloat(configFile, "motion.min_sep_ms", 5.0),
		},
		IM3: config.IM3Conf{
			NFFT:           cfgInt(configFile, "im3.nfft", 262144),
			NAvg:           cfgInt(configFile, "im3.navg", 10),
			SearchWindowHz: cfgFloat(configFile, "im3.search_window_hz", 250e3),
			ExcludeFCHz:    cfgFloat(configFile, "im3.exclude_fc_hz", 150e3),
			CandK:          cfgInt(configFile, "im3.cand_k", 6),
			CandMinSepHz:   cfgFloat(configFile, "im3.cand_minsep_hz", 10e3),
			PeakWindowHz:   cfgFloat(configFile, "im3.peak_window_hz", 30e3),
			SpanMHz:        cfgFloat(configFile, "im3.span_mhz", 2.4),
		},
		BER: config.BERConf{
			SNRMinDB:  cfgFloat(configFile, "ber.snr_min_db", 0),
			SNRMaxDB:  cfgFloat(configFile, "ber.snr_max_db", 12),
			SNRStepDB: cfgFloat(configFile, "ber.snr_step_db", 1),
			Bits:      cfgInt(configFile, "ber.bits", 400_000),
			Seed:      int64(cfgInt(configFile, "ber.seed", 0)),
		},
		Waveform: config.WaveformConf{
			SampleRate:     cfgInt(configFile, "waveform.fs", 2_000_000),
			SymbolRate:     cfgInt(configFile, "waveform.sym_rate", 250_000),
			Rolloff:        cfgFloat(configFile, "waveform.beta", 0.35),
			SpanSymbols:    cfgInt(configFile, "waveform.span_syms", 10),
			GuardSymbols:   cfgInt(configFile, "waveform.guard_syms", 200),
			PreambleBits:   cfgInt(configFile, "waveform.preamble_bits", 256),
			PayloadSymbols: cfgInt(configFile, "waveform.payload_syms", 4000),
			Seed:           int64(cfgInt(configFile, "waveform.seed", 1234)),
			Amplitude:      cfgFloat(configFile, "waveform.amp", 0.25),
		},
		TwoTone: config.TwoToneConf{
			SampleRate: cfgInt(configFile, "twotone.fs", 2_000_000),
			OffsetHz:   cfgFloat(configFile, "twotone.offset_hz", 250e3),
			Seconds:    cfgFloat(configFile, "twotone.seconds", 2.0),
			Amplitude:  cfgFloat(configFile, "twotone.amp", 0.30),
		},
	}

	switch flags.Command() {
	case "analyze":
		log.Debugf("Found analyze definition: %##v", conf.Analyze)
		runAnalyze(&cli.Analyze, conf)

	case "motion":
		log.Debugf("Found motion definition: %##v", conf.Motion)
		runMotion(&cli.Motion, conf)

	case "im3":
		log.Debugf("Found im3 definition: %##v", conf.IM3)
		runIM3(&cli.IM3, conf)

	case "ber":
		log.Debugf("Found ber definition: %##v", conf.BER)
		runBER(conf)

	case "gen qpsk":
		log.Debugf("Found waveform definition: %##v", conf.Waveform)
		runGenQPSK(&cli.Gen.QPSK, conf)

	case "gen twotone":
		log.Debugf("Found twotone definition: %##v", conf.TwoTone)
		runGenTwoTone(&cli.Gen.Twotone, conf)

	default:
		log.Info("Command not recognized")
	}
}
