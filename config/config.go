package config

type AnalyzeConf struct {
	MaskFrac       float64 `koanf:"mask_frac"`
	CorrPlotWindow int     `koanf:"corr_plot_window"`
}

type MotionConf struct {
	MaskFrac   float64 `koanf:"mask_frac"`
	PeakThresh float64 `koanf:"peak_thresh"`
	MinSepMs   float64 `koanf:"min_sep_ms"`
}

type IM3Conf struct {
	NFFT           int     `koanf:"nfft"`
	NAvg           int     `koanf:"navg"`
	SearchWindowHz float64 `koanf:"search_window_hz"`
	ExcludeFCHz    float64 `koanf:"exclude_fc_hz"`
	CandK          int     `koanf:"cand_k"`
	CandMinSepHz   float64 `koanf:"cand_minsep_hz"`
	PeakWindowHz   float64 `koanf:"peak_window_hz"`
	SpanMHz        float64 `koanf:"span_mhz"`
}

type BERConf struct {
	SNRMinDB  float64 `koanf:"snr_min_db"`
	SNRMaxDB  float64 `koanf:"snr_max_db"`
	SNRStepDB float64 `koanf:"snr_step_db"`
	Bits      int     `koanf:"bits"`
	Seed      int64   `koanf:"seed"`
}

type WaveformConf struct {
	SampleRate     int     `koanf:"fs"`
	SymbolRate     int     `koanf:"sym_rate"`
	Rolloff        float64 `koanf:"beta"`
	SpanSymbols    int     `koanf:"span_syms"`
	GuardSymbols   int     `koanf:"guard_syms"`
	PreambleBits   int     `koanf:"preamble_bits"`
	PayloadSymbols int     `koanf:"payload_syms"`
	Seed           int64   `koanf:"seed"`
	Amplitude      float64 `koanf:"amp"`
}

type TwoToneConf struct {
	SampleRate int     `koanf:"fs"`
	OffsetHz   float64 `koanf:"offset_hz"`
	Seconds    float64 `koanf:"seconds"`
	Amplitude  float64 `koanf:"amp"`
}

type Config struct {
	Analyze  AnalyzeConf
	Motion   MotionConf
	IM3      IM3Conf
	BER      BERConf
	Waveform WaveformConf
	TwoTone  TwoToneConf
}
