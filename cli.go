package main

type analyzeCmd struct {
	IQ      string  `help:"Capture file of interleaved IQ samples" type:"existingfile" required:""`
	Meta    string  `help:"Metadata sidecar describing the transmitted burst"`
	Format  string  `help:"Capture sample format" enum:"rtlsdr,hackrf" default:"rtlsdr"`
	FC      float64 `help:"Carrier frequency in Hz" default:"915e6"`
	FS      float64 `help:"Capture sample rate in Hz" default:"2e6"`
	SearchS float64 `help:"Seconds of capture to scan for the burst" default:"1.0"`
	Coarse  string  `help:"Coarse CFO estimator" enum:"qpsk4,none" default:"qpsk4"`
	Out     string  `help:"Basename for result and plot files" default:"qpsk_hw"`
}

type motionCmd struct {
	IQ      string  `help:"Capture file of interleaved IQ samples" type:"existingfile" required:""`
	Meta    string  `help:"Metadata sidecar describing the transmitted burst"`
	Format  string  `help:"Capture sample format" enum:"rtlsdr,hackrf" default:"rtlsdr"`
	FS      float64 `help:"Capture sample rate in Hz" default:"2e6"`
	Seconds float64 `help:"Seconds of capture to track" default:"2.0"`
	Out     string  `help:"Basename for result and plot files" default:"qpsk_motion"`
}

type im3Cmd struct {
	IQ     string  `help:"Capture file of interleaved IQ samples" type:"existingfile" required:""`
	Format string  `help:"Capture sample format" enum:"rtlsdr,hackrf" default:"rtlsdr"`
	FC     float64 `help:"Center frequency in Hz" default:"915e6"`
	FS     float64 `help:"Capture sample rate in Hz" default:"2e6"`
	F1     float64 `help:"Nominal lower tone in Hz" default:"914.75e6"`
	F2     float64 `help:"Nominal upper tone in Hz" default:"915.25e6"`
	Tag    string  `help:"Basename for result and plot files" default:"capture"`
}

type berCmd struct {
}

type genQPSKCmd struct {
	OutDir string `help:"Directory for the waveform and its metadata" default:"waveforms"`
}

type genTwoToneCmd struct {
	OutDir string `help:"Directory for the waveform file" default:"waveforms"`
}

var cli struct {
	Verbose bool `help:"Prints debug output by default" short:"v"`
	Profile bool `help:"Output a pprof profile"`

	Analyze analyzeCmd `cmd:"" help:"Demodulate a captured QPSK burst and report link metrics"`
	Motion  motionCmd  `cmd:"" help:"Track channel phase and CFO across repeated bursts"`
	IM3     im3Cmd     `cmd:"" name:"im3" help:"Measure two-tone intermodulation from a captured spectrum"`
	BER     berCmd     `cmd:"" help:"Simulate QPSK BER over AWGN and compare against theory"`
	Gen     struct {
		QPSK    genQPSKCmd    `cmd:"" name:"qpsk" help:"Write the reference QPSK burst as int8 IQ plus metadata"`
		Twotone genTwoToneCmd `cmd:"" name:"twotone" help:"Write a two-tone test waveform as int8 IQ"`
	} `cmd:"" help:"Generate transmit waveforms"`
}
