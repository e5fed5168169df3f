// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"tuner/internal/config"
	"tuner/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandList selects the device listing.
const CommandList = "list"

// options holds raw flag values; only flags set on the command line are
// copied over the loaded configuration.
type options struct {
	configPath string

	deviceID   int
	lowLatency bool
	inputFile  string
	toneHz     float64
	toneSecs   float64

	sampleRate      float64
	samplesPerFrame int
	framesPerFFT    int
	minNote         int
	maxNote         int
	window          string
	backend         string

	record     bool
	outputFile string
	bitDepth   int

	quiet     bool
	ws        bool
	wsAddress string
	udp       bool
	udpTarget string

	verbose  bool
	logLevel string
}

// ParseArgs parses args (without the program name) and returns the
// effective configuration: defaults, then the YAML file, then ENV_
// variables, then flags. It returns nil and no error when cobra handled the
// invocation itself, e.g. --help or --version.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildInfo()
	var (
		opts options
		cfg  *config.Config
	)

	load := func(cmd *cobra.Command, command string) error {
		c, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		opts.apply(cmd.Flags(), c)
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		c.Command = command
		cfg = c
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "")
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandList)
		},
	}
	rootCmd.AddCommand(listCmd)

	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&opts.configPath, "config", "c", "",
		"YAML configuration file (default: tuner.yaml or config.yaml if present)")

	// Input
	flags.IntVarP(&opts.deviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use the device's low input latency")
	flags.StringVarP(&opts.inputFile, "input", "i", "",
		"Analyse a WAV file instead of a live device")
	flags.Float64VarP(&opts.toneHz, "tone", "t", 0,
		"Analyse a synthetic sine of this frequency (Hz) instead of a live device")
	flags.Float64Var(&opts.toneSecs, "tone-seconds", 0,
		"Length of the synthetic tone in seconds (0 = until interrupted)")

	// Analysis
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.samplesPerFrame, "samples-per-frame", "f", config.DefaultSamplesPerFrame,
		"Samples read per frame (power of 2)")
	flags.IntVarP(&opts.framesPerFFT, "frames-per-fft", "n", config.DefaultFramesPerFFT,
		"Frames in the analysis window (power of 2)")
	flags.IntVar(&opts.minNote, "min-note", config.DefaultMinNote,
		"Lowest note number to detect (A4 = 69)")
	flags.IntVar(&opts.maxNote, "max-note", config.DefaultMaxNote,
		"Highest note number to detect")
	flags.StringVarP(&opts.window, "window", "w", config.DefaultWindow,
		"Window function (hann, hamming, blackman, nuttall, ...)")
	flags.StringVar(&opts.backend, "backend", config.DefaultBackend,
		"FFT backend (gonum or godsp)")

	// Recording
	flags.BoolVarP(&opts.record, "record", "r", false,
		"Record the analysed input to a WAV file")
	flags.StringVarP(&opts.outputFile, "output", "o", "",
		"Recording file name. Default is tuner-YYYYMMDD-HHMMSS.wav")
	flags.IntVar(&opts.bitDepth, "bit-depth", config.DefaultRecordBitDepth,
		"Recording bit depth (8, 16, 24 or 32)")

	// Transports
	flags.BoolVarP(&opts.quiet, "quiet", "q", false,
		"Do not print report lines on stdout")
	flags.BoolVar(&opts.ws, "ws", false,
		"Broadcast reports as JSON to WebSocket clients")
	flags.StringVar(&opts.wsAddress, "ws-address", config.DefaultWebSocketAddress,
		"WebSocket listen address")
	flags.BoolVar(&opts.udp, "udp", false,
		"Publish reports as UDP packets")
	flags.StringVar(&opts.udpTarget, "udp-target", config.DefaultUDPTarget,
		"UDP target address")

	// Debug
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")

	// cobra falls back to os.Args for a nil slice.
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply copies the flags that were set explicitly onto cfg.
func (o *options) apply(flags *pflag.FlagSet, cfg *config.Config) {
	set := flags.Changed

	if set("device") {
		cfg.Audio.InputDevice = o.deviceID
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	if set("input") {
		cfg.Audio.InputFile = o.inputFile
	}
	if set("tone") {
		cfg.Audio.ToneHz = o.toneHz
	}
	if set("tone-seconds") {
		cfg.Audio.ToneSeconds = o.toneSecs
	}

	if set("sample-rate") {
		cfg.Tuner.SampleRate = o.sampleRate
	}
	if set("samples-per-frame") {
		cfg.Tuner.SamplesPerFrame = o.samplesPerFrame
	}
	if set("frames-per-fft") {
		cfg.Tuner.FramesPerFFT = o.framesPerFFT
	}
	if set("min-note") {
		cfg.Tuner.MinNote = o.minNote
	}
	if set("max-note") {
		cfg.Tuner.MaxNote = o.maxNote
	}
	if set("window") {
		cfg.Tuner.Window = o.window
	}
	if set("backend") {
		cfg.Tuner.Backend = o.backend
	}

	if set("record") {
		cfg.Recording.Enabled = o.record
	}
	if set("output") {
		cfg.Recording.OutputFile = o.outputFile
		cfg.Recording.Enabled = true
	}
	if set("bit-depth") {
		cfg.Recording.BitDepth = o.bitDepth
	}

	if set("quiet") {
		cfg.Transport.Console = !o.quiet
	}
	if set("ws") {
		cfg.Transport.WebSocketEnabled = o.ws
	}
	if set("ws-address") {
		cfg.Transport.WebSocketAddress = o.wsAddress
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = o.udp
	}
	if set("udp-target") {
		cfg.Transport.UDPTargetAddress = o.udpTarget
	}

	if set("verbose") {
		cfg.Debug = o.verbose
	}
	if set("log-level") {
		cfg.LogLevel = o.logLevel
	}
}
