// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tuner/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Defaults describe a six-string guitar in standard tuning (E2..E4) sampled
// at 22 kHz with a 32768 sample analysis window (~0.67 Hz per bin).
const (
	DefaultMinNote         = 40    // E2
	DefaultMaxNote         = 64    // E4
	DefaultSampleRate      = 22000 // Hz
	DefaultSamplesPerFrame = 2048
	DefaultFramesPerFFT    = 16
	DefaultWindow          = "hann"
	DefaultBackend         = BackendGonum

	DefaultDeviceID   = MinDeviceID
	DefaultLowLatency = false
	DefaultLogLevel   = "info"

	DefaultRecordBitDepth   = 16
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTarget        = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond

	MinDeviceID   = -1 // system default input device
	MinSampleRate = 1000
	MaxSampleRate = 192000
)

// Spectral analyzer backends.
const (
	BackendGonum = "gonum"
	BackendGoDSP = "godsp"
)

var (
	ErrNotPowerOfTwo = errors.New("not a power of two")
	ErrNoteRange     = errors.New("min note above max note")
	ErrSampleRate    = errors.New("sample rate out of range")
	ErrBackend       = errors.New("unknown spectral backend")
)

// Config is the full runtime configuration, loaded from YAML and then
// overridden by environment variables and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Command   string          `yaml:"-"` // one-off command selected on the command line ("list")
	Tuner     TunerConfig     `yaml:"tuner"`
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// TunerConfig holds the analysis parameters. It is immutable once the
// estimator is built.
type TunerConfig struct {
	MinNote         int     `yaml:"min_note"`          // Lowest note number to detect (MIDI numbering, A4 = 69).
	MaxNote         int     `yaml:"max_note"`          // Highest note number to detect.
	SampleRate      float64 `yaml:"sample_rate"`       // Input sample rate in Hz.
	SamplesPerFrame int     `yaml:"samples_per_frame"` // Samples delivered by the source per read (power of 2).
	FramesPerFFT    int     `yaml:"frames_per_fft"`    // Frames kept in the analysis window (power of 2).
	Window          string  `yaml:"window"`            // Window function name, see analysis.ParseWindowFunc.
	Backend         string  `yaml:"backend"`           // "gonum" or "godsp".
}

// SamplesPerFFT is the analysis window length.
func (t TunerConfig) SamplesPerFFT() int {
	return t.SamplesPerFrame * t.FramesPerFFT
}

// Resolution is the width of one FFT bin in Hz.
func (t TunerConfig) Resolution() float64 {
	return t.SampleRate / float64(t.SamplesPerFFT())
}

// powerOfTwoHint names the powers of two either side of n.
func powerOfTwoHint(n int) string {
	next := bitint.NextPowerOfTwo(n)
	if prev := bitint.PrevPowerOfTwo(n); prev > 0 {
		return fmt.Sprintf("%d or %d", prev, next)
	}
	return strconv.Itoa(next)
}

// Validate rejects configurations the estimator cannot run with.
func (t TunerConfig) Validate() error {
	if t.SampleRate < MinSampleRate || t.SampleRate > MaxSampleRate {
		return fmt.Errorf("tuner.sample_rate %.0f: %w (allowed %d..%d)", t.SampleRate, ErrSampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(t.SamplesPerFrame) {
		return fmt.Errorf("tuner.samples_per_frame %d: %w (try %s)", t.SamplesPerFrame, ErrNotPowerOfTwo, powerOfTwoHint(t.SamplesPerFrame))
	}
	if !bitint.IsPowerOfTwo(t.FramesPerFFT) {
		return fmt.Errorf("tuner.frames_per_fft %d: %w (try %s)", t.FramesPerFFT, ErrNotPowerOfTwo, powerOfTwoHint(t.FramesPerFFT))
	}
	if n := t.SamplesPerFFT(); !bitint.IsPowerOfTwo(n) {
		return fmt.Errorf("samples per FFT %d: %w", n, ErrNotPowerOfTwo)
	}
	if t.MinNote > t.MaxNote {
		return fmt.Errorf("tuner.min_note %d > tuner.max_note %d: %w", t.MinNote, t.MaxNote, ErrNoteRange)
	}
	switch strings.ToLower(t.Backend) {
	case BackendGonum, BackendGoDSP, "":
	default:
		return fmt.Errorf("tuner.backend %q: %w", t.Backend, ErrBackend)
	}
	return nil
}

// AudioConfig selects where frames come from. At most one of InputFile and
// ToneHz is used; with neither set the PortAudio device is opened.
type AudioConfig struct {
	InputDevice int     `yaml:"input_device"` // PortAudio device index (-1 for default).
	LowLatency  bool    `yaml:"low_latency"`  // Request the device's low input latency.
	InputFile   string  `yaml:"input_file"`   // Analyse a WAV file instead of a live device.
	ToneHz      float64 `yaml:"tone_hz"`      // Analyse a synthetic sine instead of a live device.
	ToneSeconds float64 `yaml:"tone_seconds"` // Length of the synthetic tone (0 = endless).
}

// RecordingConfig controls the WAV tee of the analysed input.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // Empty means tuner-<timestamp>.wav in the working directory.
	BitDepth   int    `yaml:"bit_depth"`
}

// TransportConfig lists the report sinks.
type TransportConfig struct {
	Console          bool          `yaml:"console"`            // Print report lines on stdout.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Broadcast reports as JSON on /ws.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Publish reports as binary UDP packets.
	UDPTargetAddress string        `yaml:"udp_target_address"` // e.g. "127.0.0.1:9090".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Minimum spacing between UDP packets.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Tuner: TunerConfig{
			MinNote:         DefaultMinNote,
			MaxNote:         DefaultMaxNote,
			SampleRate:      DefaultSampleRate,
			SamplesPerFrame: DefaultSamplesPerFrame,
			FramesPerFFT:    DefaultFramesPerFFT,
			Window:          DefaultWindow,
			Backend:         DefaultBackend,
		},
		Audio: AudioConfig{
			InputDevice: DefaultDeviceID,
			LowLatency:  DefaultLowLatency,
		},
		Recording: RecordingConfig{
			BitDepth: DefaultRecordBitDepth,
		},
		Transport: TransportConfig{
			Console:          true,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// searchPaths are tried in order when LoadConfig gets an empty path.
var searchPaths = []string{"tuner.yaml", "config.yaml"}

// LoadConfig loads configuration from the YAML file at path. With an empty
// path the search paths are tried and the built-in defaults are used if none
// exists. Environment overrides are applied after the file. The result is
// not validated so that command line flags can still be applied on top;
// callers must call Validate before use.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range searchPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Tuner.Validate(); err != nil {
		return err
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device %d: must be >= %d", c.Audio.InputDevice, MinDeviceID)
	}
	if c.Audio.ToneHz < 0 {
		return fmt.Errorf("audio.tone_hz %.2f: must not be negative", c.Audio.ToneHz)
	}
	if c.Audio.InputFile != "" && c.Audio.ToneHz > 0 {
		return errors.New("audio.input_file and audio.tone_hz are mutually exclusive")
	}
	switch c.Recording.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth %d: must be 8, 16, 24 or 32", c.Recording.BitDepth)
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		return errors.New("transport.websocket_address must be set when the WebSocket transport is enabled")
	}
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return errors.New("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	return nil
}

// applyEnvOverrides reads ENV_* variables. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
	}

	// ENV_SAMPLE_RATE, ENV_MIN_NOTE, ENV_MAX_NOTE
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Tuner.SampleRate = f
		}
	}
	if val, ok := os.LookupEnv("ENV_MIN_NOTE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Tuner.MinNote = n
		}
	}
	if val, ok := os.LookupEnv("ENV_MAX_NOTE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Tuner.MaxNote = n
		}
	}

	// ENV_WS_*, ENV_UDP_*
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = b
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		}
	}
}
