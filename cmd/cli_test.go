// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"os"
	"testing"

	"tuner/internal/config"
)

func parse(t *testing.T, args ...string) *config.Config {
	t.Helper()
	cfg, err := ParseArgs(args)
	if err != nil {
		t.Fatalf("ParseArgs(%q) error = %v", args, err)
	}
	if cfg == nil {
		t.Fatalf("ParseArgs(%q) returned no configuration", args)
	}
	return cfg
}

func TestParseArgsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := parse(t)
	if cfg.Command != "" {
		t.Errorf("Command = %q, want empty", cfg.Command)
	}
	if cfg.Tuner != config.Default().Tuner {
		t.Errorf("Tuner = %+v, want defaults", cfg.Tuner)
	}
	if !cfg.Transport.Console || cfg.Transport.WebSocketEnabled || cfg.Transport.UDPEnabled {
		t.Errorf("Transport = %+v, want console only", cfg.Transport)
	}
}

func TestParseArgsList(t *testing.T) {
	t.Chdir(t.TempDir())

	if cfg := parse(t, "list"); cfg.Command != CommandList {
		t.Errorf("Command = %q, want %q", cfg.Command, CommandList)
	}
}

func TestParseArgsFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := parse(t,
		"--sample-rate", "8000",
		"-f", "256",
		"-n", "4",
		"--min-note", "45",
		"--max-note", "69",
		"--window", "hamming",
		"--backend", "godsp",
		"--tone", "110",
		"--tone-seconds", "2.5",
		"--output", "take.wav",
		"--bit-depth", "24",
		"--ws", "--ws-address", "127.0.0.1:9000",
		"--udp", "--udp-target", "10.0.0.2:7000",
		"-q", "-v",
	)

	wantTuner := config.TunerConfig{
		MinNote:         45,
		MaxNote:         69,
		SampleRate:      8000,
		SamplesPerFrame: 256,
		FramesPerFFT:    4,
		Window:          "hamming",
		Backend:         config.BackendGoDSP,
	}
	if cfg.Tuner != wantTuner {
		t.Errorf("Tuner = %+v, want %+v", cfg.Tuner, wantTuner)
	}
	if cfg.Audio.ToneHz != 110 || cfg.Audio.ToneSeconds != 2.5 {
		t.Errorf("Audio = %+v", cfg.Audio)
	}
	if !cfg.Recording.Enabled || cfg.Recording.OutputFile != "take.wav" || cfg.Recording.BitDepth != 24 {
		t.Errorf("Recording = %+v", cfg.Recording)
	}
	tr := cfg.Transport
	if tr.Console || !tr.WebSocketEnabled || tr.WebSocketAddress != "127.0.0.1:9000" ||
		!tr.UDPEnabled || tr.UDPTargetAddress != "10.0.0.2:7000" {
		t.Errorf("Transport = %+v", tr)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true with -v")
	}
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := "tuner:\n  min_note: 28\n  max_note: 52\n  sample_rate: 16000\n"
	if err := os.WriteFile("bass.yaml", []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := parse(t, "--config", "bass.yaml", "--max-note", "55")
	if cfg.Tuner.MinNote != 28 {
		t.Errorf("MinNote = %d, want 28 from the file", cfg.Tuner.MinNote)
	}
	if cfg.Tuner.MaxNote != 55 {
		t.Errorf("MaxNote = %d, want 55 from the flag", cfg.Tuner.MaxNote)
	}
	if cfg.Tuner.SampleRate != 16000 {
		t.Errorf("SampleRate = %v, want 16000 from the file", cfg.Tuner.SampleRate)
	}
}

func TestParseArgsEnvBelowFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV_SAMPLE_RATE", "44100")
	t.Setenv("ENV_LOG_LEVEL", "warn")

	cfg := parse(t, "--log-level", "error")
	if cfg.Tuner.SampleRate != 44100 {
		t.Errorf("SampleRate = %v, want 44100 from the environment", cfg.Tuner.SampleRate)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error from the flag", cfg.LogLevel)
	}
}

func TestParseArgsFlagsRepairFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	yaml := "tuner:\n  samples_per_frame: 300\n"
	if err := os.WriteFile("tuner.yaml", []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_MIN_NOTE", "80")

	cfg := parse(t, "--samples-per-frame", "256", "--min-note", "40")
	if cfg.Tuner.SamplesPerFrame != 256 || cfg.Tuner.MinNote != 40 {
		t.Errorf("Tuner = %+v, want the flag values", cfg.Tuner)
	}

	// Without the flags the same file and environment are rejected.
	if _, err := ParseArgs(nil); !errors.Is(err, config.ErrNotPowerOfTwo) {
		t.Errorf("ParseArgs() error = %v, want %v", err, config.ErrNotPowerOfTwo)
	}
}

func TestParseArgsErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"frame not power of two", []string{"--samples-per-frame", "300"}, config.ErrNotPowerOfTwo},
		{"inverted notes", []string{"--min-note", "70", "--max-note", "40"}, config.ErrNoteRange},
		{"backend", []string{"--backend", "fftw"}, config.ErrBackend},
		{"unknown flag", []string{"--channels", "2"}, nil},
		{"positional argument", []string{"E2"}, nil},
		{"input and tone", []string{"--input", "a.wav", "--tone", "110"}, nil},
		{"missing config file", []string{"--config", "nope.yaml"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseArgs(tt.args)
			if err == nil {
				t.Fatalf("ParseArgs(%q) = %+v, want error", tt.args, cfg)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseArgs(%q) error = %v, want %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestParseArgsVersion(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := ParseArgs([]string{"--version"})
	if err != nil {
		t.Fatalf("ParseArgs(--version) error = %v", err)
	}
	if cfg != nil {
		t.Errorf("ParseArgs(--version) = %+v, want nil", cfg)
	}
}
