// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tuner/cmd"
	"tuner/internal/audio"
	"tuner/internal/config"
	applog "tuner/internal/log"
	"tuner/internal/pitch"
	"tuner/internal/transport"
	"tuner/internal/transport/udp"
	"tuner/pkg/build"
)

// main runs the tuner in three phases:
//
// 1. Startup:
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//
// 2. Analysis:
//   - Open the input source and report transports
//   - Pull frames through the estimator until the input ends or a signal arrives
//
// 3. Shutdown:
//   - Finish the recording if active
//   - Close the source and transports
func main() {
	if err := run(os.Args[1:]); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(args []string) error {
	// ==================== STARTUP ====================

	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v", err)
	}

	cfg, err := cmd.ParseArgs(args)
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil // --help or --version
	}

	if err := applog.Configure(cfg.LogLevel, cfg.Debug); err != nil {
		applog.Warnf("Config: %v, using %s", err, applog.GetLevel())
	}
	applog.Debugf("Build: %s", build.GetBuildInfo())

	if cfg.Command == cmd.CommandList {
		return listDevices()
	}

	estimator, err := pitch.New(cfg.Tuner)
	if err != nil {
		return err
	}

	applog.Infof("Sampling at %g Hz with max resolution of %g Hz", cfg.Tuner.SampleRate, estimator.Resolution())

	source, cleanup, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	transports, err := openTransports(cfg)
	if err != nil {
		if c, ok := source.(io.Closer); ok {
			c.Close()
		}
		return err
	}

	opts := []audio.EngineOption{audio.WithTransports(transports...)}
	if cfg.Recording.Enabled {
		filename := cfg.Recording.OutputFile
		if filename == "" {
			filename = audio.DefaultRecordingName(time.Now())
		}
		recorder := audio.NewRecorder(int(cfg.Tuner.SampleRate), cfg.Recording.BitDepth, cfg.Tuner.SamplesPerFrame)
		if err := recorder.Start(filename); err != nil {
			audio.NewEngine(source, estimator, opts...).Close()
			return fmt.Errorf("failed to start recording: %w", err)
		}
		opts = append(opts, audio.WithRecorder(recorder))
	}

	engine := audio.NewEngine(source, estimator, opts...)

	// ==================== ANALYSIS ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := engine.Run(ctx)

	// ==================== SHUTDOWN ====================

	if err := engine.Close(); err != nil {
		applog.Errorf("Error closing audio engine: %v", err)
	}
	return runErr
}

// openSource picks the WAV file, the synthetic tone or the live device, in
// that order. cleanup releases PortAudio when it was initialized.
func openSource(cfg *config.Config) (audio.Source, func(), error) {
	noop := func() {}
	t := cfg.Tuner

	switch {
	case cfg.Audio.InputFile != "":
		src, err := audio.OpenWAVSource(cfg.Audio.InputFile, t.SampleRate, t.SamplesPerFrame)
		return src, noop, err

	case cfg.Audio.ToneHz > 0:
		duration := time.Duration(cfg.Audio.ToneSeconds * float64(time.Second))
		applog.Infof("Audio: Synthesising %.2f Hz", cfg.Audio.ToneHz)
		return audio.NewSineSource(t.SampleRate, cfg.Audio.ToneHz, 0.5, duration), noop, nil
	}

	if err := audio.Initialize(); err != nil {
		return nil, noop, err
	}
	terminate := func() {
		if err := audio.Terminate(); err != nil {
			applog.Warnf("Audio: %v", err)
		}
	}
	src, err := audio.NewPortAudioSource(cfg.Audio.InputDevice, t.SampleRate, t.SamplesPerFrame, cfg.Audio.LowLatency)
	if err != nil {
		terminate()
		return nil, noop, err
	}
	return src, terminate, nil
}

func openTransports(cfg *config.Config) ([]transport.Transport, error) {
	var ts []transport.Transport
	closeAll := func() {
		for _, t := range ts {
			t.Close()
		}
	}

	if cfg.Transport.Console {
		ts = append(ts, transport.NewConsoleTransport(os.Stdout))
	}
	if cfg.Debug {
		ts = append(ts, transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err != nil {
			closeAll()
			return nil, err
		}
		ts = append(ts, ws)
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeAll()
			return nil, err
		}
		publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			closeAll()
			return nil, err
		}
		publisher.Start()
		ts = append(ts, publisher)
	}

	if len(ts) == 0 {
		applog.Warnf("Transport: No transports enabled, estimates will be discarded")
	}
	return ts, nil
}

func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if err := audio.ListDevices(os.Stdout); err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	return nil
}
