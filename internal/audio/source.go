// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync/atomic"
	"time"

	applog "tuner/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// ErrSampleRateMismatch is returned when a file's sample rate differs from
// the configured one.
var ErrSampleRateMismatch = errors.New("sample rate mismatch")

// Source supplies fixed-size frames of mono 16-bit samples. ReadFrame blocks
// until frame is filled and returns io.EOF once a finite source is drained.
type Source interface {
	ReadFrame(frame []int16) error
}

// aborter is implemented by sources whose ReadFrame can block indefinitely.
type aborter interface {
	Abort() error
}

// PortAudioSource reads a blocking mono int16 input stream.
type PortAudioSource struct {
	device    *portaudio.DeviceInfo
	stream    *portaudio.Stream
	buf       []int16 // stream buffer, one frame
	overflows atomic.Uint64
	aborted   atomic.Bool
}

// NewPortAudioSource opens and starts an input stream on deviceID delivering
// framesPerBuffer samples per read. PortAudio must be initialized.
func NewPortAudioSource(deviceID int, sampleRate float64, framesPerBuffer int, lowLatency bool) (*PortAudioSource, error) {
	device, err := InputDevice(deviceID)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighInputLatency
	if lowLatency {
		latency = device.DefaultLowInputLatency
	}

	s := &PortAudioSource{
		device: device,
		buf:    make([]int16, framesPerBuffer),
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, &s.buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %q: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start input stream on %q: %w", device.Name, err)
	}
	s.stream = stream

	applog.Infof("Audio: Capturing from %q (latency %v)", device.Name, latency)
	return s, nil
}

// ReadFrame blocks until the device delivers a frame. Input overflows lose
// samples but are not fatal.
func (s *PortAudioSource) ReadFrame(frame []int16) error {
	if len(frame) != len(s.buf) {
		return fmt.Errorf("frame has %d samples, stream delivers %d", len(frame), len(s.buf))
	}
	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return fmt.Errorf("failed to read from %q: %w", s.device.Name, err)
		}
		if n := s.overflows.Add(1); n == 1 || n%100 == 0 {
			applog.Warnf("Audio: Input overflowed (%d times)", n)
		}
	}
	copy(frame, s.buf)
	return nil
}

// Overflows counts reads that reported lost input.
func (s *PortAudioSource) Overflows() uint64 { return s.overflows.Load() }

// Abort stops the stream immediately, unblocking a pending ReadFrame.
func (s *PortAudioSource) Abort() error {
	if s.aborted.Swap(true) {
		return nil
	}
	return s.stream.Abort()
}

// Close stops and releases the stream.
func (s *PortAudioSource) Close() error {
	if !s.aborted.Swap(true) {
		if err := s.stream.Stop(); err != nil {
			applog.Warnf("Audio: Failed to stop input stream: %v", err)
		}
	}
	return s.stream.Close()
}

// WAVSource reads the first channel of a PCM WAV file. Samples are rescaled
// to 16 bits and the last frame is zero-padded.
type WAVSource struct {
	file     *os.File
	decoder  *wav.Decoder
	channels int
	bitDepth int

	buf     *audio.IntBuffer
	queue   []int // backing store for pending
	pending []int // interleaved samples not yet returned
	eof     bool
}

// OpenWAVSource opens path and checks it against the expected sample rate.
// frameSize sizes the decode buffer.
func OpenWAVSource(path string, sampleRate float64, frameSize int) (*WAVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("invalid WAV file %s: %w", path, err)
		}
		return nil, fmt.Errorf("invalid WAV file %s", path)
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		file.Close()
		return nil, fmt.Errorf("%s: unsupported WAV format %d (want PCM)", path, decoder.WavAudioFormat)
	}
	if float64(decoder.SampleRate) != sampleRate {
		file.Close()
		return nil, fmt.Errorf("%s: %w (file %d Hz, configured %.0f Hz)", path, ErrSampleRateMismatch, decoder.SampleRate, sampleRate)
	}
	if err := decoder.FwdToPCM(); err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	channels := int(decoder.NumChans)
	bufLen := frameSize * channels
	s := &WAVSource{
		file:     file,
		decoder:  decoder,
		channels: channels,
		bitDepth: int(decoder.BitDepth),
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: channels, SampleRate: int(decoder.SampleRate)},
			Data:   make([]int, bufLen),
		},
		queue: make([]int, 0, bufLen+channels),
	}

	applog.Infof("Audio: Reading %s (%d Hz, %d-bit, %d channels)", path, decoder.SampleRate, s.bitDepth, channels)
	return s, nil
}

// ReadFrame fills frame from the file. It returns io.EOF once no samples
// remain; a frame with at least one sample left is padded with silence.
func (s *WAVSource) ReadFrame(frame []int16) error {
	n := 0
	for n < len(frame) {
		if len(s.pending) < s.channels {
			if s.eof {
				break
			}
			if err := s.fill(); err != nil {
				return err
			}
			continue
		}
		frame[n] = to16(s.pending[0], s.bitDepth)
		s.pending = s.pending[s.channels:]
		n++
	}
	if n == 0 {
		return io.EOF
	}
	clear(frame[n:])
	return nil
}

func (s *WAVSource) fill() error {
	read, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return fmt.Errorf("failed to decode WAV data: %w", err)
	}
	if read == 0 {
		s.eof = true
		return nil
	}
	rest := copy(s.queue[:cap(s.queue)], s.pending)
	s.queue = append(s.queue[:rest], s.buf.Data[:read]...)
	s.pending = s.queue
	return nil
}

// Close closes the underlying file.
func (s *WAVSource) Close() error {
	return s.file.Close()
}

const wavFormatPCM = 1

// to16 rescales a decoded sample of the given bit depth to 16 bits.
// 8-bit WAV data is unsigned.
func to16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		return int16((v - 128) << 8)
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	default:
		return int16(v)
	}
}

// SineSource synthesises a pure tone.
type SineSource struct {
	sampleRate float64
	frequency  float64
	amplitude  float64 // 0..1 of full scale
	total      int     // samples to produce, -1 for endless
	pos        int
}

// NewSineSource returns a tone of the given length; duration <= 0 never ends.
func NewSineSource(sampleRate, frequency, amplitude float64, duration time.Duration) *SineSource {
	total := -1
	if duration > 0 {
		total = int(math.Round(duration.Seconds() * sampleRate))
	}
	return &SineSource{
		sampleRate: sampleRate,
		frequency:  frequency,
		amplitude:  amplitude,
		total:      total,
	}
}

// ReadFrame writes the next len(frame) samples, phase-continuous across
// calls.
func (s *SineSource) ReadFrame(frame []int16) error {
	if s.total >= 0 && s.pos >= s.total {
		return io.EOF
	}
	for i := range frame {
		if s.total >= 0 && s.pos >= s.total {
			frame[i] = 0
			continue
		}
		t := float64(s.pos) / s.sampleRate
		frame[i] = int16(math.Sin(2*math.Pi*s.frequency*t) * math.MaxInt16 * s.amplitude)
		s.pos++
	}
	return nil
}
