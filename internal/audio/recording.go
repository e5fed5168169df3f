// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	applog "tuner/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder tees analysed frames into a mono PCM WAV file.
type Recorder struct {
	sampleRate int
	bitDepth   int

	isRecording atomic.Bool
	filename    string
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // reused for format conversion
	frames      uint64
}

// NewRecorder prepares a recorder for frames of frameSize samples. bitDepth
// is one of 8, 16, 24 or 32.
func NewRecorder(sampleRate, bitDepth, frameSize int) *Recorder {
	return &Recorder{
		sampleRate: sampleRate,
		bitDepth:   bitDepth,
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  sampleRate,
			},
			Data:           make([]int, frameSize),
			SourceBitDepth: 16,
		},
	}
}

// DefaultRecordingName is the file name used when none is configured.
func DefaultRecordingName(now time.Time) string {
	return "tuner-" + now.Format("20060102-150405") + ".wav"
}

// Start creates filename and begins recording.
func (r *Recorder) Start(filename string) error {
	if r.isRecording.Load() {
		return fmt.Errorf("already recording to %s", r.filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	r.outputFile = file
	r.filename = filename
	r.frames = 0
	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, r.bitDepth, 1, wavFormatPCM)

	r.isRecording.Store(true)
	applog.Infof("Audio: Recording to %s (%d Hz, %d-bit)", filename, r.sampleRate, r.bitDepth)
	return nil
}

// Write appends one frame. It is a no-op while not recording.
func (r *Recorder) Write(frame []int16) error {
	if !r.isRecording.Load() {
		return nil
	}
	if len(frame) > cap(r.sampleBuf.Data) {
		r.sampleBuf.Data = make([]int, len(frame))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(frame)]
	for i, sample := range frame {
		r.sampleBuf.Data[i] = from16(sample, r.bitDepth)
	}
	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write to %s: %w", r.filename, err)
	}
	r.frames++
	return nil
}

// Stop finalises the WAV header and closes the file.
func (r *Recorder) Stop() error {
	if !r.isRecording.Swap(false) {
		return nil
	}

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	applog.Infof("Audio: Recorded %d frames to %s", r.frames, r.filename)
	return nil
}

// Recording reports whether Start has been called without a matching Stop.
func (r *Recorder) Recording() bool { return r.isRecording.Load() }

// Filename is the current or last recording path.
func (r *Recorder) Filename() string { return r.filename }

// Frames counts frames written since Start.
func (r *Recorder) Frames() uint64 { return r.frames }

// from16 widens or narrows a 16-bit sample to bitDepth; 8-bit WAV data is
// unsigned.
func from16(v int16, bitDepth int) int {
	switch {
	case bitDepth == 8:
		return int(v>>8) + 128
	case bitDepth > 16:
		return int(v) << (bitDepth - 16)
	default:
		return int(v)
	}
}
