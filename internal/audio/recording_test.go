// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tuner/pkg/utils"
)

const (
	testSampleRate = 8000
	testFrameSize  = 256
)

func TestRecordingStartStop(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	rec := NewRecorder(testSampleRate, 16, testFrameSize)

	if err := rec.Start(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if !rec.Recording() {
		t.Error("Recorder should be in recording state")
	}
	if rec.outputFile == nil {
		t.Error("Output file should be initialized")
	}
	if rec.wavEncoder == nil {
		t.Error("WAV encoder should be initialized")
	}
	if rec.sampleBuf.Format.NumChannels != 1 {
		t.Errorf("Buffer channels mismatch: got %d, want 1", rec.sampleBuf.Format.NumChannels)
	}
	if rec.sampleBuf.Format.SampleRate != testSampleRate {
		t.Errorf("Buffer sample rate mismatch: got %d, want %d", rec.sampleBuf.Format.SampleRate, testSampleRate)
	}

	outputFile := rec.outputFile

	if err := rec.Stop(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if rec.Recording() {
		t.Error("Recorder should not be in recording state after stopping")
	}
	if rec.outputFile != nil {
		t.Error("Output file should be nil after stopping")
	}
	if rec.wavEncoder != nil {
		t.Error("WAV encoder should be nil after stopping")
	}
	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		t.Error("Recording file was not created")
	}
	if rec.Filename() != filename {
		t.Errorf("Filename() = %q, want %q", rec.Filename(), filename)
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()

	t.Run("Already recording", func(t *testing.T) {
		rec := NewRecorder(testSampleRate, 16, testFrameSize)
		if err := rec.Start(filepath.Join(dir, "first.wav")); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		defer rec.Stop()
		err := rec.Start(filepath.Join(dir, "second.wav"))
		if err == nil || !strings.Contains(err.Error(), "already recording") {
			t.Errorf("Start() error = %v, want already recording", err)
		}
	})

	t.Run("Invalid path", func(t *testing.T) {
		rec := NewRecorder(testSampleRate, 16, testFrameSize)
		if err := rec.Start(filepath.Join(dir, "missing", "file.wav")); err == nil {
			t.Error("Start() into a missing directory succeeded")
		}
		if rec.Recording() {
			t.Error("Recorder is recording after a failed Start")
		}
	})

	t.Run("Stop when not recording", func(t *testing.T) {
		rec := NewRecorder(testSampleRate, 16, testFrameSize)
		if err := rec.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})

	t.Run("Write when not recording", func(t *testing.T) {
		rec := NewRecorder(testSampleRate, 16, testFrameSize)
		if err := rec.Write(make([]int16, testFrameSize)); err != nil {
			t.Errorf("Write() error = %v", err)
		}
		if rec.Frames() != 0 {
			t.Errorf("Frames() = %d, want 0", rec.Frames())
		}
	})
}

// TestRecordingRoundTrip writes frames through the recorder and reads them
// back with WAVSource at every supported bit depth.
func TestRecordingRoundTrip(t *testing.T) {
	signal := utils.GenerateSineWave(testFrameSize*3, testSampleRate, 440, 0.7)
	frames := utils.SplitFrames(signal, testFrameSize)

	tests := []struct {
		bitDepth  int
		tolerance int16 // 8-bit keeps only the high byte
	}{
		{8, 255},
		{16, 0},
		{24, 0},
		{32, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-bit", tt.bitDepth), func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "roundtrip.wav")
			rec := NewRecorder(testSampleRate, tt.bitDepth, testFrameSize)
			if err := rec.Start(filename); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			for _, frame := range frames {
				if err := rec.Write(frame); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}
			if rec.Frames() != uint64(len(frames)) {
				t.Errorf("Frames() = %d, want %d", rec.Frames(), len(frames))
			}
			if err := rec.Stop(); err != nil {
				t.Fatalf("Stop() error = %v", err)
			}

			src, err := OpenWAVSource(filename, testSampleRate, testFrameSize)
			if err != nil {
				t.Fatalf("OpenWAVSource() error = %v", err)
			}
			defer src.Close()

			got := make([]int16, testFrameSize)
			for i, want := range frames {
				if err := src.ReadFrame(got); err != nil {
					t.Fatalf("ReadFrame(%d) error = %v", i, err)
				}
				for j := range want {
					if diff := int(got[j]) - int(want[j]); diff > int(tt.tolerance) || diff < -int(tt.tolerance) {
						t.Fatalf("frame %d sample %d = %d, want %d", i, j, got[j], want[j])
					}
				}
			}
			if err := src.ReadFrame(got); err != io.EOF {
				t.Errorf("ReadFrame() after last frame error = %v, want io.EOF", err)
			}
		})
	}
}

func TestDefaultRecordingName(t *testing.T) {
	got := DefaultRecordingName(time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC))
	if got != "tuner-20240301-090507.wav" {
		t.Errorf("DefaultRecordingName() = %q", got)
	}
}

func TestRecordingWriteNoAllocs(t *testing.T) {
	rec := NewRecorder(testSampleRate, 16, testFrameSize)
	frame := utils.GenerateSineWave(testFrameSize, testSampleRate, 110, 0.5)

	// Conversion into the reused buffer must not allocate.
	allocs := testing.AllocsPerRun(100, func() {
		rec.sampleBuf.Data = rec.sampleBuf.Data[:len(frame)]
		for i, sample := range frame {
			rec.sampleBuf.Data[i] = from16(sample, rec.bitDepth)
		}
	})
	if allocs > 0 {
		t.Errorf("Recording conversion allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkRecordingWrite(b *testing.B) {
	rec := NewRecorder(testSampleRate, 16, testFrameSize)
	if err := rec.Start(filepath.Join(b.TempDir(), "bench.wav")); err != nil {
		b.Fatal(err)
	}
	defer rec.Stop()
	frame := utils.GenerateSineWave(testFrameSize, testSampleRate, 110, 0.5)

	b.ReportAllocs()
	for b.Loop() {
		_ = rec.Write(frame)
	}
}
