package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestWav(t *testing.T, samples []int16, f Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.wav")
	if err := os.WriteFile(path, EncodeWav(AppendSamples(nil, samples), f), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileBackend_ReadsSamples(t *testing.T) {
	path := writeTestWav(t, []int16{10, -10, 20, -20, 30}, DefaultFormat)
	backend := &FileBackend{Path: path}

	dev, err := backend.Open(DefaultFormat, 2)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	var got []int16
	buf := make([]int16, 4)
	for i := 0; i < 10; i++ {
		n, err := dev.Read(buf)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if n > 2 {
			t.Errorf("Block size is 2 frames, read %d", n)
		}
		got = append(got, buf[:n]...)
	}

	want := []int16{10, -10, 20, -20, 30}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestFileBackend_RejectsFormatMismatch(t *testing.T) {
	path := writeTestWav(t, []int16{1, 2}, Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16})
	backend := &FileBackend{Path: path}

	_, err := backend.Open(DefaultFormat, 1024)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFileBackend_MissingFile(t *testing.T) {
	backend := &FileBackend{Path: filepath.Join(t.TempDir(), "missing.wav")}
	if _, err := backend.Open(DefaultFormat, 1024); err == nil {
		t.Error("Expected error for missing file")
	}

	empty := &FileBackend{}
	if _, err := empty.Open(DefaultFormat, 1024); err == nil {
		t.Error("Expected error without a path")
	}
}

func TestFileBackend_DrivesRecorder(t *testing.T) {
	path := writeTestWav(t, make([]int16, 8000), DefaultFormat)
	rec := NewRecorderWithBackend(&FileBackend{Path: path}, StaticPermission(true), CaptureOptions{OutputDir: t.TempDir()})

	if _, err := rec.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "file drained", func() bool {
		_, info := rec.GetStatus()
		return info != nil && info.Buffered == 16000
	})

	result, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if result.Duration != 0.5 {
		t.Errorf("Expected 0.5s, got %f", result.Duration)
	}
}

func TestPermissionFromString(t *testing.T) {
	tests := map[string]bool{
		"":        true,
		"granted": true,
		"denied":  false,
		" DENIED": false,
	}
	for in, want := range tests {
		if got := PermissionFromString(in).MicrophoneGranted(); got != want {
			t.Errorf("PermissionFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
