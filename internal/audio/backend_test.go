package audio

import (
	"testing"

	"github.com/runanywhere/nativeaudio/internal/config"
)

func TestDetermineBackend(t *testing.T) {
	cfg := config.Default()

	cfg.Capture.Backend = "file"
	if got := determineBackend(cfg); got != BackendTypeFile {
		t.Errorf("Expected file backend, got %s", got)
	}

	cfg.Capture.Backend = "portaudio"
	if got := determineBackend(cfg); got != BackendTypePortAudio {
		t.Errorf("Expected portaudio backend, got %s", got)
	}
}

func TestDetermineBackend_AutoFallsBackToSourceFile(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.Backend = "auto"
	cfg.Capture.SourceFile = "/tmp/input.wav"

	want := BackendTypeFile
	if portAudioAvailable {
		want = BackendTypePortAudio
	}
	if got := determineBackend(cfg); got != want {
		t.Errorf("Expected %s for auto, got %s", want, got)
	}

	backend := NewBackend(cfg)
	if backend.GetType() != want {
		t.Errorf("Expected %s backend, got %s", want, backend.GetType())
	}
}

func TestDetermineBackend_AutoWithoutSourceFile(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.Backend = "auto"
	cfg.Capture.SourceFile = ""

	if got := determineBackend(cfg); got != BackendTypePortAudio {
		t.Errorf("Expected portaudio for auto without a source file, got %s", got)
	}
}
