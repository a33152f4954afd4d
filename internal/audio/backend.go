package audio

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/runanywhere/nativeaudio/internal/config"
)

// BackendType represents the type of capture backend
type BackendType string

const (
	BackendTypePortAudio BackendType = "portaudio"
	BackendTypeFile      BackendType = "file"
	BackendTypeAuto      BackendType = "auto"
)

// ErrOverflow is returned by a CaptureDevice when the device dropped input
// because it was not read fast enough. The session treats it as a tick
// without data.
var ErrOverflow = errors.New("input overflowed")

// CaptureDevice is an open input stream delivering signed 16-bit frames in
// the format it was opened with.
type CaptureDevice interface {
	// Read fills buf with up to len(buf) samples and returns how many were
	// written. A return of zero means no data was available this tick.
	Read(buf []int16) (int, error)

	// Close releases the device. Calling Close more than once is safe.
	Close() error
}

// CaptureBackend defines the interface for capture backend implementations
type CaptureBackend interface {
	// Open acquires an input device configured for f, delivering blocks of
	// framesPerBlock frames.
	Open(f Format, framesPerBlock int) (CaptureDevice, error)

	// List available input sources
	ListSources() ([]string, error)

	// Get the backend type
	GetType() BackendType
}

// NewBackend creates a capture backend based on configuration
func NewBackend(cfg *config.Config) CaptureBackend {
	switch determineBackend(cfg) {
	case BackendTypeFile:
		return &FileBackend{Path: cfg.Capture.SourceFile, Realtime: true}
	default:
		return &PortAudioBackend{Device: cfg.Capture.Device}
	}
}

// determineBackend determines which backend to use based on configuration
func determineBackend(cfg *config.Config) BackendType {
	switch strings.ToLower(cfg.Capture.Backend) {
	case "file":
		return BackendTypeFile
	case "portaudio":
		return BackendTypePortAudio
	case "auto", "":
		if portAudioAvailable {
			return BackendTypePortAudio
		}
		if cfg.Capture.SourceFile != "" {
			slog.Info("PortAudio not compiled in, capturing from source file", "source_file", cfg.Capture.SourceFile)
			return BackendTypeFile
		}
		slog.Warn("PortAudio not compiled in and no capture.source_file set, recording will fail", "hint", "rebuild with -tags portaudio")
		return BackendTypePortAudio
	default:
		slog.Warn("Unknown capture backend, using portaudio", "backend", cfg.Capture.Backend)
		return BackendTypePortAudio
	}
}

// GetAvailableBackends returns list of backends compiled into this binary
func GetAvailableBackends() []BackendType {
	backends := []BackendType{BackendTypeFile}
	if portAudioAvailable {
		backends = append([]BackendType{BackendTypePortAudio}, backends...)
	}
	return backends
}
