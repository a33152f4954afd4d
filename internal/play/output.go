package play

import (
	"io"

	"github.com/runanywhere/nativeaudio/internal/audio"
	"github.com/runanywhere/nativeaudio/internal/config"
)

// Handle is one open playback stream on an Output.
type Handle interface {
	Play()
	Pause()
	IsPlaying() bool

	// BufferedSize is the number of bytes read from the source but not
	// yet heard.
	BufferedSize() int

	Close() error
}

// Output is an audio sink that can open playback streams.
type Output interface {
	NewHandle(r io.Reader, f audio.Format) (Handle, error)
}

// NewOutput returns the output device selected by cfg.
func NewOutput(cfg *config.Config) Output {
	return &OtoOutput{BufferSize: cfg.Playback.BufferSize}
}
