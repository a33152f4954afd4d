//go:build nocgo
// +build nocgo

package play

import (
	"errors"
	"io"
	"time"

	"github.com/runanywhere/nativeaudio/internal/audio"
)

// OtoOutput stub for builds without cgo
type OtoOutput struct {
	BufferSize time.Duration
}

func (o *OtoOutput) NewHandle(io.Reader, audio.Format) (Handle, error) {
	return nil, errors.New("audio output not available in nocgo build")
}
