//go:build !nocgo
// +build !nocgo

package play

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/runanywhere/nativeaudio/internal/audio"
)

const otoReadyTimeout = 5 * time.Second

// OtoOutput plays through the system default output device. oto allows a
// single context per process, so the context is created on first use with
// the module format and reused afterwards.
type OtoOutput struct {
	BufferSize time.Duration

	once sync.Once
	ctx  *oto.Context
	err  error
}

func (o *OtoOutput) init() {
	options := &oto.NewContextOptions{
		SampleRate:   audio.DefaultFormat.SampleRate,
		ChannelCount: audio.DefaultFormat.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   o.BufferSize,
	}

	slog.Debug("Initializing audio output",
		"sample_rate", options.SampleRate,
		"channels", options.ChannelCount,
		"buffer_size", options.BufferSize)

	ctx, ready, err := oto.NewContext(options)
	if err != nil {
		o.err = fmt.Errorf("failed to create audio context: %w", err)
		return
	}

	select {
	case <-ready:
		o.ctx = ctx
	case <-time.After(otoReadyTimeout):
		o.err = errors.New("audio context initialization timeout")
	}
}

// NewHandle opens a player reading PCM from r.
func (o *OtoOutput) NewHandle(r io.Reader, f audio.Format) (Handle, error) {
	if f != audio.DefaultFormat {
		return nil, fmt.Errorf("%w: output runs at %s, got %s", audio.ErrUnsupportedFormat, audio.DefaultFormat, f)
	}

	o.once.Do(o.init)
	if o.err != nil {
		return nil, o.err
	}

	return o.ctx.NewPlayer(r), nil
}
