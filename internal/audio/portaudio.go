//go:build portaudio
// +build portaudio

package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

const portAudioAvailable = true

var errDeviceClosed = errors.New("device closed")

// PortAudioBackend captures from a PortAudio input device.
type PortAudioBackend struct {
	// Device selects an input device by name; empty uses the default input.
	Device string
}

// Open initializes PortAudio and starts an input stream for f.
func (p *PortAudioBackend) Open(f Format, framesPerBlock int) (CaptureDevice, error) {
	if f.BitsPerSample != 16 {
		return nil, fmt.Errorf("portaudio capture supports 16-bit samples only, got %d", f.BitsPerSample)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	d := &portAudioDevice{buf: make([]int16, framesPerBlock*f.Channels)}

	stream, err := p.openStream(f, framesPerBlock, d.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}
	d.stream = stream

	slog.Debug("PortAudio input stream started", "device", p.deviceLabel(), "format", f.String(), "frames", framesPerBlock)
	return d, nil
}

func (p *PortAudioBackend) openStream(f Format, framesPerBlock int, buf []int16) (*portaudio.Stream, error) {
	if p.Device == "" {
		return portaudio.OpenDefaultStream(f.Channels, 0, float64(f.SampleRate), framesPerBlock, buf)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name != p.Device || dev.MaxInputChannels < f.Channels {
			continue
		}
		params := portaudio.LowLatencyParameters(dev, nil)
		params.Input.Channels = f.Channels
		params.SampleRate = float64(f.SampleRate)
		params.FramesPerBuffer = framesPerBlock
		return portaudio.OpenStream(params, buf)
	}
	return nil, fmt.Errorf("input device not found: %s", p.Device)
}

func (p *PortAudioBackend) deviceLabel() string {
	if p.Device == "" {
		return "default"
	}
	return p.Device
}

// ListSources returns the names of devices with at least one input channel.
func (p *PortAudioBackend) ListSources() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	var sources []string
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			sources = append(sources, dev.Name)
		}
	}
	return sources, nil
}

// GetType returns the backend type
func (p *PortAudioBackend) GetType() BackendType {
	return BackendTypePortAudio
}

// portAudioDevice serializes Read and Close on mu. Close aborts the stream
// first so a Read blocked inside PortAudio returns and frees the lock.
type portAudioDevice struct {
	mu        sync.Mutex
	stream    *portaudio.Stream
	buf       []int16
	closed    atomic.Bool
	closeOnce sync.Once
}

func (d *portAudioDevice) Read(buf []int16) (int, error) {
	if d.closed.Load() {
		return 0, errDeviceClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() {
		return 0, errDeviceClosed
	}
	if err := d.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return 0, ErrOverflow
		}
		return 0, err
	}
	return copy(buf, d.buf), nil
}

func (d *portAudioDevice) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		if abortErr := d.stream.Abort(); abortErr != nil {
			slog.Debug("Aborting PortAudio stream failed", "error", abortErr)
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		err = d.stream.Close()
		portaudio.Terminate()
	})
	return err
}
