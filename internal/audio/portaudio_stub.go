//go:build !portaudio
// +build !portaudio

package audio

import "errors"

const portAudioAvailable = false

var errNoPortAudio = errors.New("portaudio capture not available: rebuild with -tags portaudio")

// PortAudioBackend stub when portaudio is not compiled in
type PortAudioBackend struct {
	Device string
}

func (p *PortAudioBackend) Open(Format, int) (CaptureDevice, error) {
	return nil, errNoPortAudio
}

func (p *PortAudioBackend) ListSources() ([]string, error) {
	return nil, errNoPortAudio
}

func (p *PortAudioBackend) GetType() BackendType {
	return BackendTypePortAudio
}
