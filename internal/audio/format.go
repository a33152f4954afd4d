package audio

import "fmt"

// Format describes linear PCM audio parameters.
type Format struct {
	SampleRate    int `json:"sampleRate" yaml:"sample_rate"`
	Channels      int `json:"channels" yaml:"channels"`
	BitsPerSample int `json:"bitsPerSample" yaml:"bits_per_sample"`
}

// DefaultFormat is the capture format used for every session: 16 kHz mono
// signed 16-bit little-endian PCM, the input speech-to-text engines expect.
var DefaultFormat = Format{
	SampleRate:    16000,
	Channels:      1,
	BitsPerSample: 16,
}

// BytesPerSample returns the size of one sample of one channel.
func (f Format) BytesPerSample() int {
	return f.BitsPerSample / 8
}

// BlockAlign returns the size of one frame (all channels).
func (f Format) BlockAlign() int {
	return f.Channels * f.BytesPerSample()
}

// ByteRate returns the number of payload bytes per second.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Duration returns the length in seconds of n payload bytes.
func (f Format) Duration(n int64) float64 {
	if f.ByteRate() == 0 {
		return 0
	}
	return float64(n) / float64(f.ByteRate())
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit", f.SampleRate, f.Channels, f.BitsPerSample)
}
