package play

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/runanywhere/nativeaudio/internal/audio"
)

// canConvert reports whether src can be converted to the output format.
// Any sample rate and channel count works; samples must be 16-bit.
func canConvert(src audio.Format) error {
	if src.BitsPerSample != 16 {
		return fmt.Errorf("%w: %d-bit samples", audio.ErrUnsupportedFormat, src.BitsPerSample)
	}
	if src.Channels < 1 || src.SampleRate < 1 {
		return fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, src)
	}
	return nil
}

// converter reads 16-bit PCM in one format and yields it in another.
// Channels are averaged to mono, resampled by linear interpolation, then
// copied to every output channel.
type converter struct {
	r   io.Reader
	out audio.Format

	step  float64 // input frames per output frame
	pos   float64 // position of the next output frame between prev and next
	prev  float64
	next  float64
	last  bool // next is the final input frame
	start bool
	done  bool
	err   error

	frame   []byte
	pending []byte
}

func newConverter(r io.Reader, in, out audio.Format) *converter {
	return &converter{
		r:     r,
		out:   out,
		step:  float64(in.SampleRate) / float64(out.SampleRate),
		frame: make([]byte, in.BlockAlign()),
	}
}

func (c *converter) Read(p []byte) (int, error) {
	for len(c.pending) < len(p) && !c.done {
		c.emit()
	}
	if len(c.pending) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// emit appends one output frame to pending and advances the input.
func (c *converter) emit() {
	if !c.start {
		c.start = true
		var ok bool
		if c.prev, ok = c.readFrame(); !ok {
			c.done = true
			return
		}
		if c.next, ok = c.readFrame(); !ok {
			c.next, c.last = c.prev, true
		}
	}

	v := math.Round(c.prev + (c.next-c.prev)*c.pos)
	s := int16(max(min(v, math.MaxInt16), math.MinInt16))
	for i := 0; i < c.out.Channels; i++ {
		c.pending = binary.LittleEndian.AppendUint16(c.pending, uint16(s))
	}

	c.pos += c.step
	for c.pos >= 1 {
		if c.last {
			c.done = true
			return
		}
		c.pos--
		c.prev = c.next
		var ok bool
		if c.next, ok = c.readFrame(); !ok {
			c.next, c.last = c.prev, true
		}
	}
}

// readFrame reads one input frame and returns the mean of its channels.
func (c *converter) readFrame() (float64, bool) {
	if _, err := io.ReadFull(c.r, c.frame); err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			c.err = err
		}
		return 0, false
	}
	var sum float64
	for i := 0; i+1 < len(c.frame); i += 2 {
		sum += float64(int16(binary.LittleEndian.Uint16(c.frame[i:])))
	}
	return sum / float64(len(c.frame)/2), true
}
