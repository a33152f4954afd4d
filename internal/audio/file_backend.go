package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// FileBackend replays a WAV file as if it were a microphone. It is used
// on hosts without an input device and to drive capture end to end.
type FileBackend struct {
	Path string

	// Realtime paces reads at the block duration, like a live device.
	Realtime bool
}

// Open validates the file against f and returns a device reading from it.
func (b *FileBackend) Open(f Format, framesPerBlock int) (CaptureDevice, error) {
	if b.Path == "" {
		return nil, errors.New("file backend requires capture.source_file")
	}

	file, err := os.Open(b.Path)
	if err != nil {
		return nil, fmt.Errorf("opening source file: %w", err)
	}

	r := bufio.NewReader(file)
	header, err := ReadWavHeader(r)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("reading %s: %w", b.Path, err)
	}
	if header.Format != f {
		file.Close()
		return nil, fmt.Errorf("%w: source is %s, capture needs %s", ErrUnsupportedFormat, header.Format, f)
	}

	d := &fileDevice{
		file:      file,
		r:         io.LimitReader(r, int64(header.DataSize)),
		blockSize: framesPerBlock * f.Channels,
	}
	if b.Realtime {
		d.interval = time.Duration(framesPerBlock) * time.Second / time.Duration(f.SampleRate)
	}
	return d, nil
}

// ListSources returns the configured source file, if any.
func (b *FileBackend) ListSources() ([]string, error) {
	if b.Path == "" {
		return nil, nil
	}
	return []string{b.Path}, nil
}

// GetType returns the backend type
func (b *FileBackend) GetType() BackendType {
	return BackendTypeFile
}

type fileDevice struct {
	mu        sync.Mutex
	file      *os.File
	r         io.Reader
	blockSize int
	interval  time.Duration
	lastRead  time.Time
	raw       []byte
	closed    bool
}

func (d *fileDevice) Read(buf []int16) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, errors.New("device closed")
	}

	if d.interval > 0 && !d.lastRead.IsZero() {
		if wait := d.interval - time.Since(d.lastRead); wait > 0 {
			time.Sleep(wait)
		}
	}
	d.lastRead = time.Now()

	want := min(len(buf), d.blockSize)
	if cap(d.raw) < want*2 {
		d.raw = make([]byte, want*2)
	}
	raw := d.raw[:want*2]

	n, err := io.ReadFull(d.r, raw)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil {
		return 0, err
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

func (d *fileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}
