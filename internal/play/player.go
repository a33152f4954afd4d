package play

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/runanywhere/nativeaudio/internal/audio"
)

// Status is a snapshot of the playback position.
type Status struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// outputFormat is what the output device is fed. Files in other 16-bit
// formats are converted on the fly.
var outputFormat = audio.DefaultFormat

// Player plays one WAV file at a time. All methods are safe for
// concurrent use; a new Play replaces whatever was playing.
type Player struct {
	out Output

	mu       sync.Mutex
	handle   Handle
	file     *os.File
	source   *countingReader
	format   audio.Format // format of the file
	duration float64
	path     string
	paused   bool
}

// New creates a player writing to out.
func New(out Output) *Player {
	return &Player{out: out}
}

// Play starts playing the WAV file at uri, which may be a plain path or a
// file:// URI, and returns its duration in seconds. Any 16-bit PCM WAV
// plays; other rates and channel counts are converted for the output.
func (p *Player) Play(uri string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked()

	path := NormalizeURI(uri)
	f, err := os.Open(path)
	if err != nil {
		return 0, audio.NewError(audio.CodePlayback, err, "Failed to open %s", path)
	}

	r := bufio.NewReader(f)
	header, err := audio.ReadWavHeader(r)
	if err != nil {
		f.Close()
		return 0, audio.NewError(audio.CodePlayback, err, "Failed to read %s", path)
	}
	if err := canConvert(header.Format); err != nil {
		f.Close()
		return 0, audio.NewError(audio.CodePlayback, err, "unsupported format %s", header.Format)
	}

	source := &countingReader{r: io.LimitReader(r, int64(header.DataSize))}
	var stream io.Reader = source
	if header.Format != outputFormat {
		slog.Debug("Converting for playback", "from", header.Format.String(), "to", outputFormat.String())
		stream = newConverter(source, header.Format, outputFormat)
	}
	handle, err := p.out.NewHandle(stream, outputFormat)
	if err != nil {
		f.Close()
		return 0, audio.NewError(audio.CodePlayback, err, "Failed to open output")
	}

	p.handle = handle
	p.file = f
	p.source = source
	p.format = header.Format
	p.duration = header.Duration()
	p.path = path
	p.paused = false

	handle.Play()

	slog.Info("Playback started", "path", path, "duration", p.duration)
	return p.duration, nil
}

// Stop releases the current stream. It always succeeds.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		slog.Info("Playback stopped", "path", p.path)
	}
	p.closeLocked()
	return nil
}

// Pause pauses the current stream. Without one it does nothing.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return nil
	}
	p.handle.Pause()
	p.paused = true
	return nil
}

// Resume continues a paused stream. Without one it does nothing.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return nil
	}
	p.handle.Play()
	p.paused = false
	return nil
}

// Status reports the current position. The zero Status means nothing is
// loaded.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return Status{}
	}

	// Bytes read from the file, less what the output still holds.
	heard := p.format.Duration(p.source.Count()) - outputFormat.Duration(int64(p.handle.BufferedSize()))
	current := min(max(heard, 0), p.duration)

	return Status{
		IsPlaying:   !p.paused && p.handle.IsPlaying(),
		CurrentTime: current,
		Duration:    p.duration,
	}
}

// Close is an alias for Stop.
func (p *Player) Close() error {
	return p.Stop()
}

func (p *Player) closeLocked() {
	if p.handle != nil {
		if err := p.handle.Close(); err != nil {
			slog.Warn("Closing playback stream failed", "error", err)
		}
	}
	if p.file != nil {
		p.file.Close()
	}
	p.handle = nil
	p.file = nil
	p.source = nil
	p.duration = 0
	p.path = ""
	p.paused = false
}

// NormalizeURI turns a file:// URI into a plain path.
func NormalizeURI(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// ResolveSource finds the file to play for a CLI argument: an existing
// path or URI is used as is, anything else is looked up as a recording
// name in dir.
func ResolveSource(dir, name string) (string, error) {
	path := NormalizeURI(name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	clean := cleanFileName(strings.TrimSuffix(filepath.Base(path), ".wav"))
	if clean == "" {
		return "", fmt.Errorf("audio file not found: %s", name)
	}
	candidate := filepath.Join(dir, clean+".wav")
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("audio file not found: %s", candidate)
		}
		return "", err
	}
	return candidate, nil
}

func cleanFileName(name string) string {
	// Allows: letters, numbers, hyphens, underscores
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// countingReader counts the bytes the output has pulled. The output reads
// from its own goroutine.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) Count() int64 {
	return c.n.Load()
}
