package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// SessionState is the lifecycle state of a CaptureSession.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateRecording
	StateStopped
	StateCancelled
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRecording:
		return "RECORDING"
	case StateStopped:
		return "STOPPED"
	case StateCancelled:
		return "CANCELLED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

const (
	DefaultBlockFrames = 1024
	DefaultJoinTimeout = time.Second

	// idleBackoff is how long the worker waits after a read that returned
	// no samples before polling the device again.
	idleBackoff = 10 * time.Millisecond
)

// CaptureOptions configures a capture session.
type CaptureOptions struct {
	Format        Format
	BlockFrames   int
	JoinTimeout   time.Duration
	OutputDir     string
	IncludeBase64 bool
}

func (o CaptureOptions) withDefaults() CaptureOptions {
	if o.Format == (Format{}) {
		o.Format = DefaultFormat
	}
	if o.BlockFrames <= 0 {
		o.BlockFrames = DefaultBlockFrames
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = DefaultJoinTimeout
	}
	if o.OutputDir == "" {
		o.OutputDir = os.TempDir()
	}
	return o
}

// Recording describes a completed capture written to disk.
type Recording struct {
	Path        string
	FileSize    int64
	Format      Format
	Duration    float64
	AudioBase64 string
}

// CaptureSession records from one device into memory until stopped.
// A session is single use: once it leaves StateRecording it never records
// again.
type CaptureSession struct {
	backend CaptureBackend
	opts    CaptureOptions

	path      string
	startTime time.Time
	avoid     string // path of the previous session, possibly not yet written

	state   atomic.Int32
	failure error // device error that ended sampling, set before StateFailed
	level   LevelMeter
	pcm     atomic.Pointer[[]byte]
	device  CaptureDevice

	cancel      context.CancelFunc
	done        chan struct{}
	releaseOnce sync.Once
}

func newCaptureSession(backend CaptureBackend, opts CaptureOptions) *CaptureSession {
	return &CaptureSession{
		backend: backend,
		opts:    opts.withDefaults(),
	}
}

// State returns the current state.
func (s *CaptureSession) State() SessionState {
	return SessionState(s.state.Load())
}

// Path returns the destination assigned at start. The file exists only
// after Stop returns successfully.
func (s *CaptureSession) Path() string {
	return s.path
}

// StartTime returns when the session began recording.
func (s *CaptureSession) StartTime() time.Time {
	return s.startTime
}

// Err returns the device error that failed the session, if any.
func (s *CaptureSession) Err() error {
	if s.State() != StateFailed {
		return nil
	}
	return s.failure
}

// Level returns the most recent block level, or 0 if not recording.
func (s *CaptureSession) Level() float64 {
	if s.State() != StateRecording {
		return 0
	}
	return s.level.Load()
}

// Buffered returns the number of PCM bytes captured so far.
func (s *CaptureSession) Buffered() int {
	if p := s.pcm.Load(); p != nil {
		return len(*p)
	}
	return 0
}

func (s *CaptureSession) start(perm PermissionChecker) error {
	if perm != nil && !perm.MicrophoneGranted() {
		s.state.Store(int32(StateFailed))
		return NewError(CodePermissionDenied, nil, "Microphone permission not granted")
	}

	if err := os.MkdirAll(s.opts.OutputDir, 0755); err != nil {
		s.state.Store(int32(StateFailed))
		return NewError(CodeFile, err, "Failed to create output directory")
	}

	path, err := uniqueRecordingPath(s.opts.OutputDir, time.Now(), s.avoid)
	if err != nil {
		s.state.Store(int32(StateFailed))
		return NewError(CodeFile, err, "Failed to reserve recording path")
	}

	device, err := s.backend.Open(s.opts.Format, s.opts.BlockFrames)
	if err != nil {
		s.state.Store(int32(StateFailed))
		return NewError(CodeDeviceInit, err, "Failed to initialize capture device")
	}
	s.device = device

	s.path = path
	s.startTime = time.Now()
	empty := make([]byte, 0, s.opts.Format.ByteRate())
	s.pcm.Store(&empty)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state.Store(int32(StateRecording))

	go s.sample(ctx)

	slog.Info("Capture session started", "path", s.path, "backend", s.backend.GetType(), "format", s.opts.Format.String())
	return nil
}

// sample is the background worker. It is the only writer of the PCM
// buffer and publishes every append through s.pcm, so a reader that loads
// the pointer always sees a complete prefix of the capture.
func (s *CaptureSession) sample(ctx context.Context) {
	defer close(s.done)

	buf := make([]int16, s.opts.BlockFrames*s.opts.Format.Channels)
	pcm := *s.pcm.Load()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := s.device.Read(buf)
		if err != nil && !errors.Is(err, ErrOverflow) {
			if ctx.Err() != nil {
				return
			}
			s.fail(err)
			return
		}
		if err != nil {
			slog.Debug("Capture device overflowed", "path", s.path)
		}

		if n <= 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleBackoff):
			}
			continue
		}

		block := buf[:n]
		pcm = AppendSamples(pcm, block)
		published := pcm
		s.pcm.Store(&published)
		s.level.Store(RMSLevel(block))
	}
}

// fail moves a recording session to StateFailed and releases the device.
// It loses to a concurrent stop or cancel, which then own the teardown.
func (s *CaptureSession) fail(err error) {
	s.failure = err
	if !s.state.CompareAndSwap(int32(StateRecording), int32(StateFailed)) {
		return
	}
	slog.Error("Capture device read failed, session failed", "path", s.path, "error", err)
	s.level.Store(0)
	s.release()
}

// join signals the worker and waits for it up to the join timeout. If the
// worker exited the device is released inline; otherwise it is released in
// the background so a device stuck in Read cannot hold up the caller.
func (s *CaptureSession) join() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		timer := time.NewTimer(s.opts.JoinTimeout)
		defer timer.Stop()
		select {
		case <-s.done:
		case <-timer.C:
			slog.Warn("Capture worker did not exit in time, continuing", "path", s.path, "timeout", s.opts.JoinTimeout)
			s.level.Store(0)
			go s.release()
			return
		}
	}
	s.release()
	s.level.Store(0)
}

func (s *CaptureSession) release() {
	s.releaseOnce.Do(func() {
		if s.device == nil {
			return
		}
		if err := s.device.Close(); err != nil {
			slog.Warn("Closing capture device failed", "error", err)
		}
	})
}

// stop ends the capture and writes the WAV file. A failed session still
// writes what was captured before the device error; with nothing captured
// the device error is returned as INIT_ERROR.
func (s *CaptureSession) stop() (*Recording, error) {
	failed := false
	if !s.state.CompareAndSwap(int32(StateRecording), int32(StateStopped)) {
		if !s.state.CompareAndSwap(int32(StateFailed), int32(StateStopped)) {
			return nil, NewError(CodeNotActive, nil, "No active recording")
		}
		failed = true
	}
	s.join()

	var pcm []byte
	if p := s.pcm.Load(); p != nil {
		pcm = *p
	}
	if len(pcm) == 0 {
		if failed {
			return nil, NewError(CodeDeviceInit, s.failure, "Capture device failed")
		}
		return nil, NewError(CodeNoData, nil, "No audio data recorded")
	}
	if failed {
		slog.Warn("Saving audio captured before device failure", "path", s.path, "error", s.failure)
	}

	wav := EncodeWav(pcm, s.opts.Format)
	if err := os.WriteFile(s.path, wav, 0644); err != nil {
		return nil, NewError(CodeFile, err, "Failed to write recording")
	}

	rec := &Recording{
		Path:     s.path,
		FileSize: int64(len(wav)),
		Format:   s.opts.Format,
		Duration: s.opts.Format.Duration(int64(len(pcm))),
	}
	if s.opts.IncludeBase64 {
		rec.AudioBase64 = base64.StdEncoding.EncodeToString(pcm)
	}

	slog.Info("Capture session stopped", "path", s.path, "bytes", len(pcm), "duration", rec.Duration)
	return rec, nil
}

// cancelRecording discards the capture. It is a no-op unless the session
// is recording or failed.
func (s *CaptureSession) cancelRecording() error {
	if !s.state.CompareAndSwap(int32(StateRecording), int32(StateCancelled)) &&
		!s.state.CompareAndSwap(int32(StateFailed), int32(StateCancelled)) {
		return nil
	}
	s.join()
	s.pcm.Store(nil)

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewError(CodeFile, err, "Failed to delete recording")
	}

	slog.Info("Capture session cancelled", "path", s.path)
	return nil
}

// uniqueRecordingPath names a recording after its start time in
// milliseconds, moving forward until the name is free and differs from avoid.
// A stat error other than not-exist is returned.
func uniqueRecordingPath(dir string, t time.Time, avoid string) (string, error) {
	ms := t.UnixMilli()
	for {
		path := filepath.Join(dir, fmt.Sprintf("recording_%d.wav", ms))
		_, err := os.Stat(path)
		switch {
		case err == nil:
		case !errors.Is(err, os.ErrNotExist):
			return "", err
		case path != avoid:
			return path, nil
		}
		ms++
	}
}
