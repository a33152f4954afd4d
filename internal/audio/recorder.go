package audio

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runanywhere/nativeaudio/internal/config"
)

// Status represents the current state of the recorder
type Status string

const (
	StatusStandby   Status = "STANDBY"
	StatusRecording Status = "RECORDING"
	StatusError     Status = "ERROR"
)

// SessionInfo contains information about the current recording session
type SessionInfo struct {
	Path      string    `json:"path"`
	StartTime time.Time `json:"start_time"`
	Format    Format    `json:"format"`
	State     string    `json:"state"`
	Buffered  int       `json:"buffered_bytes"`
	Error     string    `json:"error,omitempty"`
}

// Recorder owns at most one capture session at a time. Start, Stop and
// Cancel are serialized; Level and GetStatus never wait on them.
type Recorder struct {
	backend CaptureBackend
	perm    PermissionChecker
	opts    CaptureOptions

	mu       sync.Mutex
	current  atomic.Pointer[CaptureSession]
	failed   atomic.Bool
	lastPath string
}

// NewRecorder creates a recorder using the backend and options from cfg.
func NewRecorder(cfg *config.Config) *Recorder {
	return NewRecorderWithBackend(NewBackend(cfg), PermissionFromString(cfg.Capture.Permission), CaptureOptions{
		Format:        DefaultFormat,
		BlockFrames:   cfg.Capture.BlockFrames,
		JoinTimeout:   cfg.Capture.JoinTimeout,
		OutputDir:     cfg.Output.Directory,
		IncludeBase64: cfg.Capture.Base64Enabled(),
	})
}

// NewRecorderWithBackend creates a recorder around an explicit backend.
func NewRecorderWithBackend(backend CaptureBackend, perm PermissionChecker, opts CaptureOptions) *Recorder {
	return &Recorder{
		backend: backend,
		perm:    perm,
		opts:    opts.withDefaults(),
	}
}

// Backend returns the capture backend in use.
func (r *Recorder) Backend() CaptureBackend {
	return r.backend
}

// Format returns the capture format.
func (r *Recorder) Format() Format {
	return r.opts.Format
}

// Start begins a new capture and returns the path the recording will be
// written to. The path is reserved, not created: the file appears only
// when Stop succeeds. An active capture is cancelled first.
func (r *Recorder) Start() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev := r.current.Load(); prev != nil && (prev.State() == StateRecording || prev.State() == StateFailed) {
		slog.Info("Cancelling previous capture before starting a new one", "path", prev.Path(), "state", prev.State().String())
		if err := prev.cancelRecording(); err != nil {
			slog.Warn("Cancelling previous capture failed", "error", err)
		}
	}
	r.current.Store(nil)

	session := newCaptureSession(r.backend, r.opts)
	session.avoid = r.lastPath
	if err := session.start(r.perm); err != nil {
		r.failed.Store(true)
		slog.Error("Capture start failed", "error", err)
		return "", err
	}

	r.failed.Store(false)
	r.lastPath = session.Path()
	r.current.Store(session)
	return session.Path(), nil
}

// Stop ends the active capture and writes it as a WAV file. A capture whose
// device failed is still written if it holds any audio.
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.current.Load()
	if session == nil {
		return nil, NewError(CodeNotActive, nil, "No active recording")
	}
	r.current.Store(nil)

	return session.stop()
}

// Cancel discards the active capture. It succeeds when nothing is
// recording, so calling it repeatedly is safe.
func (r *Recorder) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.current.Load()
	if session == nil {
		return nil
	}
	r.current.Store(nil)

	return session.cancelRecording()
}

// Level returns the live input level in [0, 1], or 0 when idle.
func (r *Recorder) Level() float64 {
	session := r.current.Load()
	if session == nil {
		return 0
	}
	return session.Level()
}

// GetStatus returns the recorder status and the active session, if any.
func (r *Recorder) GetStatus() (Status, *SessionInfo) {
	session := r.current.Load()
	if session != nil {
		state := session.State()
		if state == StateRecording || state == StateFailed {
			info := &SessionInfo{
				Path:      session.Path(),
				StartTime: session.StartTime(),
				Format:    r.opts.Format,
				State:     state.String(),
				Buffered:  session.Buffered(),
			}
			if err := session.Err(); err != nil {
				info.Error = err.Error()
				return StatusError, info
			}
			return StatusRecording, info
		}
	}
	if r.failed.Load() {
		return StatusError, nil
	}
	return StatusStandby, nil
}

// Cleanup cancels any active capture.
func (r *Recorder) Cleanup() error {
	return r.Cancel()
}
