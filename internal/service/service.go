package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runanywhere/nativeaudio/internal/audio"
	"github.com/runanywhere/nativeaudio/internal/config"
	"github.com/runanywhere/nativeaudio/internal/play"
)

// Service is the capture and playback API shared by the CLI, the bridge
// and the HTTP server.
type Service interface {
	// Recording operations
	StartRecording() (*StartResult, error)
	StopRecording() (*StopResult, error)
	CancelRecording() error
	GetAudioLevel() float64

	// Playback operations
	PlayAudio(uri string) (float64, error)
	StopPlayback() error
	PausePlayback() error
	ResumePlayback() error
	GetPlaybackStatus() play.Status

	// Information operations
	ListRecordings() ([]RecordingInfo, error)
	GetStatus() *Status
	GetConfig() *config.Config
	GetLastError() string

	Close() error
}

// StartResult is returned when a recording starts. Path is where the WAV
// will be written once the recording is stopped.
type StartResult struct {
	Path          string `json:"path"`
	SampleRate    int    `json:"sampleRate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bitsPerSample"`
}

// StopResult describes a finished recording.
type StopResult struct {
	Path        string  `json:"path"`
	AudioBase64 string  `json:"audioBase64,omitempty"`
	FileSize    int64   `json:"fileSize"`
	SampleRate  int     `json:"sampleRate"`
	Channels    int     `json:"channels"`
	Duration    float64 `json:"duration"`
}

// RecordingInfo contains information about a recording on disk
type RecordingInfo struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	SizeHuman    string    `json:"size_human"`
	Duration     float64   `json:"duration"`
	ModTime      time.Time `json:"mod_time"`
	ModTimeHuman string    `json:"mod_time_human"`
	StreamURL    string    `json:"stream_url"`
}

// Status is the combined recorder and player state
type Status struct {
	Recorder  audio.Status       `json:"recorder"`
	Session   *audio.SessionInfo `json:"session,omitempty"`
	Level     float64            `json:"level"`
	Playback  play.Status        `json:"playback"`
	Backend   audio.BackendType  `json:"backend"`
	LastError string             `json:"last_error,omitempty"`
}

// AudioService is the main service implementation
type AudioService struct {
	cfg      *config.Config
	recorder *audio.Recorder
	player   *play.Player

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a service using the capture backend and output device from cfg.
func New(cfg *config.Config) *AudioService {
	return NewWithComponents(cfg, audio.NewRecorder(cfg), play.New(play.NewOutput(cfg)))
}

// NewWithComponents creates a service around an explicit recorder and player.
func NewWithComponents(cfg *config.Config, recorder *audio.Recorder, player *play.Player) *AudioService {
	return &AudioService{
		cfg:      cfg,
		recorder: recorder,
		player:   player,
	}
}

// StartRecording begins capturing from the input device.
func (s *AudioService) StartRecording() (*StartResult, error) {
	slog.Debug("Service.StartRecording called")
	s.clearLastError()

	path, err := s.recorder.Start()
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return nil, err
	}

	f := s.recorder.Format()
	return &StartResult{
		Path:          path,
		SampleRate:    f.SampleRate,
		Channels:      f.Channels,
		BitsPerSample: f.BitsPerSample,
	}, nil
}

// StopRecording stops the current recording and writes it to disk.
func (s *AudioService) StopRecording() (*StopResult, error) {
	rec, err := s.recorder.Stop()
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		return nil, err
	}
	s.clearLastError()

	return &StopResult{
		Path:        rec.Path,
		AudioBase64: rec.AudioBase64,
		FileSize:    rec.FileSize,
		SampleRate:  rec.Format.SampleRate,
		Channels:    rec.Format.Channels,
		Duration:    rec.Duration,
	}, nil
}

// CancelRecording discards the current recording, if any.
func (s *AudioService) CancelRecording() error {
	if err := s.recorder.Cancel(); err != nil {
		s.setLastError(fmt.Sprintf("Failed to cancel recording: %v", err))
		return err
	}
	return nil
}

// GetAudioLevel returns the live input level in [0, 1].
func (s *AudioService) GetAudioLevel() float64 {
	return s.recorder.Level()
}

// PlayAudio starts playing a WAV file and returns its duration.
func (s *AudioService) PlayAudio(uri string) (float64, error) {
	duration, err := s.player.Play(uri)
	if err != nil {
		s.setLastError(fmt.Sprintf("Playback failed: %v", err))
		return 0, err
	}
	return duration, nil
}

func (s *AudioService) StopPlayback() error {
	return s.player.Stop()
}

func (s *AudioService) PausePlayback() error {
	return s.player.Pause()
}

func (s *AudioService) ResumePlayback() error {
	return s.player.Resume()
}

func (s *AudioService) GetPlaybackStatus() play.Status {
	return s.player.Status()
}

// ListRecordings returns the WAV files in the output directory, newest first.
func (s *AudioService) ListRecordings() ([]RecordingInfo, error) {
	dir := s.cfg.Output.Directory

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RecordingInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read recordings directory: %w", err)
	}

	recordings := []RecordingInfo{}
	for _, file := range files {
		if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".wav") {
			continue
		}

		info, err := file.Info()
		if err != nil {
			slog.Warn("Failed to get file info", "file", file.Name(), "error", err)
			continue
		}

		path := filepath.Join(dir, file.Name())
		recordings = append(recordings, RecordingInfo{
			Name:         file.Name(),
			Path:         path,
			Size:         info.Size(),
			SizeHuman:    humanize.Bytes(uint64(info.Size())),
			Duration:     wavDuration(path),
			ModTime:      info.ModTime(),
			ModTimeHuman: humanize.Time(info.ModTime()),
			StreamURL:    fmt.Sprintf("/api/recordings/stream/%s", file.Name()),
		})
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].ModTime.After(recordings[j].ModTime)
	})

	return recordings, nil
}

// wavDuration reads the duration from a WAV header, or 0 if unreadable.
func wavDuration(path string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	h, err := audio.ReadWavHeader(f)
	if err != nil {
		slog.Debug("Skipping duration for unreadable wav", "path", path, "error", err)
		return 0
	}
	return h.Duration()
}

// GetStatus returns the combined recorder and player state.
func (s *AudioService) GetStatus() *Status {
	status, session := s.recorder.GetStatus()
	return &Status{
		Recorder:  status,
		Session:   session,
		Level:     s.recorder.Level(),
		Playback:  s.player.Status(),
		Backend:   s.recorder.Backend().GetType(),
		LastError: s.GetLastError(),
	}
}

func (s *AudioService) GetConfig() *config.Config {
	return s.cfg
}

// GetLastError returns the last error message (thread-safe)
func (s *AudioService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *AudioService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

func (s *AudioService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// Close cancels any active recording and stops playback.
func (s *AudioService) Close() error {
	s.player.Stop()
	return s.recorder.Cleanup()
}
