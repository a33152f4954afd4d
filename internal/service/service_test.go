package service

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/runanywhere/nativeaudio/internal/audio"
	"github.com/runanywhere/nativeaudio/internal/config"
	"github.com/runanywhere/nativeaudio/internal/play"
)

type nullOutput struct{}

func (nullOutput) NewHandle(io.Reader, audio.Format) (play.Handle, error) {
	return &nullHandle{}, nil
}

type nullHandle struct{ playing bool }

func (h *nullHandle) Play()             { h.playing = true }
func (h *nullHandle) Pause()            { h.playing = false }
func (h *nullHandle) IsPlaying() bool   { return h.playing }
func (h *nullHandle) BufferedSize() int { return 0 }
func (h *nullHandle) Close() error      { return nil }

func newTestService(t *testing.T, samples int, perm bool) (*AudioService, string) {
	t.Helper()
	dir := t.TempDir()

	source := filepath.Join(t.TempDir(), "source.wav")
	pcm := audio.AppendSamples(nil, make([]int16, samples))
	if err := os.WriteFile(source, audio.EncodeWav(pcm, audio.DefaultFormat), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Output.Directory = dir

	recorder := audio.NewRecorderWithBackend(&audio.FileBackend{Path: source}, audio.StaticPermission(perm), audio.CaptureOptions{
		OutputDir:     dir,
		IncludeBase64: true,
	})
	return NewWithComponents(cfg, recorder, play.New(nullOutput{})), dir
}

func waitForBuffered(t *testing.T, s *AudioService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := s.GetStatus()
		if st.Session != nil && st.Session.Buffered == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %d buffered bytes", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_RecordAndPlay(t *testing.T) {
	s, dir := newTestService(t, 16000, true)
	defer s.Close()

	start, err := s.StartRecording()
	if err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if start.SampleRate != 16000 || start.Channels != 1 || start.BitsPerSample != 16 {
		t.Errorf("Unexpected format in start result: %+v", start)
	}
	if filepath.Dir(start.Path) != dir {
		t.Errorf("Expected path in %s, got %s", dir, start.Path)
	}

	waitForBuffered(t, s, 32000)

	stop, err := s.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	if stop.Path != start.Path {
		t.Errorf("Stop path %s differs from start path %s", stop.Path, start.Path)
	}
	if stop.FileSize != 32044 || stop.Duration != 1.0 {
		t.Errorf("Unexpected stop result: size=%d duration=%f", stop.FileSize, stop.Duration)
	}
	if stop.AudioBase64 == "" {
		t.Error("Expected base64 payload")
	}

	duration, err := s.PlayAudio("file://" + stop.Path)
	if err != nil {
		t.Fatalf("PlayAudio failed: %v", err)
	}
	if duration != 1.0 {
		t.Errorf("Expected duration 1.0, got %f", duration)
	}
	if !s.GetPlaybackStatus().IsPlaying {
		t.Error("Expected playback to be running")
	}

	recordings, err := s.ListRecordings()
	if err != nil {
		t.Fatalf("ListRecordings failed: %v", err)
	}
	if len(recordings) != 1 {
		t.Fatalf("Expected 1 recording, got %d", len(recordings))
	}
	r := recordings[0]
	if r.Duration != 1.0 || r.Size != 32044 {
		t.Errorf("Unexpected listing: %+v", r)
	}
	if r.SizeHuman != "32 kB" {
		t.Errorf("Expected human size '32 kB', got %q", r.SizeHuman)
	}
	if !strings.HasPrefix(r.StreamURL, "/api/recordings/stream/recording_") {
		t.Errorf("Unexpected stream url %s", r.StreamURL)
	}
}

func TestService_LastErrorTracking(t *testing.T) {
	s, _ := newTestService(t, 100, false)

	if _, err := s.StartRecording(); audio.CodeOf(err) != audio.CodePermissionDenied {
		t.Fatalf("Expected PERMISSION_DENIED, got %v", err)
	}
	if !strings.Contains(s.GetLastError(), "Failed to start recording") {
		t.Errorf("Expected last error to be recorded, got %q", s.GetLastError())
	}
	if st := s.GetStatus(); st.Recorder != audio.StatusError || st.LastError == "" {
		t.Errorf("Expected error status, got %+v", st)
	}
}

func TestService_StopWithoutRecording(t *testing.T) {
	s, _ := newTestService(t, 100, true)

	if _, err := s.StopRecording(); audio.CodeOf(err) != audio.CodeNotActive {
		t.Errorf("Expected NOT_ACTIVE, got %v", err)
	}
	if err := s.CancelRecording(); err != nil {
		t.Errorf("Cancel without recording should succeed, got %v", err)
	}
	if level := s.GetAudioLevel(); level != 0 {
		t.Errorf("Expected level 0 when idle, got %f", level)
	}
}

func TestService_ListRecordingsSkipsOtherFiles(t *testing.T) {
	s, dir := newTestService(t, 100, true)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "sub.wav"), 0755)
	os.WriteFile(filepath.Join(dir, "old.wav"), audio.EncodeWav(make([]byte, 16000), audio.DefaultFormat), 0644)
	os.Chtimes(filepath.Join(dir, "old.wav"), time.Now().Add(-time.Hour), time.Now().Add(-time.Hour))
	os.WriteFile(filepath.Join(dir, "new.wav"), audio.EncodeWav(nil, audio.DefaultFormat), 0644)

	recordings, err := s.ListRecordings()
	if err != nil {
		t.Fatalf("ListRecordings failed: %v", err)
	}
	if len(recordings) != 2 {
		t.Fatalf("Expected 2 recordings, got %d", len(recordings))
	}
	if recordings[0].Name != "new.wav" || recordings[1].Name != "old.wav" {
		t.Errorf("Expected newest first, got %s, %s", recordings[0].Name, recordings[1].Name)
	}
	if recordings[1].Duration != 0.5 {
		t.Errorf("Expected 0.5s for old.wav, got %f", recordings[1].Duration)
	}
	if recordings[1].ModTimeHuman != "1 hour ago" {
		t.Errorf("Expected '1 hour ago', got %q", recordings[1].ModTimeHuman)
	}
}

func TestService_ListRecordingsMissingDirectory(t *testing.T) {
	s, _ := newTestService(t, 100, true)
	s.cfg.Output.Directory = filepath.Join(t.TempDir(), "absent")

	recordings, err := s.ListRecordings()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(recordings) != 0 {
		t.Errorf("Expected empty list, got %d", len(recordings))
	}
}
