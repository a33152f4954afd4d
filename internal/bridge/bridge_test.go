package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/runanywhere/nativeaudio/internal/audio"
	"github.com/runanywhere/nativeaudio/internal/config"
	"github.com/runanywhere/nativeaudio/internal/play"
	"github.com/runanywhere/nativeaudio/internal/service"
)

// fakeService records calls and returns canned results.
type fakeService struct {
	mu       sync.Mutex
	calls    []string
	startErr error
	stopErr  error
	playErr  error
	playURI  string
	level    float64
	gate     chan struct{} // StopRecording waits on it when set
}

func (f *fakeService) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeService) StartRecording() (*service.StartResult, error) {
	f.record("start")
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &service.StartResult{Path: "/tmp/recording_1.wav", SampleRate: 16000, Channels: 1, BitsPerSample: 16}, nil
}

func (f *fakeService) StopRecording() (*service.StopResult, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.record("stop")
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return &service.StopResult{Path: "/tmp/recording_1.wav", FileSize: 32044, SampleRate: 16000, Channels: 1, Duration: 1}, nil
}

func (f *fakeService) CancelRecording() error {
	f.record("cancel")
	return nil
}

func (f *fakeService) GetAudioLevel() float64 {
	f.record("level")
	return f.level
}

func (f *fakeService) PlayAudio(uri string) (float64, error) {
	f.record("play")
	f.playURI = uri
	if f.playErr != nil {
		return 0, f.playErr
	}
	return 2.5, nil
}

func (f *fakeService) StopPlayback() error   { f.record("stopPlayback"); return nil }
func (f *fakeService) PausePlayback() error  { f.record("pause"); return nil }
func (f *fakeService) ResumePlayback() error { f.record("resume"); return nil }

func (f *fakeService) GetPlaybackStatus() play.Status {
	return play.Status{IsPlaying: true, CurrentTime: 1, Duration: 2.5}
}

func (f *fakeService) ListRecordings() ([]service.RecordingInfo, error) {
	return []service.RecordingInfo{{Name: "recording_1.wav"}}, nil
}

func (f *fakeService) GetStatus() *service.Status { return &service.Status{} }
func (f *fakeService) GetConfig() *config.Config  { return config.Default() }
func (f *fakeService) GetLastError() string       { return "" }
func (f *fakeService) Close() error               { return nil }

func (f *fakeService) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestBridge(t *testing.T, svc *fakeService) *Bridge {
	t.Helper()
	b := New(svc)
	t.Cleanup(b.Close)
	return b
}

func TestBridge_StartAndStop(t *testing.T) {
	b := newTestBridge(t, &fakeService{})
	ctx := context.Background()

	v, err := b.Call(ctx, "startRecording", nil)
	if err != nil {
		t.Fatalf("startRecording failed: %v", err)
	}
	start, ok := v.(*service.StartResult)
	if !ok || start.SampleRate != 16000 || start.Path == "" {
		t.Errorf("Unexpected start payload: %#v", v)
	}

	v, err = b.Call(ctx, "stopRecording", nil)
	if err != nil {
		t.Fatalf("stopRecording failed: %v", err)
	}
	data, _ := json.Marshal(v)
	var payload map[string]any
	json.Unmarshal(data, &payload)
	for _, key := range []string{"path", "fileSize", "sampleRate", "channels", "duration"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("stopRecording payload missing %q: %s", key, data)
		}
	}
	if _, ok := payload["audioBase64"]; ok {
		t.Errorf("audioBase64 should be omitted when empty: %s", data)
	}
}

func TestBridge_RejectsWithAudioCode(t *testing.T) {
	svc := &fakeService{
		startErr: audio.NewError(audio.CodePermissionDenied, nil, "Microphone permission not granted"),
		stopErr:  audio.NewError(audio.CodeNoData, nil, "No audio data recorded"),
		playErr:  audio.NewError(audio.CodePlayback, errors.New("open x: no such file"), "Failed to open x"),
	}
	b := newTestBridge(t, svc)

	tests := []struct {
		method string
		args   string
		code   string
	}{
		{"startRecording", "", "PERMISSION_DENIED"},
		{"stopRecording", "", "NO_DATA"},
		{"playAudio", `{"uri":"x"}`, "PLAYBACK_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			_, err := b.Call(context.Background(), tt.method, json.RawMessage(tt.args))
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("Expected *Error, got %v", err)
			}
			if be.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, be.Code)
			}
			if be.Message == "" {
				t.Error("Expected a message")
			}
		})
	}
}

func TestBridge_PlayAudioArgs(t *testing.T) {
	svc := &fakeService{}
	b := newTestBridge(t, svc)
	ctx := context.Background()

	v, err := b.Call(ctx, "playAudio", json.RawMessage(`{"uri":"file:///tmp/a.wav"}`))
	if err != nil {
		t.Fatalf("playAudio failed: %v", err)
	}
	if r, ok := v.(PlayResult); !ok || !r.Success || r.Duration != 2.5 {
		t.Errorf("Unexpected payload %#v", v)
	}
	if svc.playURI != "file:///tmp/a.wav" {
		t.Errorf("Expected uri passed through, got %q", svc.playURI)
	}

	for _, args := range []string{"", `{}`, `{"uri":"  "}`, `not json`} {
		_, err := b.Call(ctx, "playAudio", json.RawMessage(args))
		var be *Error
		if !errors.As(err, &be) || be.Code != CodeInvalidArgs {
			t.Errorf("args %q: expected INVALID_ARGS, got %v", args, err)
		}
	}
}

func TestBridge_UnknownMethod(t *testing.T) {
	b := newTestBridge(t, &fakeService{})

	_, err := b.Call(context.Background(), "selfDestruct", nil)
	var be *Error
	if !errors.As(err, &be) || be.Code != CodeUnknownMethod {
		t.Errorf("Expected UNKNOWN_METHOD, got %v", err)
	}
}

func TestBridge_SuccessPayloads(t *testing.T) {
	b := newTestBridge(t, &fakeService{level: 0.42})
	ctx := context.Background()

	for _, m := range []string{"cancelRecording", "stopPlayback", "pausePlayback", "resumePlayback"} {
		v, err := b.Call(ctx, m, nil)
		if err != nil {
			t.Errorf("%s failed: %v", m, err)
			continue
		}
		if v != (SuccessResult{Success: true}) {
			t.Errorf("%s: expected success payload, got %#v", m, v)
		}
	}

	v, _ := b.Call(ctx, "getAudioLevel", nil)
	if v != (LevelResult{Level: 0.42}) {
		t.Errorf("Unexpected level payload %#v", v)
	}

	v, _ = b.Call(ctx, "getPlaybackStatus", nil)
	if st, ok := v.(play.Status); !ok || !st.IsPlaying || st.Duration != 2.5 {
		t.Errorf("Unexpected status payload %#v", v)
	}

	v, _ = b.Call(ctx, "listRecordings", nil)
	if r, ok := v.(RecordingsResult); !ok || len(r.Recordings) != 1 {
		t.Errorf("Unexpected recordings payload %#v", v)
	}
}

func TestBridge_CallsRunInOrder(t *testing.T) {
	gate := make(chan struct{})
	svc := &fakeService{gate: gate}
	b := newTestBridge(t, svc)

	var wg sync.WaitGroup
	results := make(chan string, 3)
	for _, m := range []string{"startRecording", "stopRecording", "cancelRecording"} {
		wg.Add(1)
		b.Dispatch(m, nil, promiseFunc(func(any, error) {
			results <- m
			wg.Done()
		}))
	}

	// stopRecording is held at the gate, so cancel must not have run yet.
	time.Sleep(20 * time.Millisecond)
	if got := svc.callLog(); len(got) != 1 || got[0] != "start" {
		t.Errorf("Expected only start to have run, got %v", got)
	}

	// Inline methods are not held up by the queue.
	done := make(chan struct{})
	go func() {
		b.Call(context.Background(), "getAudioLevel", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("getAudioLevel blocked behind the queue")
	}

	close(gate)
	wg.Wait()
	close(results)

	var order []string
	for m := range results {
		order = append(order, m)
	}
	want := []string{"startRecording", "stopRecording", "cancelRecording"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("Expected settle order %v, got %v", want, order)
		}
	}
}

func TestBridge_CallHonoursContext(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	b := New(&fakeService{gate: gate})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := b.Call(ctx, "stopRecording", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestBridge_ClosedRejects(t *testing.T) {
	b := New(&fakeService{})
	b.Close()
	b.Close()

	_, err := b.Call(context.Background(), "startRecording", nil)
	var be *Error
	if !errors.As(err, &be) || be.Code != CodeInternal {
		t.Errorf("Expected INTERNAL_ERROR after close, got %v", err)
	}
}

func TestBridge_Methods(t *testing.T) {
	b := newTestBridge(t, &fakeService{})

	want := []string{
		"cancelRecording", "getAudioLevel", "getPlaybackStatus", "listRecordings", "pausePlayback",
		"playAudio", "resumePlayback", "startRecording", "stopPlayback", "stopRecording",
	}
	got := b.Methods()
	if len(got) != len(want) {
		t.Fatalf("Expected %d methods, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Method %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

type promiseFunc func(value any, err error)

func (f promiseFunc) Resolve(value any) { f(value, nil) }

func (f promiseFunc) Reject(code, message string, err error) {
	f(nil, &Error{Code: code, Message: message, Err: err})
}
