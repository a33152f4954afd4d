package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend hands out fakeDevices fed from a fixed sample source.
type fakeBackend struct {
	samples  []int16 // served once, then the device goes quiet
	repeat   bool    // serve samples forever
	block    chan struct{}
	readErr  error // returned once samples are used up
	openErr  error
	opens    atomic.Int32
	lastOpen atomic.Pointer[fakeDevice]
}

func (b *fakeBackend) Open(f Format, framesPerBlock int) (CaptureDevice, error) {
	b.opens.Add(1)
	if b.openErr != nil {
		return nil, b.openErr
	}
	d := &fakeDevice{samples: b.samples, repeat: b.repeat, block: b.block, err: b.readErr}
	b.lastOpen.Store(d)
	return d, nil
}

func (b *fakeBackend) ListSources() ([]string, error) {
	return []string{"fake"}, nil
}

func (b *fakeBackend) GetType() BackendType {
	return "fake"
}

type fakeDevice struct {
	mu      sync.Mutex
	samples []int16
	pos     int
	repeat  bool
	block   chan struct{}
	err     error
	closed  atomic.Bool
}

// Read holds d.mu for the whole call, including while blocked, so Close
// waits behind a stalled Read the way a real stream does.
func (d *fakeDevice) Read(buf []int16) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.block != nil {
		<-d.block
		return 0, errors.New("unblocked")
	}

	if d.repeat && d.pos >= len(d.samples) {
		d.pos = 0
	}
	if d.err != nil && d.pos >= len(d.samples) {
		return 0, d.err
	}
	n := copy(buf, d.samples[d.pos:])
	d.pos += n
	return n, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed.Store(true)
	return nil
}

func alternatingSamples(n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = 32767
		} else {
			s[i] = -32767
		}
	}
	return s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
