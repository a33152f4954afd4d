// Package bridge exposes the service as named asynchronous methods. Every
// call is settled exactly once through a Promise, either resolved with a
// JSON-encodable payload or rejected with a code and message.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/runanywhere/nativeaudio/internal/audio"
	"github.com/runanywhere/nativeaudio/internal/service"
)

// Bridge-level rejection codes. Failures from the audio layer keep their
// own codes.
const (
	CodeInvalidArgs   = "INVALID_ARGS"
	CodeUnknownMethod = "UNKNOWN_METHOD"
	CodeInternal      = "INTERNAL_ERROR"
)

const queueSize = 64

// Promise settles one call.
type Promise interface {
	Resolve(value any)
	Reject(code, message string, err error)
}

// Error is the rejection returned by Call.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// method is one bridge entry point. inline methods run on the caller's
// goroutine and must not block.
type method struct {
	run    func(args json.RawMessage) (any, error)
	inline bool
}

type call struct {
	name    string
	method  method
	args    json.RawMessage
	promise Promise
}

// Bridge runs queued calls one at a time on a single dispatch goroutine.
type Bridge struct {
	svc     service.Service
	methods map[string]method

	mu     sync.RWMutex
	closed bool
	calls  chan call
	done   chan struct{}
}

// New starts a bridge over svc. Close must be called to stop it.
func New(svc service.Service) *Bridge {
	b := &Bridge{
		svc:   svc,
		calls: make(chan call, queueSize),
		done:  make(chan struct{}),
	}
	b.methods = b.buildMethods()

	go b.loop()
	return b
}

// Methods returns the method names the bridge understands, sorted.
func (b *Bridge) Methods() []string {
	names := make([]string, 0, len(b.methods))
	for name := range b.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch queues a call and returns immediately. p is settled later from
// the dispatch goroutine.
func (b *Bridge) Dispatch(name string, args json.RawMessage, p Promise) {
	m, ok := b.methods[name]
	if !ok {
		p.Reject(CodeUnknownMethod, fmt.Sprintf("Unknown method %q", name), nil)
		return
	}

	c := call{name: name, method: m, args: args, promise: p}
	if m.inline {
		b.execute(c)
		return
	}
	if !b.enqueue(c) {
		p.Reject(CodeInternal, "Bridge is closed", nil)
	}
}

// Call dispatches a call and waits for it to settle. If ctx ends first the
// call still runs but its result is dropped.
func (b *Bridge) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	p := make(chanPromise, 1)
	b.Dispatch(name, args, p)

	select {
	case r := <-p:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting calls, finishes the queued ones and waits for the
// dispatch goroutine to exit.
func (b *Bridge) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.calls)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bridge) enqueue(c call) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false
	}
	b.calls <- c
	return true
}

func (b *Bridge) loop() {
	defer close(b.done)
	for c := range b.calls {
		b.execute(c)
	}
}

func (b *Bridge) execute(c call) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Bridge method panicked", "method", c.name, "panic", r)
			c.promise.Reject(CodeInternal, fmt.Sprintf("%s failed: %v", c.name, r), nil)
		}
	}()

	slog.Debug("Bridge call", "method", c.name)

	value, err := c.method.run(c.args)
	if err != nil {
		code, message := classify(err)
		slog.Debug("Bridge call rejected", "method", c.name, "code", code, "error", err)
		c.promise.Reject(code, message, err)
		return
	}
	c.promise.Resolve(value)
}

// classify maps an error to the code and message reported to callers.
func classify(err error) (string, string) {
	var be *Error
	if errors.As(err, &be) {
		return be.Code, be.Message
	}

	var ae *audio.Error
	if errors.As(err, &ae) {
		msg := ae.Message
		if msg == "" {
			msg = ae.Error()
		} else if ae.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, ae.Err)
		}
		return string(ae.Code), msg
	}

	return CodeInternal, err.Error()
}

type result struct {
	value any
	err   error
}

// chanPromise delivers the settlement on a buffered channel.
type chanPromise chan result

func (p chanPromise) Resolve(value any) {
	p <- result{value: value}
}

func (p chanPromise) Reject(code, message string, err error) {
	p <- result{err: &Error{Code: code, Message: message, Err: err}}
}
