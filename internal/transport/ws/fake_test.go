package ws

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

type fakeTransport struct {
	inbox   chan []byte
	readErr chan error
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbox:   make(chan []byte, 16),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

// Read keeps delivering queued frames after Close so tests can emulate a
// socket that still fires events once it has been superseded.
func (t *fakeTransport) Read() ([]byte, error) {
	select {
	case b := <-t.inbox:
		return b, nil
	case err := <-t.readErr:
		return nil, err
	}
}

func (t *fakeTransport) Write(data []byte) error {
	select {
	case <-t.closed:
		return io.ErrClosedPipe
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, append([]byte(nil), data...))
	return nil
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) frames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}

func (t *fakeTransport) drop() {
	t.readErr <- io.EOF
}

var errDialRefused = errors.New("connection refused")

// fakeDialer hands out transports from next; once next is empty, dials fail.
type fakeDialer struct {
	mu    sync.Mutex
	next  []*fakeTransport
	gate  chan struct{}
	calls atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Transport, error) {
	d.calls.Add(1)
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.next) == 0 {
		return nil, errDialRefused
	}
	t := d.next[0]
	d.next = d.next[1:]
	return t, nil
}

type recordingHandler struct {
	mu  sync.Mutex
	got [][]byte
}

func (h *recordingHandler) Route(raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, raw)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.got)
}
