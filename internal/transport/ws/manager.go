package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/metrics"
	"github.com/cwrk-planet/chatsync/pkg/logger"
)

var (
	ErrNotConnected       = errors.New("websocket not connected")
	ErrDisconnected       = errors.New("connection closed by client")
	ErrReconnectExhausted = errors.New("reconnection attempts exhausted")
	ErrClosed             = errors.New("connection manager closed")
)

// NoReconnect as Config.MaxAttempts turns automatic reconnection off.
const NoReconnect = -1

type Config struct {
	URL              string
	MaxAttempts      int // 0 means 5
	BaseDelay        time.Duration
	HandshakeTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

// FrameHandler receives every inbound frame of the live connection.
type FrameHandler interface {
	Route(raw []byte)
}

// StatusListener observes every status transition. err is the fault that
// caused it, nil for clean transitions.
type StatusListener func(status domain.ConnectionStatus, err error)

type Option func(*Manager)

func WithStatusListener(l StatusListener) Option {
	return func(m *Manager) { m.onStatus = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// link is the currently attached transport and the generation it belongs to.
type link struct {
	t   Transport
	gen uint64
}

// Manager owns the websocket connection. Lifecycle events, inbound frames
// and scheduled callbacks all run on one event-loop goroutine, so frame
// handlers and status listeners never race each other. Connect, Disconnect
// and Close must not be called from that goroutine; Send and Schedule may.
type Manager struct {
	cfg      Config
	dialer   Dialer
	frames   FrameHandler
	onStatus StatusListener
	log      *slog.Logger

	tasks     chan func()
	quit      chan struct{}
	closeOnce sync.Once

	session atomic.Uint64

	mu     sync.RWMutex
	status domain.ConnectionStatus
	link   *link

	// event loop only
	gen             uint64
	attempt         int
	shouldReconnect bool
	creds           domain.Credentials
	reconnect       *time.Timer
	waiters         []chan error
}

func NewManager(cfg Config, dialer Dialer, frames FrameHandler, opts ...Option) *Manager {
	cfg.setDefaults()
	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		frames: frames,
		log:    logger.For("ws.manager"),
		tasks:  make(chan func(), 64),
		quit:   make(chan struct{}),
		status: domain.StatusDisconnected,
	}
	for _, o := range opts {
		o(m)
	}
	metrics.SetStatus(string(domain.StatusDisconnected))

	go m.loop()
	return m
}

func (m *Manager) loop() {
	for {
		select {
		case fn := <-m.tasks:
			fn()
		case <-m.quit:
			return
		}
	}
}

// post queues fn on the event loop. It reports false once the manager is closed.
func (m *Manager) post(fn func()) bool {
	select {
	case <-m.quit:
		return false
	default:
	}
	select {
	case m.tasks <- fn:
		return true
	case <-m.quit:
		return false
	}
}

func (m *Manager) Status() domain.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Connect opens the connection and registers the user. It returns nil right
// away when a connection is already open or being established.
func (m *Manager) Connect(ctx context.Context, userID, username string) error {
	wait := make(chan error, 1)
	ok := m.post(func() {
		switch m.Status() {
		case domain.StatusConnected, domain.StatusConnecting:
			wait <- nil
			return
		}
		m.creds = domain.Credentials{UserID: userID, Username: username}
		m.shouldReconnect = true
		m.attempt = 0
		m.session.Add(1)
		m.waiters = append(m.waiters, wait)
		m.open()
	})
	if !ok {
		return ErrClosed
	}

	select {
	case err := <-wait:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.quit:
		return ErrClosed
	}
}

// Disconnect closes the connection and cancels everything the current
// session scheduled. Pending Connect calls fail with ErrDisconnected.
func (m *Manager) Disconnect() {
	done := make(chan struct{})
	if !m.post(func() {
		m.disconnect()
		close(done)
	}) {
		return
	}
	select {
	case <-done:
	case <-m.quit:
	}
}

// Close disconnects and stops the event loop. The manager is unusable afterwards.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.Disconnect()
		close(m.quit)
	})
}

// Send marshals payload into a frame of type typ and writes it. Nothing is
// queued: when the connection is not open the frame is dropped and
// ErrNotConnected returned.
func (m *Manager) Send(typ string, payload any) error {
	f, err := NewFrame(typ, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}

	m.mu.RLock()
	status, l := m.status, m.link
	m.mu.RUnlock()

	if status != domain.StatusConnected || l == nil {
		metrics.SendsDropped.WithLabelValues(typ).Inc()
		m.log.Warn("frame dropped, not connected", logger.Frame(typ), "status", status)
		return ErrNotConnected
	}

	if err := l.t.Write(data); err != nil {
		gen := l.gen
		go m.post(func() { m.onClosed(gen, err) })
		return fmt.Errorf("write %s: %w", typ, err)
	}
	metrics.FramesSent.WithLabelValues(typ).Inc()
	return nil
}

// Schedule runs fn on the event loop after d unless cancel is called or the
// session ends first.
func (m *Manager) Schedule(d time.Duration, fn func()) (cancel func()) {
	var cancelled atomic.Bool
	token := m.session.Load()

	t := time.AfterFunc(d, func() {
		m.post(func() {
			if cancelled.Load() || m.session.Load() != token {
				return
			}
			fn()
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// --- event loop ---

func (m *Manager) open() {
	m.stopReconnect()
	m.detach()

	gen := m.gen
	creds := m.creds
	m.setStatus(domain.StatusConnecting, nil)

	go m.dial(gen, creds)
}

func (m *Manager) dial(gen uint64, creds domain.Credentials) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
	defer cancel()

	t, err := m.dialer.Dial(ctx, m.cfg.URL)
	if err == nil {
		err = register(t, creds)
		if err != nil {
			_ = t.Close()
			t = nil
		}
	}

	if !m.post(func() { m.onDialed(gen, t, err) }) && t != nil {
		_ = t.Close()
	}
}

func register(t Transport, creds domain.Credentials) error {
	f, err := NewFrame(TypeRegisterUser, RegisterUserPayload{UserID: creds.UserID, Username: creds.Username})
	if err != nil {
		return err
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := t.Write(data); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	metrics.FramesSent.WithLabelValues(TypeRegisterUser).Inc()
	return nil
}

func (m *Manager) onDialed(gen uint64, t Transport, err error) {
	if gen != m.gen {
		if t != nil {
			_ = t.Close()
		}
		m.log.Debug("stale dial result discarded", "gen", gen)
		return
	}
	if err != nil {
		m.fault(fmt.Errorf("dial: %w", err))
		return
	}

	m.mu.Lock()
	m.link = &link{t: t, gen: gen}
	m.mu.Unlock()

	m.attempt = 0
	m.log.Info("connected", logger.User(m.creds.UserID), "gen", gen)
	m.setStatus(domain.StatusConnected, nil)
	m.resolve(nil)

	go m.read(gen, t)
}

func (m *Manager) read(gen uint64, t Transport) {
	for {
		data, err := t.Read()
		if err != nil {
			m.post(func() { m.onClosed(gen, err) })
			return
		}
		if !m.post(func() { m.onFrame(gen, data) }) {
			return
		}
	}
}

func (m *Manager) onFrame(gen uint64, data []byte) {
	if gen != m.gen {
		metrics.FramesDiscarded.WithLabelValues("stale").Inc()
		return
	}
	m.frames.Route(data)
}

func (m *Manager) onClosed(gen uint64, err error) {
	if gen != m.gen {
		return
	}
	m.detach()
	m.fault(err)
}

// fault handles an unexpected close or a failed dial of the current generation.
func (m *Manager) fault(err error) {
	m.log.Warn("connection fault", "err", err, "attempt", m.attempt)
	m.resolve(err)

	if !m.shouldReconnect {
		m.setStatus(domain.StatusDisconnected, err)
		return
	}
	if m.attempt >= m.cfg.MaxAttempts {
		m.shouldReconnect = false
		m.log.Error("giving up on reconnection", "attempts", m.attempt, "err", err)
		m.setStatus(domain.StatusDisconnected, fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, m.attempt, err))
		return
	}

	m.attempt++
	delay := m.cfg.BaseDelay * time.Duration(m.attempt)
	gen := m.gen
	metrics.ReconnectAttempts.Inc()
	m.log.Info("reconnecting", "attempt", m.attempt, "delay", delay)

	m.reconnect = time.AfterFunc(delay, func() {
		m.post(func() {
			if gen != m.gen || !m.shouldReconnect {
				return
			}
			m.open()
		})
	})
	m.setStatus(domain.StatusConnecting, err)
}

func (m *Manager) disconnect() {
	m.shouldReconnect = false
	m.attempt = 0
	m.session.Add(1)
	m.stopReconnect()
	m.detach()
	m.resolve(ErrDisconnected)
	m.setStatus(domain.StatusDisconnected, nil)
}

// detach bumps the generation, which silences every callback of the old
// transport, and then closes it.
func (m *Manager) detach() {
	m.gen++

	m.mu.Lock()
	l := m.link
	m.link = nil
	m.mu.Unlock()

	if l != nil {
		go func() { _ = l.t.Close() }()
	}
}

func (m *Manager) stopReconnect() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

func (m *Manager) resolve(err error) {
	for _, w := range m.waiters {
		w <- err
	}
	m.waiters = nil
}

func (m *Manager) setStatus(status domain.ConnectionStatus, err error) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()

	metrics.SetStatus(string(status))
	if m.onStatus != nil {
		m.onStatus(status, err)
	}
}
