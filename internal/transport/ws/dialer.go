package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Dialer opens transports. The Manager only talks to these two interfaces so
// tests can swap in an in-memory pair.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// Transport is one open connection. Read blocks until a frame arrives or the
// connection fails; Write is safe for concurrent use.
type Transport interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}

type DialerConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadLimit    int64
}

type wsDialer struct {
	dialer *websocket.Dialer
	cfg    DialerConfig
}

func NewDialer(cfg DialerConfig) Dialer {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 1 << 20
	}
	return &wsDialer{
		dialer: &websocket.Dialer{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cfg: cfg,
	}
}

func (d *wsDialer) Dial(ctx context.Context, url string) (Transport, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	t := &wsTransport{
		conn:  conn,
		cfg:   d.cfg,
		sem:   make(chan struct{}, 1),
		close: make(chan struct{}),
	}

	pongWait := 2 * d.cfg.PingInterval
	conn.SetReadLimit(d.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go t.pingLoop()
	return t, nil
}

type wsTransport struct {
	conn *websocket.Conn
	cfg  DialerConfig

	sem chan struct{} // serializes writers

	closeOnce sync.Once
	close     chan struct{}
}

var errTransportClosed = errors.New("transport closed")

func (t *wsTransport) Read() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	// any traffic proves the peer is alive
	_ = t.conn.SetReadDeadline(time.Now().Add(2 * t.cfg.PingInterval))
	return data, nil
}

func (t *wsTransport) Write(data []byte) error {
	return t.write(websocket.TextMessage, data)
}

func (t *wsTransport) write(kind int, data []byte) error {
	select {
	case <-t.close:
		return errTransportClosed
	case t.sem <- struct{}{}:
	}
	defer func() { <-t.sem }()

	_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	return t.conn.WriteMessage(kind, data)
}

func (t *wsTransport) pingLoop() {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.close:
			return
		case <-ticker.C:
			if err := t.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close sends a normal close frame best-effort and tears the socket down.
func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		select {
		case t.sem <- struct{}{}:
			_ = t.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			<-t.sem
		default:
		}
		close(t.close)
		err = t.conn.Close()
	})
	return err
}
