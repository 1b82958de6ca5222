package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/broadcast-assistant/ba-go/pkg/connection"
	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// Client errors.
var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("transport closed")
)

// Config holds settings shared by all clients.
type Config struct {
	// Backoff is the redial schedule.
	Backoff connection.BackoffConfig

	// DialTimeout bounds one dial attempt (default: 10s).
	DialTimeout time.Duration

	// KeepAlive enables heartbeat monitoring when its Interval is set.
	KeepAlive KeepAliveConfig

	// Logger receives operational logs.
	Logger *slog.Logger

	// ProtocolLogger receives every envelope and link state change.
	ProtocolLogger log.Logger
}

// link is one established connection.
type link interface {
	MessageReadWriter
	io.Closer
}

// dialFunc opens a link. connID tags protocol log events.
type dialFunc func(ctx context.Context, connID string) (link, error)

// client runs the lifecycle shared by StreamClient and WebSocketClient:
// dial, read loop, loss detection and redial.
type client struct {
	kind    string
	target  string
	dial    dialFunc
	handler Handler
	cfg     Config
	logger  *slog.Logger
	proto   log.Logger
	mgr     *connection.Manager

	heartbeatSeq atomic.Uint32

	mu     sync.Mutex
	conn   link
	connID string
	ka     *KeepAlive
	closed bool
	wg     sync.WaitGroup
}

func newClient(kind, target string, dial dialFunc, handler Handler, cfg Config) *client {
	c := &client{
		kind:    kind,
		target:  target,
		dial:    dial,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger,
		proto:   cfg.ProtocolLogger,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	c.logger = c.logger.With("transport", kind, "target", target)
	if c.proto == nil {
		c.proto = log.NoopLogger{}
	}

	opts := []connection.ManagerOption{
		connection.WithBackoff(cfg.Backoff),
		connection.WithLogger(c.logger),
	}
	if cfg.DialTimeout > 0 {
		opts = append(opts, connection.WithAttemptTimeout(cfg.DialTimeout))
	}
	c.mgr = connection.NewManager(c.connect, opts...)
	c.mgr.OnReconnecting(func(attempt int, delay time.Duration) {
		c.logger.Info("redialing", "attempt", attempt, "delay", delay)
	})
	return c
}

// Start dials in the background and keeps the link up until Close.
func (c *client) Start() error {
	return c.mgr.Start()
}

// Connected reports whether a link is established.
func (c *client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SendCMD writes one command envelope.
func (c *client) SendCMD(msg *wire.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteMessage(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.SubType, err)
	}
	return nil
}

// Close stops redialing and closes the current link. The handler receives
// OnDisconnected if a link was up.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.mgr.Close()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	return err
}

// connect is the connection.Manager dial function.
func (c *client) connect(ctx context.Context) error {
	connID := uuid.NewString()

	conn, err := c.dial(ctx, connID)
	if err != nil {
		return err
	}

	var ka *KeepAlive
	if c.cfg.KeepAlive.Enabled() {
		ka = NewKeepAlive(c.cfg.KeepAlive, c.sendHeartbeat, func() {
			c.logger.Warn("heartbeat timeout", "conn_id", connID, "after", c.cfg.KeepAlive.DetectionDelay())
			conn.Close()
		})
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.connID = connID
	c.ka = ka
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info("link up", "conn_id", connID)
	c.logLink(connID, "disconnected", "connected", "")
	c.handler.OnConnected()

	if ka != nil {
		ka.Start(context.Background())
	}
	go c.readLoop(conn, connID)
	return nil
}

func (c *client) sendHeartbeat() error {
	seq := uint16(c.heartbeatSeq.Add(1))
	msg, err := wire.NewCommand(wire.SubTypeHeartbeat, seq)
	if err != nil {
		return err
	}
	return c.SendCMD(msg)
}

func (c *client) readLoop(conn link, connID string) {
	defer c.wg.Done()

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			c.lost(conn, connID, err)
			return
		}

		c.mu.Lock()
		ka := c.ka
		c.mu.Unlock()
		if ka != nil {
			ka.Activity()
		}

		c.handler.OnMessage(msg)
	}
}

// lost tears down conn after a read failure and asks the manager to redial.
func (c *client) lost(conn link, connID string, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	ka := c.ka
	c.ka = nil
	closed := c.closed
	c.mu.Unlock()

	if ka != nil {
		ka.Stop()
	}
	conn.Close()

	reason := "closed"
	if !closed {
		reason = cause.Error()
		if errors.Is(cause, io.EOF) {
			reason = "remote closed"
		}
		c.logger.Warn("link lost", "conn_id", connID, "error", cause)
	}
	c.logLink(connID, "connected", "disconnected", reason)
	c.handler.OnDisconnected()

	if !closed {
		c.mgr.ConnectionLost()
	}
}

func (c *client) logLink(connID, oldState, newState, reason string) {
	c.proto.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   c.target,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
