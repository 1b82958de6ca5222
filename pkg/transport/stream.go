package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// StreamClient talks to the firmware over a TCP byte stream.
type StreamClient struct {
	*client
}

// NewStreamClient creates a client for address ("host:port"). Call Start
// to begin dialing.
func NewStreamClient(address string, handler Handler, cfg Config) *StreamClient {
	sc := &StreamClient{}
	sc.client = newClient("stream", address, func(ctx context.Context, connID string) (link, error) {
		return dialStream(ctx, address, connID, cfg)
	}, handler, cfg)
	return sc
}

type streamLink struct {
	net.Conn
	*Framer
}

func dialStream(ctx context.Context, address, connID string, cfg Config) (link, error) {
	d := &net.Dialer{KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	framer := NewFramer(conn)
	if cfg.ProtocolLogger != nil {
		framer.SetLogger(cfg.ProtocolLogger, connID)
	}
	return &streamLink{Conn: conn, Framer: framer}, nil
}
