package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// closeGracePeriod bounds the close handshake write.
const closeGracePeriod = time.Second

// WebSocketClient talks to a bridge that carries one envelope per binary
// WebSocket message.
type WebSocketClient struct {
	*client
}

// NewWebSocketClient creates a client for url ("ws://host:port/path").
// Call Start to begin dialing.
func NewWebSocketClient(url string, handler Handler, cfg Config) *WebSocketClient {
	wc := &WebSocketClient{}
	wc.client = newClient("websocket", url, func(ctx context.Context, connID string) (link, error) {
		return dialWebSocket(ctx, url, connID, cfg)
	}, handler, cfg)
	return wc
}

// wsLink adapts a WebSocket connection to whole-envelope reads and writes.
type wsLink struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	logger  log.Logger
	connID  string
}

func dialWebSocket(ctx context.Context, url, connID string, cfg Config) (link, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	conn.SetReadLimit(int64(wire.HeaderSize + DefaultMaxPayloadSize))

	return &wsLink{conn: conn, logger: cfg.ProtocolLogger, connID: connID}, nil
}

// ReadMessage returns the next envelope. Non-binary messages are skipped
// and undecodable ones are logged and skipped; message boundaries keep the
// link in step.
func (l *wsLink) ReadMessage() (*wire.Message, error) {
	for {
		mt, data, err := l.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}

		msg, err := wire.DecodeMessage(data)
		if err != nil {
			if l.logger != nil {
				l.logger.Log(errorEvent(l.connID, log.LayerWire, err.Error()))
			}
			continue
		}

		if l.logger != nil {
			l.logger.Log(messageEvent(l.connID, log.DirectionIn, data, msg))
		}
		return msg, nil
	}
}

// WriteMessage sends msg as one binary message.
func (l *wsLink) WriteMessage(msg *wire.Message) error {
	frame, err := wire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Log(messageEvent(l.connID, log.DirectionOut, frame, msg))
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (l *wsLink) Close() error {
	l.writeMu.Lock()
	_ = l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	l.writeMu.Unlock()

	return l.conn.Close()
}
