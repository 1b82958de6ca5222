package transport

import (
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// Transport sends command envelopes to the firmware. SendCMD does not wait
// for the matching response.
type Transport interface {
	SendCMD(msg *wire.Message) error
	Close() error
}

// Handler receives link lifecycle signals and inbound envelopes. Calls are
// made from a single goroutine per link, in arrival order.
type Handler interface {
	OnConnected()
	OnDisconnected()
	OnMessage(msg *wire.Message)
}

// MessageReadWriter moves whole envelopes over one established link.
// Implemented by Framer and the WebSocket link.
type MessageReadWriter interface {
	ReadMessage() (*wire.Message, error)
	WriteMessage(msg *wire.Message) error
}

// Compile-time interface satisfaction checks.
var (
	_ Transport         = (*StreamClient)(nil)
	_ Transport         = (*WebSocketClient)(nil)
	_ MessageReadWriter = (*Framer)(nil)
	_ MessageReadWriter = (*wsLink)(nil)
)
