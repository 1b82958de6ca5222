package log

import (
	"time"

	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// Event is one protocol log record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the transport link (UUID). It changes on
	// every reconnect.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the transport endpoint (host:port or URL).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// DeviceAddr is the Bluetooth address the event concerns, if any.
	DeviceAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Wire layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Link or device state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors and drops
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message from the firmware.
	DirectionIn Direction = 0
	// DirectionOut indicates a message to the firmware.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the envelope layer (decoded header).
	LayerWire Layer = 1
	// LayerEngine is the assistant state engine.
	LayerEngine Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerEngine:
		return "ENGINE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message or frame.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error or dropped message.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (header included).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameCapture is the number of frame bytes kept in a FrameEvent.
const MaxFrameCapture = 256

// NewFrameEvent builds a FrameEvent, truncating data to MaxFrameCapture.
func NewFrameEvent(data []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameCapture {
		fe.Data = append([]byte(nil), data[:MaxFrameCapture]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return fe
}

// MessageEvent captures a decoded envelope.
type MessageEvent struct {
	Type    wire.MessageType `cbor:"1,keyasint"`
	SubType wire.SubType     `cbor:"2,keyasint"`
	SeqNo   uint16           `cbor:"3,keyasint"`

	// Payload is the undecoded LTV payload.
	Payload []byte `cbor:"4,keyasint,omitempty"`
}

// NewMessageEvent captures the header and payload of m.
func NewMessageEvent(m *wire.Message) *MessageEvent {
	return &MessageEvent{
		Type:    m.Type,
		SubType: m.SubType,
		SeqNo:   m.SeqNo,
		Payload: append([]byte(nil), m.Payload...),
	}
}

// StateChangeEvent captures link and device lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityLink is the transport link to the firmware.
	StateEntityLink StateEntity = 0
	// StateEntitySink is a sink's connection state.
	StateEntitySink StateEntity = 1
	// StateEntitySource is a source's selection state.
	StateEntitySource StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntitySink:
		return "SINK"
	case StateEntitySource:
		return "SOURCE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable), e.g. a firmware error code.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context names the operation or handler that failed.
	Context string `cbor:"4,keyasint,omitempty"`
}
