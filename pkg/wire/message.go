package wire

import (
	"fmt"
)

// MessageType is the class of an envelope.
type MessageType uint8

const (
	// MessageTypeCMD is a command from the host to the firmware.
	MessageTypeCMD MessageType = 1

	// MessageTypeRES acknowledges a command. It carries the command's subType.
	MessageTypeRES MessageType = 2

	// MessageTypeEVT is an unsolicited event from the firmware.
	MessageTypeEVT MessageType = 3
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageTypeCMD:
		return "CMD"
	case MessageTypeRES:
		return "RES"
	case MessageTypeEVT:
		return "EVT"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if t is one of the defined message classes.
func (t MessageType) IsValid() bool {
	return t >= MessageTypeCMD && t <= MessageTypeEVT
}

// Envelope header layout.
const (
	// HeaderSize is the size of the envelope header in bytes.
	HeaderSize = 6

	// MaxPayloadSize is the largest payload the 16-bit length field can carry.
	MaxPayloadSize = 0xFFFF
)

// Message is a decoded envelope.
//
// SeqNo is carried on the wire but the firmware does not use it to
// correlate responses with commands. Heartbeat events reuse it as a counter.
type Message struct {
	Type    MessageType
	SubType SubType
	SeqNo   uint16
	Payload []byte
}

// Validate checks if the message can be encoded.
func (m *Message) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid message type: %d", m.Type)
	}
	if len(m.Payload) > MaxPayloadSize {
		return fmt.Errorf("payload too large: %d > %d", len(m.Payload), MaxPayloadSize)
	}
	return nil
}

// Items decodes the message payload into LTV items.
func (m *Message) Items() ([]Item, error) {
	return DecodeLTV(m.Payload)
}

// String returns a short description used in logs.
func (m *Message) String() string {
	return fmt.Sprintf("%s %s seq=%d len=%d", m.Type, m.SubType, m.SeqNo, len(m.Payload))
}

// NewCommand builds a CMD envelope with an LTV-encoded payload.
func NewCommand(subType SubType, seqNo uint16, items ...Item) (*Message, error) {
	payload, err := EncodeLTV(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", subType, err)
	}
	return &Message{
		Type:    MessageTypeCMD,
		SubType: subType,
		SeqNo:   seqNo,
		Payload: payload,
	}, nil
}
