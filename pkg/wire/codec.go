package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Codec errors.
var (
	// ErrShortHeader indicates fewer than HeaderSize bytes were supplied.
	ErrShortHeader = errors.New("short message header")

	// ErrLengthMismatch indicates the payload length field disagrees with
	// the number of bytes supplied.
	ErrLengthMismatch = errors.New("payload length mismatch")
)

// Header is the fixed-size envelope prefix.
type Header struct {
	Type       MessageType
	SubType    SubType
	SeqNo      uint16
	PayloadLen uint16
}

// DecodeHeader parses the first HeaderSize bytes of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(data))
	}
	return Header{
		Type:       MessageType(data[0]),
		SubType:    SubType(data[1]),
		SeqNo:      binary.LittleEndian.Uint16(data[2:4]),
		PayloadLen: binary.LittleEndian.Uint16(data[4:6]),
	}, nil
}

// EncodeMessage serializes a message into header and payload bytes.
func EncodeMessage(m *Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	out := make([]byte, HeaderSize, HeaderSize+len(m.Payload))
	out[0] = byte(m.Type)
	out[1] = byte(m.SubType)
	binary.LittleEndian.PutUint16(out[2:4], m.SeqNo)
	binary.LittleEndian.PutUint16(out[4:6], uint16(len(m.Payload)))
	return append(out, m.Payload...), nil
}

// DecodeMessage parses exactly one complete envelope.
func DecodeMessage(data []byte) (*Message, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if len(data)-HeaderSize != int(h.PayloadLen) {
		return nil, fmt.Errorf("failed to decode message: %w: header says %d, got %d",
			ErrLengthMismatch, h.PayloadLen, len(data)-HeaderSize)
	}

	payload := make([]byte, h.PayloadLen)
	copy(payload, data[HeaderSize:])

	return &Message{
		Type:    h.Type,
		SubType: h.SubType,
		SeqNo:   h.SeqNo,
		Payload: payload,
	}, nil
}
