package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// LTV errors.
var (
	// ErrTruncatedItem indicates an item whose length runs past the payload.
	ErrTruncatedItem = errors.New("truncated LTV item")

	// ErrInvalidValue indicates a value that does not fit its data type.
	ErrInvalidValue = errors.New("invalid LTV value")
)

// maxItemValueSize is the largest value a single item can carry; the length
// byte covers the type byte too.
const maxItemValueSize = 0xFF - 1

// Item is one decoded LTV field.
//
// Value holds a Go type that depends on Type:
//
//	DataIdentity, DataRPA                   Address
//	DataNameShortened, DataNameComplete,
//	DataBroadcastName                       string (invalid UTF-8 becomes U+FFFD)
//	DataRSSI                                int8
//	DataBroadcastID                         uint32
//	DataPAInterval                          uint16
//	DataSID, DataErrorCode, DataSourceID    uint8
//	DataUUID16Some, DataUUID16All           []uint16
//	DataBASE, DataBroadcastCode, unknown    []byte
type Item struct {
	Type  DataType
	Value any
}

// DecodeLTV splits a payload into typed items, preserving order.
// A zero length byte is treated as padding and ends decoding, matching
// advertising data conventions.
func DecodeLTV(payload []byte) ([]Item, error) {
	var items []Item

	for off := 0; off < len(payload); {
		length := int(payload[off])
		if length == 0 {
			break
		}
		if off+1+length > len(payload) {
			return items, fmt.Errorf("%w: item at offset %d needs %d bytes, %d left",
				ErrTruncatedItem, off, length, len(payload)-off-1)
		}

		typ := DataType(payload[off+1])
		raw := payload[off+2 : off+1+length]

		value, err := decodeValue(typ, raw)
		if err != nil {
			return items, fmt.Errorf("item %s at offset %d: %w", typ, off, err)
		}
		items = append(items, Item{Type: typ, Value: value})

		off += 1 + length
	}

	return items, nil
}

// EncodeLTV serializes items in order.
func EncodeLTV(items []Item) ([]byte, error) {
	var out []byte
	for _, item := range items {
		raw, err := encodeValue(item.Type, item.Value)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.Type, err)
		}
		if len(raw) > maxItemValueSize {
			return nil, fmt.Errorf("item %s: %w: %d bytes", item.Type, ErrInvalidValue, len(raw))
		}
		out = append(out, byte(len(raw)+1), byte(item.Type))
		out = append(out, raw...)
	}
	return out, nil
}

// FindItem returns the first item whose type matches any of types. Types
// are tried in the order given, so earlier types take priority even if a
// later type appears first in items.
func FindItem(items []Item, types ...DataType) (Item, bool) {
	for _, t := range types {
		for _, item := range items {
			if item.Type == t {
				return item, true
			}
		}
	}
	return Item{}, false
}

// FindValue is FindItem followed by a type assertion on the value.
func FindValue[T any](items []Item, types ...DataType) (T, bool) {
	var zero T
	item, ok := FindItem(items, types...)
	if !ok {
		return zero, false
	}
	v, ok := item.Value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

func decodeValue(typ DataType, raw []byte) (any, error) {
	switch typ {
	case DataIdentity, DataRPA:
		return unmarshalAddress(raw)

	case DataNameShortened, DataNameComplete, DataBroadcastName:
		// Shortened names are often cut inside a multi-byte rune.
		return strings.ToValidUTF8(string(raw), "\uFFFD"), nil

	case DataRSSI:
		if len(raw) != 1 {
			return nil, fmt.Errorf("%w: rssi length %d", ErrInvalidValue, len(raw))
		}
		return int8(raw[0]), nil

	case DataSID, DataErrorCode, DataSourceID:
		if len(raw) != 1 {
			return nil, fmt.Errorf("%w: length %d", ErrInvalidValue, len(raw))
		}
		return raw[0], nil

	case DataPAInterval:
		if len(raw) != 2 {
			return nil, fmt.Errorf("%w: pa interval length %d", ErrInvalidValue, len(raw))
		}
		return binary.LittleEndian.Uint16(raw), nil

	case DataBroadcastID:
		if len(raw) != 3 {
			return nil, fmt.Errorf("%w: broadcast id length %d", ErrInvalidValue, len(raw))
		}
		return uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16, nil

	case DataUUID16Some, DataUUID16All:
		if len(raw)%2 != 0 {
			return nil, fmt.Errorf("%w: uuid16 list length %d", ErrInvalidValue, len(raw))
		}
		uuids := make([]uint16, 0, len(raw)/2)
		for i := 0; i < len(raw); i += 2 {
			uuids = append(uuids, binary.LittleEndian.Uint16(raw[i:]))
		}
		return uuids, nil

	default:
		// BASE, broadcast code and unknown types stay raw.
		return append([]byte(nil), raw...), nil
	}
}

func encodeValue(typ DataType, value any) ([]byte, error) {
	switch typ {
	case DataIdentity, DataRPA:
		a, ok := value.(Address)
		if !ok {
			return nil, typeMismatch(typ, value)
		}
		return a.marshal(), nil

	case DataNameShortened, DataNameComplete, DataBroadcastName:
		s, ok := value.(string)
		if !ok {
			return nil, typeMismatch(typ, value)
		}
		return []byte(s), nil

	case DataRSSI:
		v, ok := value.(int8)
		if !ok {
			return nil, typeMismatch(typ, value)
		}
		return []byte{byte(v)}, nil

	case DataSID, DataErrorCode, DataSourceID:
		v, ok := value.(uint8)
		if !ok {
			return nil, typeMismatch(typ, value)
		}
		return []byte{v}, nil

	case DataPAInterval:
		v, ok := value.(uint16)
		if !ok {
			return nil, typeMismatch(typ, value)
		}
		return binary.LittleEndian.AppendUint16(nil, v), nil

	case DataBroadcastID:
		v, ok := value.(uint32)
		if !ok {
			return nil, typeMismatch(typ, value)
		}
		if v > MaxBroadcastID {
			return nil, fmt.Errorf("%w: broadcast id 0x%X exceeds 24 bits", ErrInvalidValue, v)
		}
		return []byte{byte(v), byte(v >> 8), byte(v >> 16)}, nil

	case DataUUID16Some, DataUUID16All:
		uuids, ok := value.([]uint16)
		if !ok {
			return nil, typeMismatch(typ, value)
		}
		out := make([]byte, 0, len(uuids)*2)
		for _, u := range uuids {
			out = binary.LittleEndian.AppendUint16(out, u)
		}
		return out, nil

	default:
		b, ok := value.([]byte)
		if !ok {
			return nil, typeMismatch(typ, value)
		}
		return b, nil
	}
}

func typeMismatch(typ DataType, value any) error {
	return fmt.Errorf("%w: %s cannot hold %T", ErrInvalidValue, typ, value)
}
