package assistant

import (
	"slices"

	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// SourceState is the selection state of a source.
type SourceState uint8

const (
	// SourceStateUndefined means the source is not the one sinks are synced to.
	SourceStateUndefined SourceState = iota

	// SourceStateSelected marks the single source sinks are synced to.
	SourceStateSelected
)

// String returns the state name.
func (s SourceState) String() string {
	if s == SourceStateSelected {
		return "selected"
	}
	return "undefined"
}

// ConnectionState is a sink's connection lifecycle state.
type ConnectionState uint8

const (
	// ConnectionStateUnset is the state of a freshly discovered sink.
	ConnectionStateUnset ConnectionState = iota
	ConnectionStateIdle
	ConnectionStateConnecting
	ConnectionStateConnected
	ConnectionStateFailed
	ConnectionStateDisconnected
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateUnset:
		return "unset"
	case ConnectionStateIdle:
		return "idle"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateFailed:
		return "failed"
	case ConnectionStateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Source is a broadcast transmitter. Optional fields are nil or empty when
// the firmware never reported them.
type Source struct {
	Address wire.Address

	// AddressTag is the LTV tag the address arrived under (DataIdentity or
	// DataRPA) and is reused when the address is sent back. Zero means
	// DataRPA.
	AddressTag wire.DataType

	Name          string
	RSSI          *int8
	BroadcastName string
	BroadcastID   *uint32
	PAInterval    *uint16
	SID           *uint8
	BASE          []byte
	State         SourceState
}

// HasAddress reports whether the source carries a usable address.
func (s *Source) HasAddress() bool {
	return !s.Address.IsZero()
}

// DisplayName returns the broadcast name, the device name or the address,
// whichever is available first.
func (s *Source) DisplayName() string {
	switch {
	case s.BroadcastName != "":
		return s.BroadcastName
	case s.Name != "":
		return s.Name
	default:
		return s.Address.String()
	}
}

// clone returns a deep copy safe to hand to subscribers.
func (s *Source) clone() *Source {
	c := *s
	c.RSSI = clonePtr(s.RSSI)
	c.BroadcastID = clonePtr(s.BroadcastID)
	c.PAInterval = clonePtr(s.PAInterval)
	c.SID = clonePtr(s.SID)
	c.BASE = slices.Clone(s.BASE)
	return &c
}

// Sink is a receiver that can be told to sync to a source.
type Sink struct {
	Address    wire.Address
	AddressTag wire.DataType

	Name            string
	RSSI            *int8
	UUID16s         []uint16
	ConnectionState ConnectionState

	// SourceAdded is the address of the source this sink was last told to
	// sync to. It is a key into the source registry; use Model.SourceOf to
	// read the current source record.
	SourceAdded *wire.Address
}

// HasAddress reports whether the sink carries a usable address.
func (s *Sink) HasAddress() bool {
	return !s.Address.IsZero()
}

// DisplayName returns the device name or the address.
func (s *Sink) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Address.String()
}

func (s *Sink) clone() *Sink {
	c := *s
	c.RSSI = clonePtr(s.RSSI)
	c.UUID16s = slices.Clone(s.UUID16s)
	c.SourceAdded = clonePtr(s.SourceAdded)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// addressItem returns the LTV item used to send addr back to the firmware.
func addressItem(addr wire.Address, tag wire.DataType) wire.Item {
	if tag == 0 {
		tag = wire.DataRPA
	}
	return wire.Item{Type: tag, Value: addr}
}

// Stats counts processed and dropped traffic.
type Stats struct {
	MessagesHandled uint64
	CommandsSent    uint64
	SendFailures    uint64

	// Dropped counts inputs that caused no state change, by reason.
	Dropped map[DropReason]uint64
}

// DropReason classifies why an input was dropped.
type DropReason string

const (
	DropInvalidClass   DropReason = "invalid-class"
	DropUnknownSubType DropReason = "unknown-subtype"
	DropMalformed      DropReason = "malformed"
	DropUnknownDevice  DropReason = "unknown-device"
	DropDuplicate      DropReason = "duplicate"
)
