package wire

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the size of a Bluetooth device address in bytes.
const AddressLength = 6

// ErrInvalidAddress is returned when an address string cannot be parsed.
var ErrInvalidAddress = errors.New("invalid bluetooth address")

// AddressType qualifies how an address was obtained.
type AddressType uint8

const (
	AddressTypePublic            AddressType = 0
	AddressTypeRandom            AddressType = 1
	AddressTypeIdentity          AddressType = 2
	AddressTypeResolvablePrivate AddressType = 3
)

// String returns the address type name.
func (t AddressType) String() string {
	switch t {
	case AddressTypePublic:
		return "public"
	case AddressTypeRandom:
		return "random"
	case AddressTypeIdentity:
		return "identity"
	case AddressTypeResolvablePrivate:
		return "rpa"
	default:
		return "unknown"
	}
}

// Address is a Bluetooth device address. Addr is stored in over-the-air
// order, least significant byte first.
type Address struct {
	Addr [AddressLength]byte
	Type AddressType
}

// Equal reports whether two addresses refer to the same device.
// Only the address bytes take part in the comparison; the type does not.
func (a Address) Equal(b Address) bool {
	return a.Addr == b.Addr
}

// IsZero returns true if every address byte is zero.
func (a Address) IsZero() bool {
	return a.Addr == [AddressLength]byte{}
}

// String formats the address most significant byte first, e.g.
// "AA:BB:CC:DD:EE:FF".
func (a Address) String() string {
	var sb strings.Builder
	for i := AddressLength - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02X", a.Addr[i])
		if i > 0 {
			sb.WriteByte(':')
		}
	}
	return sb.String()
}

// ParseAddress parses "AA:BB:CC:DD:EE:FF", "AA-BB-..." or "AABBCCDDEEFF"
// (most significant byte first) into an Address of the given type.
func ParseAddress(s string, typ AddressType) (Address, error) {
	clean := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(clean) != AddressLength*2 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	addr := Address{Type: typ}
	for i := 0; i < AddressLength; i++ {
		addr.Addr[i] = raw[AddressLength-1-i]
	}
	return addr, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Intended for tests and constants.
func MustParseAddress(s string, typ AddressType) Address {
	a, err := ParseAddress(s, typ)
	if err != nil {
		panic(err)
	}
	return a
}

// marshal encodes the address as an LTV value: type byte then address bytes.
func (a Address) marshal() []byte {
	b := make([]byte, 0, AddressLength+1)
	b = append(b, byte(a.Type))
	return append(b, a.Addr[:]...)
}

func unmarshalAddress(b []byte) (Address, error) {
	if len(b) != AddressLength+1 {
		return Address{}, fmt.Errorf("%w: value length %d", ErrInvalidAddress, len(b))
	}
	var a Address
	a.Type = AddressType(b[0])
	copy(a.Addr[:], b[1:])
	return a, nil
}
