// Package version provides the assistant protocol version and firmware
// compatibility checks.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Protocol is the envelope protocol version implemented by this library.
const Protocol = "1.0"

// Tool is the ba-assistant build version. Release builds set it with
// -ldflags "-X github.com/broadcast-assistant/ba-go/pkg/version.Tool=...".
var Tool = "dev"

// ErrIncompatible is returned for firmware speaking another major protocol
// version.
var ErrIncompatible = errors.New("incompatible firmware protocol version")

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string. A leading "v" and a trailing
// ".patch" component, as found in firmware version strings, are accepted and
// the patch is ignored.
func Parse(s string) (ProtocolVersion, error) {
	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	if len(parts) != 2 && len(parts) != 3 {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	if len(parts) == 3 {
		if _, err := strconv.ParseUint(parts[2], 10, 16); err != nil {
			return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad patch component", s)
		}
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Less reports whether v is older than other.
func (v ProtocolVersion) Less(other ProtocolVersion) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// Current returns the parsed Protocol version.
func Current() ProtocolVersion {
	v, _ := Parse(Protocol)
	return v
}

// CheckFirmware verifies that a firmware version string advertised by a
// bridge speaks a compatible protocol. An empty string means the bridge did
// not advertise one and passes.
func CheckFirmware(fw string) error {
	if fw == "" {
		return nil
	}
	v, err := Parse(fw)
	if err != nil {
		return err
	}
	if !Current().Compatible(v) {
		return fmt.Errorf("%w: firmware %s, host %s", ErrIncompatible, v, Protocol)
	}
	return nil
}
