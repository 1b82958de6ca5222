package assistant

import "errors"

// Caller errors returned by command methods. No command is sent when one
// of these is returned.
var (
	// ErrMissingAddress is returned when a source or sink has no address.
	ErrMissingAddress = errors.New("address not found")

	// ErrInvalidBroadcastCode is returned for codes longer than 16 bytes.
	ErrInvalidBroadcastCode = errors.New("invalid broadcast code")

	// ErrMissingAddressToken is returned for a Broadcast Audio URI without a
	// usable AD.
	ErrMissingAddressToken = errors.New("broadcast audio URI has no address")

	// ErrInvalidAddressType is returned for an AT token outside 0 to 3.
	ErrInvalidAddressType = errors.New("invalid address type")

	// ErrNoTransport is returned when the Model was built without a transport.
	ErrNoTransport = errors.New("no transport")
)
