package discovery

import (
	"errors"
	"net"
	"strconv"
)

// Discovery errors.
var (
	ErrInvalidPrefix = errors.New("invalid broadcast audio URI prefix")
	ErrInvalidField  = errors.New("invalid broadcast audio URI field")
	ErrInvalidValue  = errors.New("invalid broadcast audio URI value")
	ErrNotFound      = errors.New("service not found")
)

// mDNS constants for assistant bridges.
const (
	ServiceType = "_ba-assistant._tcp"
	Domain      = "local."

	// DefaultPort is used when a bridge advertises port 0.
	DefaultPort = 7000

	// TXT keys published by bridges.
	TXTKeyFirmware = "fw"
	TXTKeyModel    = "model"
	TXTKeyPath     = "path"
)

// BridgeService is an assistant bridge found on the local network.
type BridgeService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	// Firmware and Model come from TXT records and may be empty.
	Firmware string
	Model    string

	// Path is set by bridges that speak WebSocket rather than raw TCP.
	Path string
}

// DialAddress returns host:port for the first known address, falling back
// to the advertised host name.
func (s *BridgeService) DialAddress() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// IsWebSocket reports whether the bridge advertised a WebSocket path.
func (s *BridgeService) IsWebSocket() bool {
	return s.Path != ""
}

// WebSocketURL returns the ws:// URL for WebSocket bridges.
func (s *BridgeService) WebSocketURL() string {
	return "ws://" + s.DialAddress() + s.Path
}
