package bridge

import "errors"

// Bridge errors.
var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrNotConnected     = errors.New("mqtt not connected")
	ErrPublishFailed    = errors.New("mqtt publish failed")
	ErrSubscribeFailed  = errors.New("mqtt subscribe failed")
	ErrInvalidQoS       = errors.New("invalid QoS level")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrUnknownDevice    = errors.New("unknown device")
)
