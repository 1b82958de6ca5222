package log

// Logger receives protocol log events.
// A nil Logger is not valid; use NoopLogger to disable capture.
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent
	// use and should not block.
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
