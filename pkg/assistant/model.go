package assistant

import (
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// Sender delivers command envelopes to the assistant firmware.
type Sender interface {
	SendCMD(msg *wire.Message) error
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the operational logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithProtocolLogger sets the protocol logger that receives state changes
// and drop diagnostics.
func WithProtocolLogger(l log.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.protoLog = l
		}
	}
}

// handlerFunc applies one inbound message. items is nil for RES messages.
type handlerFunc func(msg *wire.Message, items []wire.Item, o *outbox)

// Model owns the source and sink registries.
type Model struct {
	transport Sender
	logger    *slog.Logger
	protoLog  log.Logger
	bus       bus

	res map[wire.SubType]handlerFunc
	evt map[wire.SubType]handlerFunc

	mu      sync.Mutex
	sources []*Source
	sinks   []*Sink
	seqNo   uint16
	linkUp  bool
	stats   Stats

	// Notifications waiting for delivery, in publication order. At most one
	// goroutine drains the queue at a time.
	queue      []Notification
	delivering bool
}

// New creates a Model sending commands through transport.
func New(transport Sender, opts ...Option) *Model {
	m := &Model{
		transport: transport,
		logger:    slog.New(slog.DiscardHandler),
		protoLog:  log.NoopLogger{},
		stats:     Stats{Dropped: make(map[DropReason]uint64)},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registerHandlers()
	return m
}

// SetTransport replaces the command sender. It lets a transport that needs
// the Model as its Handler be attached after both are built.
func (m *Model) SetTransport(transport Sender) {
	m.mu.Lock()
	m.transport = transport
	m.mu.Unlock()
}

// OnConnected records that the transport link is up.
func (m *Model) OnConnected() {
	m.setLink(true)
}

// OnDisconnected records that the transport link is down. Registries are
// kept; the firmware reports its view again after reconnecting.
func (m *Model) OnDisconnected() {
	m.setLink(false)
}

func (m *Model) setLink(up bool) {
	m.mu.Lock()
	old := m.linkUp
	m.linkUp = up
	m.mu.Unlock()

	if old == up {
		return
	}
	m.logger.Info("assistant link changed", "connected", up)
	m.logState(log.StateEntityLink, "", linkState(old), linkState(up), "")
}

func linkState(up bool) string {
	if up {
		return "connected"
	}
	return "disconnected"
}

// Connected reports whether the transport link is up.
func (m *Model) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkUp
}

// OnMessage applies one inbound envelope. It never fails; messages that
// cannot be applied are dropped with a diagnostic.
func (m *Model) OnMessage(msg *wire.Message) {
	m.run(func(o *outbox) {
		m.dispatch(msg, o)
	})
}

// run executes fn under the Model lock and then delivers the notifications
// it produced.
func (m *Model) run(fn func(o *outbox)) {
	var o outbox

	m.mu.Lock()
	fn(&o)
	m.queue = append(m.queue, o...)
	if m.delivering || len(m.queue) == 0 {
		m.mu.Unlock()
		return
	}
	m.delivering = true
	m.mu.Unlock()

	m.drain()
}

// drain publishes queued notifications until the queue is empty. A
// panicking subscriber releases delivery so later notifications still flow.
func (m *Model) drain() {
	defer func() {
		if r := recover(); r != nil {
			m.mu.Lock()
			m.delivering = false
			m.mu.Unlock()
			panic(r)
		}
	}()

	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.delivering = false
			m.mu.Unlock()
			return
		}
		n := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.bus.publish(n)
	}
}

// Sources returns snapshots of all sources in discovery order.
func (m *Model) Sources() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Source, len(m.sources))
	for i, s := range m.sources {
		out[i] = *s.clone()
	}
	return out
}

// Sinks returns snapshots of all sinks in discovery order.
func (m *Model) Sinks() []Sink {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Sink, len(m.sinks))
	for i, s := range m.sinks {
		out[i] = *s.clone()
	}
	return out
}

// Source returns the source with the given address.
func (m *Model) Source(addr wire.Address) (Source, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, s := m.findSource(addr); s != nil {
		return *s.clone(), true
	}
	return Source{}, false
}

// Sink returns the sink with the given address.
func (m *Model) Sink(addr wire.Address) (Sink, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, s := m.findSink(addr); s != nil {
		return *s.clone(), true
	}
	return Sink{}, false
}

// SourceOf resolves a sink's SourceAdded reference against the current
// source registry.
func (m *Model) SourceOf(sink Sink) (Source, bool) {
	if sink.SourceAdded == nil {
		return Source{}, false
	}
	return m.Source(*sink.SourceAdded)
}

// SelectedSource returns the source sinks are currently synced to.
func (m *Model) SelectedSource() (Source, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sources {
		if s.State == SourceStateSelected {
			return *s.clone(), true
		}
	}
	return Source{}, false
}

// Stats returns a copy of the traffic counters.
func (m *Model) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Dropped = maps.Clone(m.stats.Dropped)
	return s
}

// drop records a message that caused no state change. Caller holds m.mu.
func (m *Model) drop(reason DropReason, handler, message string, addr *wire.Address) {
	m.stats.Dropped[reason]++

	args := []any{"reason", string(reason), "handler", handler}
	if addr != nil {
		args = append(args, "address", addr.String())
	}
	if reason == DropUnknownSubType {
		m.logger.Debug(message, args...)
	} else {
		m.logger.Warn(message, args...)
	}

	ev := log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerEngine,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerEngine,
			Message: message,
			Context: handler,
		},
	}
	if addr != nil {
		ev.DeviceAddr = addr.String()
	}
	m.protoLog.Log(ev)
}

func (m *Model) logState(entity log.StateEntity, device, oldState, newState, reason string) {
	m.protoLog.Log(log.Event{
		Timestamp:  time.Now(),
		Layer:      log.LayerEngine,
		Category:   log.CategoryState,
		DeviceAddr: device,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
