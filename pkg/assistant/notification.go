package assistant

import (
	"sync"
)

// Name identifies a notification.
type Name string

// Notification names.
const (
	HeartbeatReceived Name = "heartbeat-received"
	SourceFound       Name = "source-found"
	SourceUpdated     Name = "source-updated"
	BaseUpdated       Name = "base-updated"
	SinkFound         Name = "sink-found"
	SinkUpdated       Name = "sink-updated"
	SinkDisconnected  Name = "sink-disconnected"
	SinkScanStarted   Name = "sink-scan-started"
	SourceScanStarted Name = "source-scan-started"
	ScanStopped       Name = "scan-stopped"
	SourceAdded       Name = "source-added"
	SourceRemoved     Name = "source-removed"
	BCRequest         Name = "bc-request"
	Reset             Name = "reset"
)

// Names lists every notification in a stable order.
var Names = []Name{
	HeartbeatReceived, SourceFound, SourceUpdated, BaseUpdated,
	SinkFound, SinkUpdated, SinkDisconnected,
	SinkScanStarted, SourceScanStarted, ScanStopped,
	SourceAdded, SourceRemoved, BCRequest, Reset,
}

// Notification is a state change announced by the Model.
//
// Source is set for source-found, source-updated and base-updated. Sink is
// set for sink-found, sink-updated and sink-disconnected. Counter is set for
// heartbeat-received. The records are snapshots owned by the receiver.
type Notification struct {
	Name    Name
	Source  *Source
	Sink    *Sink
	Counter uint16
}

// NotificationHandler receives notifications.
type NotificationHandler func(Notification)

type subscription struct {
	name    Name // empty for all notifications
	handler NotificationHandler
}

// bus holds subscribers. It is independent of the Model lock so handlers
// can subscribe and unsubscribe while being called.
type bus struct {
	mu   sync.RWMutex
	subs []*subscription
}

func (b *bus) subscribe(name Name, h NotificationHandler) func() {
	s := &subscription{name: name, handler: h}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, cur := range b.subs {
				if cur == s {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *bus) publish(n Notification) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.name == "" || s.name == n.Name {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(n)
	}
}

// Subscribe registers h for notifications called name. The returned
// function removes the subscription; calling it more than once is safe.
func (m *Model) Subscribe(name Name, h NotificationHandler) (unsubscribe func()) {
	return m.bus.subscribe(name, h)
}

// SubscribeAll registers h for every notification.
func (m *Model) SubscribeAll(h NotificationHandler) (unsubscribe func()) {
	return m.bus.subscribe("", h)
}

// outbox collects notifications while the Model lock is held.
type outbox []Notification

func (o *outbox) add(name Name) {
	*o = append(*o, Notification{Name: name})
}

func (o *outbox) source(name Name, s *Source) {
	*o = append(*o, Notification{Name: name, Source: s.clone()})
}

func (o *outbox) sink(name Name, s *Sink) {
	*o = append(*o, Notification{Name: name, Sink: s.clone()})
}
