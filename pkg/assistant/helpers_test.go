package assistant

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

var errLinkDown = errors.New("link down")

// fakeTransport records every command.
type fakeTransport struct {
	mu   sync.Mutex
	sent []*wire.Message
	err  error
}

func (f *fakeTransport) SendCMD(msg *wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) messages() []*wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*wire.Message(nil), f.sent...)
}

// recorder collects notifications.
type recorder struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *recorder) handle(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recorder) names() []Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Name, len(r.seen))
	for i, n := range r.seen {
		out[i] = n.Name
	}
	return out
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.seen...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = nil
}

// protoRecorder collects protocol log events.
type protoRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (p *protoRecorder) Log(e log.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *protoRecorder) errors() []log.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []log.Event
	for _, e := range p.events {
		if e.Error != nil {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	model     *Model
	transport *fakeTransport
	rec       *recorder
	proto     *protoRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		transport: &fakeTransport{},
		rec:       &recorder{},
		proto:     &protoRecorder{},
	}
	f.model = New(f.transport, WithProtocolLogger(f.proto))
	f.model.SubscribeAll(f.rec.handle)
	return f
}

func evt(t *testing.T, sub wire.SubType, items ...wire.Item) *wire.Message {
	t.Helper()
	payload, err := wire.EncodeLTV(items)
	require.NoError(t, err)
	return &wire.Message{Type: wire.MessageTypeEVT, SubType: sub, Payload: payload}
}

func res(sub wire.SubType) *wire.Message {
	return &wire.Message{Type: wire.MessageTypeRES, SubType: sub}
}

func addr(s string) wire.Address {
	return wire.MustParseAddress(s, wire.AddressTypePublic)
}

func identityItem(a wire.Address) wire.Item { return wire.Item{Type: wire.DataIdentity, Value: a} }
func rpaItem(a wire.Address) wire.Item      { return wire.Item{Type: wire.DataRPA, Value: a} }
func rssiItem(v int8) wire.Item             { return wire.Item{Type: wire.DataRSSI, Value: v} }
func nameItem(s string) wire.Item           { return wire.Item{Type: wire.DataNameComplete, Value: s} }
func broadcastIDItem(id uint32) wire.Item   { return wire.Item{Type: wire.DataBroadcastID, Value: id} }
func errorCodeItem(c uint8) wire.Item       { return wire.Item{Type: wire.DataErrorCode, Value: c} }

// addSink delivers a sink-found event for a.
func (f *fixture) addSink(t *testing.T, a wire.Address, items ...wire.Item) {
	t.Helper()
	f.model.OnMessage(evt(t, wire.SubTypeSinkFound, append([]wire.Item{identityItem(a)}, items...)...))
}

// addSource delivers a source-found event for a with broadcast id id.
func (f *fixture) addSource(t *testing.T, a wire.Address, id uint32, items ...wire.Item) {
	t.Helper()
	all := append([]wire.Item{identityItem(a), broadcastIDItem(id)}, items...)
	f.model.OnMessage(evt(t, wire.SubTypeSourceFound, all...))
}

func ptr[T any](v T) *T { return &v }
