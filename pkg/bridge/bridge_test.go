package bridge

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadcast-assistant/ba-go/pkg/assistant"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeBroker records publishes and lets tests inject command messages.
type fakeBroker struct {
	mu       sync.Mutex
	messages []published
	handlers map[string]MessageHandler
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]MessageHandler)}
}

func (f *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic, payload, qos, retained})
	return nil
}

func (f *fakeBroker) Subscribe(topic string, _ byte, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeBroker) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func (f *fakeBroker) deliver(t *testing.T, filter, topic string, payload []byte) error {
	t.Helper()
	f.mu.Lock()
	h, ok := f.handlers[filter]
	f.mu.Unlock()
	require.True(t, ok, "no subscription for %s", filter)
	return h(topic, payload)
}

func (f *fakeBroker) published() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

type sentCommands struct {
	mu   sync.Mutex
	sent []*wire.Message
}

func (s *sentCommands) SendCMD(msg *wire.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *sentCommands) subTypes() []wire.SubType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.SubType, len(s.sent))
	for i, m := range s.sent {
		out[i] = m.SubType
	}
	return out
}

type fixture struct {
	model  *assistant.Model
	sender *sentCommands
	broker *fakeBroker
	bridge *Bridge
	topics Topics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sender: &sentCommands{},
		broker: newFakeBroker(),
		topics: Topics{Prefix: "test"},
	}
	f.model = assistant.New(f.sender)
	f.bridge = New(f.model, f.broker, Config{Topics: f.topics, QoS: 1})
	f.bridge.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, f.bridge.Start())
	return f
}

func sinkFound(t *testing.T, addr string, name string) *wire.Message {
	t.Helper()
	payload, err := wire.EncodeLTV([]wire.Item{
		{Type: wire.DataIdentity, Value: wire.MustParseAddress(addr, wire.AddressTypePublic)},
		{Type: wire.DataRSSI, Value: int8(-60)},
		{Type: wire.DataNameComplete, Value: name},
		{Type: wire.DataUUID16All, Value: []uint16{0x184E}},
	})
	require.NoError(t, err)
	return &wire.Message{Type: wire.MessageTypeEVT, SubType: wire.SubTypeSinkFound, Payload: payload}
}

func TestBridgePublishesNotifications(t *testing.T) {
	f := newFixture(t)

	f.model.OnMessage(sinkFound(t, "AA:BB:CC:DD:EE:FF", "Speaker"))

	msgs := f.broker.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "test/event/sink-found", msgs[0].topic)
	assert.Equal(t, byte(1), msgs[0].qos)
	assert.False(t, msgs[0].retained)

	var doc EventDoc
	require.NoError(t, json.Unmarshal(msgs[0].payload, &doc))
	assert.Equal(t, "sink-found", doc.Event)
	assert.Equal(t, "2026-03-01T12:00:00Z", doc.Timestamp)
	require.NotNil(t, doc.Sink)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", doc.Sink.Address)
	assert.Equal(t, "Speaker", doc.Sink.Name)
	assert.Equal(t, int8(-60), *doc.Sink.RSSI)
	assert.Equal(t, []string{"184E"}, doc.Sink.UUID16s)
	assert.Equal(t, "unset", doc.Sink.ConnectionState)
	assert.Nil(t, doc.Source)
	assert.Nil(t, doc.Counter)
}

func TestBridgePublishesHeartbeatCounter(t *testing.T) {
	f := newFixture(t)

	f.model.OnMessage(&wire.Message{Type: wire.MessageTypeEVT, SubType: wire.SubTypeHeartbeat, SeqNo: 12})

	msgs := f.broker.published()
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"event":"heartbeat-received","timestamp":"2026-03-01T12:00:00Z","counter":12}`, string(msgs[0].payload))
}

func TestBridgeSimpleCommands(t *testing.T) {
	tests := []struct {
		command string
		want    wire.SubType
	}{
		{CommandStartSinkScan, wire.SubTypeStartSinkScan},
		{CommandStartSourceScan, wire.SubTypeStartSourceScan},
		{CommandStopScan, wire.SubTypeStopScan},
		{CommandReset, wire.SubTypeReset},
		{CommandHeartbeat, wire.SubTypeHeartbeat},
		{CommandRemoveSource, wire.SubTypeRemoveSource},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			f := newFixture(t)

			err := f.broker.deliver(t, f.topics.Commands(), f.topics.Command(tt.command), nil)

			require.NoError(t, err)
			assert.Equal(t, []wire.SubType{tt.want}, f.sender.subTypes())
		})
	}
}

func TestBridgeConnectSinkCommand(t *testing.T) {
	f := newFixture(t)
	f.model.OnMessage(sinkFound(t, "AA:BB:CC:DD:EE:FF", "Speaker"))

	err := f.broker.deliver(t, f.topics.Commands(), f.topics.Command(CommandConnectSink), []byte(`{"address":"AA:BB:CC:DD:EE:FF"}`))

	require.NoError(t, err)
	assert.Equal(t, []wire.SubType{wire.SubTypeConnectSink}, f.sender.subTypes())

	// sink-found then the optimistic sink-updated.
	msgs := f.broker.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, "test/event/sink-updated", msgs[1].topic)
	var doc EventDoc
	require.NoError(t, json.Unmarshal(msgs[1].payload, &doc))
	assert.Equal(t, "connecting", doc.Sink.ConnectionState)
}

func TestBridgeBroadcastCodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		sourceID uint8
		code     string
	}{
		{"text", `{"source_id":0,"code":"1234"}`, 0, "1234"},
		{"hex", `{"source_id":2,"code":"hex:31323334"}`, 2, "1234"},
		{"base64", `{"source_id":1,"code":"base64:MTIzNA=="}`, 1, "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			err := f.broker.deliver(t, f.topics.Commands(), f.topics.Command(CommandBroadcastCode), []byte(tt.payload))
			require.NoError(t, err)

			f.sender.mu.Lock()
			require.Len(t, f.sender.sent, 1)
			msg := f.sender.sent[0]
			f.sender.mu.Unlock()
			assert.Equal(t, wire.SubTypeBigBcode, msg.SubType)

			items, err := msg.Items()
			require.NoError(t, err)
			id, _ := wire.FindValue[uint8](items, wire.DataSourceID)
			assert.Equal(t, tt.sourceID, id)
			want := make([]byte, wire.BroadcastCodeSize)
			copy(want, tt.code)
			code, _ := wire.FindValue[[]byte](items, wire.DataBroadcastCode)
			assert.Equal(t, want, code)
		})
	}
}

func TestBridgeBroadcastCodeCommandErrors(t *testing.T) {
	f := newFixture(t)
	topic := f.topics.Command(CommandBroadcastCode)

	assert.Error(t, f.broker.deliver(t, f.topics.Commands(), topic, []byte(`{"code":"hex:zz"}`)))
	assert.Error(t, f.broker.deliver(t, f.topics.Commands(), topic, []byte(`{"code":"base64:!"}`)))
	err := f.broker.deliver(t, f.topics.Commands(), topic, []byte(`{"code":"this code is far too long"}`))
	assert.ErrorIs(t, err, assistant.ErrInvalidBroadcastCode)

	assert.Empty(t, f.sender.subTypes())
}

func TestBridgeDeviceCommandErrors(t *testing.T) {
	f := newFixture(t)
	topic := f.topics.Command(CommandConnectSink)

	err := f.broker.deliver(t, f.topics.Commands(), topic, []byte(`{"address":"AA:BB:CC:DD:EE:FF"}`))
	assert.ErrorIs(t, err, ErrUnknownDevice)

	err = f.broker.deliver(t, f.topics.Commands(), topic, []byte(`not json`))
	assert.Error(t, err)

	err = f.broker.deliver(t, f.topics.Commands(), f.topics.Command(CommandAddSource), []byte(`{"address":"11:22:33:44:55:66"}`))
	assert.ErrorIs(t, err, ErrUnknownDevice)

	assert.Empty(t, f.sender.subTypes())
}

func TestBridgeUnknownCommand(t *testing.T) {
	f := newFixture(t)

	err := f.broker.deliver(t, f.topics.Commands(), f.topics.Command("self-destruct"), nil)

	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Empty(t, f.sender.subTypes())
}

func TestBridgeStop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bridge.Stop())
	require.NoError(t, f.bridge.Stop())
	f.model.OnMessage(sinkFound(t, "AA:BB:CC:DD:EE:FF", "Speaker"))

	assert.Empty(t, f.broker.published())
	f.broker.mu.Lock()
	assert.Empty(t, f.broker.handlers)
	f.broker.mu.Unlock()
}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "home/ba/"}

	assert.Equal(t, "home/ba/event/sink-found", topics.Event("sink-found"))
	assert.Equal(t, "home/ba/command/reset", topics.Command("reset"))
	assert.Equal(t, "home/ba/command/+", topics.Commands())
	assert.Equal(t, "home/ba/status", topics.Status())

	name, ok := topics.CommandName("home/ba/command/stop-scan")
	assert.True(t, ok)
	assert.Equal(t, "stop-scan", name)

	_, ok = topics.CommandName("home/ba/event/stop-scan")
	assert.False(t, ok)
	_, ok = topics.CommandName("home/ba/command/a/b")
	assert.False(t, ok)

	assert.Equal(t, "ba-assistant/status", Topics{}.Status())
}

func TestSourceDoc(t *testing.T) {
	id := uint32(0x0A0B0C)
	sid := uint8(1)
	src := &assistant.Source{
		Address:       wire.MustParseAddress("11:22:33:44:55:66", wire.AddressTypeRandom),
		BroadcastName: "Gate 12",
		BroadcastID:   &id,
		SID:           &sid,
		BASE:          []byte{0x28, 0x00},
		State:         assistant.SourceStateSelected,
	}

	doc := newSourceDoc(src)

	assert.Equal(t, "11:22:33:44:55:66", doc.Address)
	assert.Equal(t, "random", doc.AddressType)
	assert.Equal(t, "0A0B0C", doc.BroadcastID)
	assert.Equal(t, "2800", doc.BASE)
	assert.Equal(t, "selected", doc.State)
	assert.Nil(t, doc.RSSI)
}
