package interactive

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadcast-assistant/ba-go/pkg/assistant"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*wire.Message
	err  error
}

func (f *fakeSender) SendCMD(msg *wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) subTypes() []wire.SubType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.SubType, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.SubType
	}
	return out
}

func (f *fakeSender) last() *wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	shell  *Shell
	sender *fakeSender
	model  *assistant.Model
	out    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sender := &fakeSender{}
	model := assistant.New(sender)
	out := &bytes.Buffer{}
	shell := newShell(model, out)
	t.Cleanup(shell.unsubscribe)
	return &fixture{shell: shell, sender: sender, model: model, out: out}
}

func (f *fixture) event(t *testing.T, sub wire.SubType, items ...wire.Item) {
	t.Helper()
	payload, err := wire.EncodeLTV(items)
	require.NoError(t, err)
	f.model.OnMessage(&wire.Message{Type: wire.MessageTypeEVT, SubType: sub, Payload: payload})
}

func (f *fixture) run(line string) string {
	f.out.Reset()
	f.shell.Execute(line)
	return f.out.String()
}

var (
	sinkAddr   = wire.MustParseAddress("11:22:33:44:55:66", wire.AddressTypePublic)
	sourceAddr = wire.MustParseAddress("AA:BB:CC:DD:EE:FF", wire.AddressTypePublic)
)

func TestScanCommands(t *testing.T) {
	f := newFixture(t)

	f.run("scan sinks")
	f.run("scan sources")
	f.run("scan stop")
	f.run("heartbeat")
	f.run("remove")

	assert.Equal(t, []wire.SubType{
		wire.SubTypeStartSinkScan,
		wire.SubTypeStartSourceScan,
		wire.SubTypeStopScan,
		wire.SubTypeHeartbeat,
		wire.SubTypeRemoveSource,
	}, f.sender.subTypes())

	assert.Contains(t, f.run("scan"), "Usage: scan")
	assert.Contains(t, f.run("scan everything"), "Usage: scan")
}

func TestListsAndIndexCommands(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.run("sinks"), "No sinks")
	assert.Contains(t, f.run("sources"), "No sources")

	f.event(t, wire.SubTypeSinkFound,
		wire.Item{Type: wire.DataIdentity, Value: sinkAddr},
		wire.Item{Type: wire.DataNameComplete, Value: "Earbuds"},
		wire.Item{Type: wire.DataRSSI, Value: int8(-40)},
	)
	f.event(t, wire.SubTypeSourceFound,
		wire.Item{Type: wire.DataIdentity, Value: sourceAddr},
		wire.Item{Type: wire.DataBroadcastName, Value: "Hockey"},
		wire.Item{Type: wire.DataBroadcastID, Value: uint32(0x0A0B0C)},
	)

	sinks := f.run("sinks")
	assert.Contains(t, sinks, "1. Earbuds [11:22:33:44:55:66]")
	assert.Contains(t, sinks, "RSSI: -40 dBm")

	sources := f.run("sources")
	assert.Contains(t, sources, "1. Hockey [AA:BB:CC:DD:EE:FF]")
	assert.Contains(t, sources, "Broadcast ID: 0A0B0C")

	out := f.run("connect 1")
	assert.Contains(t, out, "Sent connect Earbuds")
	assert.Contains(t, out, "[EVENT] sink-updated: Earbuds [11:22:33:44:55:66] connecting")
	assert.Equal(t, wire.SubTypeConnectSink, f.sender.last().SubType)

	assert.Contains(t, f.run("add 1"), "Sent add source Hockey")
	assert.Equal(t, wire.SubTypeAddSource, f.sender.last().SubType)

	assert.Contains(t, f.run("disconnect 1"), "Sent disconnect Earbuds")
	assert.Equal(t, wire.SubTypeDisconnectSink, f.sender.last().SubType)

	assert.Contains(t, f.run("connect 2"), "out of range")
	assert.Contains(t, f.run("add x"), "invalid number")
	assert.Contains(t, f.run("connect"), "missing number")
}

func TestEventsAreEchoed(t *testing.T) {
	f := newFixture(t)

	f.model.OnMessage(&wire.Message{Type: wire.MessageTypeEVT, SubType: wire.SubTypeHeartbeat, SeqNo: 7})
	f.event(t, wire.SubTypeSourceBigEncBcodeReq)

	assert.Contains(t, f.out.String(), "[EVENT] heartbeat-received #7")
	assert.Contains(t, f.out.String(), "[EVENT] bc-request")
}

func TestCodeCommand(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.run("code secret 2"), "Sent broadcast code")
	msg := f.sender.last()
	require.Equal(t, wire.SubTypeBigBcode, msg.SubType)
	items, err := msg.Items()
	require.NoError(t, err)
	id, ok := wire.FindValue[uint8](items, wire.DataSourceID)
	require.True(t, ok)
	assert.Equal(t, uint8(2), id)
	code, ok := wire.FindValue[[]byte](items, wire.DataBroadcastCode)
	require.True(t, ok)
	assert.Equal(t, append([]byte("secret"), make([]byte, 10)...), code)

	assert.Contains(t, f.run("code hex:0102"), "Sent broadcast code")
	assert.Contains(t, f.run("code hex:zz"), "invalid hex")
	assert.Contains(t, f.run("code abc 300"), "invalid source id")
	assert.Contains(t, f.run("code 0123456789abcdefg"), "Error: broadcast code")
}

func TestURICommand(t *testing.T) {
	f := newFixture(t)

	out := f.run("uri BLUETOOTH:UUID:184F;BN:SG9ja2V5;AT:0;AD:AABBCCDDEEFF;BI:0A0B0C;;")
	assert.Contains(t, out, "[EVENT] source-found: Hockey [AA:BB:CC:DD:EE:FF]")
	assert.Len(t, f.model.Sources(), 1)

	assert.Contains(t, f.run("uri http://example.com"), "Error:")
	assert.Contains(t, f.run("uri"), "Usage: uri")
}

func TestResetAndStats(t *testing.T) {
	f := newFixture(t)
	f.event(t, wire.SubTypeSinkFound, wire.Item{Type: wire.DataIdentity, Value: sinkAddr})

	out := f.run("reset")
	assert.Contains(t, out, "Sent reset")
	assert.Contains(t, out, "[EVENT] reset")
	assert.Empty(t, f.model.Sinks())

	stats := f.run("stats")
	assert.Contains(t, stats, "Link:            down")
	assert.Contains(t, stats, "Messages:        1")
	assert.Contains(t, stats, "Commands sent:   1")
}

func TestSendErrorsAreReported(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("link down")

	assert.Contains(t, f.run("scan sinks"), "Error: start sink scan")
}

func TestQuitAndUnknown(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.shell.Execute(""))
	assert.Contains(t, f.run("frobnicate"), "Unknown command: frobnicate")
	assert.True(t, f.shell.Execute("quit"))
	assert.True(t, f.shell.Execute("EXIT"))
}

func TestParseBroadcastCode(t *testing.T) {
	code, err := parseBroadcastCode("hex:00ff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xFF}, code)

	code, err = parseBroadcastCode("plain")
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), code)
}
