package transport

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadcast-assistant/ba-go/pkg/connection"
	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// recordingHandler records lifecycle signals and messages.
type recordingHandler struct {
	mu       sync.Mutex
	signals  []string
	messages []*wire.Message
}

func (h *recordingHandler) OnConnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, "connected")
}

func (h *recordingHandler) OnDisconnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, "disconnected")
}

func (h *recordingHandler) OnMessage(msg *wire.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHandler) Signals() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.signals...)
}

func (h *recordingHandler) Messages() []*wire.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*wire.Message(nil), h.messages...)
}

func fastConfig() Config {
	return Config{
		Backoff:     connection.BackoffConfig{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond, Jitter: -1},
		DialTimeout: time.Second,
	}
}

// acceptOne returns the next accepted connection from ln.
func acceptOne(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	ch := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			ch <- conn
		}
	}()
	select {
	case conn := <-ch:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func TestStreamClientDeliversMessagesInOrder(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	h := &recordingHandler{}
	proto := &capturingLogger{}
	cfg := fastConfig()
	cfg.ProtocolLogger = proto
	c := NewStreamClient(ln.Addr().String(), h, cfg)
	require.NoError(t, c.Start())
	defer c.Close()

	server := acceptOne(t, ln)
	defer server.Close()

	fw := NewFrameWriter(server)
	for i := uint16(1); i <= 5; i++ {
		require.NoError(t, fw.WriteMessage(&wire.Message{Type: wire.MessageTypeEVT, SubType: wire.SubTypeHeartbeat, SeqNo: i}))
	}

	require.Eventually(t, func() bool { return len(h.Messages()) == 5 }, 2*time.Second, 5*time.Millisecond)
	for i, msg := range h.Messages() {
		assert.Equal(t, uint16(i+1), msg.SeqNo)
	}
	assert.Equal(t, []string{"connected"}, h.Signals())
	assert.True(t, c.Connected())

	var linkUp int
	for _, e := range proto.Events() {
		if e.StateChange != nil && e.StateChange.Entity == log.StateEntityLink && e.StateChange.NewState == "connected" {
			linkUp++
			assert.NotEmpty(t, e.ConnectionID)
		}
	}
	assert.Equal(t, 1, linkUp)
}

func TestStreamClientSendCMD(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	h := &recordingHandler{}
	c := NewStreamClient(ln.Addr().String(), h, fastConfig())
	require.NoError(t, c.Start())
	defer c.Close()

	server := acceptOne(t, ln)
	defer server.Close()
	require.Eventually(t, c.Connected, 2*time.Second, 5*time.Millisecond)

	cmd, err := wire.NewCommand(wire.SubTypeStartSinkScan, 9)
	require.NoError(t, err)
	require.NoError(t, c.SendCMD(cmd))

	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := NewFrameReader(server).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, wire.MessageTypeCMD, got.Type)
	assert.Equal(t, wire.SubTypeStartSinkScan, got.SubType)
	assert.Equal(t, uint16(9), got.SeqNo)
}

func TestStreamClientSendBeforeConnect(t *testing.T) {
	c := NewStreamClient("127.0.0.1:1", &recordingHandler{}, fastConfig())
	defer c.Close()

	err := c.SendCMD(&wire.Message{Type: wire.MessageTypeCMD, SubType: wire.SubTypeReset})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestStreamClientReconnects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	h := &recordingHandler{}
	c := NewStreamClient(ln.Addr().String(), h, fastConfig())
	require.NoError(t, c.Start())
	defer c.Close()

	first := acceptOne(t, ln)
	require.Eventually(t, c.Connected, 2*time.Second, 5*time.Millisecond)
	first.Close()

	second := acceptOne(t, ln)
	defer second.Close()

	require.Eventually(t, func() bool { return len(h.Signals()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"connected", "disconnected", "connected"}, h.Signals())
}

func TestStreamClientDropsLinkOnFramingError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	h := &recordingHandler{}
	c := NewStreamClient(ln.Addr().String(), h, fastConfig())
	require.NoError(t, c.Start())
	defer c.Close()

	server := acceptOne(t, ln)
	defer server.Close()

	// payloadLen 0xFFFF is above DefaultMaxPayloadSize.
	_, err = server.Write([]byte{0x03, 0x81, 0x00, 0x00, 0xFF, 0xFF})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := h.Signals()
		return len(s) >= 2 && s[1] == "disconnected"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, h.Messages())
}

func TestStreamClientCloseSignalsDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	h := &recordingHandler{}
	c := NewStreamClient(ln.Addr().String(), h, fastConfig())
	require.NoError(t, c.Start())

	server := acceptOne(t, ln)
	defer server.Close()
	require.Eventually(t, c.Connected, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())

	assert.Equal(t, []string{"connected", "disconnected"}, h.Signals())
	assert.False(t, c.Connected())
	assert.NoError(t, c.Close())
}

func TestStreamClientHeartbeatTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	h := &recordingHandler{}
	cfg := fastConfig()
	cfg.KeepAlive = KeepAliveConfig{Interval: 10 * time.Millisecond, MaxMissed: 2}
	c := NewStreamClient(ln.Addr().String(), h, cfg)
	require.NoError(t, c.Start())
	defer c.Close()

	// The server reads heartbeats but never answers.
	server := acceptOne(t, ln)
	defer server.Close()
	heartbeat, err := NewFrameReader(server).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, wire.SubTypeHeartbeat, heartbeat.SubType)

	require.Eventually(t, func() bool {
		s := h.Signals()
		return len(s) >= 2 && s[1] == "disconnected"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocketClient(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan []byte, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		frame, _ := wire.EncodeMessage(&wire.Message{Type: wire.MessageTypeEVT, SubType: wire.SubTypeSourceAdded, SeqNo: 4})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x03})
		_ = conn.WriteMessage(websocket.BinaryMessage, frame)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	}))
	defer srv.Close()

	h := &recordingHandler{}
	proto := &capturingLogger{}
	cfg := fastConfig()
	cfg.ProtocolLogger = proto
	c := NewWebSocketClient("ws"+strings.TrimPrefix(srv.URL, "http"), h, cfg)
	require.NoError(t, c.Start())
	defer c.Close()

	require.Eventually(t, func() bool { return len(h.Messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, wire.SubTypeSourceAdded, h.Messages()[0].SubType)
	assert.Equal(t, uint16(4), h.Messages()[0].SeqNo)

	cmd, err := wire.NewCommand(wire.SubTypeStopScan, 2)
	require.NoError(t, err)
	require.NoError(t, c.SendCMD(cmd))

	select {
	case data := <-received:
		assert.Equal(t, []byte{0x01, 0x04, 0x02, 0x00, 0x00, 0x00}, data)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive command")
	}

	var decodeErrors int
	for _, e := range proto.Events() {
		if e.Error != nil && e.Layer == log.LayerWire {
			decodeErrors++
		}
	}
	assert.Equal(t, 1, decodeErrors)
}
