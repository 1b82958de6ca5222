package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/broadcast-assistant/ba-go/pkg/assistant"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// Command names accepted on <prefix>/command/<name>.
const (
	CommandStartSinkScan   = "start-sink-scan"
	CommandStartSourceScan = "start-source-scan"
	CommandStopScan        = "stop-scan"
	CommandReset           = "reset"
	CommandHeartbeat       = "heartbeat"
	CommandRemoveSource    = "remove-source"

	// Device commands carry {"address": "AA:BB:CC:DD:EE:FF"}.
	CommandConnectSink    = "connect-sink"
	CommandDisconnectSink = "disconnect-sink"
	CommandAddSource      = "add-source"

	// Answers bc-request with {"source_id": 0, "code": "hex:..."}.
	CommandBroadcastCode = "broadcast-code"
)

// Assistant is the engine surface the bridge drives. Implemented by
// *assistant.Model.
type Assistant interface {
	SubscribeAll(h assistant.NotificationHandler) (unsubscribe func())

	StartHeartbeat() error
	StartSinkScan() error
	StartSourceScan() error
	StopScan() error
	RemoveSource() error
	Reset() error

	Sink(addr wire.Address) (assistant.Sink, bool)
	Source(addr wire.Address) (assistant.Source, bool)
	ConnectSink(sink assistant.Sink) error
	DisconnectSink(sink assistant.Sink) error
	AddSource(src assistant.Source) error
	SendBroadcastCode(sourceID uint8, code []byte) error
}

// Config configures a Bridge.
type Config struct {
	Topics Topics
	QoS    byte
	Logger *slog.Logger
}

// Bridge publishes engine notifications and executes broker commands.
type Bridge struct {
	model  Assistant
	broker Broker
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	unsubscribe func()
}

// New creates a Bridge. Call Start to begin mirroring.
func New(model Assistant, broker Broker, cfg Config) *Bridge {
	b := &Bridge{
		model:  model,
		broker: broker,
		cfg:    cfg,
		logger: cfg.Logger,
		now:    time.Now,
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	return b
}

// Start subscribes to command topics and engine notifications.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unsubscribe != nil {
		return nil
	}
	if err := b.broker.Subscribe(b.cfg.Topics.Commands(), b.cfg.QoS, b.handleCommand); err != nil {
		return err
	}
	b.unsubscribe = b.model.SubscribeAll(b.publish)
	b.logger.Info("mqtt bridge started", "commands", b.cfg.Topics.Commands())
	return nil
}

// Stop detaches from the engine and the command topics.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unsubscribe == nil {
		return nil
	}
	b.unsubscribe()
	b.unsubscribe = nil
	return b.broker.Unsubscribe(b.cfg.Topics.Commands())
}

func (b *Bridge) publish(n assistant.Notification) {
	payload, err := json.Marshal(newEventDoc(n, b.now()))
	if err != nil {
		b.logger.Error("failed to encode notification", "event", string(n.Name), "error", err)
		return
	}

	topic := b.cfg.Topics.Event(string(n.Name))
	if err := b.broker.Publish(topic, payload, b.cfg.QoS, false); err != nil {
		b.logger.Warn("failed to publish notification", "topic", topic, "error", err)
	}
}

func (b *Bridge) handleCommand(topic string, payload []byte) error {
	name, ok := b.cfg.Topics.CommandName(topic)
	if !ok {
		return fmt.Errorf("%w: topic %q", ErrUnknownCommand, topic)
	}
	b.logger.Debug("mqtt command", "command", name)

	switch name {
	case CommandStartSinkScan:
		return b.model.StartSinkScan()
	case CommandStartSourceScan:
		return b.model.StartSourceScan()
	case CommandStopScan:
		return b.model.StopScan()
	case CommandReset:
		return b.model.Reset()
	case CommandHeartbeat:
		return b.model.StartHeartbeat()
	case CommandRemoveSource:
		return b.model.RemoveSource()
	case CommandConnectSink, CommandDisconnectSink:
		addr, err := parseAddressDoc(payload)
		if err != nil {
			return err
		}
		sink, ok := b.model.Sink(addr)
		if !ok {
			return fmt.Errorf("%s: %w: sink %s", name, ErrUnknownDevice, addr)
		}
		if name == CommandConnectSink {
			return b.model.ConnectSink(sink)
		}
		return b.model.DisconnectSink(sink)
	case CommandAddSource:
		addr, err := parseAddressDoc(payload)
		if err != nil {
			return err
		}
		src, ok := b.model.Source(addr)
		if !ok {
			return fmt.Errorf("%s: %w: source %s", name, ErrUnknownDevice, addr)
		}
		return b.model.AddSource(src)
	case CommandBroadcastCode:
		sourceID, code, err := parseBroadcastCodeDoc(payload)
		if err != nil {
			return err
		}
		return b.model.SendBroadcastCode(sourceID, code)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}
