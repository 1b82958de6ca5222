package assistant

import (
	"fmt"

	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// Commands are fire-and-forget: they return once the transport accepted
// the envelope and never wait for the matching RES.

// StartHeartbeat asks the firmware to emit heartbeat events.
func (m *Model) StartHeartbeat() error {
	return m.send(wire.SubTypeHeartbeat)
}

// StartSinkScan starts scanning for sinks.
func (m *Model) StartSinkScan() error {
	return m.send(wire.SubTypeStartSinkScan)
}

// StartSourceScan starts scanning for broadcast sources.
func (m *Model) StartSourceScan() error {
	return m.send(wire.SubTypeStartSourceScan)
}

// StopScan stops any running scan.
func (m *Model) StopScan() error {
	return m.send(wire.SubTypeStopScan)
}

// RemoveSource asks connected sinks to drop their broadcast source.
func (m *Model) RemoveSource() error {
	return m.send(wire.SubTypeRemoveSource)
}

// AddSource tells connected sinks to sync to src. Optional fields that src
// does not carry are left out of the command.
func (m *Model) AddSource(src Source) error {
	if !src.HasAddress() {
		return fmt.Errorf("add source: %w", ErrMissingAddress)
	}

	var items []wire.Item
	if src.SID != nil {
		items = append(items, wire.Item{Type: wire.DataSID, Value: *src.SID})
	}
	if src.PAInterval != nil {
		items = append(items, wire.Item{Type: wire.DataPAInterval, Value: *src.PAInterval})
	}
	if src.BroadcastID != nil {
		items = append(items, wire.Item{Type: wire.DataBroadcastID, Value: *src.BroadcastID})
	}
	items = append(items, addressItem(src.Address, src.AddressTag))

	return m.send(wire.SubTypeAddSource, items...)
}

// ConnectSink asks the firmware to connect to sink. Once the command is
// sent the registry record moves to connecting and sink-updated is
// published, before the firmware acknowledges.
func (m *Model) ConnectSink(sink Sink) error {
	if !sink.HasAddress() {
		return fmt.Errorf("connect sink: %w", ErrMissingAddress)
	}
	if err := m.send(wire.SubTypeConnectSink, addressItem(sink.Address, sink.AddressTag)); err != nil {
		return err
	}

	m.run(func(o *outbox) {
		_, rec := m.findSink(sink.Address)
		if rec == nil {
			m.logger.Debug("connect sent for sink not in registry", "address", sink.Address.String())
			return
		}
		m.setSinkState(rec, ConnectionStateConnecting, "connect command")
		o.sink(SinkUpdated, rec)
	})
	return nil
}

// DisconnectSink asks the firmware to disconnect sink. The record is removed
// when the firmware reports the disconnect.
func (m *Model) DisconnectSink(sink Sink) error {
	if !sink.HasAddress() {
		return fmt.Errorf("disconnect sink: %w", ErrMissingAddress)
	}
	return m.send(wire.SubTypeDisconnectSink, addressItem(sink.Address, sink.AddressTag))
}

// SendBroadcastCode supplies the code for an encrypted broadcast. Codes
// shorter than 16 bytes are zero padded. sourceID selects the sink's
// receive state; firmware with a single source uses 0.
func (m *Model) SendBroadcastCode(sourceID uint8, code []byte) error {
	if len(code) == 0 || len(code) > wire.BroadcastCodeSize {
		return fmt.Errorf("send broadcast code: %w: %d bytes, want 1 to %d",
			ErrInvalidBroadcastCode, len(code), wire.BroadcastCodeSize)
	}
	padded := make([]byte, wire.BroadcastCodeSize)
	copy(padded, code)

	return m.send(wire.SubTypeBigBcode,
		wire.Item{Type: wire.DataSourceID, Value: sourceID},
		wire.Item{Type: wire.DataBroadcastCode, Value: padded},
	)
}

// Reset resets the firmware and clears both registries. The registries
// are cleared and reset is published even when sending fails; the send
// error is still returned.
func (m *Model) Reset() error {
	err := m.send(wire.SubTypeReset)

	m.run(func(o *outbox) {
		m.logger.Info("clearing registries", "sources", len(m.sources), "sinks", len(m.sinks))
		m.clearRegistries()
		o.add(Reset)
	})
	return err
}

// send encodes and transmits one command with the next sequence number.
func (m *Model) send(subType wire.SubType, items ...wire.Item) error {
	m.mu.Lock()
	transport := m.transport
	if transport == nil {
		m.mu.Unlock()
		return fmt.Errorf("send %s: %w", subType, ErrNoTransport)
	}
	m.seqNo++
	seq := m.seqNo
	m.mu.Unlock()

	msg, err := wire.NewCommand(subType, seq, items...)
	if err != nil {
		return err
	}

	m.logger.Debug("sending command", "subtype", subType.String(), "seq", seq, "len", len(msg.Payload))
	err = transport.SendCMD(msg)

	m.mu.Lock()
	if err != nil {
		m.stats.SendFailures++
	} else {
		m.stats.CommandsSent++
	}
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("send %s: %w", subType, err)
	}
	return nil
}
