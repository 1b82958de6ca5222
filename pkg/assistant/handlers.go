package assistant

import (
	"fmt"

	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// Handlers run with m.mu held and report changes through o.

func (m *Model) handleHeartbeat(msg *wire.Message, _ []wire.Item, o *outbox) {
	*o = append(*o, Notification{Name: HeartbeatReceived, Counter: msg.SeqNo})
}

// handleSourceFound creates a source on first sighting. Later sightings
// refresh RSSI only.
func (m *Model) handleSourceFound(_ *wire.Message, items []wire.Item, o *outbox) {
	addr, tag, ok := findAddress(items, wire.DataIdentity, wire.DataRPA)
	if !ok {
		m.drop(DropMalformed, "source-found", "no address in source found event", nil)
		return
	}
	rssi := findOptional[int8](items, wire.DataRSSI)

	if _, src := m.findSource(addr); src != nil {
		src.RSSI = rssi
		o.source(SourceUpdated, src)
		return
	}

	name, _ := wire.FindValue[string](items, wire.DataNameComplete, wire.DataNameShortened)
	broadcastName, _ := wire.FindValue[string](items, wire.DataBroadcastName)
	src := &Source{
		Address:       addr,
		AddressTag:    tag,
		Name:          name,
		RSSI:          rssi,
		BroadcastName: broadcastName,
		BroadcastID:   findOptional[uint32](items, wire.DataBroadcastID),
		PAInterval:    findOptional[uint16](items, wire.DataPAInterval),
		SID:           findOptional[uint8](items, wire.DataSID),
	}
	m.sources = append(m.sources, src)
	m.logger.Info("source found", "address", addr.String(), "name", src.DisplayName())
	o.source(SourceFound, src)
}

// handleSinkFound creates a sink on first sighting. Later sightings refresh
// RSSI only.
func (m *Model) handleSinkFound(_ *wire.Message, items []wire.Item, o *outbox) {
	addr, tag, ok := findAddress(items, wire.DataIdentity, wire.DataRPA)
	if !ok {
		m.drop(DropMalformed, "sink-found", "no address in sink found event", nil)
		return
	}
	rssi := findOptional[int8](items, wire.DataRSSI)

	if _, sink := m.findSink(addr); sink != nil {
		sink.RSSI = rssi
		o.sink(SinkUpdated, sink)
		return
	}

	name, _ := wire.FindValue[string](items, wire.DataNameComplete, wire.DataNameShortened)
	uuids, ok := wire.FindValue[[]uint16](items, wire.DataUUID16All, wire.DataUUID16Some)
	if !ok {
		uuids = []uint16{}
	}
	sink := &Sink{
		Address:    addr,
		AddressTag: tag,
		Name:       name,
		RSSI:       rssi,
		UUID16s:    uuids,
	}
	m.sinks = append(m.sinks, sink)
	m.logger.Info("sink found", "address", addr.String(), "name", sink.DisplayName())
	o.sink(SinkFound, sink)
}

func (m *Model) handleSourceBaseFound(_ *wire.Message, items []wire.Item, o *outbox) {
	addr, _, ok := findAddress(items, wire.DataIdentity, wire.DataRPA)
	if !ok {
		m.drop(DropMalformed, "source-base-found", "no address in BASE event", nil)
		return
	}
	base, ok := wire.FindValue[[]byte](items, wire.DataBASE)
	if !ok {
		m.drop(DropMalformed, "source-base-found", "no BASE in BASE event", &addr)
		return
	}
	_, src := m.findSource(addr)
	if src == nil {
		m.drop(DropUnknownDevice, "source-base-found", "BASE for unknown source", &addr)
		return
	}

	src.BASE = base
	o.source(BaseUpdated, src)
}

// handleBISSync marks the source identified by broadcast id as the one the
// sink is synced to. Every source is republished so observers can redraw
// the selection. With synced false the selection is cleared.
func (m *Model) handleBISSync(items []wire.Item, synced bool, o *outbox) {
	addr, _, ok := findAddress(items, wire.DataIdentity, wire.DataRPA)
	if !ok {
		m.drop(DropMalformed, "bis-sync", "no sink address in BIS sync event", nil)
		return
	}
	broadcastID, ok := wire.FindValue[uint32](items, wire.DataBroadcastID)
	if !ok {
		m.drop(DropMalformed, "bis-sync", "no broadcast id in BIS sync event", &addr)
		return
	}

	_, sink := m.findSink(addr)
	if sink == nil {
		m.drop(DropUnknownDevice, "bis-sync", "BIS sync for unknown sink", &addr)
		return
	}
	matched := m.findSourceByBroadcastID(broadcastID)
	if matched == nil {
		m.drop(DropUnknownDevice, "bis-sync", fmt.Sprintf("BIS sync for unknown broadcast id %06X", broadcastID), &addr)
		return
	}

	if code, ok := wire.FindValue[uint8](items, wire.DataErrorCode); ok && code != 0 {
		m.logger.Debug("BIS sync reported error code", "address", addr.String(), "code", code)
	}

	for _, src := range m.sources {
		old := src.State
		src.State = SourceStateUndefined
		if src == matched && synced {
			src.State = SourceStateSelected
		}
		if old != src.State {
			m.logState(log.StateEntitySource, src.Address.String(), old.String(), src.State.String(), "bis-sync")
		}
		o.source(SourceUpdated, src)
	}

	ref := matched.Address
	sink.SourceAdded = &ref
	o.sink(SinkUpdated, sink)
}

func (m *Model) handleSinkConnectivity(msg *wire.Message, items []wire.Item, o *outbox) {
	addr, _, ok := findAddress(items, wire.DataIdentity, wire.DataRPA)
	if !ok {
		m.drop(DropMalformed, "sink-connectivity", "no address in connectivity event", nil)
		return
	}
	i, sink := m.findSink(addr)
	if sink == nil {
		m.drop(DropUnknownDevice, "sink-connectivity", "connectivity event for unknown sink", &addr)
		return
	}

	if code, ok := wire.FindValue[uint8](items, wire.DataErrorCode); ok && code != 0 {
		m.logger.Warn("sink reported error", "address", addr.String(), "subtype", msg.SubType.String(), "code", code)
		m.setSinkState(sink, ConnectionStateFailed, fmt.Sprintf("error code %d", code))
		o.sink(SinkUpdated, sink)
		return
	}

	if msg.SubType == wire.SubTypeSinkConnected {
		m.setSinkState(sink, ConnectionStateConnected, "")
		o.sink(SinkUpdated, sink)
		return
	}

	m.removeSink(i)
	m.setSinkState(sink, ConnectionStateDisconnected, "")
	o.sink(SinkDisconnected, sink)
}

func (m *Model) setSinkState(sink *Sink, state ConnectionState, reason string) {
	old := sink.ConnectionState
	sink.ConnectionState = state
	m.logState(log.StateEntitySink, sink.Address.String(), old.String(), state.String(), reason)
}

// handleIdentityResolved migrates a sink from its resolvable private
// address to its identity address.
func (m *Model) handleIdentityResolved(_ *wire.Message, items []wire.Item, o *outbox) {
	identity, _, ok := findAddress(items, wire.DataIdentity)
	if !ok {
		m.drop(DropMalformed, "identity-resolved", "no identity address in identity resolved event", nil)
		return
	}
	rpa, _, ok := findAddress(items, wire.DataRPA)
	if !ok {
		m.drop(DropMalformed, "identity-resolved", "no RPA in identity resolved event", &identity)
		return
	}

	i, sink := m.findSink(rpa)
	if sink == nil {
		m.drop(DropUnknownDevice, "identity-resolved", "identity resolved for unknown sink", &rpa)
		return
	}
	if j, _ := m.findSink(identity); j >= 0 && j != i {
		m.drop(DropDuplicate, "identity-resolved", "identity address already belongs to another sink", &identity)
		return
	}

	m.logger.Info("sink identity resolved", "rpa", rpa.String(), "identity", identity.String())
	sink.Address = identity
	sink.AddressTag = wire.DataIdentity
	o.sink(SinkUpdated, sink)
}

func (m *Model) handleSourceAdded(_ *wire.Message, items []wire.Item, o *outbox) {
	if id, ok := wire.FindValue[uint8](items, wire.DataSourceID); ok {
		m.logger.Info("source added by sink", "source_id", id)
	} else {
		m.logger.Info("source added by sink")
	}
	o.add(SourceAdded)
}

func (m *Model) handleSourceRemoved(_ *wire.Message, _ []wire.Item, o *outbox) {
	m.logger.Info("source removed by sink")
	o.add(SourceRemoved)
}

// handlePAState covers the periodic advertising state subtypes, which
// carry no state the engine tracks.
func (m *Model) handlePAState(msg *wire.Message, _ []wire.Item, _ *outbox) {
	m.logger.Debug("PA state changed", "state", msg.SubType.String())
}

func (m *Model) handleBroadcastCodeRequest(msg *wire.Message, _ []wire.Item, o *outbox) {
	m.logger.Info("broadcast code requested", "reason", msg.SubType.String())
	o.add(BCRequest)
}
