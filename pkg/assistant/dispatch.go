package assistant

import (
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

func (m *Model) registerHandlers() {
	m.res = map[wire.SubType]handlerFunc{
		wire.SubTypeStartSinkScan:   m.notifyOnly(SinkScanStarted),
		wire.SubTypeStartSourceScan: m.notifyOnly(SourceScanStarted),
		wire.SubTypeStopScan:        m.notifyOnly(ScanStopped),
		wire.SubTypeConnectSink:     m.resAcknowledge,
		wire.SubTypeAddSource:       m.resAcknowledge,
		wire.SubTypeBigBcode:        m.notifyOnly(ScanStopped),
		wire.SubTypeReset:           m.notifyOnly(ScanStopped),
	}

	m.evt = map[wire.SubType]handlerFunc{
		wire.SubTypeHeartbeat:        m.handleHeartbeat,
		wire.SubTypeSinkFound:        m.handleSinkFound,
		wire.SubTypeSinkConnected:    m.handleSinkConnectivity,
		wire.SubTypeSinkDisconnected: m.handleSinkConnectivity,
		wire.SubTypeSourceFound:      m.handleSourceFound,
		wire.SubTypeSourceBaseFound:  m.handleSourceBaseFound,
		wire.SubTypeSourceAdded:      m.handleSourceAdded,
		wire.SubTypeSourceRemoved:    m.handleSourceRemoved,
		wire.SubTypeStopScan:         m.notifyOnly(ScanStopped),

		wire.SubTypeNewPAStateNotSynced: m.handlePAState,
		wire.SubTypeNewPAStateInfoReq:   m.handlePAState,
		wire.SubTypeNewPAStateSynced:    m.handlePAState,
		wire.SubTypeNewPAStateFailed:    m.handlePAState,
		wire.SubTypeNewPAStateNoPAST:    m.handlePAState,

		wire.SubTypeBISSynced: func(msg *wire.Message, items []wire.Item, o *outbox) {
			m.handleBISSync(items, true, o)
		},
		wire.SubTypeBISUnsynced: func(msg *wire.Message, items []wire.Item, o *outbox) {
			m.handleBISSync(items, false, o)
		},
		wire.SubTypeIdentityResolved: m.handleIdentityResolved,

		wire.SubTypeSourceBigEncBcodeReq:  m.handleBroadcastCodeRequest,
		wire.SubTypeSourceBigEncNoBadCode: m.handleBroadcastCodeRequest,
	}
}

// dispatch routes msg to its handler. Caller holds m.mu.
func (m *Model) dispatch(msg *wire.Message, o *outbox) {
	if msg == nil {
		m.drop(DropInvalidClass, "dispatch", "nil message", nil)
		return
	}

	var table map[wire.SubType]handlerFunc
	switch msg.Type {
	case wire.MessageTypeRES:
		table = m.res
	case wire.MessageTypeEVT:
		table = m.evt
	default:
		m.drop(DropInvalidClass, "dispatch", "unexpected message type "+msg.Type.String(), nil)
		return
	}

	h, ok := table[msg.SubType]
	if !ok {
		m.drop(DropUnknownSubType, "dispatch", "no handler for "+msg.Type.String()+" "+msg.SubType.String(), nil)
		return
	}

	var items []wire.Item
	if msg.Type == wire.MessageTypeEVT {
		var err error
		items, err = msg.Items()
		if err != nil {
			m.drop(DropMalformed, msg.SubType.String(), "payload decode failed: "+err.Error(), nil)
			return
		}
	}

	m.stats.MessagesHandled++
	m.logger.Debug("handling message", "type", msg.Type.String(), "subtype", msg.SubType.String(), "seq", msg.SeqNo)
	h(msg, items, o)
}

// notifyOnly returns a handler that only publishes name.
func (m *Model) notifyOnly(name Name) handlerFunc {
	return func(msg *wire.Message, _ []wire.Item, o *outbox) {
		m.logger.Debug("publishing", "notification", string(name), "type", msg.Type.String(), "subtype", msg.SubType.String())
		o.add(name)
	}
}

func (m *Model) resAcknowledge(msg *wire.Message, _ []wire.Item, _ *outbox) {
	m.logger.Debug("command acknowledged", "subtype", msg.SubType.String())
}
