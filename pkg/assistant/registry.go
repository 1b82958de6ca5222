package assistant

import "github.com/broadcast-assistant/ba-go/pkg/wire"

// Registry lookups scan linearly and compare address bytes only. The
// registries hold tens of entries. All functions here require m.mu.

func (m *Model) findSource(addr wire.Address) (int, *Source) {
	for i, s := range m.sources {
		if s.Address.Equal(addr) {
			return i, s
		}
	}
	return -1, nil
}

func (m *Model) findSink(addr wire.Address) (int, *Sink) {
	for i, s := range m.sinks {
		if s.Address.Equal(addr) {
			return i, s
		}
	}
	return -1, nil
}

func (m *Model) findSourceByBroadcastID(id uint32) *Source {
	for _, s := range m.sources {
		if s.BroadcastID != nil && *s.BroadcastID == id {
			return s
		}
	}
	return nil
}

func (m *Model) removeSink(i int) *Sink {
	s := m.sinks[i]
	m.sinks = append(m.sinks[:i], m.sinks[i+1:]...)
	return s
}

func (m *Model) clearRegistries() {
	m.sources = nil
	m.sinks = nil
}

// findAddress returns the first address item matching types, in priority
// order, with the tag it was found under. An all-zero address counts as
// absent, since commands cannot be sent to it.
func findAddress(items []wire.Item, types ...wire.DataType) (wire.Address, wire.DataType, bool) {
	item, ok := wire.FindItem(items, types...)
	if !ok {
		return wire.Address{}, 0, false
	}
	addr, ok := item.Value.(wire.Address)
	if !ok || addr.IsZero() {
		return wire.Address{}, 0, false
	}
	return addr, item.Type, true
}

// findOptional returns a pointer to the first matching value, or nil.
func findOptional[T any](items []wire.Item, types ...wire.DataType) *T {
	v, ok := wire.FindValue[T](items, types...)
	if !ok {
		return nil
	}
	return &v
}
