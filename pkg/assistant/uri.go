package assistant

import (
	"fmt"

	"github.com/broadcast-assistant/ba-go/pkg/discovery"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// AddSourceFromBroadcastAudioURI adds a source described by a parsed
// Broadcast Audio URI. A source whose address is already known is left
// untouched and no notification is published.
func (m *Model) AddSourceFromBroadcastAudioURI(tokens []discovery.Token) error {
	src, err := sourceFromTokens(tokens)
	if err != nil {
		return err
	}

	m.run(func(o *outbox) {
		if _, existing := m.findSource(src.Address); existing != nil {
			m.drop(DropDuplicate, "broadcast-audio-uri", "broadcast audio URI already added", &src.Address)
			return
		}
		m.sources = append(m.sources, src)
		m.logger.Info("source added from broadcast audio URI", "address", src.Address.String(), "name", src.DisplayName())
		o.source(SourceFound, src)
	})
	return nil
}

func sourceFromTokens(tokens []discovery.Token) (*Source, error) {
	addrType := wire.AddressTypePublic
	if tok, ok := discovery.FindToken(tokens, discovery.TagAddressType); ok {
		v, ok := tok.Value.(uint8)
		if !ok || v > uint8(wire.AddressTypeResolvablePrivate) {
			return nil, fmt.Errorf("add source from URI: %w: %v", ErrInvalidAddressType, tok.Value)
		}
		addrType = wire.AddressType(v)
	}

	src := &Source{AddressTag: wire.DataRPA}
	hasAddr := false
	for _, tok := range tokens {
		switch v := tok.Value.(type) {
		case wire.Address:
			if tok.Type == discovery.TagAddress && !v.IsZero() {
				src.Address = v
				src.Address.Type = addrType
				hasAddr = true
			}
		case string:
			if tok.Type == discovery.TagBroadcastName {
				src.BroadcastName = v
			}
		case uint32:
			if tok.Type == discovery.TagBroadcastID {
				src.BroadcastID = &v
			}
		case uint16:
			if tok.Type == discovery.TagPAInterval {
				src.PAInterval = &v
			}
		case uint8:
			if tok.Type == discovery.TagAdvertisingID {
				src.SID = &v
			}
		}
	}

	if !hasAddr {
		return nil, fmt.Errorf("add source from URI: %w", ErrMissingAddressToken)
	}
	return src, nil
}
