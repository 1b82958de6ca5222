package bridge

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/broadcast-assistant/ba-go/pkg/assistant"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// EventDoc is the JSON document published for a notification.
type EventDoc struct {
	Event     string     `json:"event"`
	Timestamp string     `json:"timestamp"`
	Counter   *uint16    `json:"counter,omitempty"`
	Source    *SourceDoc `json:"source,omitempty"`
	Sink      *SinkDoc   `json:"sink,omitempty"`
}

// SourceDoc is the JSON form of a source record.
type SourceDoc struct {
	Address       string  `json:"address"`
	AddressType   string  `json:"address_type"`
	Name          string  `json:"name,omitempty"`
	BroadcastName string  `json:"broadcast_name,omitempty"`
	RSSI          *int8   `json:"rssi,omitempty"`
	BroadcastID   string  `json:"broadcast_id,omitempty"`
	PAInterval    *uint16 `json:"pa_interval,omitempty"`
	SID           *uint8  `json:"sid,omitempty"`
	BASE          string  `json:"base,omitempty"`
	State         string  `json:"state"`
}

// SinkDoc is the JSON form of a sink record.
type SinkDoc struct {
	Address         string   `json:"address"`
	AddressType     string   `json:"address_type"`
	Name            string   `json:"name,omitempty"`
	RSSI            *int8    `json:"rssi,omitempty"`
	UUID16s         []string `json:"uuid16s"`
	ConnectionState string   `json:"connection_state"`
	SourceAdded     string   `json:"source_added,omitempty"`
}

// AddressDoc is the payload of commands that name a device.
type AddressDoc struct {
	Address string `json:"address"`
}

// BroadcastCodeDoc is the payload of the broadcast-code command. Code is
// plain text, or raw bytes with a "hex:" or "base64:" prefix.
type BroadcastCodeDoc struct {
	SourceID uint8  `json:"source_id"`
	Code     string `json:"code"`
}

func newEventDoc(n assistant.Notification, now time.Time) EventDoc {
	doc := EventDoc{
		Event:     string(n.Name),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if n.Name == assistant.HeartbeatReceived {
		c := n.Counter
		doc.Counter = &c
	}
	if n.Source != nil {
		doc.Source = newSourceDoc(n.Source)
	}
	if n.Sink != nil {
		doc.Sink = newSinkDoc(n.Sink)
	}
	return doc
}

func newSourceDoc(s *assistant.Source) *SourceDoc {
	doc := &SourceDoc{
		Address:       s.Address.String(),
		AddressType:   s.Address.Type.String(),
		Name:          s.Name,
		BroadcastName: s.BroadcastName,
		RSSI:          s.RSSI,
		PAInterval:    s.PAInterval,
		SID:           s.SID,
		State:         s.State.String(),
	}
	if s.BroadcastID != nil {
		doc.BroadcastID = fmt.Sprintf("%06X", *s.BroadcastID)
	}
	if len(s.BASE) > 0 {
		doc.BASE = hex.EncodeToString(s.BASE)
	}
	return doc
}

func newSinkDoc(s *assistant.Sink) *SinkDoc {
	doc := &SinkDoc{
		Address:         s.Address.String(),
		AddressType:     s.Address.Type.String(),
		Name:            s.Name,
		RSSI:            s.RSSI,
		UUID16s:         make([]string, len(s.UUID16s)),
		ConnectionState: s.ConnectionState.String(),
	}
	for i, u := range s.UUID16s {
		doc.UUID16s[i] = fmt.Sprintf("%04X", u)
	}
	if s.SourceAdded != nil {
		doc.SourceAdded = s.SourceAdded.String()
	}
	return doc
}

// parseAddressDoc reads the address of a device command. The type is
// irrelevant because registry lookups compare address bytes only.
func parseAddressDoc(payload []byte) (wire.Address, error) {
	var doc AddressDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return wire.Address{}, fmt.Errorf("invalid command payload: %w", err)
	}
	return wire.ParseAddress(doc.Address, wire.AddressTypePublic)
}

func parseBroadcastCodeDoc(payload []byte) (uint8, []byte, error) {
	var doc BroadcastCodeDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return 0, nil, fmt.Errorf("invalid command payload: %w", err)
	}

	switch {
	case strings.HasPrefix(doc.Code, "hex:"):
		code, err := hex.DecodeString(strings.TrimPrefix(doc.Code, "hex:"))
		if err != nil {
			return 0, nil, fmt.Errorf("invalid hex broadcast code: %w", err)
		}
		return doc.SourceID, code, nil
	case strings.HasPrefix(doc.Code, "base64:"):
		code, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(doc.Code, "base64:"))
		if err != nil {
			return 0, nil, fmt.Errorf("invalid base64 broadcast code: %w", err)
		}
		return doc.SourceID, code, nil
	default:
		return doc.SourceID, []byte(doc.Code), nil
	}
}
