// Package commands implements the ba-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints every event of path matching filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER label
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		ts, shortenConnID(event.ConnectionID), event.Direction.String(), event.Layer.String(), eventLabel(event))

	if event.DeviceAddr != "" {
		fmt.Fprintf(w, "  Device: %s\n", event.DeviceAddr)
	}

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventLabel names the payload kind of an event.
func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return event.Message.Type.String() + " " + event.Message.SubType.String()
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  SeqNo: %d\n", msg.SeqNo)
	if len(msg.Payload) == 0 {
		return
	}

	items, err := wire.DecodeLTV(msg.Payload)
	if err != nil {
		fmt.Fprintf(w, "  Payload: %s (undecodable: %v)\n", hex.EncodeToString(msg.Payload), err)
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  %s: %s\n", item.Type.String(), formatValue(item.Value))
	}
}

// formatValue renders an LTV value. Byte strings print as hex.
func formatValue(v any) string {
	switch val := v.(type) {
	case []byte:
		return hex.EncodeToString(val)
	case string:
		return fmt.Sprintf("%q", val)
	case uint32:
		return fmt.Sprintf("0x%06X", val)
	case []uint16:
		s := ""
		for i, u := range val {
			if i > 0 {
				s += ","
			}
			s += fmt.Sprintf("0x%04X", u)
		}
		return "[" + s + "]"
	default:
		return fmt.Sprint(val)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}
