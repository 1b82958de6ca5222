package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// FilterOptions holds the raw flag values shared by view and filter.
type FilterOptions struct {
	Output    string
	ConnID    string
	Device    string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
	SubType   string
}

// Filter converts the flag values into a log.Filter.
func (o FilterOptions) Filter() (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: o.ConnID,
		DeviceAddr:   strings.ToUpper(o.Device),
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if o.SubType != "" {
		s, err := parseSubType(o.SubType)
		if err != nil {
			return filter, err
		}
		filter.SubType = &s
	}
	return filter, nil
}

// RunFilter copies the events of path matching opts into opts.Output and
// returns how many were written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.Filter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
		count++
	}
	return count, nil
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "engine":
		return log.LayerEngine, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or engine)", s)
	}
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// parseSubType accepts a subtype name (case-insensitive) or a number.
func parseSubType(s string) (wire.SubType, error) {
	if v, err := strconv.ParseUint(s, 0, 8); err == nil {
		return wire.SubType(v), nil
	}
	want := strings.ToUpper(s)
	for i := 0; i <= 0xFF; i++ {
		st := wire.SubType(i)
		if st.IsKnown() && st.String() == want {
			return st, nil
		}
	}
	return 0, fmt.Errorf("invalid subtype: %s", s)
}
