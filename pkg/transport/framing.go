package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// DefaultMaxPayloadSize bounds inbound payloads. Firmware events are far
// smaller; a larger length field means the stream is out of step.
const DefaultMaxPayloadSize = 4096

// Framing errors.
var (
	// ErrMessageTooLarge indicates a payload above the configured maximum.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrFrameTruncated indicates the stream ended inside an envelope.
	ErrFrameTruncated = errors.New("frame truncated")
)

// FrameWriter writes envelopes to a byte stream.
type FrameWriter struct {
	w  io.Writer
	mu sync.Mutex

	logger log.Logger
	connID string
}

// NewFrameWriter creates a frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// SetLogger configures protocol logging. Pass nil to disable it.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteMessage encodes msg and writes it with a single Write call.
// Safe for concurrent use.
func (fw *FrameWriter) WriteMessage(msg *wire.Message) error {
	frame, err := wire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(messageEvent(fw.connID, log.DirectionOut, frame, msg))
	}
	return nil
}

// FrameReader reads envelopes from a byte stream.
type FrameReader struct {
	r          io.Reader
	maxPayload int
	header     [wire.HeaderSize]byte

	logger log.Logger
	connID string
}

// NewFrameReader creates a frame reader with DefaultMaxPayloadSize.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, maxPayload: DefaultMaxPayloadSize}
}

// SetLogger configures protocol logging. Pass nil to disable it.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.logger = logger
	fr.connID = connID
}

// SetMaxPayloadSize updates the inbound payload limit.
func (fr *FrameReader) SetMaxPayloadSize(size int) {
	fr.maxPayload = size
}

// ReadMessage reads the next envelope. It returns io.EOF only when the
// stream ends cleanly between envelopes.
func (fr *FrameReader) ReadMessage() (*wire.Message, error) {
	if _, err := io.ReadFull(fr.r, fr.header[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	h, err := wire.DecodeHeader(fr.header[:])
	if err != nil {
		return nil, err
	}
	if int(h.PayloadLen) > fr.maxPayload {
		fr.logError(fmt.Sprintf("payload length %d exceeds %d", h.PayloadLen, fr.maxPayload))
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, h.PayloadLen, fr.maxPayload)
	}

	frame := make([]byte, wire.HeaderSize+int(h.PayloadLen))
	copy(frame, fr.header[:])
	if _, err := io.ReadFull(fr.r, frame[wire.HeaderSize:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	msg, err := wire.DecodeMessage(frame)
	if err != nil {
		return nil, err
	}

	if fr.logger != nil {
		fr.logger.Log(messageEvent(fr.connID, log.DirectionIn, frame, msg))
	}
	return msg, nil
}

func (fr *FrameReader) logError(text string) {
	if fr.logger == nil {
		return
	}
	fr.logger.Log(errorEvent(fr.connID, log.LayerTransport, text))
}

// Framer combines frame reading and writing over one stream.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// SetLogger configures logging for both directions.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}

// messageEvent records one envelope with its raw frame.
func messageEvent(connID string, dir log.Direction, frame []byte, msg *wire.Message) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Frame:        log.NewFrameEvent(frame),
		Message:      log.NewMessageEvent(msg),
	}
}

func errorEvent(connID string, layer log.Layer, text string) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        layer,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: text,
		},
	}
}
