// Package log provides protocol capture for the broadcast assistant.
//
// It is separate from operational logging (slog). Protocol capture records
// every frame, decoded envelope, state change and dropped message so a
// session with the assistant firmware can be replayed and inspected later.
//
//	// Console while developing
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// Binary file for later analysis with ba-log
//	fileLogger, _ := log.NewFileLogger("/var/log/ba/session.balog")
//
//	// Both
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fileLogger)
//
// Events are captured at three layers:
//   - Transport: raw frame bytes (FrameEvent)
//   - Wire: decoded envelopes (MessageEvent)
//   - Engine: link and device state changes (StateChangeEvent) and
//     diagnostics for messages the engine could not apply (ErrorEventData)
//
// Log files are a stream of CBOR-encoded events with the .balog extension.
package log
