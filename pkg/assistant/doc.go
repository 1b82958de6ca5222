// Package assistant is the Broadcast Audio Scan Assistant state engine.
//
// A Model keeps the canonical view of the broadcast sources and sinks the
// assistant firmware has reported. Inbound envelopes are dispatched by
// class and subtype to protocol handlers that reconcile device records by
// Bluetooth address. Command methods validate their arguments, encode an
// envelope and hand it to the transport; a few also update local state
// optimistically.
//
// Every change is announced as a named Notification carrying a snapshot of
// the affected record:
//
//	m := assistant.New(client, assistant.WithLogger(logger))
//	unsubscribe := m.Subscribe(assistant.SinkFound, func(n assistant.Notification) {
//	    fmt.Println("new sink", n.Sink.Address)
//	})
//	defer unsubscribe()
//
// Inbound messages and commands are serialized by the Model. Notifications
// are delivered in order, outside the Model's lock, so subscribers may call
// accessors and commands.
//
// Malformed messages and events about unknown devices are dropped without
// a notification. Each drop is counted in Stats and recorded as an error
// event on the protocol logger.
package assistant
