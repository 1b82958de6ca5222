// Package transport carries assistant envelopes between the host and the
// assistant firmware.
//
// Two links are supported:
//   - StreamClient: a TCP byte stream, typically a serial-over-TCP bridge
//     in front of the firmware's USB CDC port
//   - WebSocketClient: one binary WebSocket message per envelope
//
// # Framing
//
// On a byte stream every envelope is self-delimiting:
//
//	┌──────┬─────────┬────────────┬──────────────┬─────────────┐
//	│ type │ subType │ seqNo (LE) │ payloadLen   │ payload     │
//	│ 1B   │ 1B      │ 2B         │ 2B (LE)      │ payloadLen  │
//	└──────┴─────────┴────────────┴──────────────┴─────────────┘
//
// A framing error leaves the stream position unknown, so the link is
// dropped and redialed.
//
// # Liveness
//
// When a KeepAlive interval is configured the client sends a HEARTBEAT
// command every interval. Any inbound envelope counts as activity; after
// MaxMissed silent intervals the link is closed and redialed.
package transport
