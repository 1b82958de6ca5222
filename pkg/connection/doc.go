// Package connection keeps the link to the assistant bridge alive.
//
// A Manager owns the dial function of a transport and re-runs it with
// exponential backoff whenever the transport reports that the link dropped.
//
// # Reconnection Strategy
//
// The assistant firmware is usually reached through a local USB/serial
// bridge, so retries start fast:
//
//  1. First attempt: immediately after Start
//  2. Initial retry delay: 500 ms
//  3. Exponential increase: 1s, 2s, 4s, 8s, 16s
//  4. Maximum delay: 30 seconds, repeated until a dial succeeds
//  5. Reset to 500 ms after a successful dial
//
// # Jitter
//
//	actual_delay = base_delay + random(0, base_delay * 0.2)
package connection
