// Package wire defines the binary wire format spoken between a broadcast
// assistant host and the assistant firmware.
//
// Every message is an envelope with a fixed 6-byte little-endian header
// followed by a payload:
//
//	+------+---------+-------+------------+---------+
//	| type | subType | seqNo | payloadLen | payload |
//	|  u8  |   u8    |  u16  |    u16     |  bytes  |
//	+------+---------+-------+------------+---------+
//
// # Message Types
//
// There are three message classes:
//   - CMD: host to firmware (scan, add source, connect sink, ...)
//   - RES: firmware acknowledgment of a CMD, same subType
//   - EVT: asynchronous firmware events (device found, sync state, ...)
//
// # Payload
//
// The payload is a sequence of length-type-value (LTV) items, the same
// layout Bluetooth uses for advertising data:
//
//	+-----+------+-----------------+
//	| len | type | value (len - 1) |
//	+-----+------+-----------------+
//
// Standard advertising data types keep their assigned numbers. Values the
// firmware synthesizes (addresses, RSSI, broadcast ID, ...) use vendor tags
// in the 0xF0 range. DecodeLTV turns raw bytes into typed Items; FindItem
// looks up the first item matching a priority list of types.
package wire
