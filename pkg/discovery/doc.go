// Package discovery finds broadcast sources and assistant bridges outside
// the radio path.
//
// Broadcast Audio URIs are the QR/NFC encoding of a broadcast source:
//
//	BLUETOOTH:UUID:184F;BN:SG9ja2V5;AT:1;AD:C0FFEE001122;AS:1;BI:0A0B0C;PI:FFFF;;
//
// ParseBroadcastAudioURI turns one into an ordered token list that the
// assistant engine converts into a source record.
//
// The assistant firmware is reachable through a network bridge that
// advertises itself over mDNS as _ba-assistant._tcp. MDNSBrowser lists
// those bridges so a client can pick a dial target without configuration.
package discovery
