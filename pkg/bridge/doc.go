// Package bridge mirrors the assistant engine onto an MQTT broker.
//
// Every engine notification is published as a JSON document on
//
//	<prefix>/event/<notification-name>
//
// and commands are accepted on
//
//	<prefix>/command/<command-name>
//
// The bridge's own presence is published retained on <prefix>/status, with
// a last will that flips it to offline when the process dies.
package bridge
