// Package config loads ba-assistant configuration.
//
// Configuration comes from a YAML file layered over built-in defaults.
// A handful of environment variables override the file so deployments can
// point the same file at a different bridge or broker:
//
//	BA_TRANSPORT_KIND     transport.kind
//	BA_TRANSPORT_ADDRESS  transport.address
//	BA_TRANSPORT_URL      transport.url
//	BA_LOG_LEVEL          logging.level
//	BA_PROTOCOL_LOG       protocol_log.path
//	BA_MQTT_BROKER        mqtt.broker (and enables mqtt)
//	BA_MQTT_USERNAME      mqtt.username
//	BA_MQTT_PASSWORD      mqtt.password
//
// Durations use Go syntax ("500ms", "30s").
package config
