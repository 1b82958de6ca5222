package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportStream    = "stream"
	TransportWebSocket = "websocket"
	TransportMDNS      = "mdns"
)

// Config is the root configuration of ba-assistant.
type Config struct {
	Transport   TransportConfig   `yaml:"transport"`
	Logging     LoggingConfig     `yaml:"logging"`
	ProtocolLog ProtocolLogConfig `yaml:"protocol_log"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Assistant   AssistantConfig   `yaml:"assistant"`
}

// TransportConfig selects and tunes the link to the assistant firmware.
type TransportConfig struct {
	// Kind is stream (TCP), websocket, or mdns (browse for a bridge).
	Kind    string `yaml:"kind"`
	Address string `yaml:"address"`
	URL     string `yaml:"url"`

	DialTimeout time.Duration   `yaml:"dial_timeout"`
	Reconnect   ReconnectConfig `yaml:"reconnect"`
	KeepAlive   KeepAliveConfig `yaml:"keepalive"`

	// BrowseTimeout bounds the mDNS search when Kind is mdns.
	BrowseTimeout time.Duration `yaml:"browse_timeout"`
}

// ReconnectConfig bounds the reconnect backoff.
type ReconnectConfig struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// KeepAliveConfig controls the link heartbeat. A zero interval disables it.
type KeepAliveConfig struct {
	Interval  time.Duration `yaml:"interval"`
	MaxMissed int           `yaml:"max_missed"`
}

// LoggingConfig controls operational logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ProtocolLogConfig enables protocol capture to a file.
type ProtocolLogConfig struct {
	Path string `yaml:"path"`
}

// MQTTConfig configures the optional notification bridge.
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TopicPrefix string        `yaml:"topic_prefix"`
	QoS         int           `yaml:"qos"`
	Timeout     time.Duration `yaml:"connect_timeout"`
}

// AssistantConfig holds engine settings.
type AssistantConfig struct {
	// HeartbeatInterval sends START_HEARTBEAT periodically when non-zero.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// Default returns a Config with defaults for every field.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:        TransportStream,
			Address:     "localhost:5555",
			DialTimeout: 10 * time.Second,
			Reconnect: ReconnectConfig{
				Initial: 500 * time.Millisecond,
				Max:     30 * time.Second,
			},
			KeepAlive: KeepAliveConfig{
				Interval:  5 * time.Second,
				MaxMissed: 3,
			},
			BrowseTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "ba-assistant",
			TopicPrefix: "ba-assistant",
			QoS:         1,
			Timeout:     10 * time.Second,
		},
	}
}

// Load reads path over the defaults, applies environment overrides, and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BA_TRANSPORT_KIND"); v != "" {
		cfg.Transport.Kind = v
	}
	if v := os.Getenv("BA_TRANSPORT_ADDRESS"); v != "" {
		cfg.Transport.Address = v
	}
	if v := os.Getenv("BA_TRANSPORT_URL"); v != "" {
		cfg.Transport.URL = v
	}
	if v := os.Getenv("BA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BA_PROTOCOL_LOG"); v != "" {
		cfg.ProtocolLog.Path = v
	}
	if v := os.Getenv("BA_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
	if v := os.Getenv("BA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("BA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.Transport.Kind {
	case TransportStream:
		if c.Transport.Address == "" {
			errs = append(errs, "transport.address is required for stream transport")
		}
	case TransportWebSocket:
		if u, err := url.Parse(c.Transport.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, "transport.url must be a ws:// or wss:// URL for websocket transport")
		}
	case TransportMDNS:
		if c.Transport.BrowseTimeout <= 0 {
			errs = append(errs, "transport.browse_timeout must be positive for mdns transport")
		}
	default:
		errs = append(errs, "transport.kind must be stream, websocket, or mdns")
	}

	if c.Transport.Reconnect.Initial < 0 || c.Transport.Reconnect.Max < c.Transport.Reconnect.Initial {
		errs = append(errs, "transport.reconnect.max must not be below transport.reconnect.initial")
	}
	if c.Transport.KeepAlive.Interval < 0 || c.Transport.KeepAlive.MaxMissed < 0 {
		errs = append(errs, "transport.keepalive values must not be negative")
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, "logging.level must be debug, info, warn, or error")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, "logging.format must be text or json")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.Assistant.HeartbeatInterval < 0 {
		errs = append(errs, "assistant.heartbeat_interval must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}
