// Command ba-assistant runs the broadcast audio scan assistant host.
//
// It connects to the assistant firmware through a TCP or WebSocket bridge,
// keeps the source and sink registries, and optionally mirrors every
// notification to an MQTT broker.
//
// Usage:
//
//	ba-assistant [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-address string       Bridge address host:port (overrides config)
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  Write protocol events to this file
//	-interactive          Enable interactive command mode
//
// Examples:
//
//	# Connect to a bridge on the default address
//	ba-assistant -interactive
//
//	# Use a config file and capture the protocol
//	ba-assistant -config /etc/ba/assistant.yaml -protocol-log /tmp/ba.blog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/broadcast-assistant/ba-go/cmd/ba-assistant/interactive"
	"github.com/broadcast-assistant/ba-go/internal/config"
	"github.com/broadcast-assistant/ba-go/internal/logging"
	"github.com/broadcast-assistant/ba-go/pkg/assistant"
	"github.com/broadcast-assistant/ba-go/pkg/bridge"
	"github.com/broadcast-assistant/ba-go/pkg/connection"
	"github.com/broadcast-assistant/ba-go/pkg/discovery"
	"github.com/broadcast-assistant/ba-go/pkg/log"
	"github.com/broadcast-assistant/ba-go/pkg/transport"
	"github.com/broadcast-assistant/ba-go/pkg/version"
)

// Flags holds command-line settings that override the config file.
type Flags struct {
	ConfigFile  string
	Address     string
	LogLevel    string
	ProtocolLog string
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.Address, "address", "", "Bridge address host:port (overrides config)")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write protocol events to this file")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Interactive mode routes log output through readline once the shell
	// exists, so logging starts on a switchable writer.
	console := &consoleWriter{w: os.Stderr}
	if cfg.Logging.Output == "stdout" {
		console.w = os.Stdout
	}
	logger, closeLog, err := newLogger(cfg, console)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("broadcast assistant starting",
		"protocol", version.Protocol, "transport", cfg.Transport.Kind)

	protoLog, closeProto, err := newProtocolLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProto()

	model := assistant.New(nil,
		assistant.WithLogger(logger.With("component", "assistant")),
		assistant.WithProtocolLogger(protoLog),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := newTransport(ctx, cfg, model, logger, protoLog)
	if err != nil {
		return err
	}
	model.SetTransport(client)
	if err := client.Start(); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	defer client.Close()

	if cfg.MQTT.Enabled {
		stop, err := startBridge(cfg, model, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if cfg.Assistant.HeartbeatInterval > 0 {
		go runHeartbeat(ctx, model, cfg.Assistant.HeartbeatInterval, logger)
	}

	if flags.Interactive {
		shell, err := interactive.New(model)
		if err != nil {
			return fmt.Errorf("create interactive shell: %w", err)
		}
		console.set(shell.Stdout())
		go shell.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return nil, err
	}

	if flags.Address != "" {
		cfg.Transport.Kind = config.TransportStream
		cfg.Transport.Address = flags.Address
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.ProtocolLog != "" {
		cfg.ProtocolLog.Path = flags.ProtocolLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, console io.Writer) (*slog.Logger, func() error, error) {
	switch cfg.Logging.Output {
	case "", "stderr", "stdout":
		return logging.NewWithWriter(cfg.Logging, version.Tool, console), func() error { return nil }, nil
	default:
		return logging.New(cfg.Logging, version.Tool)
	}
}

// newProtocolLogger captures protocol events to the configured file. At
// debug level they are also echoed to the operational log.
func newProtocolLogger(cfg *config.Config, logger *slog.Logger) (log.Logger, func() error, error) {
	var loggers []log.Logger
	closeFn := func() error { return nil }

	if cfg.ProtocolLog.Path != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog.Path)
		if err != nil {
			return nil, closeFn, err
		}
		logger.Info("protocol logging enabled", "path", cfg.ProtocolLog.Path)
		loggers = append(loggers, fl)
		closeFn = fl.Close
	}
	if level, _ := config.ParseLevel(cfg.Logging.Level); level <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger.With("component", "protocol")))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}

// client is the part of a transport client ba-assistant drives.
type client interface {
	transport.Transport
	Start() error
}

func newTransport(ctx context.Context, cfg *config.Config, model *assistant.Model, logger *slog.Logger, protoLog log.Logger) (client, error) {
	tcfg := transport.Config{
		Backoff: connection.BackoffConfig{
			Initial: cfg.Transport.Reconnect.Initial,
			Max:     cfg.Transport.Reconnect.Max,
		},
		DialTimeout: cfg.Transport.DialTimeout,
		KeepAlive: transport.KeepAliveConfig{
			Interval:  cfg.Transport.KeepAlive.Interval,
			MaxMissed: cfg.Transport.KeepAlive.MaxMissed,
		},
		Logger:         logger.With("component", "transport"),
		ProtocolLogger: protoLog,
	}

	switch cfg.Transport.Kind {
	case config.TransportWebSocket:
		return transport.NewWebSocketClient(cfg.Transport.URL, model, tcfg), nil
	case config.TransportMDNS:
		svc, err := findBridge(ctx, cfg.Transport.BrowseTimeout, logger)
		if err != nil {
			return nil, err
		}
		if svc.IsWebSocket() {
			return transport.NewWebSocketClient(svc.WebSocketURL(), model, tcfg), nil
		}
		return transport.NewStreamClient(svc.DialAddress(), model, tcfg), nil
	default:
		return transport.NewStreamClient(cfg.Transport.Address, model, tcfg), nil
	}
}

func findBridge(ctx context.Context, timeout time.Duration, logger *slog.Logger) (*discovery.BridgeService, error) {
	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{BrowseTimeout: timeout})
	defer browser.Stop()

	logger.Info("browsing for bridge", "service", discovery.ServiceType, "timeout", timeout)
	svc, err := browser.FindFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("find bridge: %w", err)
	}
	if err := version.CheckFirmware(svc.Firmware); err != nil {
		return nil, fmt.Errorf("bridge %s: %w", svc.InstanceName, err)
	}
	logger.Info("found bridge", "instance", svc.InstanceName, "address", svc.DialAddress(),
		"firmware", svc.Firmware, "model", svc.Model)
	return svc, nil
}

func startBridge(cfg *config.Config, model *assistant.Model, logger *slog.Logger) (func(), error) {
	topics := bridge.Topics{Prefix: cfg.MQTT.TopicPrefix}
	qos := byte(cfg.MQTT.QoS)

	mqttClient, err := bridge.DialMQTT(bridge.MQTTConfig{
		Broker:         cfg.MQTT.Broker,
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		Topics:         topics,
		QoS:            qos,
		ConnectTimeout: cfg.MQTT.Timeout,
		Logger:         logger.With("component", "mqtt"),
	})
	if err != nil {
		return nil, err
	}

	b := bridge.New(model, mqttClient, bridge.Config{
		Topics: topics,
		QoS:    qos,
		Logger: logger.With("component", "bridge"),
	})
	if err := b.Start(); err != nil {
		mqttClient.Close()
		return nil, err
	}

	return func() {
		if err := b.Stop(); err != nil {
			logger.Warn("stopping mqtt bridge", "error", err)
		}
		mqttClient.Close()
	}, nil
}

// runHeartbeat asks the firmware for heartbeats on every tick while the link
// is up.
func runHeartbeat(ctx context.Context, model *assistant.Model, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !model.Connected() {
				continue
			}
			if err := model.StartHeartbeat(); err != nil {
				logger.Debug("heartbeat not sent", "error", err)
			}
		}
	}
}

// consoleWriter forwards writes to a replaceable destination.
type consoleWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *consoleWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

func (c *consoleWriter) set(w io.Writer) {
	c.mu.Lock()
	c.w = w
	c.mu.Unlock()
}
