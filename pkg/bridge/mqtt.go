package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connection constants.
const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 500 // milliseconds
	defaultKeepAlive         = 30 * time.Second
	maxQoS                   = 2
)

// MessageHandler receives one MQTT message. Returned errors are logged.
type MessageHandler func(topic string, payload []byte) error

// Broker is the MQTT surface the bridge needs. Implemented by MQTTClient.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. "tcp://localhost:1883".
	Broker   string
	ClientID string
	Username string
	Password string

	// Topics locates the presence topic used for the last will.
	Topics Topics
	QoS    byte

	// ConnectTimeout bounds the initial connection (default: 10s).
	ConnectTimeout time.Duration

	Logger *slog.Logger
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MQTTClient wraps paho.mqtt.golang. Subscriptions are restored after
// every reconnect.
type MQTTClient struct {
	client pahomqtt.Client
	cfg    MQTTConfig
	logger *slog.Logger

	subMu         sync.RWMutex
	subscriptions map[string]subscription
}

var _ Broker = (*MQTTClient)(nil)

// DialMQTT connects to the broker and publishes the online status.
func DialMQTT(cfg MQTTConfig) (*MQTTClient, error) {
	if cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	c := &MQTTClient{
		cfg:           cfg,
		logger:        cfg.Logger,
		subscriptions: make(map[string]subscription),
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(cfg.Topics.Status(), statusPayload("offline", cfg.ClientID, "unexpected_disconnect"), 1, true)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.logger.Info("mqtt connected", "broker", cfg.Broker)
		c.restoreSubscriptions()
		c.client.Publish(cfg.Topics.Status(), 1, true, statusPayload("online", cfg.ClientID, ""))
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

// IsConnected reports whether the broker connection is up.
func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnected()
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *MQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !c.client.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for topic, which may contain wildcards.
func (c *MQTTClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Unsubscribe removes the subscription for topic.
func (c *MQTTClient) Unsubscribe(topic string) error {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	token := c.client.Unsubscribe(topic)
	token.WaitTimeout(defaultPublishTimeout)
	return token.Error()
}

// Close publishes the offline status and disconnects.
func (c *MQTTClient) Close() error {
	if c.client.IsConnected() {
		token := c.client.Publish(c.cfg.Topics.Status(), 1, true, statusPayload("offline", c.cfg.ClientID, "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

func (c *MQTTClient) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for topic, sub := range c.subscriptions {
		c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// wrapHandler adds panic recovery and error logging.
func (c *MQTTClient) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("mqtt handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("mqtt handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}

func statusPayload(status, clientID, reason string) string {
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`,
			status, clientID, time.Now().UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`,
		status, clientID, reason, time.Now().UTC().Format(time.RFC3339))
}
