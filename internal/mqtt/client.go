package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
)

// client implements the Client interface on top of paho.
type client struct {
	config    Config
	paho      paho.Client
	newClient func(*paho.ClientOptions) paho.Client
	observer  Observer
	log       logger.Logger
	mu        sync.Mutex
}

// Option configures a client
type Option func(*client)

// WithObserver reports connection state and publish latency, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(c *client) {
		if o != nil {
			c.observer = o
		}
	}
}

// withPahoFactory replaces paho.NewClient in tests.
func withPahoFactory(fn func(*paho.ClientOptions) paho.Client) Option {
	return func(c *client) { c.newClient = fn }
}

// NewClient creates a new MQTT client. Zero timeouts take the defaults.
func NewClient(cfg Config, log logger.Logger, opts ...Option) Client {
	defaults := DefaultConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = defaults.ClientID
	}
	if cfg.Topic == "" {
		cfg.Topic = defaults.Topic
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = defaults.DisconnectTimeout
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	c := &client{
		config:    cfg,
		newClient: paho.NewClient,
		observer:  noopObserver{},
		log:       log.Module("mqtt"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect resolves the broker host and connects. paho reconnects on its own
// after a connection loss.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Host == "" {
		return errors.Newf("invalid broker URL %q", c.config.Broker).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(fmt.Errorf("failed to resolve hostname %s: %w", host, err)).
				Component("mqtt").
				Category(errors.CategoryMQTTConnection).
				Context("broker", c.config.Broker).
				Build()
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.paho = c.newClient(opts)

	token := c.paho.Connect()
	if err := wait(ctx, token, c.config.ConnectTimeout); err != nil {
		return errors.New(fmt.Errorf("connection error: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.config.Broker).
			Build()
	}

	c.observer.UpdateConnectionStatus(true)
	return nil
}

// Publish sends payload to topic, or to the configured topic when topic is empty.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if topic == "" {
		topic = c.config.Topic
	}
	if !c.isConnected() {
		err := errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
		c.observer.ObservePublish(0, 0, err)
		return err
	}

	start := time.Now()
	token := c.paho.Publish(topic, 0, c.config.Retain, payload)
	err := wait(ctx, token, c.config.PublishTimeout)
	c.observer.ObservePublish(len(payload), time.Since(start), err)
	if err != nil {
		return errors.New(fmt.Errorf("publish to %s: %w", topic, err)).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	c.log.Debug("published event", logger.String("topic", topic), logger.Int("bytes", len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected()
}

func (c *client) isConnected() bool {
	return c.paho != nil && c.paho.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isConnected() {
		c.paho.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.observer.UpdateConnectionStatus(false)
	}
}

func (c *client) onConnect(paho.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", c.config.Broker))
	c.observer.UpdateConnectionStatus(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost", logger.String("broker", c.config.Broker), logger.Error(err))
	c.observer.UpdateConnectionStatus(false)
}

// wait blocks until token completes, ctx ends or timeout passes.
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.NewStd("timeout waiting for broker")
	}
}
