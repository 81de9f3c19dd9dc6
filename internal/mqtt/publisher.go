package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"airquality-gateway/internal/airquality"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesceMs   = 250
	qos                   = byte(0)
)

// brokerClient is the part of the paho client the publisher needs.
type brokerClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Options struct {
	Host     string
	Port     int
	Topic    string
	ClientID string

	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Publisher opens a fresh broker connection for every message and closes it
// once the message is handed off.
type Publisher struct {
	opts      Options
	logger    *slog.Logger
	newClient func(*mqtt.ClientOptions) brokerClient
}

func NewPublisher(opts Options, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	return &Publisher{
		opts:   opts,
		logger: logger,
		newClient: func(o *mqtt.ClientOptions) brokerClient {
			return mqtt.NewClient(o)
		},
	}
}

// Broker returns the broker URL publishes go to.
func (p *Publisher) Broker() string {
	return fmt.Sprintf("tcp://%s:%d", p.opts.Host, p.opts.Port)
}

func (p *Publisher) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.Broker())
	opts.SetClientID(p.opts.ClientID)

	// One connection per message; nothing to resume or reconnect.
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(p.opts.ConnectTimeout)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.logger.Debug("mqtt connected", "broker", p.Broker(), "client_id", p.opts.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Warn("mqtt connection lost", "error", err)
	})
	return opts
}

// Publish serialises payload as JSON and publishes it to the configured topic.
// Every failure wraps airquality.ErrPublish.
func (p *Publisher) Publish(ctx context.Context, payload airquality.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", airquality.ErrPublish, err)
	}

	client := p.newClient(p.clientOptions())

	if err := waitToken(ctx, client.Connect(), p.opts.ConnectTimeout); err != nil {
		// Stops paho's internal goroutines if the attempt is still running.
		client.Disconnect(0)
		return fmt.Errorf("%w: mqtt connect %s: %v", airquality.ErrPublish, p.Broker(), err)
	}
	defer client.Disconnect(disconnectQuiesceMs)

	topic := p.opts.Topic
	if err := waitToken(ctx, client.Publish(topic, qos, false, data), p.opts.PublishTimeout); err != nil {
		p.logger.Error("failed to publish payload", "topic", topic, "error", err)
		return fmt.Errorf("%w: mqtt publish to %s: %v", airquality.ErrPublish, topic, err)
	}

	p.logger.Debug("published payload", "topic", topic, "payload", string(data))
	return nil
}

// waitToken waits for tok to complete, giving up after timeout or when ctx is
// done.
func waitToken(ctx context.Context, tok mqtt.Token, timeout time.Duration) error {
	const poll = 200 * time.Millisecond
	deadline := time.Now().Add(timeout)
	for {
		if tok.WaitTimeout(poll) {
			return tok.Error()
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s", timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
