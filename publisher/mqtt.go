package publisher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/utils"
)

const (
	defaultQueueSize      = 64
	defaultConnectTimeout = 5 * time.Second
	publishTimeout        = time.Second
	disconnectQuiesceMs   = 250
)

// MQTTConfig configures an MQTT sink.
type MQTTConfig struct {
	Broker            string  `json:"broker"`
	ClientID          string  `json:"client_id,omitempty"`
	TopicPrefix       string  `json:"topic_prefix,omitempty"`
	QoS               int     `json:"qos,omitempty"`
	QueueSize         int     `json:"queue_size,omitempty"`
	ConnectTimeoutSec float64 `json:"connect_timeout_sec,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *MQTTConfig) Validate(path string) error {
	if cfg.Broker == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "broker")
	}
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return errors.Errorf("%s: qos must be 0, 1 or 2, got %d", path, cfg.QoS)
	}
	if cfg.QueueSize < 0 {
		return errors.Errorf("%s: queue_size cannot be negative", path)
	}
	if cfg.ConnectTimeoutSec < 0 {
		return errors.Errorf("%s: connect_timeout_sec cannot be negative", path)
	}
	return nil
}

// ClientOptions builds the paho options for this config.
func (cfg *MQTTConfig) ClientOptions() *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false)
}

// Topic joins the configured prefix with topic.
func (cfg *MQTTConfig) Topic(topic string) string {
	if cfg.TopicPrefix == "" {
		return topic
	}
	return cfg.TopicPrefix + "/" + topic
}

func (cfg *MQTTConfig) connectTimeout() time.Duration {
	if cfg.ConnectTimeoutSec == 0 {
		return defaultConnectTimeout
	}
	return utils.SecondsToDuration(cfg.ConnectTimeoutSec)
}

// Connect connects client to the configured broker, giving up after the connect timeout or when
// ctx's deadline passes, whichever is sooner.
func Connect(ctx context.Context, cfg MQTTConfig, client mqtt.Client) error {
	timeout := cfg.connectTimeout()
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return errors.Errorf("timed out connecting to mqtt broker %s after %s", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "failed to connect to mqtt broker %s", cfg.Broker)
	}
	return nil
}

type outgoing struct {
	topic   string
	payload []byte
}

// MQTTPublisher publishes JSON payloads to an MQTT broker. Publish enqueues into a bounded queue
// drained by a background worker; when the queue is full the message is dropped and counted.
type MQTTPublisher struct {
	cfg    MQTTConfig
	client mqtt.Client
	logger logging.Logger

	mu      sync.Mutex
	queue   chan outgoing
	workers utils.StoppableWorkers

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewMQTTPublisher creates a sink that connects to cfg.Broker on Open.
func NewMQTTPublisher(cfg MQTTConfig, logger logging.Logger) (*MQTTPublisher, error) {
	if err := cfg.Validate("mqtt"); err != nil {
		return nil, err
	}
	return NewMQTTPublisherFromClient(cfg, mqtt.NewClient(cfg.ClientOptions()), logger), nil
}

// NewMQTTPublisherFromClient creates a sink over an existing client.
func NewMQTTPublisherFromClient(cfg MQTTConfig, client mqtt.Client, logger logging.Logger) *MQTTPublisher {
	return &MQTTPublisher{cfg: cfg, client: client, logger: logger}
}

// Open connects to the broker and starts the drain worker.
func (p *MQTTPublisher) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue != nil {
		return errors.New("mqtt publisher already open")
	}

	if err := Connect(ctx, p.cfg, p.client); err != nil {
		return err
	}

	size := p.cfg.QueueSize
	if size == 0 {
		size = defaultQueueSize
	}
	queue := make(chan outgoing, size)
	p.queue = queue
	p.workers = utils.NewStoppableWorkers(func(ctx context.Context) {
		p.drain(ctx, queue)
	})
	p.logger.Debugw("mqtt publisher open", "broker", p.cfg.Broker, "queue_size", size)
	return nil
}

func (p *MQTTPublisher) drain(ctx context.Context, queue <-chan outgoing) {
	qos := byte(p.cfg.QoS)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-queue:
			token := p.client.Publish(msg.topic, qos, false, msg.payload)
			if !token.WaitTimeout(publishTimeout) {
				p.failed.Inc()
				p.logger.Debugw("mqtt publish timed out", "topic", msg.topic)
				continue
			}
			if err := token.Error(); err != nil {
				p.failed.Inc()
				p.logger.Debugw("mqtt publish failed", "topic", msg.topic, "error", err)
				continue
			}
			p.published.Inc()
		}
	}
}

// Publish marshals payload to JSON and enqueues it without blocking.
func (p *MQTTPublisher) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "cannot marshal payload for %q", topic)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue == nil {
		return errors.Errorf("cannot publish to %q, mqtt publisher is closed", topic)
	}
	select {
	case p.queue <- outgoing{topic: p.cfg.Topic(topic), payload: data}:
		return nil
	default:
		p.dropped.Inc()
		return errors.Errorf("mqtt queue full, dropped message for %q", topic)
	}
}

// Close stops the drain worker and disconnects. Messages still queued are discarded.
func (p *MQTTPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue == nil {
		return nil
	}
	p.workers.Stop()
	p.client.Disconnect(disconnectQuiesceMs)
	p.queue = nil
	p.workers = nil
	p.logger.Debugw("mqtt publisher closed",
		"published", p.published.Load(), "dropped", p.dropped.Load(), "failed", p.failed.Load())
	return nil
}

// Stats returns how many messages were delivered, dropped on a full queue, and failed to send.
func (p *MQTTPublisher) Stats() (published, dropped, failed uint64) {
	return p.published.Load(), p.dropped.Load(), p.failed.Load()
}
