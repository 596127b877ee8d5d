package collector

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/pursuit/gps"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/publisher"
)

const (
	// DefaultFixTopic carries gps.Fix JSON.
	DefaultFixTopic = "gps/fix"
	// DefaultOrientationTopic carries gps.Orientation JSON.
	DefaultOrientationTopic = "imu/orientation"

	subscribeTimeout    = 5 * time.Second
	disconnectQuiesceMs = 250
)

// MQTTSource feeds a collector from JSON samples published on two MQTT topics.
type MQTTSource struct {
	cfg              publisher.MQTTConfig
	fixTopic         string
	orientationTopic string
	client           mqtt.Client
	collector        *Collector
	logger           logging.Logger

	mu     sync.Mutex
	opened bool
}

// NewMQTTSource returns a source that connects to cfg.Broker on Open. Empty topics take the
// defaults; both are joined with the configured prefix.
func NewMQTTSource(cfg publisher.MQTTConfig, fixTopic, orientationTopic string, c *Collector, logger logging.Logger) (*MQTTSource, error) {
	if err := cfg.Validate("mqtt"); err != nil {
		return nil, err
	}
	return NewMQTTSourceFromClient(cfg, fixTopic, orientationTopic, mqtt.NewClient(cfg.ClientOptions()), c, logger), nil
}

// NewMQTTSourceFromClient returns a source over an existing client.
func NewMQTTSourceFromClient(
	cfg publisher.MQTTConfig,
	fixTopic, orientationTopic string,
	client mqtt.Client,
	c *Collector,
	logger logging.Logger,
) *MQTTSource {
	if fixTopic == "" {
		fixTopic = DefaultFixTopic
	}
	if orientationTopic == "" {
		orientationTopic = DefaultOrientationTopic
	}
	return &MQTTSource{
		cfg:              cfg,
		fixTopic:         cfg.Topic(fixTopic),
		orientationTopic: cfg.Topic(orientationTopic),
		client:           client,
		collector:        c,
		logger:           logger,
	}
}

// Open connects and subscribes to both topics.
func (s *MQTTSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return errors.New("mqtt source already open")
	}
	if err := publisher.Connect(ctx, s.cfg, s.client); err != nil {
		return err
	}
	qos := byte(s.cfg.QoS)
	if err := subscribe(s.client, s.fixTopic, qos, s.onFix); err != nil {
		s.client.Disconnect(disconnectQuiesceMs)
		return err
	}
	if err := subscribe(s.client, s.orientationTopic, qos, s.onOrientation); err != nil {
		s.client.Disconnect(disconnectQuiesceMs)
		return err
	}
	s.opened = true
	s.logger.Infow("listening for gps samples", "fix_topic", s.fixTopic, "orientation_topic", s.orientationTopic)
	return nil
}

func subscribe(client mqtt.Client, topic string, qos byte, handler mqtt.MessageHandler) error {
	token := client.Subscribe(topic, qos, handler)
	if !token.WaitTimeout(subscribeTimeout) {
		return errors.Errorf("timed out subscribing to %q", topic)
	}
	return errors.Wrapf(token.Error(), "failed to subscribe to %q", topic)
}

func (s *MQTTSource) onFix(_ mqtt.Client, msg mqtt.Message) {
	var f gps.Fix
	if err := json.Unmarshal(msg.Payload(), &f); err != nil {
		s.logger.Warnw("dropping malformed fix", "topic", msg.Topic(), "error", err)
		return
	}
	s.collector.AddFix(f)
}

func (s *MQTTSource) onOrientation(_ mqtt.Client, msg mqtt.Message) {
	var o gps.Orientation
	if err := json.Unmarshal(msg.Payload(), &o); err != nil {
		s.logger.Warnw("dropping malformed orientation", "topic", msg.Topic(), "error", err)
		return
	}
	s.collector.AddOrientation(o)
}

// Close unsubscribes and disconnects.
func (s *MQTTSource) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil
	}
	s.opened = false
	token := s.client.Unsubscribe(s.fixTopic, s.orientationTopic)
	var err error
	if !token.WaitTimeout(subscribeTimeout) {
		err = errors.New("timed out unsubscribing")
	}
	err = multierr.Combine(err, token.Error())
	s.client.Disconnect(disconnectQuiesceMs)
	return err
}
