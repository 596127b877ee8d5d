package waypoints

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/publisher"
)

const (
	// DefaultAction is the action name the follower submits goals to.
	DefaultAction = "follow_gps_waypoints"
	// ServerOnline is the retained payload a server publishes on <action>/server while it is up.
	ServerOnline = "online"

	eventBuffer         = 16
	unsubscribeTimeout  = time.Second
	disconnectQuiesceMs = 250
)

// MQTTActionClient talks to a waypoint following server over MQTT. Goals are published on
// <action>/goal and the server answers on <action>/status/<goal id>.
type MQTTActionClient struct {
	cfg    publisher.MQTTConfig
	action string
	client mqtt.Client
	logger logging.Logger

	mu        sync.Mutex
	connected bool
	closed    bool
	topics    []string
	streams   []chan Event
}

// NewMQTTActionClient returns a client that connects to cfg.Broker on first use.
func NewMQTTActionClient(cfg publisher.MQTTConfig, action string, logger logging.Logger) (*MQTTActionClient, error) {
	if err := cfg.Validate("mqtt"); err != nil {
		return nil, err
	}
	return NewMQTTActionClientFromClient(cfg, action, mqtt.NewClient(cfg.ClientOptions()), logger), nil
}

// NewMQTTActionClientFromClient returns a client over an existing MQTT client.
func NewMQTTActionClientFromClient(cfg publisher.MQTTConfig, action string, client mqtt.Client, logger logging.Logger) *MQTTActionClient {
	if action == "" {
		action = DefaultAction
	}
	return &MQTTActionClient{cfg: cfg, action: action, client: client, logger: logger}
}

func (c *MQTTActionClient) topic(parts ...string) string {
	t := c.action
	for _, p := range parts {
		t += "/" + p
	}
	return c.cfg.Topic(t)
}

func (c *MQTTActionClient) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("action client is closed")
	}
	if c.connected {
		return nil
	}
	if err := publisher.Connect(ctx, c.cfg, c.client); err != nil {
		return err
	}
	c.connected = true
	return nil
}

func waitToken(ctx context.Context, token mqtt.Token, what string) error {
	select {
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "timed out %s", what)
	case <-token.Done():
	}
	return errors.Wrapf(token.Error(), "failed %s", what)
}

// WaitForServer waits for the server's retained online message.
func (c *MQTTActionClient) WaitForServer(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	topic := c.topic("server")
	online := make(chan struct{})
	var once sync.Once
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if string(msg.Payload()) == ServerOnline {
			once.Do(func() { close(online) })
		}
	}
	if err := waitToken(ctx, c.client.Subscribe(topic, 1, handler), "subscribing to "+topic); err != nil {
		return err
	}
	defer func() {
		if !c.client.Unsubscribe(topic).WaitTimeout(unsubscribeTimeout) {
			c.logger.Debugw("timed out unsubscribing", "topic", topic)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-online:
		c.logger.Debugw("waypoint following server is online", "action", c.action)
		return nil
	}
}

// SendGoal subscribes to the goal's status topic and then publishes the goal.
func (c *MQTTActionClient) SendGoal(ctx context.Context, goal Goal) (<-chan Event, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(goal)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal goal")
	}

	events := make(chan Event, eventBuffer)
	statusTopic := c.topic("status", goal.ID.String())
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var ev Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			c.logger.Warnw("dropping malformed goal event", "topic", msg.Topic(), "error", err)
			return
		}
		if ev.GoalID == uuid.Nil {
			ev.GoalID = goal.ID
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		select {
		case events <- ev:
		default:
			c.logger.Warnw("dropping goal event, nobody is reading", "goal", goal.ID, "status", ev.Status)
		}
	}
	if err := waitToken(ctx, c.client.Subscribe(statusTopic, 1, handler), "subscribing to "+statusTopic); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.topics = append(c.topics, statusTopic)
	c.streams = append(c.streams, events)
	c.mu.Unlock()

	goalTopic := c.topic("goal")
	if err := waitToken(ctx, c.client.Publish(goalTopic, 1, false, payload), "publishing to "+goalTopic); err != nil {
		return nil, err
	}
	return events, nil
}

// Close unsubscribes, disconnects and closes every event channel handed out.
func (c *MQTTActionClient) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	// Handlers check closed under mu, so nothing is sent on the streams after this.
	c.closed = true
	connected, topics, streams := c.connected, c.topics, c.streams
	c.streams = nil
	c.mu.Unlock()

	var err error
	if connected {
		if len(topics) != 0 {
			token := c.client.Unsubscribe(topics...)
			if !token.WaitTimeout(unsubscribeTimeout) {
				err = errors.New("timed out unsubscribing from goal status")
			} else {
				err = token.Error()
			}
		}
		c.client.Disconnect(disconnectQuiesceMs)
	}
	for _, events := range streams {
		close(events)
	}
	return err
}
