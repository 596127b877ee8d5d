package inject

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTClient is an injectable mqtt.Client.
type MQTTClient struct {
	mqtt.Client
	ConnectFunc     func() mqtt.Token
	DisconnectFunc  func(quiesce uint)
	PublishFunc     func(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	SubscribeFunc   func(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	UnsubscribeFunc func(topics ...string) mqtt.Token
}

// Connect calls the injected ConnectFunc or the real variant.
func (c *MQTTClient) Connect() mqtt.Token {
	if c.ConnectFunc == nil {
		return c.Client.Connect()
	}
	return c.ConnectFunc()
}

// Disconnect calls the injected DisconnectFunc or the real variant.
func (c *MQTTClient) Disconnect(quiesce uint) {
	if c.DisconnectFunc == nil {
		c.Client.Disconnect(quiesce)
		return
	}
	c.DisconnectFunc(quiesce)
}

// Publish calls the injected PublishFunc or the real variant.
func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if c.PublishFunc == nil {
		return c.Client.Publish(topic, qos, retained, payload)
	}
	return c.PublishFunc(topic, qos, retained, payload)
}

// Subscribe calls the injected SubscribeFunc or the real variant.
func (c *MQTTClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	if c.SubscribeFunc == nil {
		return c.Client.Subscribe(topic, qos, callback)
	}
	return c.SubscribeFunc(topic, qos, callback)
}

// Unsubscribe calls the injected UnsubscribeFunc or the real variant.
func (c *MQTTClient) Unsubscribe(topics ...string) mqtt.Token {
	if c.UnsubscribeFunc == nil {
		return c.Client.Unsubscribe(topics...)
	}
	return c.UnsubscribeFunc(topics...)
}

// MQTTToken is an mqtt.Token that is already complete.
type MQTTToken struct {
	Err      error
	TimedOut bool

	once sync.Once
	done chan struct{}
}

// Wait reports whether the token completed.
func (t *MQTTToken) Wait() bool {
	return !t.TimedOut
}

// WaitTimeout reports whether the token completed.
func (t *MQTTToken) WaitTimeout(time.Duration) bool {
	return !t.TimedOut
}

// Done returns a closed channel unless the token is marked as timed out.
func (t *MQTTToken) Done() <-chan struct{} {
	t.once.Do(func() {
		t.done = make(chan struct{})
		if !t.TimedOut {
			close(t.done)
		}
	})
	return t.done
}

// Error returns Err.
func (t *MQTTToken) Error() error {
	return t.Err
}

// MQTTMessage is an mqtt.Message with fixed contents.
type MQTTMessage struct {
	TopicName string
	Body      []byte
}

// Duplicate is always false.
func (m *MQTTMessage) Duplicate() bool { return false }

// Qos is always 0.
func (m *MQTTMessage) Qos() byte { return 0 }

// Retained is always false.
func (m *MQTTMessage) Retained() bool { return false }

// Topic returns TopicName.
func (m *MQTTMessage) Topic() string { return m.TopicName }

// MessageID is always 0.
func (m *MQTTMessage) MessageID() uint16 { return 0 }

// Payload returns Body.
func (m *MQTTMessage) Payload() []byte { return m.Body }

// Ack does nothing.
func (m *MQTTMessage) Ack() {}
