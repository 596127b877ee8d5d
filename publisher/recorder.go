package publisher

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Message is a single recorded publication.
type Message struct {
	Topic   string
	Payload interface{}
}

// Recorder keeps every publication in memory. It is used by tests and by hosts that want to
// inspect what a controller reported.
type Recorder struct {
	mu       sync.Mutex
	open     bool
	opens    int
	closes   int
	messages []Message
}

// NewRecorder returns an empty, closed Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Open starts a session.
func (r *Recorder) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		return errors.New("recorder already open")
	}
	r.open = true
	r.opens++
	return nil
}

// Publish records the payload. Publishing while closed is an error.
func (r *Recorder) Publish(topic string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return errors.Errorf("cannot publish to %q on a closed recorder", topic)
	}
	r.messages = append(r.messages, Message{Topic: topic, Payload: payload})
	return nil
}

// Close ends the session. Closing a closed recorder is a no-op.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		r.open = false
		r.closes++
	}
	return nil
}

// IsOpen reports whether a session is active.
func (r *Recorder) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// Sessions returns how many times the recorder was opened and closed.
func (r *Recorder) Sessions() (opens, closes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens, r.closes
}

// Messages returns the recorded messages for topic, or every message when topic is empty.
func (r *Recorder) Messages(topic string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if topic == "" || m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
