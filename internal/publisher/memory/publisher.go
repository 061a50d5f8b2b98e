// Package memory contains an in-memory publisher for tests and for running
// without a Pub/Sub topic configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	Topic   string
	Payload any
}

var _ content.Publisher = (*Publisher)(nil)

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the message and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.messages)), nil
}

// Messages returns the recorded publishes.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// Events returns the recorded convergence events, skipping any payloads of
// other types.
func (p *Publisher) Events() []content.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []content.Event
	for _, msg := range p.messages {
		if ev, ok := msg.Payload.(content.Event); ok {
			out = append(out, ev)
		}
	}
	return out
}
