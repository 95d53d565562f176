// Package realtime delivers node status events to subscribers. The engine
// publishes loading/success/error per node; a UI subscribes to the channel
// named after the node type and filters by node id.
package realtime

import (
	"context"
	"sync"

	"github.com/weftlabs/weft/pkg/api"
)

// MemoryPublisher is an in-process api.Publisher. Events are fanned out to
// subscribers over buffered channels; a slow subscriber drops events rather
// than blocking the engine, matching the fire-and-forget contract.
type MemoryPublisher struct {
	mu   sync.RWMutex
	subs map[string][]chan api.StatusEvent
}

var _ api.Publisher = (*MemoryPublisher)(nil)

// NewMemoryPublisher creates a MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{subs: make(map[string][]chan api.StatusEvent)}
}

func subKey(channel, topic string) string {
	return channel + "/" + topic
}

// Publish delivers event to every subscriber of channel+topic. It never
// fails and never blocks.
func (p *MemoryPublisher) Publish(ctx context.Context, channel, topic string, event api.StatusEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ch := range p.subs[subKey(channel, topic)] {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full: drop rather than stall the run.
		}
	}
	return nil
}

// Subscribe returns a channel of events for channel+topic and a cancel
// function that closes the subscription.
func (p *MemoryPublisher) Subscribe(channel, topic string) (<-chan api.StatusEvent, func()) {
	ch := make(chan api.StatusEvent, 64)
	key := subKey(channel, topic)

	p.mu.Lock()
	p.subs[key] = append(p.subs[key], ch)
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		subs := p.subs[key]
		for i, c := range subs {
			if c == ch {
				p.subs[key] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}
