// Copyright (c) 2025 HYPR. PTE. LTD.
//
// Business Source License 1.1
// See LICENSE file in the project root for details.

package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/teople1/teople1/internal/server/eventbus"
)

// Bus is an in-memory, single-process event bus. Slow subscribers miss events
// rather than blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]chan<- any
}

var _ eventbus.Bus = (*Bus)(nil)

// New creates a new Bus instance.
func New() *Bus {
	return &Bus{topics: make(map[string][]chan<- any)}
}

// Publish delivers payload to every subscriber of topic that has room.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.RLock()
	subs := slices.Clone(b.topics[topic])
	b.mu.RUnlock()

	for _, ch := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers ch for topic. The returned function may be called more
// than once.
func (b *Bus) Subscribe(topic string, ch chan<- any) (func(), error) {
	if ch == nil {
		return nil, errors.New("eventbus: channel must not be nil")
	}
	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], ch)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, ch) })
	}, nil
}

func (b *Bus) remove(topic string, ch chan<- any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[topic]
	if i := slices.Index(subs, ch); i >= 0 {
		b.topics[topic] = slices.Delete(slices.Clone(subs), i, i+1)
	}
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}
