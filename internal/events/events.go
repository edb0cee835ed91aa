// Package events carries letter delivery notifications to whoever is
// listening: an inbox view, a broker, a log.
package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Source says what noticed the delivery.
type Source string

const (
	SourceReconcile Source = "reconcile"
	SourceTrigger   Source = "trigger"
)

// DeliveryEvent announces that a letter reached its delivery time.
type DeliveryEvent struct {
	LetterID    string    `json:"letter_id"`
	Subject     string    `json:"subject,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
	Source      Source    `json:"source"`
	Repeat      bool      `json:"repeat,omitempty"` // a daily reminder for an already delivered letter
}

// Publisher sends delivery events somewhere.
type Publisher interface {
	PublishDelivery(ctx context.Context, evt DeliveryEvent) error
}

// Bus is an in-process fan-out. Each subscriber gets its own buffered channel
// and Publish never blocks: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan DeliveryEvent
	nextID  int
	buffer  int
	dropped atomic.Int64
}

// NewBus creates a bus whose subscribers buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{subs: make(map[int]chan DeliveryEvent), buffer: buffer}
}

// Subscribe returns a channel of future events and a func that ends the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan DeliveryEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan DeliveryEvent, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// PublishDelivery hands evt to every subscriber that has room.
func (b *Bus) PublishDelivery(_ context.Context, evt DeliveryEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Dropped is the number of events a full subscriber missed.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) PublishDelivery(ctx context.Context, evt DeliveryEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishDelivery(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
