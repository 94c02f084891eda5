// Package notify fans vote updates out to observers: WebSocket clients,
// Kafka and anything else that registers with the Publisher.
package notify

import (
	"sync"

	"token-board/internal/domain"
)

// Observer receives vote updates. Notify must not block.
type Observer interface {
	Notify(update domain.VoteUpdate)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(update domain.VoteUpdate)

// Notify calls f(update).
func (f ObserverFunc) Notify(update domain.VoteUpdate) { f(update) }

// Publisher delivers every published update to all subscribed observers.
// It never closes or owns its observers.
type Publisher struct {
	mu        sync.RWMutex
	nextID    uint64
	observers map[uint64]Observer
}

// NewPublisher creates an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{
		observers: make(map[uint64]Observer),
	}
}

// Subscribe registers o and returns a func that removes it.
func (p *Publisher) Subscribe(o Observer) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = o
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.observers, id)
			p.mu.Unlock()
		})
	}
}

// Publish delivers update to every observer. Delivery is best-effort.
func (p *Publisher) Publish(update domain.VoteUpdate) {
	p.mu.RLock()
	observers := make([]Observer, 0, len(p.observers))
	for _, o := range p.observers {
		observers = append(observers, o)
	}
	p.mu.RUnlock()

	for _, o := range observers {
		o.Notify(update)
	}
}

// Len returns the number of subscribed observers.
func (p *Publisher) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.observers)
}
