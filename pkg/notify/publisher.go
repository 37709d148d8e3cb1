// Package notify provides a typed publish/subscribe primitive and the
// alert type shared by the view models.
package notify

import "sync"

// Publisher delivers values to subscribers in subscription order.
// The zero value is ready to use.
type Publisher[T any] struct {
	mu     sync.Mutex
	subs   []subscriber[T]
	nextID uint64
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns its id (never 0) and a cancel
// function that is safe to call more than once.
func (p *Publisher[T]) Subscribe(fn func(T)) (id uint64, cancel func()) {
	p.mu.Lock()
	p.nextID++
	id = p.nextID
	p.subs = append(p.subs, subscriber[T]{id: id, fn: fn})
	p.mu.Unlock()

	return id, func() { p.unsubscribe(id) }
}

func (p *Publisher[T]) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subs {
		if s.id == id {
			p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every subscriber on the calling goroutine.
func (p *Publisher[T]) Publish(v T) {
	p.PublishExcept(0, v)
}

// PublishExcept delivers v to every subscriber but origin.
func (p *Publisher[T]) PublishExcept(origin uint64, v T) {
	p.mu.Lock()
	subs := append([]subscriber[T](nil), p.subs...)
	p.mu.Unlock()

	for _, s := range subs {
		if s.id == origin {
			continue
		}
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (p *Publisher[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
