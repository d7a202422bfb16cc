// Package bus is a typed publish/subscribe channel. A Topic is owned by the
// component that creates it and handed by reference to publishers and
// subscribers; there is no global registry.
package bus

import "sync"

// Topic delivers events of type E to its subscribers synchronously, in
// subscription order.
type Topic[E any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(E)
	ids  []int
}

// NewTopic returns an empty topic.
func NewTopic[E any]() *Topic[E] {
	return &Topic[E]{subs: make(map[int]func(E))}
}

// Subscribe registers fn and returns a function that removes it.
func (t *Topic[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.subs[id] = fn
	t.ids = append(t.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			for i, v := range t.ids {
				if v == id {
					t.ids = append(t.ids[:i:i], t.ids[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every subscriber with e. Subscribers may publish or
// unsubscribe from inside the callback.
func (t *Topic[E]) Publish(e E) {
	t.mu.RLock()
	fns := make([]func(E), 0, len(t.ids))
	for _, id := range t.ids {
		fns = append(fns, t.subs[id])
	}
	t.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// Len returns the number of subscribers.
func (t *Topic[E]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}
