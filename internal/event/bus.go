package event

import (
	"log/slog"
	"sync"
)

type HandlerFunc func(raw any)

type subscription struct {
	id uint64
	fn HandlerFunc
}

// Bus delivers events synchronously on the publisher's goroutine, so a
// handler observes the state machine exactly as it was when the event fired.
// A panicking handler is logged and skipped; the rest still run.
type Bus struct {
	log *slog.Logger

	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription
}

type BusOption func(*Bus)

// WithLogger sets where handler panics are reported.
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		log:      slog.Default(),
		handlers: make(map[string][]subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for eventName and returns a func that removes
// it again. Calling the returned func more than once is harmless.
func (b *Bus) Subscribe(eventName string, handler HandlerFunc) (unsubscribe func()) {
	if b == nil || handler == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[eventName] = append(b.handlers[eventName], subscription{id: id, fn: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventName, id) })
	}
}

func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[eventName]
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		kept := make([]subscription, 0, len(subs)-1)
		kept = append(kept, subs[:i]...)
		kept = append(kept, subs[i+1:]...)
		if len(kept) == 0 {
			delete(b.handlers, eventName)
		} else {
			b.handlers[eventName] = kept
		}
		return
	}
}

// Publish is a no-op on a nil bus. Handlers subscribed or removed while a
// publish is running take effect from the next publish.
func (b *Bus) Publish(eventName string, evt any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := b.handlers[eventName]
	b.mu.RUnlock()

	for _, sub := range subs {
		b.invoke(eventName, sub.fn, evt)
	}
}

func (b *Bus) invoke(eventName string, h HandlerFunc, evt any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event handler panicked", "event", eventName, "panic", r)
		}
	}()
	h(evt)
}
