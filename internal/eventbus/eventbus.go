// Package eventbus implements C12: a named-event, in-process pub/sub
// where each subscriber gets its own buffered channel and dispatch
// goroutine, so a slow or panicking subscriber can never block or
// break delivery to the others.
package eventbus

import (
	"log"
	"sync"

	"scanner-go/internal/util"
)

const subscriberQueueSize = 64

// Event names recognized by the scanner.
const (
	ScannerStart    = "scanner:start"
	ScannerReady    = "scanner:ready"
	ScannerStop     = "scanner:stop"
	MarketAdded     = "market:added"
	MarketRemoved   = "market:removed"
	SignalEnter     = "signal:enter"
	CycleComplete   = "cycle:complete"
	ErrorEvent      = "error"
)

// Handler processes one event payload. Panics are recovered and
// logged by the bus; they never propagate to the emitter or to other
// subscribers.
type Handler func(payload any)

type subscriber struct {
	queue chan any
}

// Bus fans out emitted events to all subscribers of that event name.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]*subscriber)}
}

// Subscribe registers handler for event, returning an unsubscribe func.
// Each subscriber runs on its own goroutine with its own queue; events
// for that subscriber are delivered in emission order.
func (b *Bus) Subscribe(event string, handler Handler) func() {
	sub := &subscriber{queue: make(chan any, subscriberQueueSize)}

	b.mu.Lock()
	b.subscribers[event] = append(b.subscribers[event], sub)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range sub.queue {
			dispatch(event, handler, payload)
		}
	}()

	return func() {
		b.mu.Lock()
		subs := b.subscribers[event]
		for i, s := range subs {
			if s == sub {
				b.subscribers[event] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(sub.queue)
	}
}

func dispatch(event string, handler Handler, payload any) {
	defer util.RecoverAndLog("eventbus subscriber: " + event)
	handler(payload)
}

// Emit delivers payload to every current subscriber of event. A
// subscriber whose queue is full has the event dropped for it rather
// than blocking the emitter — per spec.md §4.12's no-back-pressure
// contract.
func (b *Bus) Emit(event string, payload any) {
	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subscribers[event]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.queue <- payload:
		default:
			log.Printf("⚠️  eventbus: dropping %s event, subscriber queue full", event)
		}
	}
}
