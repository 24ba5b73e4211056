// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed is returned when operating on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscriptionNotFound is returned when unsubscribing with an unknown ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// MemoryBusConfig configures the memory event bus.
type MemoryBusConfig struct {
	HistoryMaxEvents int
	HistoryMaxAge    time.Duration
}

// MemoryEventBus is an in-memory EventBus.
type MemoryEventBus struct {
	mu             sync.RWMutex
	subscriptions  map[SubscriptionID]*subscription
	defaultSession string

	// pubMu keeps Seq assignment and history order identical.
	pubMu   sync.Mutex
	seq     uint64
	history *EventHistory
	matcher *PatternMatcher

	closed     atomic.Bool
	wg         sync.WaitGroup
	stopPruner chan struct{}
}

type subscription struct {
	id      SubscriptionID
	pattern CompiledPattern
	handler EventHandler
	async   bool
	ch      chan Event
	stopCh  chan struct{}
}

// NewMemoryEventBus creates a bus and starts its history pruner.
func NewMemoryEventBus(cfg MemoryBusConfig) *MemoryEventBus {
	bus := &MemoryEventBus{
		subscriptions: make(map[SubscriptionID]*subscription),
		history: NewEventHistory(EventHistoryConfig{
			MaxEvents: cfg.HistoryMaxEvents,
			MaxAge:    cfg.HistoryMaxAge,
		}),
		matcher:    NewPatternMatcher(),
		stopPruner: make(chan struct{}),
	}

	interval := cfg.HistoryMaxAge / 10
	if interval < time.Minute {
		interval = time.Minute
	}
	if interval > time.Hour {
		interval = time.Hour
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-bus.stopPruner:
				return
			case <-ticker.C:
				bus.history.Prune()
			}
		}
	}()

	return bus
}

// SetDefaultSession sets the session id for events that don't carry one.
func (bus *MemoryEventBus) SetDefaultSession(session string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.defaultSession = session
}

// Publish stamps the event and delivers it to matching subscribers.
func (bus *MemoryEventBus) Publish(ctx context.Context, event Event) error {
	if bus.closed.Load() {
		return ErrBusClosed
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Version == "" {
		event.Version = "1.0"
	}
	if event.Session == "" {
		bus.mu.RLock()
		event.Session = bus.defaultSession
		bus.mu.RUnlock()
	}

	bus.pubMu.Lock()
	bus.seq++
	event.Seq = bus.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	bus.history.Add(event)
	bus.pubMu.Unlock()

	bus.mu.RLock()
	subs := make([]*subscription, 0, len(bus.subscriptions))
	for _, sub := range bus.subscriptions {
		subs = append(subs, sub)
	}
	bus.mu.RUnlock()

	for _, sub := range subs {
		if !sub.pattern.Match(event.Type) {
			continue
		}
		if sub.async {
			select {
			case sub.ch <- event:
			default:
				log.Printf("[events] dropped %s: subscriber %s buffer full", event.Type, sub.id)
			}
			continue
		}
		bus.call(ctx, sub.handler, event)
	}

	return nil
}

func (bus *MemoryEventBus) call(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[events] handler panic for %s: %v", event.Type, r)
		}
	}()
	if err := handler(ctx, event); err != nil {
		log.Printf("[events] handler error for %s: %v", event.Type, err)
	}
}

// Subscribe registers a synchronous handler for events matching pattern.
func (bus *MemoryEventBus) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	return bus.subscribe(pattern, handler, false, 0)
}

// SubscribeAsync registers a handler fed from a buffered channel.
func (bus *MemoryEventBus) SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error) {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return bus.subscribe(pattern, handler, true, bufferSize)
}

func (bus *MemoryEventBus) subscribe(pattern string, handler EventHandler, async bool, bufferSize int) (SubscriptionID, error) {
	if bus.closed.Load() {
		return "", ErrBusClosed
	}

	compiled, err := bus.matcher.Compile(pattern)
	if err != nil {
		return "", err
	}

	sub := &subscription{
		id:      SubscriptionID(uuid.NewString()),
		pattern: compiled,
		handler: handler,
		async:   async,
	}
	if async {
		sub.ch = make(chan Event, bufferSize)
		sub.stopCh = make(chan struct{})
	}

	bus.mu.Lock()
	bus.subscriptions[sub.id] = sub
	bus.mu.Unlock()

	if async {
		bus.wg.Add(1)
		go func() {
			defer bus.wg.Done()
			for {
				select {
				case <-sub.stopCh:
					return
				case event := <-sub.ch:
					bus.call(context.Background(), sub.handler, event)
				}
			}
		}()
	}

	return sub.id, nil
}

// Unsubscribe removes a subscription.
func (bus *MemoryEventBus) Unsubscribe(id SubscriptionID) error {
	bus.mu.Lock()
	sub, ok := bus.subscriptions[id]
	if !ok {
		bus.mu.Unlock()
		return ErrSubscriptionNotFound
	}
	delete(bus.subscriptions, id)
	bus.mu.Unlock()

	if sub.async {
		close(sub.stopCh)
	}
	return nil
}

// History returns retained events matching filter.
func (bus *MemoryEventBus) History(filter EventFilter) ([]Event, error) {
	return bus.history.Query(filter)
}

// Close stops the pruner and all async handlers. It is safe to call twice.
func (bus *MemoryEventBus) Close() error {
	if bus.closed.Swap(true) {
		return nil
	}

	close(bus.stopPruner)

	bus.mu.Lock()
	for _, sub := range bus.subscriptions {
		if sub.async {
			close(sub.stopCh)
		}
	}
	bus.subscriptions = make(map[SubscriptionID]*subscription)
	bus.mu.Unlock()

	bus.wg.Wait()
	bus.history.Close()
	return nil
}
