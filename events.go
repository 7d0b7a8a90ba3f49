package main

import (
	"context"
	"fmt"
	"sync"

	"payledger/pkg/logging"

	"go.uber.org/zap"
)

// Event names published after committed mutations.
const (
	eventStaffChanged   = "staff.changed"
	eventPaymentChanged = "payment.changed"
)

type event struct {
	Type    string
	Payload interface{}
}

type eventHandler func(context.Context, event) error

// eventBus is a small in-process pub/sub used to decouple handlers from cache
// invalidation.
type eventBus struct {
	subscribers map[string][]eventHandler
	mu          sync.RWMutex
	errorChan   chan error
}

var events *eventBus

func newEventBus() *eventBus {
	return &eventBus{
		subscribers: make(map[string][]eventHandler),
		errorChan:   make(chan error, 100),
	}
}

func (eb *eventBus) Subscribe(eventType string, handler eventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
}

// Publish fans the event out to subscribers. Handlers run on their own
// goroutines; publishing never blocks a request.
func (eb *eventBus) Publish(ctx context.Context, eventType string, payload interface{}) {
	eb.mu.RLock()
	handlers, exists := eb.subscribers[eventType]
	eb.mu.RUnlock()
	if !exists {
		return
	}
	ev := event{Type: eventType, Payload: payload}
	for _, handler := range handlers {
		go func(h eventHandler) {
			if err := h(ctx, ev); err != nil {
				select {
				case eb.errorChan <- fmt.Errorf("event handler error: %w", err):
				default:
					logging.Error("event error channel full", zap.Error(err), zap.String("eventType", eventType))
				}
			}
		}(handler)
	}
}

func (eb *eventBus) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case err := <-eb.errorChan:
				logging.Error("event handler error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
}

// publishStaffChanged is safe to call before the bus exists (tools, tests).
// Subscribers outlive the request, so they get a background context.
func publishStaffChanged(staffID uint) {
	if events != nil {
		events.Publish(context.Background(), eventStaffChanged, staffID)
	}
}

func publishPaymentChanged(paymentID uint) {
	if events != nil {
		events.Publish(context.Background(), eventPaymentChanged, paymentID)
	}
}

// registerCacheInvalidation wires the cache layer to mutation events.
func registerCacheInvalidation(bus *eventBus) {
	bus.Subscribe(eventStaffChanged, func(ctx context.Context, ev event) error {
		if id, ok := ev.Payload.(uint); ok {
			deleteCachedStaff(ctx, id)
		}
		return nil
	})
	bus.Subscribe(eventPaymentChanged, func(ctx context.Context, ev event) error {
		invalidateSummaries(ctx)
		return nil
	})
}
