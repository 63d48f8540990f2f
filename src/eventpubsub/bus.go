package eventpubsub

import (
	"reflect"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Publisher is the write side of the bus. The kill-switch gate wraps it so
// producers never publish to the bus directly.
type Publisher interface {
	Publish(event interface{})
}

// Bus is a typed publish/subscribe broadcaster. Handlers are keyed by the
// exact runtime type of the event and invoked sequentially in registration
// order. Publish returns only after every handler for the event has run.
type Bus struct {
	mu       sync.Mutex
	handlers map[reflect.Type][]func(event interface{})
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]func(event interface{})),
	}
}

// Subscribe registers handler for events of type T. Duplicate registrations
// are allowed and each copy is invoked.
func Subscribe[T any](b *Bus, handler func(event T)) {
	eventType := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], func(event interface{}) {
		handler(event.(T))
	})

	log.Debugf("Bus: subscribed to %v", eventType)
}

// Publish delivers event to every handler registered for its runtime type. A
// snapshot of the handler list is taken under lock, so subscriptions added
// concurrently never affect an in-flight publish. A panicking handler is
// logged and does not prevent delivery to the remaining handlers. Publishing
// an event with no subscribers is a no-op.
func (b *Bus) Publish(event interface{}) {
	eventType := reflect.TypeOf(event)

	b.mu.Lock()
	registered := b.handlers[eventType]
	handlers := make([]func(event interface{}), len(registered))
	copy(handlers, registered)
	b.mu.Unlock()

	for _, handler := range handlers {
		b.dispatch(eventType, handler, event)
	}
}

func (b *Bus) dispatch(eventType reflect.Type, handler func(event interface{}), event interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Bus.dispatch: handler for %v panicked: %v", eventType, r)
		}
	}()

	handler(event)
}
