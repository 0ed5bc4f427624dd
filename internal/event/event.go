// Package event provides the in-process event bus used to notify interested
// parties (such as the activity service) of changes to ingestion runs.
package event

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/pkg/logger"
)

var log = logger.Get("Events")

type (
	Event         string
	Payload       any
	HandlerMethod func(Event, Payload)

	HandlerChannel chan HandlerEvent
	HandlerEvent   struct {
		Event   Event
		Payload Payload
	}

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterHandlerChannel(HandlerChannel, ...Event)
		DeregisterHandlerChannel(HandlerChannel)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	eventBus struct {
		sync.RWMutex
		fnHandlers   map[Event][]handlerMethod
		chanHandlers map[Event][]HandlerChannel
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}
)

// Events emitted by the ingestion pipeline as runs progress. Every event
// carries the ID of the run it describes as its payload.
const (
	// INGEST_UPDATE is dispatched whenever a run changes state
	INGEST_UPDATE Event = "ingest:update"
	// INGEST_PROGRESS is dispatched whenever a shard of a run completes a stage
	INGEST_PROGRESS Event = "ingest:update:progress"
	// INGEST_COMPLETE is dispatched once a run reaches a terminal state
	INGEST_COMPLETE Event = "ingest:complete"
)

// runEvents are the events whose payload must be the uuid.UUID of a run.
var runEvents = []Event{INGEST_UPDATE, INGEST_PROGRESS, INGEST_COMPLETE}

func New() EventCoordinator {
	return &eventBus{
		fnHandlers:   make(map[Event][]handlerMethod),
		chanHandlers: make(map[Event][]HandlerChannel),
	}
}

// RegisterHandlerChannel takes a channel and a number of events, and will send a HandlerEvent
// on the channel any time one of the events is dispatched.
//
// If the channel is BLOCKED when the event bus attempts to send on it, then the thread
// dispatching the event will also be BLOCKED. Handler channels should be buffered
// appropriately, and deregistered (see DeregisterHandlerChannel) once they are no
// longer being read from.
func (bus *eventBus) RegisterHandlerChannel(handle HandlerChannel, events ...Event) {
	bus.Lock()
	defer bus.Unlock()

	for _, event := range events {
		bus.chanHandlers[event] = append(bus.chanHandlers[event], handle)
	}
}

// DeregisterHandlerChannel removes the channel provided from every event
// it was registered against.
func (bus *eventBus) DeregisterHandlerChannel(handle HandlerChannel) {
	bus.Lock()
	defer bus.Unlock()

	for event, handles := range bus.chanHandlers {
		bus.chanHandlers[event] = slices.DeleteFunc(handles, func(h HandlerChannel) bool { return h == handle })
	}
}

// RegisterHandlerFunction takes an event type and a handler method which will be called
// with the payload for the event whenever it is dispatched. The handle provided should
// return quickly, else other threads calling Dispatch on this event bus will be blocked.
func (bus *eventBus) RegisterHandlerFunction(event Event, handle HandlerMethod) {
	bus.registerHandlerMethod(event, handlerMethod{handle, false})
}

// RegisterAsyncHandlerFunction accepts an Event and a HandlerMethod which will be
// called inside of a goroutine when the event is dispatched.
func (bus *eventBus) RegisterAsyncHandlerFunction(event Event, handle HandlerMethod) {
	bus.registerHandlerMethod(event, handlerMethod{handle, true})
}

func (bus *eventBus) registerHandlerMethod(event Event, handle handlerMethod) {
	bus.Lock()
	defer bus.Unlock()

	bus.fnHandlers[event] = append(bus.fnHandlers[event], handle)
}

// Dispatch delivers the payload to every handler registered for the event. A payload
// which is not valid for the event is dropped (and logged).
// Note that this method WILL block if a synchronous handler function is blocking, or if channel
// handlers are blocked.
func (bus *eventBus) Dispatch(event Event, payload Payload) {
	if err := validatePayload(event, payload); err != nil {
		log.Emit(logger.FATAL, "Dispatch for event %v FAILED validation: %v\n", event, err)
		return
	}

	bus.RLock()
	defer bus.RUnlock()

	for _, handle := range bus.fnHandlers[event] {
		if handle.async {
			go handle.handle(event, payload)
		} else {
			handle.handle(event, payload)
		}
	}

	message := HandlerEvent{event, payload}
	for _, handle := range bus.chanHandlers[event] {
		handle <- message
	}
}

// validatePayload ensures that the payload provided is valid for the event specified. An error
// will be returned if the payload is not valid, and the event should not be sent to the registered
// handlers in this case.
func validatePayload(event Event, payload Payload) error {
	if !slices.Contains(runEvents, event) {
		return fmt.Errorf("event type %s not recognized for validation", event)
	}

	if _, ok := payload.(uuid.UUID); !ok {
		return fmt.Errorf("illegal payload (type %T) for %s event. Expected uuid.UUID payload", payload, event)
	}

	return nil
}
