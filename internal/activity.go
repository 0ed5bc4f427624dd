package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/event"
	"github.com/hbomb79/ytmeta/pkg/logger"
)

const (
	DEBOUNCE_DURATION  time.Duration = time.Second * 2
	MAX_TIMER_DURATION time.Duration = time.Second * 5

	RAPID_EVENT_DEBOUNCE_DURATION  time.Duration = time.Millisecond * 500
	RAPID_EVENT_MAX_TIMER_DURATION time.Duration = time.Second * 2
)

type (
	broadcastHandler func(uuid.UUID) error

	broadcaster interface {
		BroadcastRunUpdate(uuid.UUID) error
	}

	eventKey struct {
		ev event.Event
		id uuid.UUID
	}

	debounceWindow struct {
		debounce time.Duration
		max      time.Duration
	}

	// activityService listens for run events on the event bus and
	// pushes the affected runs to the broadcaster. Bursts of events for
	// the same run are debounced so clients are not flooded; a run which
	// completes is always pushed immediately.
	activityService struct {
		*sync.Mutex
		broadcaster
		eventBus       event.EventHandler
		standard       debounceWindow
		rapid          debounceWindow
		debounceTimers map[eventKey]*time.Timer
		maxTimers      map[eventKey]*time.Timer
	}
)

func newActivityService(broadcaster broadcaster, eventBus event.EventHandler) *activityService {
	return &activityService{
		Mutex:          &sync.Mutex{},
		broadcaster:    broadcaster,
		eventBus:       eventBus,
		standard:       debounceWindow{DEBOUNCE_DURATION, MAX_TIMER_DURATION},
		rapid:          debounceWindow{RAPID_EVENT_DEBOUNCE_DURATION, RAPID_EVENT_MAX_TIMER_DURATION},
		debounceTimers: make(map[eventKey]*time.Timer),
		maxTimers:      make(map[eventKey]*time.Timer),
	}
}

func (service *activityService) Run(ctx context.Context) error {
	messageChan := make(event.HandlerChannel, 100)
	service.eventBus.RegisterHandlerChannel(messageChan, event.INGEST_UPDATE, event.INGEST_PROGRESS, event.INGEST_COMPLETE)
	defer service.eventBus.DeregisterHandlerChannel(messageChan)

	log.Emit(logger.NEW, "Activity service started\n")
	for {
		select {
		case ev := <-messageChan:
			if err := service.handleEvent(ev); err != nil {
				log.Emit(logger.ERROR, "Handling of event %v failed: %v\n", ev, err)
			}
		case <-ctx.Done():
			service.stopTimers()
			log.Emit(logger.STOP, "Activity service closed\n")
			return nil
		}
	}
}

func (service *activityService) handleEvent(ev event.HandlerEvent) error {
	resourceID, ok := ev.Payload.(uuid.UUID)
	if !ok {
		return errors.New("illegal payload (expected UUID)")
	}

	resourceKey := eventKey{id: resourceID, ev: ev.Event}

	switch ev.Event {
	case event.INGEST_UPDATE:
		service.scheduleEventBroadcast(resourceKey, service.BroadcastRunUpdate, service.standard)
	case event.INGEST_PROGRESS:
		service.scheduleEventBroadcast(resourceKey, service.BroadcastRunUpdate, service.rapid)
	case event.INGEST_COMPLETE:
		// Pending updates for this run are superseded by the final state
		service.cancelBroadcast(eventKey{id: resourceID, ev: event.INGEST_UPDATE})
		service.cancelBroadcast(eventKey{id: resourceID, ev: event.INGEST_PROGRESS})
		return service.BroadcastRunUpdate(resourceID)
	default:
		return errors.New("unknown event type")
	}

	return nil
}

func (service *activityService) scheduleEventBroadcast(resourceKey eventKey, handler broadcastHandler, window debounceWindow) {
	service.Lock()
	defer service.Unlock()

	broadcaster := func() { service.broadcast(resourceKey, handler) }

	// Cancel and re-set a debounce timer
	if t, ok := service.debounceTimers[resourceKey]; ok {
		t.Stop()
	}
	service.debounceTimers[resourceKey] = time.AfterFunc(window.debounce, broadcaster)

	// Set a max timer if not already set
	if _, ok := service.maxTimers[resourceKey]; !ok {
		service.maxTimers[resourceKey] = time.AfterFunc(window.max, broadcaster)
	}
}

func (service *activityService) broadcast(resourceKey eventKey, handler broadcastHandler) {
	if !service.cancelBroadcast(resourceKey) {
		return
	}

	if err := handler(resourceKey.id); err != nil {
		log.Emit(logger.WARNING, "Broadcast for %v failed: %v\n", resourceKey.id, err)
	}
}

// cancelBroadcast stops and removes the timers for the key provided,
// returning false if there were none.
func (service *activityService) cancelBroadcast(resourceKey eventKey) bool {
	service.Lock()
	defer service.Unlock()

	debounce, hasDebounce := service.debounceTimers[resourceKey]
	if hasDebounce {
		debounce.Stop()
		delete(service.debounceTimers, resourceKey)
	}

	maxTimer, hasMax := service.maxTimers[resourceKey]
	if hasMax {
		maxTimer.Stop()
		delete(service.maxTimers, resourceKey)
	}

	return hasDebounce || hasMax
}

func (service *activityService) stopTimers() {
	service.Lock()
	defer service.Unlock()

	for key, t := range service.debounceTimers {
		t.Stop()
		delete(service.debounceTimers, key)
	}
	for key, t := range service.maxTimers {
		t.Stop()
		delete(service.maxTimers, key)
	}
}
