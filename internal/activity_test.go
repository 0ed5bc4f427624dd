package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/event"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type recordingBroadcaster struct {
	sync.Mutex
	ids []uuid.UUID
}

func (b *recordingBroadcaster) BroadcastRunUpdate(id uuid.UUID) error {
	b.Lock()
	defer b.Unlock()

	b.ids = append(b.ids, id)
	return nil
}

func (b *recordingBroadcaster) broadcasts() []uuid.UUID {
	b.Lock()
	defer b.Unlock()

	return append([]uuid.UUID(nil), b.ids...)
}

func newTestActivityService() (*activityService, *recordingBroadcaster, event.EventCoordinator) {
	bus := event.New()
	recorder := &recordingBroadcaster{}
	service := newActivityService(recorder, bus)
	service.standard = debounceWindow{debounce: 20 * time.Millisecond, max: time.Second}
	service.rapid = debounceWindow{debounce: 10 * time.Millisecond, max: time.Second}

	return service, recorder, bus
}

func Test_Activity_DebouncesUpdates(t *testing.T) {
	service, recorder, _ := newTestActivityService()
	id := uuid.New()

	for i := 0; i < 5; i++ {
		assert.NoError(t, service.handleEvent(event.HandlerEvent{Event: event.INGEST_UPDATE, Payload: id}))
	}

	assert.Eventually(t, func() bool { return len(recorder.broadcasts()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []uuid.UUID{id}, recorder.broadcasts())
}

func Test_Activity_MaxTimerFires(t *testing.T) {
	service, recorder, _ := newTestActivityService()
	service.rapid = debounceWindow{debounce: time.Hour, max: 20 * time.Millisecond}
	id := uuid.New()

	assert.NoError(t, service.handleEvent(event.HandlerEvent{Event: event.INGEST_PROGRESS, Payload: id}))
	assert.Eventually(t, func() bool { return len(recorder.broadcasts()) == 1 }, time.Second, 5*time.Millisecond)

	service.Lock()
	defer service.Unlock()
	assert.Empty(t, service.debounceTimers, "expected debounce timer to be cancelled by the max timer")
	assert.Empty(t, service.maxTimers)
}

func Test_Activity_CompletionBroadcastsImmediately(t *testing.T) {
	service, recorder, _ := newTestActivityService()
	service.standard = debounceWindow{debounce: time.Hour, max: time.Hour}
	service.rapid = debounceWindow{debounce: time.Hour, max: time.Hour}
	id := uuid.New()

	assert.NoError(t, service.handleEvent(event.HandlerEvent{Event: event.INGEST_UPDATE, Payload: id}))
	assert.NoError(t, service.handleEvent(event.HandlerEvent{Event: event.INGEST_PROGRESS, Payload: id}))
	assert.Empty(t, recorder.broadcasts())

	assert.NoError(t, service.handleEvent(event.HandlerEvent{Event: event.INGEST_COMPLETE, Payload: id}))
	assert.Equal(t, []uuid.UUID{id}, recorder.broadcasts())

	service.Lock()
	defer service.Unlock()
	assert.Empty(t, service.debounceTimers)
	assert.Empty(t, service.maxTimers)
}

func Test_Activity_RejectsIllegalEvents(t *testing.T) {
	service, _, _ := newTestActivityService()

	assert.Error(t, service.handleEvent(event.HandlerEvent{Event: event.INGEST_UPDATE, Payload: "not-a-uuid"}))
	assert.Error(t, service.handleEvent(event.HandlerEvent{Event: "unknown", Payload: uuid.New()}))
}

func Test_Activity_Run(t *testing.T) {
	service, recorder, bus := newTestActivityService()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() { done <- service.Run(ctx) }()

	id := uuid.New()
	assert.Eventually(t, func() bool {
		bus.Dispatch(event.INGEST_COMPLETE, id)
		return len(recorder.broadcasts()) > 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, id, recorder.broadcasts()[0])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("activity service did not stop after context cancellation")
	}
}
