package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchesInArrivalOrder(t *testing.T) {
	transport := newFakeTransport()
	router := NewEventRouter(context.Background(), testLogger(), transport)

	var mu sync.Mutex
	var got []string
	router.On("a", func(_ context.Context, e *Event) error {
		mu.Lock()
		defer mu.Unlock()
		var body string
		if err := json.Unmarshal(e.Payload, &body); err != nil {
			return err
		}
		got = append(got, body)
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go router.Listen(&wg)

	for _, body := range []string{"first", "second", "third"} {
		transport.push(t, "a", body)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"first", "second", "third"}, got)
	mu.Unlock()

	close(transport.in)
	wg.Wait()
}

func TestRouterDropsUnknownEventTypes(t *testing.T) {
	transport := newFakeTransport()
	router := NewEventRouter(context.Background(), testLogger(), transport)

	handled := make(chan struct{})
	router.On("known", func(context.Context, *Event) error {
		close(handled)
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go router.Listen(&wg)

	transport.push(t, "unknown", nil)
	transport.push(t, "known", nil)

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("known event never dispatched")
	}

	close(transport.in)
	wg.Wait()
}

func TestRouterDuplicateRegistrationPanics(t *testing.T) {
	router := NewEventRouter(context.Background(), testLogger(), newFakeTransport())
	router.On("a", func(context.Context, *Event) error { return nil })

	assert.Panics(t, func() {
		router.On("a", func(context.Context, *Event) error { return nil })
	})
}

func TestRouterSurvivesHandlerPanic(t *testing.T) {
	transport := newFakeTransport()
	router := NewEventRouter(context.Background(), testLogger(), transport)

	router.On("boom", func(context.Context, *Event) error {
		panic("handler bug")
	})
	handled := make(chan struct{})
	router.On("after", func(context.Context, *Event) error {
		close(handled)
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go router.Listen(&wg)

	transport.push(t, "boom", nil)
	transport.push(t, "after", nil)

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop died with the panicking handler")
	}

	close(transport.in)
	wg.Wait()
}

func TestRouterStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := newFakeTransport()
	router := NewEventRouter(ctx, testLogger(), transport)

	var mu sync.Mutex
	handledCount := 0
	router.On("a", func(context.Context, *Event) error {
		mu.Lock()
		defer mu.Unlock()
		handledCount++
		return nil
	})

	cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go router.Listen(&wg)
	transport.push(t, "a", nil)
	wg.Wait()

	mu.Lock()
	assert.Zero(t, handledCount, "no dispatch after cancellation")
	mu.Unlock()
}

func TestRouterEmit(t *testing.T) {
	transport := newFakeTransport()
	router := NewEventRouter(context.Background(), testLogger(), transport)

	require.NoError(t, router.Emit(RoomJoinEvent, RoomJoinPayload{Name: "general"}))
	require.NoError(t, router.Emit(CatalogGetEvent, nil))

	sent := transport.sentEvents()
	require.Len(t, sent, 2)
	assert.Equal(t, RoomJoinEvent, sent[0].Type)
	var payload RoomJoinPayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &payload))
	assert.Equal(t, "general", payload.Name)
	assert.Equal(t, CatalogGetEvent, sent[1].Type)
	assert.Nil(t, sent[1].Payload)
}
