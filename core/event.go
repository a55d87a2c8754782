package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Event is one unit of the push stream in either direction.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("Event{Type: %s, Payload.Size: %d}", e.Type, len(e.Payload))
}

func EncodeEvent(w io.Writer, e *Event) error {
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return nil
}

func DecodeEvent(r io.Reader, e *Event) error {
	if err := json.NewDecoder(r).Decode(e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return nil
}

// Transport is the push event pipe between the client and the server.
// Receive's channel is closed when the connection goes down; Done is closed
// at the same time so non-consumers can observe the teardown.
type Transport interface {
	Dial(ctx context.Context, token string) error
	Send(e *Event)
	Receive() <-chan *Event
	Done() <-chan struct{}
	Close()
}

// Emitter sends an outbound event. *EventRouter satisfies it; components
// that only emit depend on this rather than on the router.
type Emitter interface {
	Emit(eventType string, payload interface{}) error
}

type EventHandler func(context.Context, *Event) error

// EventRouter is the single dispatch point for inbound push events. Each
// event type routes to exactly one handler; registering a second handler for
// the same type is a programming error.
//
// Handlers run synchronously on the listen goroutine, so every event is
// fully applied before the next one is observed. That run-to-completion
// ordering is what the per-store bookkeeping invariants rely on.
type EventRouter struct {
	handlers  map[string]EventHandler
	ctx       context.Context
	transport Transport
	logger    *slog.Logger
}

func NewEventRouter(ctx context.Context, logger *slog.Logger, transport Transport) *EventRouter {
	return &EventRouter{
		handlers:  make(map[string]EventHandler),
		ctx:       ctx,
		transport: transport,
		logger:    logger,
	}
}

func (r *EventRouter) On(eventType string, handler EventHandler) {
	if _, ok := r.handlers[eventType]; ok {
		panic(fmt.Sprintf("handler(%s): already registered", eventType))
	}
	r.handlers[eventType] = handler
}

// Listen consumes the transport's receive stream until it closes or the
// context is cancelled.
func (r *EventRouter) Listen(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case e, ok := <-r.transport.Receive():
			if !ok {
				return
			}
			// A handler may cancel the context (session preemption); events
			// already queued behind it must not be processed.
			if r.ctx.Err() != nil {
				return
			}
			r.dispatch(e)
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *EventRouter) dispatch(e *Event) {
	handler, ok := r.handlers[e.Type]
	if !ok {
		r.logger.Debug(fmt.Sprintf("no handler for %s, dropped", e.Type))
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(fmt.Sprintf("handler(%s): panic: %v", e.Type, p))
		}
	}()
	if err := handler(r.ctx, e); err != nil {
		r.logger.Error(fmt.Sprintf("handler(%s): %v", e.Type, err))
	}
}

// Emit marshals payload and sends it to the server. A nil payload sends an
// event with no body.
func (r *EventRouter) Emit(eventType string, payload interface{}) error {
	e := &Event{Type: eventType}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		e.Payload = b
	}
	r.transport.Send(e)
	return nil
}
