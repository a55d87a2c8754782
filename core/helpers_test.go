package core

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testToken builds an unsigned-verification-only JWT for credential tests.
func testToken(t *testing.T, username string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// recordEmitter captures emitted events for assertions.
type recordEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type    string
	Payload interface{}
}

func (e *recordEmitter) Emit(eventType string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{Type: eventType, Payload: payload})
	return nil
}

func (e *recordEmitter) all() []recordedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.events)
}

func (e *recordEmitter) countOf(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (e *recordEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
}

// fakeTransport is an in-memory Transport. Inbound events are injected with
// push; outbound events are recorded for inspection.
type fakeTransport struct {
	mu        sync.Mutex
	in        chan *Event
	done      chan struct{}
	sent      []*Event
	dialErr   error
	dialToken string
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan *Event, 100),
		done: make(chan struct{}),
	}
}

func (t *fakeTransport) Dial(_ context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialToken = token
	return t.dialErr
}

func (t *fakeTransport) Send(e *Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, e)
}

func (t *fakeTransport) Receive() <-chan *Event { return t.in }

func (t *fakeTransport) Done() <-chan struct{} { return t.done }

func (t *fakeTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

func (t *fakeTransport) push(t2 *testing.T, eventType string, payload interface{}) {
	t2.Helper()
	e := &Event{Type: eventType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t2, err)
		e.Payload = raw
	}
	t.in <- e
}

func (t *fakeTransport) sentEvents() []*Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.sent)
}

func (t *fakeTransport) sentCountOf(eventType string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.sent {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (t *fakeTransport) lastSentOf(eventType string) *Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.sent) - 1; i >= 0; i-- {
		if t.sent[i].Type == eventType {
			return t.sent[i]
		}
	}
	return nil
}

// memCredStore is an in-memory CredentialStore.
type memCredStore struct {
	mu    sync.Mutex
	creds *Credentials
}

func (s *memCredStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *memCredStore) Save(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *memCredStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}
