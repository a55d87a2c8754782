package core

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultTypingStopDelay is how long after the last keystroke the stop
// signal fires. The server and the browser client both assume 3 seconds.
const DefaultTypingStopDelay = 3 * time.Second

// TypingCoordinator owns both sides of the typing indicator.
//
// Send side: every local keystroke emits typing:start and re-arms a single
// cancelable timer that emits typing:stop once the user has been idle for the
// stop delay. Submitting a message cancels the timer and emits the stop
// immediately. At most one timer is ever pending.
//
// Receive side: a set of peers currently typing in the active room. The
// local user is excluded by construction.
type TypingCoordinator struct {
	mu        sync.Mutex
	self      string
	peers     map[string]struct{}
	emit      Emitter
	stopDelay time.Duration
	timer     *time.Timer
	logger    *slog.Logger
}

type TypingOption func(*TypingCoordinator)

// WithStopDelay overrides the idle period before typing:stop fires.
func WithStopDelay(d time.Duration) TypingOption {
	return func(t *TypingCoordinator) {
		t.stopDelay = d
	}
}

func NewTypingCoordinator(self string, emit Emitter, logger *slog.Logger, opts ...TypingOption) *TypingCoordinator {
	t := &TypingCoordinator{
		self:      self,
		peers:     make(map[string]struct{}),
		emit:      emit,
		stopDelay: DefaultTypingStopDelay,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// InputActivity signals that the local user touched the input while a room
// is active. Each call re-arms the stop timer, so a burst of keystrokes
// collapses into one typing:stop at the end of the idle period.
func (t *TypingCoordinator) InputActivity() {
	if err := t.emit.Emit(TypingStartEvent, nil); err != nil {
		t.logger.Error(fmt.Sprintf("emit typing start: %v", err))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.stopDelay, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		if err := t.emit.Emit(TypingStopEvent, nil); err != nil {
			t.logger.Error(fmt.Sprintf("emit typing stop: %v", err))
		}
	})
}

// Submit cancels any pending stop timer and emits typing:stop immediately.
// Sending a message implies the user is done typing; without this the
// indicator would linger on the receiving side until the timer fired.
func (t *TypingCoordinator) Submit() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
	if err := t.emit.Emit(TypingStopEvent, nil); err != nil {
		t.logger.Error(fmt.Sprintf("emit typing stop: %v", err))
	}
}

// HandleStart records that peer is typing. Events for other rooms and for
// the local user are ignored; repeated starts are idempotent.
func (t *TypingCoordinator) HandleStart(peer, room, activeRoom string) {
	if peer == t.self || room != activeRoom {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[peer] = struct{}{}
}

// Clear removes peer from the typing set unconditionally. It serves both
// typing:stop and message arrival, since a message implies typing ceased.
func (t *TypingCoordinator) Clear(peer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, peer)
}

// Reset empties the typing set, e.g. when the active room changes.
func (t *TypingCoordinator) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.peers)
}

// Peers returns the typing set in stable order.
func (t *TypingCoordinator) Peers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	peers := make([]string, 0, len(t.peers))
	for p := range t.peers {
		peers = append(peers, p)
	}
	slices.Sort(peers)
	return peers
}

// Indicator renders the typing set: hidden for none, named for one or two,
// a count beyond that.
func (t *TypingCoordinator) Indicator() string {
	peers := t.Peers()
	switch len(peers) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is typing...", peers[0])
	case 2:
		return fmt.Sprintf("%s and %s are typing...", peers[0], peers[1])
	default:
		return fmt.Sprintf("%d users are typing...", len(peers))
	}
}
