package core

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

const previewLen = 50

// PMStore keeps per-peer private conversation threads and the focus state
// that gates unread counting. Threads are append-only in arrival order and
// are never reordered or deduplicated.
type PMStore struct {
	mu      sync.Mutex
	threads map[string][]PMMessage
	focused string
	unread  UnreadStore
	notices *Notices
	toggle  *EncryptionToggle
	logger  *slog.Logger
}

func NewPMStore(unread UnreadStore, notices *Notices, logger *slog.Logger) *PMStore {
	return &PMStore{
		threads: make(map[string][]PMMessage),
		unread:  unread,
		notices: notices,
		toggle:  NewEncryptionToggle(),
		logger:  logger,
	}
}

// Open focuses peer's thread and returns its full history in arrival order.
// The peer's unread counter is reset here and nowhere else, and the PM
// encryption toggle is reset to disabled with no password, as every new PM
// target starts from a clean toggle. Opening an already-focused thread is
// idempotent.
func (s *PMStore) Open(peer string) []PMMessage {
	s.mu.Lock()
	s.focused = peer
	thread := slices.Clone(s.threads[peer])
	s.mu.Unlock()

	s.unread.Reset(peer)
	s.toggle.Disable()
	return thread
}

// Close clears focus without touching history or counters.
func (s *PMStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = ""
}

func (s *PMStore) Focused() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Toggle returns the PM-scoped encryption toggle.
func (s *PMStore) Toggle() *EncryptionToggle {
	return s.toggle
}

// AppendReceived records an inbound PM. A focused thread displays
// immediately and never touches the unread counter; otherwise the counter is
// incremented and a notice with a short contextual preview plus an OS-level
// notification are dispatched.
func (s *PMStore) AppendReceived(peer string, msg PMMessage) {
	msg.Direction = Received
	s.mu.Lock()
	s.threads[peer] = append(s.threads[peer], msg)
	focused := s.focused == peer
	s.mu.Unlock()

	if focused {
		return
	}
	s.unread.Increment(peer)
	preview := PreviewText(msg)
	s.notices.Show(fmt.Sprintf("PM from %s: %s", peer, preview))
	s.notices.System("New private message", fmt.Sprintf("%s: %s", peer, preview))
}

// AppendSent records an outbound PM. Sent messages are appended regardless
// of focus and are never counted as unread.
func (s *PMStore) AppendSent(peer string, msg PMMessage) {
	msg.Direction = Sent
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[peer] = append(s.threads[peer], msg)
}

// Thread returns a copy of peer's conversation history.
func (s *PMStore) Thread(peer string) []PMMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.threads[peer])
}

// PreviewText renders the short notice preview for a private message: fixed
// markers for images and encrypted bodies, otherwise the body truncated to
// 50 runes with an ellipsis.
func PreviewText(msg PMMessage) string {
	switch {
	case msg.ImageRef != "":
		return "Image shared"
	case msg.Encrypted:
		return "Encrypted message"
	}
	r := []rune(msg.Body)
	if len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return msg.Body
}
