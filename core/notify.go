package core

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultNoticeDuration is how long a transient notice stays up before
	// auto-dismissing.
	DefaultNoticeDuration = 6 * time.Second
	maxNoticeLen          = 200
)

// Notifier delivers OS-level notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(title, body string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(title, body string) error

func (f NotifierFunc) Notify(title, body string) error {
	return f(title, body)
}

// Notice is one transient in-view alert.
type Notice struct {
	ID      uuid.UUID
	Text    string
	Sticky  bool
	ShownAt time.Time
}

type pendingNotice struct {
	notice Notice
	timer  *time.Timer
	paused bool
}

// Notices dispatches transient in-view alerts and OS-level notifications.
// It is decoupled from the stores: they call in, it never reaches back into
// them. Auto-dismiss timers pause while a notice is hovered.
type Notices struct {
	mu        sync.Mutex
	active    map[uuid.UUID]*pendingNotice
	onShow    func(Notice)
	onDismiss func(uuid.UUID)
	duration  time.Duration
	system    Notifier
	logger    *slog.Logger
}

type NoticeOption func(*Notices)

func WithNoticeDuration(d time.Duration) NoticeOption {
	return func(n *Notices) {
		n.duration = d
	}
}

func NewNotices(system Notifier, logger *slog.Logger, opts ...NoticeOption) *Notices {
	n := &Notices{
		active:    make(map[uuid.UUID]*pendingNotice),
		onShow:    func(Notice) {},
		onDismiss: func(uuid.UUID) {},
		duration:  DefaultNoticeDuration,
		system:    system,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// OnShow registers the view-layer callback invoked for every new notice.
func (n *Notices) OnShow(f func(Notice)) {
	n.onShow = f
}

func (n *Notices) OnDismiss(f func(uuid.UUID)) {
	n.onDismiss = f
}

// Show surfaces a transient notice that auto-dismisses after the configured
// duration.
func (n *Notices) Show(text string) uuid.UUID {
	return n.show(text, false)
}

// ShowSticky surfaces a notice with no auto-dismiss timer. Used for
// terminal conditions such as session preemption, where the user must
// acknowledge the message.
func (n *Notices) ShowSticky(text string) uuid.UUID {
	return n.show(text, true)
}

func (n *Notices) show(text string, sticky bool) uuid.UUID {
	if r := []rune(text); len(r) > maxNoticeLen {
		text = string(r[:maxNoticeLen-1]) + "…"
	}
	notice := Notice{
		ID:      uuid.New(),
		Text:    text,
		Sticky:  sticky,
		ShownAt: time.Now(),
	}
	p := &pendingNotice{notice: notice}
	if !sticky {
		p.timer = time.AfterFunc(n.duration, func() {
			n.Dismiss(notice.ID)
		})
	}
	n.mu.Lock()
	n.active[notice.ID] = p
	n.mu.Unlock()
	n.onShow(notice)
	return notice.ID
}

// Dismiss removes a notice, stopping its timer if one is pending.
func (n *Notices) Dismiss(id uuid.UUID) {
	n.mu.Lock()
	p, ok := n.active[id]
	if ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(n.active, id)
	}
	n.mu.Unlock()
	if ok {
		n.onDismiss(id)
	}
}

// Hover pauses the auto-dismiss timer while the notice is being interacted
// with and re-arms it for a full duration when the interaction ends.
func (n *Notices) Hover(id uuid.UUID, hovering bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.active[id]
	if !ok || p.notice.Sticky {
		return
	}
	if hovering {
		p.timer.Stop()
		p.paused = true
		return
	}
	if p.paused {
		p.paused = false
		p.timer = time.AfterFunc(n.duration, func() {
			n.Dismiss(id)
		})
	}
}

// Active returns the live notices in display order.
func (n *Notices) Active() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	notices := make([]Notice, 0, len(n.active))
	for _, p := range n.active {
		notices = append(notices, p.notice)
	}
	sort.Slice(notices, func(i, j int) bool {
		return notices[i].ShownAt.Before(notices[j].ShownAt)
	})
	return notices
}

// System sends an OS-level notification. Failures are logged and absorbed.
func (n *Notices) System(title, body string) {
	if n.system == nil {
		return
	}
	if err := n.system.Notify(title, body); err != nil {
		n.logger.Error(fmt.Sprintf("system notification: %v", err))
	}
}

// Close stops all pending dismiss timers.
func (n *Notices) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, p := range n.active {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(n.active, id)
	}
}
