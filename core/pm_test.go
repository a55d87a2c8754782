package core

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pmFixture struct {
	pms    *PMStore
	unread UnreadStore
	shown  *noticeRecorder
	system *systemRecorder
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) add(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	texts := make([]string, len(r.notices))
	for i, n := range r.notices {
		texts[i] = n.Text
	}
	return texts
}

type systemRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *systemRecorder) Notify(title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, title+": "+body)
	return nil
}

func (r *systemRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newPMFixture(t *testing.T) *pmFixture {
	t.Helper()
	shown := &noticeRecorder{}
	system := &systemRecorder{}
	notices := NewNotices(system, testLogger())
	notices.OnShow(shown.add)
	t.Cleanup(notices.Close)

	unread := NewMemoryUnreadStore()
	return &pmFixture{
		pms:    NewPMStore(unread, notices, testLogger()),
		unread: unread,
		shown:  shown,
		system: system,
	}
}

func TestPMUnfocusedReceiveCountsAndNotifies(t *testing.T) {
	f := newPMFixture(t)

	for _, body := range []string{"one", "two", "three"} {
		f.pms.AppendReceived("bob", PMMessage{Body: body, Timestamp: time.Now()})
	}

	assert.Equal(t, 3, f.unread.Count("bob"))
	assert.Equal(t, 3, f.system.count())
	texts := f.shown.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "PM from bob: one", texts[0])

	thread := f.pms.Open("bob")
	require.Len(t, thread, 3)
	assert.Equal(t, "one", thread[0].Body)
	assert.Equal(t, "two", thread[1].Body)
	assert.Equal(t, "three", thread[2].Body)
	assert.Equal(t, Received, thread[0].Direction)
	assert.Equal(t, 0, f.unread.Count("bob"), "opening the thread resets the counter")
}

func TestPMFocusedReceiveNeverCounts(t *testing.T) {
	f := newPMFixture(t)

	f.pms.Open("bob")
	f.pms.AppendReceived("bob", PMMessage{Body: "hi", Timestamp: time.Now()})

	assert.Equal(t, 0, f.unread.Count("bob"))
	assert.Empty(t, f.shown.texts())
	assert.Equal(t, 0, f.system.count())
	assert.Len(t, f.pms.Thread("bob"), 1)
}

func TestPMFocusGatesPerPeer(t *testing.T) {
	f := newPMFixture(t)

	f.pms.Open("bob")
	f.pms.AppendReceived("carol", PMMessage{Body: "hey", Timestamp: time.Now()})

	assert.Equal(t, 1, f.unread.Count("carol"))
	assert.Equal(t, 0, f.unread.Count("bob"))
}

func TestPMCloseUnfocuses(t *testing.T) {
	f := newPMFixture(t)

	f.pms.Open("bob")
	f.pms.Close()
	f.pms.AppendReceived("bob", PMMessage{Body: "hi", Timestamp: time.Now()})

	assert.Equal(t, 1, f.unread.Count("bob"))
}

func TestPMOpenIsIdempotent(t *testing.T) {
	f := newPMFixture(t)

	f.pms.AppendReceived("bob", PMMessage{Body: "hi", Timestamp: time.Now()})
	first := f.pms.Open("bob")
	second := f.pms.Open("bob")

	assert.Equal(t, first, second)
	assert.Equal(t, "bob", f.pms.Focused())
	assert.Equal(t, 0, f.unread.Count("bob"))
}

func TestPMOpenResetsToggle(t *testing.T) {
	f := newPMFixture(t)

	require.NoError(t, f.pms.Toggle().Enable("pass1234"))
	f.pms.Open("bob")

	_, armed := f.pms.Toggle().Armed()
	assert.False(t, armed, "every new PM target starts from a clean toggle")
}

func TestPMSentNeverCounts(t *testing.T) {
	f := newPMFixture(t)

	f.pms.AppendSent("bob", PMMessage{Body: "hi", Timestamp: time.Now()})

	assert.Equal(t, 0, f.unread.Count("bob"))
	assert.Empty(t, f.shown.texts())
	thread := f.pms.Thread("bob")
	require.Len(t, thread, 1)
	assert.Equal(t, Sent, thread[0].Direction)
}

func TestPMPreviewText(t *testing.T) {
	tests := []struct {
		name string
		msg  PMMessage
		want string
	}{
		{name: "image", msg: PMMessage{ImageRef: "/uploads/cat.png", Body: "look"}, want: "Image shared"},
		{name: "encrypted", msg: PMMessage{Encrypted: true, Body: "Zm9v"}, want: "Encrypted message"},
		{name: "short body", msg: PMMessage{Body: "hello"}, want: "hello"},
		{name: "exactly fifty", msg: PMMessage{Body: strings.Repeat("a", 50)}, want: strings.Repeat("a", 50)},
		{name: "truncated", msg: PMMessage{Body: strings.Repeat("a", 60)}, want: strings.Repeat("a", 50) + "..."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PreviewText(tc.msg))
		})
	}
}

func TestEncryptionTogglePasswordLength(t *testing.T) {
	toggle := NewEncryptionToggle()

	err := toggle.Enable("abc")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	_, armed := toggle.Armed()
	assert.False(t, armed)

	require.NoError(t, toggle.Enable("abcd"))
	password, armed := toggle.Armed()
	assert.True(t, armed)
	assert.Equal(t, "abcd", password)

	toggle.Disable()
	password, armed = toggle.Armed()
	assert.False(t, armed)
	assert.Empty(t, password)
}
