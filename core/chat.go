package core

import "time"

const (
	// NormalMessage is an ordinary user message.
	NormalMessage MessageKind = "normal"
	// SystemMessage is a server-generated announcement such as a join or
	// leave notice.
	SystemMessage MessageKind = "system"
)

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// MessageKind distinguishes user messages from server announcements.
type MessageKind = string

// Direction records which side of a private conversation a message belongs to.
type Direction = string

// Message is a room message as pushed by the server. It is immutable once
// received; rendering concerns live in the view layer.
type Message struct {
	ID        string      `json:"id,omitempty"`
	AuthorID  string      `json:"authorId,omitempty"`
	Author    string      `json:"author"`
	Body      string      `json:"body"`
	Kind      MessageKind `json:"kind,omitempty"`
	Encrypted bool        `json:"encrypted,omitempty"`
	ImageRef  string      `json:"imageRef,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Room is one catalog entry. The catalog is a point-in-time snapshot and is
// replaced wholesale on every refresh, never merged.
type Room struct {
	Name         string `json:"name"`
	MemberCount  int    `json:"members"`
	MessageCount int    `json:"messages"`
}

// Peer is one entry of the presence snapshot.
type Peer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Room string `json:"room,omitempty"`
}

// PMMessage is one entry of a private conversation thread. Threads are
// append-only in natural arrival order.
type PMMessage struct {
	ID        string    `json:"id,omitempty"`
	Body      string    `json:"body"`
	ImageRef  string    `json:"imageRef,omitempty"`
	Encrypted bool      `json:"encrypted,omitempty"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}
