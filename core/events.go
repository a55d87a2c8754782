package core

import "time"

// Outbound event kinds (client to server).
const (
	CatalogGetEvent     = "catalog:get"
	RoomJoinEvent       = "room:join"
	RoomLeaveEvent      = "room:leave"
	RoomHistoryGetEvent = "room:history:get"
	MessageSendEvent    = "message:send"
	PMSendEvent         = "pm:send"
)

// Typing signals travel in both directions: the client emits them with an
// empty payload, the server fans them out annotated with peer and room.
const (
	TypingStartEvent = "typing:start"
	TypingStopEvent  = "typing:stop"
)

// Inbound event kinds (server to client).
const (
	CatalogListEvent      = "catalog:list"
	RoomInfoEvent         = "room:info"
	RoomHistoryEvent      = "room:history"
	RoomMessageEvent      = "room:message"
	PresenceListEvent     = "presence:list"
	PMReceivedEvent       = "pm:received"
	SessionDuplicateEvent = "session:duplicate"
	TransportErrorEvent   = "transport:error"
)

type RoomJoinPayload struct {
	Name string `json:"name"`
}

type RoomHistoryGetPayload struct {
	Room string `json:"room"`
}

type MessageSendPayload struct {
	Body      string `json:"body"`
	Room      string `json:"room"`
	Encrypted bool   `json:"encrypted,omitempty"`
	ImageRef  string `json:"imageRef,omitempty"`
}

type PMSendPayload struct {
	To        string `json:"to"`
	Body      string `json:"body"`
	Encrypted bool   `json:"encrypted,omitempty"`
	ImageRef  string `json:"imageRef,omitempty"`
}

type TypingPayload struct {
	Peer string `json:"peer,omitempty"`
	Room string `json:"room,omitempty"`
}

type CatalogListPayload struct {
	Rooms []Room `json:"rooms"`
}

type RoomInfoPayload struct {
	Name         string   `json:"name"`
	Members      []string `json:"members"`
	MessageCount int      `json:"messageCount"`
}

type RoomHistoryPayload struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

type PresenceListPayload struct {
	Peers []Peer `json:"peers"`
}

type PMReceivedPayload struct {
	From      string    `json:"from"`
	Body      string    `json:"body"`
	Encrypted bool      `json:"encrypted,omitempty"`
	ImageRef  string    `json:"imageRef,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type TransportErrorPayload struct {
	Message string `json:"message"`
}
