package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CatalogRefreshInterval is how often the room catalog snapshot is
// re-requested. The refresh runs unconditionally while the session lives,
// tolerating transient staleness across connection churn rather than
// tracking reconnection state.
const CatalogRefreshInterval = 5 * time.Second

type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateAuthenticated
	// StatePreempted means another login for the same identity took over.
	// Terminal: the session is never retried from here.
	StatePreempted
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StatePreempted:
		return "preempted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// PasswordPrompter captures a secret from the user. It returns false when
// the user cancels. Injecting it keeps the reveal flow testable without a
// live view.
type PasswordPrompter func() (string, bool)

// SessionConfig wires a Session's collaborators.
type SessionConfig struct {
	// Self is the local username; the typing set excludes it by construction.
	Self      string
	Creds     CredentialStore
	Unread    UnreadStore
	Transport Transport
	API       *APIClient
	Notifier  Notifier
	// Redirect sends the user back to the entry point after a credential
	// wipe. Optional.
	Redirect func()
	Logger   *slog.Logger
	// TypingStopDelay overrides the typing debounce for tests. Zero means
	// the default.
	TypingStopDelay time.Duration
}

// Session is the one context object owning every synchronized store. The
// view layer reads snapshots through the exported stores and never mutates
// them directly; all mutation flows through the event router or the action
// methods below.
type Session struct {
	Rooms    *RoomStore
	PMs      *PMStore
	Presence *PresenceStore
	Typing   *TypingCoordinator
	Unread   UnreadStore
	Notices  *Notices

	mu         sync.Mutex
	state      SessionState
	creds      CredentialStore
	current    *Credentials
	transport  Transport
	api        *APIClient
	router     *EventRouter
	roomToggle *EncryptionToggle
	redirect   func()
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSession(ctx context.Context, cfg SessionConfig) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		creds:      cfg.Creds,
		transport:  cfg.Transport,
		api:        cfg.API,
		roomToggle: NewEncryptionToggle(),
		redirect:   cfg.Redirect,
		logger:     cfg.Logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	if s.redirect == nil {
		s.redirect = func() {}
	}

	s.Notices = NewNotices(cfg.Notifier, cfg.Logger)
	s.Unread = cfg.Unread
	s.Rooms = NewRoomStore(routerEmitter{s}, cfg.Logger)
	s.PMs = NewPMStore(s.Unread, s.Notices, cfg.Logger)
	s.Presence = NewPresenceStore()

	typingOpts := []TypingOption{}
	if cfg.TypingStopDelay > 0 {
		typingOpts = append(typingOpts, WithStopDelay(cfg.TypingStopDelay))
	}
	s.Typing = NewTypingCoordinator(cfg.Self, routerEmitter{s}, cfg.Logger, typingOpts...)

	s.router = NewEventRouter(ctx, cfg.Logger, cfg.Transport)
	s.registerHandlers()
	return s
}

// routerEmitter defers the router lookup so stores can be constructed before
// the router exists.
type routerEmitter struct {
	s *Session
}

func (e routerEmitter) Emit(eventType string, payload interface{}) error {
	return e.s.router.Emit(eventType, payload)
}

// registerHandlers binds each inbound event kind to exactly one store
// mutation.
func (s *Session) registerHandlers() {
	s.router.On(CatalogListEvent, s.handleCatalogList)
	s.router.On(RoomInfoEvent, s.handleRoomInfo)
	s.router.On(RoomHistoryEvent, s.handleRoomHistory)
	s.router.On(RoomMessageEvent, s.handleRoomMessage)
	s.router.On(PresenceListEvent, s.handlePresenceList)
	s.router.On(TypingStartEvent, s.handleTypingStart)
	s.router.On(TypingStopEvent, s.handleTypingStop)
	s.router.On(PMReceivedEvent, s.handlePMReceived)
	s.router.On(SessionDuplicateEvent, s.handleDuplicate)
	s.router.On(TransportErrorEvent, s.handleTransportError)
}

// Connect loads the cached credentials, dials the transport, and on success
// starts the dispatch loop and the periodic catalog refresh. Missing,
// expired or rejected credentials are terminal: the cache is wiped and the
// user is redirected to the entry point with no retry.
func (s *Session) Connect(ctx context.Context) error {
	creds, err := s.creds.Load()
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil || creds.Expired(time.Now()) {
		s.forceLogin()
		return fmt.Errorf("%w: no usable credential", ErrAuth)
	}

	s.setState(StateConnecting)
	if err := s.transport.Dial(ctx, creds.Token); err != nil {
		s.setState(StateDisconnected)
		if errors.Is(err, ErrAuth) {
			s.forceLogin()
		}
		return err
	}

	s.mu.Lock()
	s.current = creds
	s.mu.Unlock()
	s.setState(StateAuthenticated)

	s.wg.Add(1)
	go s.router.Listen(&s.wg)

	s.wg.Add(1)
	go s.refreshCatalogLoop()

	s.wg.Add(1)
	go s.watchDisconnect()

	// Initial snapshot on entering the authenticated state.
	return s.router.Emit(CatalogGetEvent, nil)
}

func (s *Session) refreshCatalogLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(CatalogRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.router.Emit(CatalogGetEvent, nil); err != nil {
				s.logger.Error(fmt.Sprintf("catalog refresh: %v", err))
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) watchDisconnect() {
	defer s.wg.Done()
	select {
	case <-s.transport.Done():
		s.mu.Lock()
		if s.state == StateAuthenticated {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
	case <-s.ctx.Done():
	}
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug(fmt.Sprintf("session state: %s -> %s", s.state, state))
	s.state = state
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// forceLogin wipes the cached credential and sends the user back to the
// entry point.
func (s *Session) forceLogin() {
	if err := s.creds.Clear(); err != nil {
		s.logger.Error(fmt.Sprintf("clear credentials: %v", err))
	}
	s.redirect()
}

// Close tears the session down: transport, dispatch loop, timers.
func (s *Session) Close() {
	s.transport.Close()
	s.cancel()
	s.wg.Wait()
	s.Notices.Close()
}

// RoomToggle returns the room-scoped encryption toggle, which persists
// across room switches.
func (s *Session) RoomToggle() *EncryptionToggle {
	return s.roomToggle
}

// ---- inbound handlers ----

func (s *Session) handleCatalogList(_ context.Context, e *Event) error {
	var payload CatalogListPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal catalog list: %w", err)
	}
	s.Rooms.RefreshCatalog(payload.Rooms)
	return nil
}

func (s *Session) handleRoomInfo(_ context.Context, e *Event) error {
	var payload RoomInfoPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal room info: %w", err)
	}
	s.Rooms.ApplyInfo(payload.Name, payload.Members, payload.MessageCount)
	return nil
}

func (s *Session) handleRoomHistory(_ context.Context, e *Event) error {
	var payload RoomHistoryPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal room history: %w", err)
	}
	s.Rooms.ApplyHistory(payload.Room, payload.Messages)
	return nil
}

func (s *Session) handleRoomMessage(_ context.Context, e *Event) error {
	var msg Message
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return fmt.Errorf("unmarshal room message: %w", err)
	}
	if s.Rooms.ApplyMessage(msg) {
		// A message from a peer implies they stopped typing.
		s.Typing.Clear(msg.Author)
	}
	return nil
}

func (s *Session) handlePresenceList(_ context.Context, e *Event) error {
	var payload PresenceListPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal presence list: %w", err)
	}
	s.Presence.Replace(payload.Peers)
	return nil
}

func (s *Session) handleTypingStart(_ context.Context, e *Event) error {
	var payload TypingPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal typing start: %w", err)
	}
	s.Typing.HandleStart(payload.Peer, payload.Room, s.Rooms.Active())
	return nil
}

func (s *Session) handleTypingStop(_ context.Context, e *Event) error {
	var payload TypingPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal typing stop: %w", err)
	}
	s.Typing.Clear(payload.Peer)
	return nil
}

func (s *Session) handlePMReceived(_ context.Context, e *Event) error {
	var payload PMReceivedPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal pm: %w", err)
	}
	s.PMs.AppendReceived(payload.From, PMMessage{
		Body:      payload.Body,
		Encrypted: payload.Encrypted,
		ImageRef:  payload.ImageRef,
		Timestamp: payload.Timestamp,
	})
	return nil
}

// handleDuplicate processes the duplicate-session notice: another login for
// the same identity took over. The state becomes Preempted, the user gets a
// sticky notice, the credential cache is wiped and the transport is closed,
// which stops the dispatch loop. Terminal by design: retrying would contend
// with the other session.
func (s *Session) handleDuplicate(_ context.Context, _ *Event) error {
	s.setState(StatePreempted)
	s.Notices.ShowSticky("Your account is logged in from another location. This session has been disconnected.")
	if err := s.creds.Clear(); err != nil {
		s.logger.Error(fmt.Sprintf("clear credentials: %v", err))
	}
	// Cancelling the context stops the dispatch loop before any event that
	// may already be queued behind this one.
	s.cancel()
	// Closing from the dispatch goroutine would deadlock on the read loop
	// draining, so tear down asynchronously.
	go s.transport.Close()
	return ErrPreempted
}

func (s *Session) handleTransportError(_ context.Context, e *Event) error {
	var payload TransportErrorPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal transport error: %w", err)
	}
	s.logger.Error(fmt.Sprintf("transport error: %s", payload.Message))
	s.Notices.Show(fmt.Sprintf("Connection error: %s", payload.Message))
	return nil
}

// ---- user actions ----

// JoinRoom switches the active room. Joining the current room is a no-op.
func (s *Session) JoinRoom(name string) error {
	if name == "" {
		return NewValidationError("room", "name required")
	}
	joined, err := s.Rooms.Join(name)
	if joined {
		// Typing peers belong to the previous room.
		s.Typing.Reset()
	}
	return err
}

func (s *Session) LeaveRoom() error {
	s.Typing.Reset()
	return s.Rooms.Leave()
}

// SendMessage sends body to the active room, obfuscating it first when the
// room toggle is armed. Submission also clears the local typing signal.
func (s *Session) SendMessage(body string) error {
	if body == "" {
		return nil
	}
	room := s.Rooms.Active()
	if room == "" {
		return ErrNoActiveRoom
	}

	payload := MessageSendPayload{Body: body, Room: room}
	if password, ok := s.roomToggle.Armed(); ok {
		token, err := Obfuscate(body, password)
		if err != nil {
			return err
		}
		payload.Body = token
		payload.Encrypted = true
	}
	if err := s.router.Emit(MessageSendEvent, payload); err != nil {
		return err
	}
	s.Typing.Submit()
	return nil
}

// SendPM sends a private message to peer, obfuscating the body when the
// PM toggle is armed, and records it in the local thread. Sent messages are
// never counted as unread.
func (s *Session) SendPM(peer, body string) error {
	return s.sendPM(peer, body, "")
}

func (s *Session) sendPM(peer, body, imageRef string) error {
	if peer == "" {
		return NewValidationError("peer", "recipient required")
	}
	if body == "" && imageRef == "" {
		return nil
	}

	payload := PMSendPayload{To: peer, Body: body, ImageRef: imageRef}
	if password, ok := s.PMs.Toggle().Armed(); ok && body != "" {
		token, err := Obfuscate(body, password)
		if err != nil {
			return err
		}
		payload.Body = token
		payload.Encrypted = true
	}
	if err := s.router.Emit(PMSendEvent, payload); err != nil {
		return err
	}
	s.PMs.AppendSent(peer, PMMessage{
		ID:        uuid.NewString(),
		Body:      payload.Body,
		Encrypted: payload.Encrypted,
		ImageRef:  imageRef,
		Timestamp: time.Now(),
	})
	return nil
}

// ShareImage uploads an image and sends it to the active room with an
// optional caption. Validation failures and upload errors surface to the
// caller before any event is emitted.
func (s *Session) ShareImage(ctx context.Context, caption, filename, mimeType string, size int64, r io.Reader) error {
	room := s.Rooms.Active()
	if room == "" {
		return ErrNoActiveRoom
	}
	ref, err := s.api.UploadImage(ctx, filename, mimeType, size, r)
	if err != nil {
		return err
	}
	return s.router.Emit(MessageSendEvent, MessageSendPayload{Body: caption, Room: room, ImageRef: ref})
}

// SharePMImage uploads an image and sends it privately to peer with an
// optional caption.
func (s *Session) SharePMImage(ctx context.Context, peer, caption, filename, mimeType string, size int64, r io.Reader) error {
	if peer == "" {
		return NewValidationError("peer", "recipient required")
	}
	ref, err := s.api.UploadImage(ctx, filename, mimeType, size, r)
	if err != nil {
		return err
	}
	return s.sendPM(peer, caption, ref)
}

// Reveal asks the server to reveal an obfuscated token using a password
// captured through prompt. The token itself is left untouched; on failure
// the user can retry with another password.
func (s *Session) Reveal(ctx context.Context, token string, prompt PasswordPrompter) (string, error) {
	password, ok := prompt()
	if !ok {
		return "", NewValidationError("password", "required to reveal")
	}
	return s.api.RevealRemote(ctx, token, password)
}

// Logout ends the session: best-effort server-side termination, local
// credential wipe, transport teardown, redirect to the entry point.
func (s *Session) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("logout: %v", err))
		s.Notices.Show("Logout request failed; local session cleared anyway.")
	}
	s.forceLogin()
	s.setState(StateDisconnected)
	s.transport.Close()
}
