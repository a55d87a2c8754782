package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the server.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the server.
	pongWait = 60 * time.Second

	// Send pings to the server with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	streamSize = 100
)

// WSTransport is the client side of the push event stream. It dials the
// server's websocket endpoint with the bearer token and pumps events in both
// directions until closed. Reconnection is not attempted here; the session
// layer observes Done and decides what the disconnect means.
type WSTransport struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	conn        *websocket.Conn
	writeStream chan *Event
	readStream  chan *Event
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

func NewWSTransport(url string, logger *slog.Logger) *WSTransport {
	return &WSTransport{
		url:         url,
		dialer:      websocket.DefaultDialer,
		logger:      logger,
		writeStream: make(chan *Event, streamSize),
		readStream:  make(chan *Event, streamSize),
		done:        make(chan struct{}),
	}
}

// Dial opens the connection and starts the read and write loops. A 401 or
// 403 handshake rejection means the credential is bad and maps to ErrAuth,
// which is terminal for the session.
func (t *WSTransport) Dial(ctx context.Context, token string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: handshake rejected with %d", ErrAuth, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", t.url, err)
	}
	t.conn = conn

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.readLoop()
	}()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.writeLoop()
	}()
	return nil
}

// Send queues an outbound event. It blocks when the write stream is full.
func (t *WSTransport) Send(e *Event) {
	select {
	case t.writeStream <- e:
	case <-t.done:
		t.logger.Debug(fmt.Sprintf("send after close, dropped: %v", e))
	}
}

// Receive returns the inbound event stream. The channel is closed when the
// connection goes down.
func (t *WSTransport) Receive() <-chan *Event {
	return t.readStream
}

// Done is closed when the connection has gone down for any reason.
func (t *WSTransport) Done() <-chan struct{} {
	return t.done
}

// Close tears the connection down gracefully: the write loop sends a close
// message and the read loop winds down when the server responds in kind.
func (t *WSTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.writeStream)
	})
	t.wg.Wait()
}

func (t *WSTransport) readLoop() {
	t.logger.Debug("read loop started")
	defer func() {
		t.conn.Close()
		close(t.readStream)
		t.closeDone()
		t.logger.Debug("read loop stopped")
	}()

	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		format, r, err := t.conn.NextReader()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Debug(fmt.Sprintf("expected close: %v", err))
				return
			}
			if websocket.IsUnexpectedCloseError(err) {
				t.logger.Error(fmt.Sprintf("unexpected close: %v", err))
				return
			}
			t.logger.Error(fmt.Sprintf("NextReader: %v", err))
			return
		}

		if format != websocket.TextMessage {
			t.logger.Error(fmt.Sprintf("unexpected message format: %v", format))
			continue
		}

		var event Event
		if err := DecodeEvent(r, &event); err != nil {
			t.logger.Error(err.Error())
			continue
		}
		t.readStream <- &event
	}
}

func (t *WSTransport) writeLoop() {
	t.logger.Debug("write loop started")
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.logger.Debug("write loop stopped")
	}()

	for {
		select {
		case e, ok := <-t.writeStream:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				t.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			w, err := t.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				t.logger.Error(fmt.Sprintf("getting next writer: %v", err))
				return
			}
			if err := EncodeEvent(w, e); err != nil {
				t.logger.Error(err.Error())
			}
			w.Close()
		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.logger.Error(fmt.Sprintf("writing ping: %v", err))
				return
			}
		}
	}
}

func (t *WSTransport) closeDone() {
	// done doubles as the close signal for Send, so it must only close once
	// even when Close and a remote disconnect race.
	t.closeOnce.Do(func() {
		close(t.writeStream)
	})
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}
