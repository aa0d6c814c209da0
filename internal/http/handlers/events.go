package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hairstudio/internal/upload"
	"hairstudio/internal/workflow"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = eventsPongWait * 9 / 10
)

type uploadEvent struct {
	upload.Event
	Percent int `json:"percent"`
}

// sessionEvent is one message on the events stream. Exactly one payload is set.
type sessionEvent struct {
	Type    string             `json:"type"`
	Session *workflow.Snapshot `json:"session,omitempty"`
	Upload  *uploadEvent       `json:"upload,omitempty"`
}

// SessionEvents streams upload progress and session snapshots over a
// websocket until the client disconnects.
func (a *App) SessionEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	upgrader := a.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("events: upgrade failed")
		return
	}
	defer conn.Close()

	uploads, unsubscribe := s.Uploads().Subscribe(64)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev sessionEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			a.Logger.Debug().Err(err).Str("session", s.ID()).Msg("events: write failed")
			return false
		}
		return true
	}
	snapshot := func() bool {
		snap := s.Snapshot()
		return send(sessionEvent{Type: "session", Session: &snap})
	}

	ping := time.NewTicker(eventsPingPeriod)
	defer ping.Stop()

	changed := s.Changed()
	if !snapshot() {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-changed:
			changed = s.Changed()
			if !snapshot() {
				return
			}
		case ev, ok := <-uploads:
			if !ok {
				return
			}
			if !send(sessionEvent{Type: "upload", Upload: &uploadEvent{Event: ev, Percent: ev.Percent()}}) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
