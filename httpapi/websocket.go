package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"nutribudget"
	"nutribudget/session"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// handleActivityWS streams activity entries as PollResult frames. A frame is written
// whenever new entries appear or the status changes; the stream closes once the session
// is complete.
func (s *Server) handleActivityWS(w http.ResponseWriter, r *http.Request) {
	id, since, err := activityQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if _, err := s.svc.PollActivity(r.Context(), id, since); errors.Is(err, nutribudget.ErrSessionNotFound) {
		writeErr(w, http.StatusNotFound, "session not found", id)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// the reader only drains control frames; any error means the client is gone
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.stream(ctx, conn, id, since)
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn, id string, since uint64) {
	poll := time.NewTicker(s.pollEvery)
	defer poll.Stop()
	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()

	lastStatus := ""
	for {
		res, err := s.svc.PollActivity(ctx, id, since)
		if err != nil {
			// evicted while streaming
			_ = writeClose(conn, websocket.CloseGoingAway, err.Error())
			return
		}
		if len(res.Entries) > 0 || res.Status != lastStatus {
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(res); err != nil {
				slog.Debug("HTTP: Activity stream write failed", "session_id", id, "error", err)
				return
			}
			if n := len(res.Entries); n > 0 {
				since = res.Entries[n-1].Seq
			}
			lastStatus = res.Status
		}
		if res.Status == session.StatusComplete {
			_ = writeClose(conn, websocket.CloseNormalClosure, "complete")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-poll.C:
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) error {
	return conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
}
