// Package httpapi exposes the chat and activity operations over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"nutribudget"
	"nutribudget/session"
)

const defaultPollInterval = 250 * time.Millisecond

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string, detail string) {
	slog.Warn("HTTP: Request failed", "status", code, "error", msg, "detail", detail)
	if code >= 500 {
		sentry.CaptureMessage(fmt.Sprintf("HTTP %d: %s (detail: %s)", code, msg, detail))
	}
	writeJSON(w, code, apiError{Error: msg, Detail: detail})
}

type Server struct {
	svc       *session.Service
	pollEvery time.Duration
}

type Option func(*Server)

// WithPollInterval sets how often the websocket stream checks for new activity.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollEvery = d
		}
	}
}

func NewServer(svc *session.Service, opts ...Option) *Server {
	s := &Server{svc: svc, pollEvery: defaultPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API wrapped in request logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/activity", s.handleActivity)
	mux.HandleFunc("GET /api/activity/ws", s.handleActivityWS)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return RequestLogger(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.svc.Store().Len(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id := session.NewID()
	s.svc.Store().GetOrCreate(id)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := s.svc.SubmitMessage(r.Context(), strings.TrimSpace(req.SessionID), req.Message)
	switch {
	case errors.Is(err, nutribudget.ErrSessionBusy):
		w.Header().Set("Retry-After", "1")
		writeErr(w, http.StatusConflict, "session is busy", "a previous message is still being processed")
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "failed to process message", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// activityQuery reads session_id and the optional since cursor.
func activityQuery(r *http.Request) (string, uint64, error) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("session_id"))
	if id == "" {
		return "", 0, errors.New("session_id is required")
	}
	var since uint64
	if raw := q.Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("since must be a non-negative integer")
		}
		since = v
	}
	return id, since, nil
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, since, err := activityQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	res, err := s.svc.PollActivity(r.Context(), id, since)
	switch {
	case errors.Is(err, nutribudget.ErrSessionNotFound):
		writeErr(w, http.StatusNotFound, "session not found", id)
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "failed to read activity", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
