// Package gateway exposes the orchestration loop over HTTP: a streaming
// SSE chat endpoint plus session and feedback management.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stevechen1112/aetheria/internal/agent"
	"github.com/stevechen1112/aetheria/internal/observability"
	"github.com/stevechen1112/aetheria/internal/store"
	"github.com/stevechen1112/aetheria/pkg/models"
)

// messageReadLimit caps the messages returned per session.
const messageReadLimit = 200

// Server is the HTTP gateway.
type Server struct {
	loop   *agent.Loop
	store  store.Store
	auth   *Authenticator
	logger *observability.Logger

	addr       string
	httpServer *http.Server
}

// New wires the gateway.
func New(addr string, loop *agent.Loop, st store.Store, auth *Authenticator, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Server{
		loop:   loop,
		store:  st,
		auth:   auth,
		logger: logger,
		addr:   addr,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.requireUser(s.handleChat))
	mux.HandleFunc("POST /api/chat/complete", s.requireUser(s.handleChatComplete))
	mux.HandleFunc("GET /api/sessions", s.requireUser(s.handleListSessions))
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.requireUser(s.handleSessionMessages))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.requireUser(s.handleDeleteSession))
	mux.HandleFunc("POST /api/messages/{id}/feedback", s.requireUser(s.handleFeedback))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return mux
}

// Start begins serving. It returns once the listener is bound; serving
// continues in the background until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "http server error", "error", err)
		}
	}()

	s.logger.Info(context.Background(), "gateway listening", "addr", listener.Addr().String())
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// requireUser authenticates the request and threads correlation ids into
// the context.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.UserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := observability.WithRequestID(r.Context(), uuid.NewString())
		ctx = observability.WithUserID(ctx, userID)
		next(w, r.WithContext(ctx), userID)
	}
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, userID string) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	turn := s.loop.Run(r.Context(), userID, req.SessionID, req.Message)
	for ev := range turn {
		if err := sse.Send(string(ev.Type), eventPayload(ev)); err != nil {
			// Client went away; keep draining so the turn goroutine can
			// finish while r.Context() cancellation propagates.
			s.logger.Debug(r.Context(), "sse write failed", "error", err)
			go func() {
				for range turn {
				}
			}()
			return
		}
	}
}

// eventPayload maps a turn event to its wire body. Each SSE event name
// carries only its own fields.
func eventPayload(ev models.TurnEvent) any {
	switch ev.Type {
	case models.EventSession, models.EventDone:
		return map[string]string{"session_id": ev.SessionID}
	case models.EventText:
		return map[string]string{"chunk": ev.Text}
	case models.EventWidget:
		return ev.Widget
	case models.EventTool:
		return ev.Tool
	case models.EventProgress:
		return ev.Progress
	default:
		return ev
	}
}

type chatResponse struct {
	SessionID string             `json:"session_id"`
	Reply     string             `json:"reply"`
	Widget    *models.Widget     `json:"widget,omitempty"`
	Tools     []models.ToolStatus `json:"tools,omitempty"`
}

// handleChatComplete runs a turn to completion and returns it as one JSON
// document. Used by clients that cannot consume SSE.
func (s *Server) handleChatComplete(w http.ResponseWriter, r *http.Request, userID string) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp := chatResponse{SessionID: req.SessionID}
	var reply strings.Builder
	done := false
	for ev := range s.loop.Run(r.Context(), userID, req.SessionID, req.Message) {
		switch ev.Type {
		case models.EventSession:
			resp.SessionID = ev.SessionID
		case models.EventText:
			reply.WriteString(ev.Text)
		case models.EventWidget:
			resp.Widget = ev.Widget
		case models.EventTool:
			if ev.Tool != nil && ev.Tool.Status != models.ToolExecuting {
				resp.Tools = append(resp.Tools, *ev.Tool)
			}
		case models.EventDone:
			done = true
		}
	}
	if !done {
		writeError(w, http.StatusRequestTimeout, "turn did not complete")
		return
	}
	resp.Reply = reply.String()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, userID string) {
	sessions, err := s.store.ListSessions(r.Context(), userID)
	if err != nil {
		s.logger.Error(r.Context(), "session list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request, userID string) {
	session, ok := s.ownedSession(w, r, userID)
	if !ok {
		return
	}
	msgs, err := s.store.ReadRecent(r.Context(), session.ID, messageReadLimit)
	if err != nil {
		s.logger.Error(r.Context(), "message read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, userID string) {
	session, ok := s.ownedSession(w, r, userID)
	if !ok {
		return
	}
	if err := s.store.DeleteSession(r.Context(), session.ID); err != nil {
		s.logger.Error(r.Context(), "session delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": session.ID})
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, userID string) {
	messageID := r.PathValue("id")
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Rating != 1 && req.Rating != -1 {
		writeError(w, http.StatusBadRequest, "rating must be 1 or -1")
		return
	}
	if err := s.store.RecordFeedback(r.Context(), messageID, req.Rating, req.Comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		s.logger.Error(r.Context(), "feedback write failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recorded": messageID})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// ownedSession loads the path session and enforces ownership. Foreign
// sessions are indistinguishable from missing ones.
func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request, userID string) (*models.Session, bool) {
	sessionID := r.PathValue("id")
	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			s.logger.Error(r.Context(), "session read failed", "error", err)
			writeError(w, http.StatusInternalServerError, "storage failure")
		}
		return nil, false
	}
	if session.UserID != userID {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
