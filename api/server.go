package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/cattower/game/config"
	"github.com/wricardo/cattower/game/engine"
	"github.com/wricardo/cattower/game/service"
	"github.com/wricardo/cattower/transport/websocket"
)

// maxBatchIntents caps the intents accepted by one batch request
const maxBatchIntents = 50

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  log15.Logger
}

// NewServer creates a new API server. Intents sent by WebSocket clients are
// routed to gameService.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger log15.Logger) *Server {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	hub.SetIntentHandler(s.forwardIntent)
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/intent", s.handleIntent).Methods("POST")
	api.HandleFunc("/sessions/{id}/intents", s.handleIntents).Methods("POST")

	// Levels
	api.HandleFunc("/levels", s.handleListLevels).Methods("GET")
	api.HandleFunc("/levels/schema", s.handleLevelSchema).Methods("GET")
	api.HandleFunc("/levels/{id}", s.handleGetLevel).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrLevelNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidIntent):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LevelID string `json:"level_id,omitempty"`
	}

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := s.service.CreateSession(r.Context(), req.LevelID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.logger.Info("session created", "session", session.ID, "level", session.LevelID)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created" or "accessed" (default)
	order := query.Get("order") // "asc" or "desc" (default)

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(sessions) {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.hub.BroadcastEvent(sessionID, websocket.EventSessionDeleted, nil)
	s.hub.Detach(sessionID)
	s.logger.Info("session deleted", "session", sessionID)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	view, err := s.service.GetState(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, view)
}

type intentRequest struct {
	Intent string `json:"intent"`
	Wait   *bool  `json:"wait,omitempty"`
}

// wait defaults to true so a plain request reports the outcome of its move
func (req intentRequest) wait() bool {
	return req.Wait == nil || *req.Wait
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Intent == "" {
		respondError(w, http.StatusBadRequest, "intent is required")
		return
	}

	result, err := s.service.SendIntent(r.Context(), sessionID, req.Intent, req.wait())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	status := http.StatusOK
	if !result.Accepted {
		status = http.StatusConflict
	}
	respondJSON(w, status, result)
}

// handleIntents sends several intents in order, each settled before the
// next, and stops at the first one the session rejects.
func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Intents []string `json:"intents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Intents) == 0 {
		respondError(w, http.StatusBadRequest, "intents are required")
		return
	}
	if len(req.Intents) > maxBatchIntents {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d intents per request", maxBatchIntents))
		return
	}

	// parse everything up front so a typo does not leave a half-applied batch
	for _, in := range req.Intents {
		if _, err := engine.ParseIntent(in); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	results := make([]*service.IntentResult, 0, len(req.Intents))
	var last *service.IntentResult
	for _, in := range req.Intents {
		result, err := s.service.SendIntent(r.Context(), sessionID, in, true)
		if err != nil {
			respondError(w, statusFor(err), err.Error())
			return
		}
		results = append(results, result)
		last = result
		if !result.Accepted {
			break
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"requested": len(req.Intents),
		"executed":  len(results),
		"results":   results,
		"view":      last.View,
	})
}

// Level Handlers

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(levels),
		"levels": levels,
	})
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	levelID := mux.Vars(r)["id"]

	level, err := s.service.GetLevel(r.Context(), levelID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, level)
}

func (s *Server) handleLevelSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, config.LevelSchema())
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	if o, fresh := s.hub.Attach(sessionID); fresh {
		if err := s.service.Watch(r.Context(), sessionID, o); err != nil {
			s.hub.Detach(sessionID)
			http.Error(w, err.Error(), statusFor(err))
			return
		}
	}

	s.hub.ServeWS(w, r, sessionID)
}

// forwardIntent queues an intent received over the WebSocket; the outcome
// reaches the client through the session's state stream.
func (s *Server) forwardIntent(sessionID, intent string) error {
	result, err := s.service.SendIntent(context.Background(), sessionID, intent, false)
	if err != nil {
		return err
	}
	if !result.Accepted {
		return errors.New(result.Message)
	}
	return nil
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
