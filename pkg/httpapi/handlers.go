package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rayhan/aska/internal/observability"
	"github.com/rayhan/aska/pkg/auth"
	"github.com/rayhan/aska/pkg/chat"
	"github.com/rayhan/aska/pkg/classify"
	"github.com/rayhan/aska/pkg/session"
)

// askRequest is the /ask payload.
type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	Persona   string `json:"persona,omitempty"`
}

// askResponse is the /ask success shape.
type askResponse struct {
	Answer        string        `json:"answer"`
	Status        string        `json:"status"`
	SessionID     string        `json:"session_id"`
	Authenticated bool          `json:"authenticated"`
	Username      *string       `json:"username"`
	Persona       string        `json:"persona"`
	QuestionType  *string       `json:"question_type"`
	History       []turnPayload `json:"history"`
}

// turnPayload mirrors session.Turn for the wire.
type turnPayload struct {
	ID        string `json:"id,omitempty"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Persona   string `json:"persona"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// authContext resolves the transport-level session binding from the
// session header, if one is present and bound to a user.
func (s *Server) authContext(r *http.Request) chat.AuthContext {
	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		return chat.AuthContext{}
	}

	if bound, username := s.users.IsSessionBound(sessionID); bound {
		return chat.AuthContext{SessionID: sessionID, Username: username}
	}
	return chat.AuthContext{SessionID: sessionID}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Missing 'question' in request body")
		return
	}

	result, err := s.service.Ask(r.Context(), chat.AskRequest{
		Question:  req.Question,
		SessionID: req.SessionID,
		Persona:   req.Persona,
	}, s.authContext(r))

	if err != nil {
		var validationErr *chat.ValidationError
		var remoteErr *chat.RemoteModelError
		switch {
		case errors.As(err, &validationErr):
			s.writeError(w, http.StatusBadRequest, validationErr.Error())
		case errors.As(err, &remoteErr):
			s.writeError(w, http.StatusBadGateway, remoteErr.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, "Unexpected error: "+err.Error())
		}
		return
	}

	resp := askResponse{
		Answer:        result.Answer,
		Status:        "success",
		SessionID:     result.SessionID,
		Authenticated: result.Authenticated,
		Persona:       result.Persona,
		History:       toTurnPayloads(result.History),
	}
	if result.Username != "" {
		resp.Username = &result.Username
	}
	if result.QuestionType != classify.CategoryNone {
		qt := string(result.QuestionType)
		resp.QuestionType = &qt
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, history := s.service.History(r.URL.Query().Get("session_id"))

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"history":    toTurnPayloads(history),
		"count":      len(history),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	// A missing or empty body clears the default session.
	_ = json.NewDecoder(r.Body).Decode(&req)

	sessionID := s.service.ClearHistory(req.SessionID)

	s.writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Chat history cleared successfully",
		"status":     "success",
		"session_id": sessionID,
	})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	count := s.service.ClearAll()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "success",
		"cleared_sessions": count,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.service.Sessions()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"personas": s.catalog.Keys(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": classify.Categories(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Missing credentials in request body")
		return
	}

	err := s.users.Register(req.Username, req.Password)
	observability.RecordAuthOperation("register", err == nil)
	if err != nil {
		observability.RecordAuthAudit("register", req.Username, "failure")
		switch {
		case errors.Is(err, auth.ErrUserExists):
			s.writeError(w, http.StatusConflict, "username already exists")
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.writeError(w, http.StatusBadRequest, "username and password are required")
		default:
			s.writeError(w, http.StatusInternalServerError, "Unexpected error: "+err.Error())
		}
		return
	}

	observability.RecordAuthAudit("register", req.Username, "success")
	s.persistUsers()
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"status":   "success",
		"username": req.Username,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Missing credentials in request body")
		return
	}

	sessionID, err := s.users.Login(req.Username, req.Password)
	observability.RecordAuthOperation("login", err == nil)
	if err != nil {
		observability.RecordAuthAudit("login", req.Username, "failure")
		// One generic message for every credential failure.
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	observability.RecordAuthAudit("login", req.Username, "success")
	s.persistUsers()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"username":   req.Username,
		"session_id": sessionID,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "Missing 'session_id' in request body")
		return
	}

	err := s.users.Logout(req.SessionID)
	observability.RecordAuthOperation("logout", err == nil)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "unknown session")
		return
	}

	s.persistUsers()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.saver == nil {
		s.writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	if err := s.saver.Save(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// persistUsers saves user records best-effort after an auth mutation.
// Failures are logged; in-memory state stays authoritative.
func (s *Server) persistUsers() {
	if s.options.UsersPath == "" {
		return
	}
	if err := s.users.SaveFile(s.options.UsersPath); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist users")
	}
}

func toTurnPayloads(history []session.Turn) []turnPayload {
	out := make([]turnPayload, 0, len(history))
	for _, turn := range history {
		out = append(out, turnPayload{
			ID:        turn.ID,
			Question:  turn.Question,
			Answer:    turn.Answer,
			Timestamp: turn.Timestamp.Format(time.RFC3339Nano),
			User:      turn.User,
			Persona:   turn.Persona,
		})
	}
	return out
}
