// Package chat orchestrates one ask request: session resolution, auth
// lookup, classification, prompt composition, the remote model call,
// and recording of the resulting turn.
package chat

import (
	"context"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/rayhan/aska/internal/observability"
	"github.com/rayhan/aska/pkg/auth"
	"github.com/rayhan/aska/pkg/classify"
	"github.com/rayhan/aska/pkg/llm"
	"github.com/rayhan/aska/pkg/persona"
	"github.com/rayhan/aska/pkg/prompt"
	"github.com/rayhan/aska/pkg/session"
)

// DefaultSessionID is used when a request carries no session id and the
// auth context has none either.
const DefaultSessionID = "default_session"

// AnonymousUser is recorded on turns made outside any account.
const AnonymousUser = "anonymous"

// Saver persists session state off the request path.
type Saver interface {
	SaveAsync()
}

// Broadcaster publishes service events to subscribers.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Options tunes the model call made for each ask.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// AskRequest is one inbound question.
type AskRequest struct {
	Question  string
	SessionID string
	Persona   string
}

// AuthContext carries the transport-level session binding, if any.
type AuthContext struct {
	SessionID string
	Username  string
}

// AskResult is the structured outcome of a successful ask.
type AskResult struct {
	Answer        string
	SessionID     string
	Authenticated bool
	Username      string
	Persona       string
	QuestionType  classify.Category
	History       []session.Turn
}

// Service coordinates the conversational pipeline. It never mutates
// histories directly; all history changes go through the session store.
type Service struct {
	store       *session.Store
	users       *auth.Store
	composer    *prompt.Composer
	provider    llm.Provider
	saver       Saver
	broadcaster Broadcaster
	logger      zerolog.Logger
	opts        Options
}

// NewService wires the conversational pipeline. saver and broadcaster
// may be nil; persistence and events are then skipped.
func NewService(store *session.Store, users *auth.Store, composer *prompt.Composer, provider llm.Provider, saver Saver, broadcaster Broadcaster, logger zerolog.Logger, opts Options) *Service {
	observability.EnsureRegistered()

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Service{
		store:       store,
		users:       users,
		composer:    composer,
		provider:    provider,
		saver:       saver,
		broadcaster: broadcaster,
		logger:      logger,
		opts:        opts,
	}
}

// Ask runs one question through the pipeline and records the turn. A
// failed model call leaves the session's history unchanged.
func (s *Service) Ask(ctx context.Context, req AskRequest, authCtx AuthContext) (*AskResult, error) {
	start := time.Now()

	if strings.TrimSpace(req.Question) == "" {
		observability.RecordAsk(time.Since(start), "validation_error")
		return nil, ErrMissingQuestion
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = authCtx.SessionID
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	personaKey := req.Persona
	if personaKey == "" {
		personaKey = persona.DefaultKey
	}

	// The transport-level auth context takes precedence; the user-store
	// scan is the fallback for session ids minted by an earlier login.
	authenticated := false
	username := ""
	if authCtx.SessionID == sessionID && authCtx.Username != "" {
		authenticated = true
		username = authCtx.Username
	} else if bound, u := s.users.IsSessionBound(sessionID); bound {
		authenticated = true
		username = u
	}

	history := s.store.GetOrCreate(sessionID)
	category := classify.Classify(req.Question)
	composed := s.composer.Compose(personaKey, category, history, req.Question)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	callStart := time.Now()
	response, err := s.provider.Call(callCtx, llm.Request{
		Model:        s.opts.Model,
		SystemPrompt: composed.System,
		Messages:     []llm.Message{{Role: "user", Content: composed.Human}},
		Temperature:  s.opts.Temperature,
		MaxTokens:    s.opts.MaxTokens,
	})
	observability.RecordModelCall(s.provider.Name(), time.Since(callStart), err == nil)

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Str("provider", s.provider.Name()).
			Msg("Model call failed")
		observability.RecordAsk(time.Since(start), "model_error")
		return nil, &RemoteModelError{Err: err}
	}

	actingUser := username
	if actingUser == "" {
		actingUser = AnonymousUser
	}

	turn := session.Turn{
		ID:        newTurnID(),
		Question:  req.Question,
		Answer:    response.Content,
		Timestamp: time.Now(),
		User:      actingUser,
		Persona:   personaKey,
	}
	s.store.Append(sessionID, turn)
	observability.SetActiveSessions(len(s.store.ListSessions()))

	if s.saver != nil {
		s.saver.SaveAsync()
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast("turn.recorded", map[string]interface{}{
			"session_id": sessionID,
			"turn_id":    turn.ID,
			"user":       actingUser,
			"persona":    personaKey,
		})
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("persona", personaKey).
		Str("question_type", string(category)).
		Bool("authenticated", authenticated).
		Dur("duration", time.Since(start)).
		Msg("Ask completed")
	observability.RecordAsk(time.Since(start), "success")

	return &AskResult{
		Answer:        response.Content,
		SessionID:     sessionID,
		Authenticated: authenticated,
		Username:      username,
		Persona:       personaKey,
		QuestionType:  category,
		History:       s.store.GetOrCreate(sessionID),
	}, nil
}

// History returns the current history for a session, defaulting to the
// shared anonymous session.
func (s *Service) History(sessionID string) (string, []session.Turn) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return sessionID, s.store.GetOrCreate(sessionID)
}

// ClearHistory empties one session's history and notifies subscribers.
func (s *Service) ClearHistory(sessionID string) string {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	s.store.Clear(sessionID)
	if s.saver != nil {
		s.saver.SaveAsync()
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast("session.cleared", map[string]interface{}{"session_id": sessionID})
	}
	observability.RecordSessionAudit("history_cleared", sessionID, nil)
	return sessionID
}

// ClearAll empties every session's history and returns the prior count.
func (s *Service) ClearAll() int {
	count := s.store.ClearAll()
	if s.saver != nil {
		s.saver.SaveAsync()
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast("session.cleared", map[string]interface{}{"all": true, "sessions": count})
	}
	observability.RecordSessionAudit("all_histories_cleared", "", map[string]interface{}{"sessions": count})
	return count
}

// Sessions lists known session ids.
func (s *Service) Sessions() []string {
	return s.store.ListSessions()
}

// newTurnID mints a short unique id for a recorded turn.
func newTurnID() string {
	id, err := gonanoid.New()
	if err != nil {
		return ""
	}
	return id
}
