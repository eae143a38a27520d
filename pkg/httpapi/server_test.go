package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayhan/aska/pkg/auth"
	"github.com/rayhan/aska/pkg/chat"
	"github.com/rayhan/aska/pkg/llm"
	"github.com/rayhan/aska/pkg/persona"
	"github.com/rayhan/aska/pkg/prompt"
	"github.com/rayhan/aska/pkg/session"
)

type stubProvider struct {
	mu     sync.Mutex
	answer string
	err    error
}

func (p *stubProvider) Call(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.answer}, nil
}

func (p *stubProvider) Name() string { return "stub" }

type testEnv struct {
	server   *Server
	provider *stubProvider
	users    *auth.Store
	store    *session.Store
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	provider := &stubProvider{answer: "a fine answer"}
	store := session.NewStore()
	users := auth.NewStore()
	catalog := persona.NewCatalog()
	service := chat.NewService(store, users, prompt.NewComposer(catalog), provider, nil, nil, zerolog.Nop(), chat.Options{Timeout: time.Second})
	saver := session.NewSaver(store, session.NewFilePersister(filepath.Join(t.TempDir(), "sessions.json")), zerolog.Nop())

	srv, err := NewServer(ServerOptions{RateLimitPerMinute: 1000}, service, users, catalog, saver, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.rateLimiter.Stop() })

	return &testEnv{server: srv, provider: provider, users: users, store: store}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAskEndpoint_Success(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "What is the capital of France?"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "a fine answer", body["answer"])
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "default_session", body["session_id"])
	assert.Equal(t, false, body["authenticated"])
	assert.Nil(t, body["username"])
	assert.Equal(t, "factual", body["question_type"])
	assert.Len(t, body["history"], 1)
}

func TestAskEndpoint_MissingQuestion(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/ask", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Missing 'question' in request body", body["error"])
}

func TestAskEndpoint_InvalidJSON(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Missing 'question' in request body", body["error"])
}

func TestAskEndpoint_ModelFailure(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	env.provider.err = errors.New("remote unavailable")
	rec := doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "hello", "session_id": "sess"}, nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Zero(t, env.store.Len("sess"))
}

func TestAskEndpoint_MethodNotAllowed(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/ask", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "q1", "session_id": "sess"}, nil)
	doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "q2", "session_id": "sess"}, nil)

	rec := doJSON(t, handler, http.MethodGet, "/history?session_id=sess", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, "sess", body["session_id"])
}

func TestClearHistoryEndpoint(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "q", "session_id": "sess"}, nil)
	require.Equal(t, 1, env.store.Len("sess"))

	rec := doJSON(t, handler, http.MethodPost, "/clear-history", map[string]string{"session_id": "sess"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Chat history cleared successfully", body["message"])
	assert.Equal(t, "success", body["status"])
	assert.Zero(t, env.store.Len("sess"))
}

func TestClearAllEndpoint(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	for _, id := range []string{"a", "b", "c"} {
		doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "q", "session_id": id}, nil)
	}

	rec := doJSON(t, handler, http.MethodPost, "/clear-all", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["cleared_sessions"])
}

func TestPersonasAndCategoriesEndpoints(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/personas", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "default")
	assert.Contains(t, rec.Body.String(), "concise")

	rec = doJSON(t, handler, http.MethodGet, "/categories", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "factual")
	assert.Contains(t, rec.Body.String(), "instruction")
}

func TestAuthEndpoints_FullFlow(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	// Register.
	rec := doJSON(t, handler, http.MethodPost, "/register", map[string]string{"username": "alice", "password": "s3cret"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate register.
	rec = doJSON(t, handler, http.MethodPost, "/register", map[string]string{"username": "alice", "password": "other"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Login.
	rec = doJSON(t, handler, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "s3cret"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := decodeBody(t, rec)["session_id"].(string)
	require.NotEmpty(t, sessionID)

	// Asking with the minted session is authenticated.
	rec = doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "hello", "session_id": sessionID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "alice", body["username"])

	// The session header alone also authenticates.
	rec = doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "hello again"}, map[string]string{SessionHeader: sessionID})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["authenticated"])

	// Logout then the binding is gone.
	rec = doJSON(t, handler, http.MethodPost, "/logout", map[string]string{"session_id": sessionID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "hello", "session_id": sessionID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["authenticated"])
}

func TestLoginEndpoint_InvalidCredentials(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	doJSON(t, handler, http.MethodPost, "/register", map[string]string{"username": "alice", "password": "s3cret"}, nil)

	wrongPassword := doJSON(t, handler, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "nope"}, nil)
	unknownUser := doJSON(t, handler, http.MethodPost, "/login", map[string]string{"username": "mallory", "password": "s3cret"}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	// The error body never reveals which field was wrong.
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestSaveEndpoint(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	doJSON(t, handler, http.MethodPost, "/ask", map[string]string{"question": "q", "session_id": "sess"}, nil)

	rec := doJSON(t, handler, http.MethodPost, "/save", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeBody(t, rec)["status"])
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t)
	handler := env.server.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.CheckLimit("1.2.3.4"))
	}
	assert.False(t, rl.CheckLimit("1.2.3.4"))
	assert.Greater(t, rl.GetRetryAfter("1.2.3.4"), 0)

	// A different IP is unaffected.
	assert.True(t, rl.CheckLimit("5.6.7.8"))
}
