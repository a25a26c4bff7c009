package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-ranker/internal/candidates"
	"github.com/spigell/cv-ranker/internal/embedding"
	"github.com/spigell/cv-ranker/internal/notify"
	"github.com/spigell/cv-ranker/internal/session"
)

type stubEmbedder map[string][]float32

func (s stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec, ok := s[text]
	if !ok {
		return nil, fmt.Errorf("%w: model offline", embedding.ErrEmbedding)
	}
	return vec, nil
}

type nopSender struct{ sent int }

func (n *nopSender) Send(context.Context, notify.Message) error {
	n.sent++
	return nil
}

func newTestServer(t *testing.T, withNotifier bool) (*Server, *nopSender) {
	t.Helper()

	store, err := candidates.NewStore([]candidates.Candidate{
		{ID: "bob", Email: "bob@example.com", Text: "internship", Embedding: []float32{0, 1}},
		{ID: "alice", Email: "alice@example.com", Text: "experience", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	sender := &nopSender{}
	opts := session.Options{
		Store:    store,
		Embedder: stubEmbedder{"Python": {1, 0}},
	}
	if withNotifier {
		opts.Notifier, err = notify.NewNotifier(sender, nil)
		require.NoError(t, err)
	}
	sess, err := session.New(opts)
	require.NoError(t, err)

	srv, err := New(Config{}, sess, nil)
	require.NoError(t, err)
	return srv, sender
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec, body := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestSetWeights(t *testing.T) {
	srv, _ := newTestServer(t, false)
	h := srv.Handler()

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{name: "valid", body: `{"skill":60,"experience":30,"internship":5,"certification":5}`, status: http.StatusOK},
		{name: "bad sum", body: `{"skill":60,"experience":30,"internship":5,"certification":6}`, status: http.StatusBadRequest, errMsg: "weights must sum to 100"},
		{name: "missing field", body: `{"skill":70,"experience":30,"internship":0}`, status: http.StatusBadRequest, errMsg: "certification is required"},
		{name: "out of range", body: `{"skill":120,"experience":-20,"internship":0,"certification":0}`, status: http.StatusBadRequest, errMsg: "skill must be between 0 and 100"},
		{name: "fractional", body: `{"skill":69.5,"experience":20.5,"internship":5,"certification":5}`, status: http.StatusBadRequest},
		{name: "malformed", body: `{`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodPost, "/set-weights", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, body["error"])
			}
		})
	}

	// only the valid request took effect
	rec, body := do(t, h, http.MethodGet, "/candidates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	weights := body["weights"].(map[string]any)
	assert.Equal(t, float64(60), weights["skill"])
	assert.Equal(t, float64(30), weights["experience"])
}

func TestFilterSkill(t *testing.T) {
	srv, _ := newTestServer(t, false)
	h := srv.Handler()

	rec, body := do(t, h, http.MethodPost, "/filter-skill", `{"skill":"Python"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	ranked := body["ranked"].([]any)
	require.Len(t, ranked, 2)
	assert.Equal(t, "alice", ranked[0].(map[string]any)["id"])
	assert.Equal(t, []any{"Python"}, body["activeSkills"])

	rec, body = do(t, h, http.MethodPost, "/filter-skill", `{"skill":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "skill is required", body["error"])

	rec, _ = do(t, h, http.MethodPost, "/filter-skill", `{"skill":"Haskell"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	_, body = do(t, h, http.MethodGet, "/candidates", "")
	assert.Equal(t, []any{"Python"}, body["activeSkills"], "failed requests leave the query alone")
}

func TestReset(t *testing.T) {
	srv, _ := newTestServer(t, false)
	h := srv.Handler()

	do(t, h, http.MethodPost, "/filter-skill", `{"skill":"Python"}`)
	rec, body := do(t, h, http.MethodPost, "/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Skills reset", body["message"])
	assert.Equal(t, []any{}, body["activeSkills"])

	_, body = do(t, h, http.MethodGet, "/candidates", "")
	ranked := body["ranked"].([]any)
	assert.Equal(t, "bob", ranked[0].(map[string]any)["id"])
	assert.Equal(t, float64(0), ranked[0].(map[string]any)["score"])
}

func TestSendEmails(t *testing.T) {
	srv, sender := newTestServer(t, true)
	h := srv.Handler()

	do(t, h, http.MethodPost, "/filter-skill", `{"skill":"Python"}`)
	rec, body := do(t, h, http.MethodPost, "/send-emails", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, body["emailed"].([]any), 2)
	report := body["report"].(map[string]any)
	assert.Equal(t, float64(2), report["delivered"])
	assert.Equal(t, 2, sender.sent)
}

func TestSendEmailsWithoutNotifier(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec, _ := do(t, srv.Handler(), http.MethodPost, "/send-emails", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/reset", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/filter-skill", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartStopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, false)
	srv.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.Start(ctx))
}
