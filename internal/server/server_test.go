package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kontexthq/kontext/internal/config"
	"github.com/kontexthq/kontext/internal/core"
	"github.com/kontexthq/kontext/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubLLM echoes a canned reply, or fails on demand.
type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestServer(client *stubLLM) *gin.Engine {
	cfg := config.Default().Engine
	cfg.CleanupChance = 0
	engine := core.NewEngine(store.NewCache(0, 0), cfg, nil)
	if client == nil {
		return New(engine, nil, nil).SetupRouter()
	}
	return New(engine, client, nil).SetupRouter()
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTurnReturnsPrompt(t *testing.T) {
	r := newTestServer(nil)

	w := postJSON(t, r, "/turn", gin.H{
		"user_id": "u1",
		"message": "my cash flow is tight",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TurnID)
	assert.Contains(t, resp.Prompt, "Owner's question: my cash flow is tight")
	assert.Empty(t, resp.Reply)
}

func TestTurnValidation(t *testing.T) {
	r := newTestServer(nil)

	w := postJSON(t, r, "/turn", gin.H{"user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, r, "/turn", gin.H{"message": "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTurnGeneratesReplyWhenAsked(t *testing.T) {
	client := &stubLLM{reply: "try negotiating supplier terms"}
	r := newTestServer(client)

	w := postJSON(t, r, "/turn", gin.H{
		"user_id":  "u1",
		"message":  "inventory keeps piling up",
		"generate": true,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "try negotiating supplier terms", resp.Reply)
	assert.Equal(t, 1, client.calls)
}

func TestTurnWithoutGenerateSkipsLLM(t *testing.T) {
	client := &stubLLM{reply: "unused"}
	r := newTestServer(client)

	w := postJSON(t, r, "/turn", gin.H{
		"user_id": "u1",
		"message": "inventory keeps piling up",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, client.calls)
}

func TestTurnGenerationFailureReturnsPromptOnly(t *testing.T) {
	client := &stubLLM{err: errors.New("provider timeout")}
	r := newTestServer(client)

	w := postJSON(t, r, "/turn", gin.H{
		"user_id":  "u1",
		"message":  "revenue dropped",
		"generate": true,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Prompt)
	assert.Empty(t, resp.Reply)
}

func TestKnowledgeEndpoint(t *testing.T) {
	r := newTestServer(nil)

	w := postJSON(t, r, "/turn", gin.H{"user_id": "u1", "message": "my cash flow is tight"})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/knowledge?user_id=u1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Entities []struct {
			Name string `json:"name"`
		} `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Entities)
	assert.Equal(t, "cash_flow", resp.Entities[0].Name)
}

func TestKnowledgeRequiresUserID(t *testing.T) {
	r := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/knowledge", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearEndpoint(t *testing.T) {
	r := newTestServer(nil)

	w := postJSON(t, r, "/turn", gin.H{"user_id": "u1", "message": "my cash flow is tight"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, r, "/clear", gin.H{"user_id": "u1"})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/knowledge?user_id=u1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Entities []json.RawMessage `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Entities)
}

func TestCleanupEndpoint(t *testing.T) {
	r := newTestServer(nil)

	w := postJSON(t, r, "/cleanup", gin.H{"user_id": "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Removed int `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Removed)

	// No body sweeps all users.
	req := httptest.NewRequest(http.MethodPost, "/cleanup", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
