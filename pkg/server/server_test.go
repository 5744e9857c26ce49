package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tenet "github.com/tenetdb/tenet"
	"github.com/tenetdb/tenet/pkg/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	client, err := tenet.NewClient(tenet.Config{
		ProjectPath: "/work/demo",
		BaseDir:     t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	srv := New(&config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 0, Mode: "test"},
	}, client, nil)
	srv.Setup()
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w, body := doJSON(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "tenet", body["service"])

	w, body = doJSON(t, srv, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestRememberEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w, body := doJSON(t, srv, http.MethodPost, "/api/v1/remember",
		`{"text":"We use PostgreSQL as the database.","session_id":"sess-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["facts_created"])

	t.Run("missing text", func(t *testing.T) {
		w, _ := doJSON(t, srv, http.MethodPost, "/api/v1/remember", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("all scope rejected", func(t *testing.T) {
		w, _ := doJSON(t, srv, http.MethodPost, "/api/v1/remember",
			`{"text":"We use terraform.","scope":"all"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRecallEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w, _ := doJSON(t, srv, http.MethodPost, "/api/v1/remember",
		`{"text":"We use PostgreSQL as the database."}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, srv, http.MethodPost, "/api/v1/recall",
		`{"query":"postgresql database"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, results)

	w, body = doJSON(t, srv, http.MethodPost, "/api/v1/recall/index",
		`{"query":"postgresql database"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	previews, ok := body["results"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, previews)

	preview := previews[0].(map[string]any)
	id, _ := preview["id"].(string)
	require.NotEmpty(t, id)

	w, body = doJSON(t, srv, http.MethodPost, "/api/v1/recall/details",
		`{"ids":["`+id+`"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	details, ok := body["results"].([]any)
	require.True(t, ok)
	assert.Len(t, details, 1)

	t.Run("invalid scope", func(t *testing.T) {
		w, _ := doJSON(t, srv, http.MethodPost, "/api/v1/recall",
			`{"query":"anything","scope":"bogus"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExplainEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w, _ := doJSON(t, srv, http.MethodGet, "/api/v1/facts/no-such-id/explain", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChangesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w, _ := doJSON(t, srv, http.MethodPost, "/api/v1/remember",
		`{"text":"The default branch is main."}`)
	require.Equal(t, http.StatusOK, w.Code)

	since := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)
	w, body := doJSON(t, srv, http.MethodGet, "/api/v1/changes?since="+since, "")
	assert.Equal(t, http.StatusOK, w.Code)
	facts, ok := body["facts"].([]any)
	require.True(t, ok)
	assert.Len(t, facts, 1)

	t.Run("missing since", func(t *testing.T) {
		w, _ := doJSON(t, srv, http.MethodGet, "/api/v1/changes", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSweepEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w, body := doJSON(t, srv, http.MethodPost, "/api/v1/sweep", `{"budget_ms":1000}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["budget_honored"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recall", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
