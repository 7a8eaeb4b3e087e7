package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidbatch/vidbatch/internal/batch"
	"github.com/vidbatch/vidbatch/internal/config"
	"github.com/vidbatch/vidbatch/internal/db"
)

func testServer(t *testing.T, inv batch.Invoker, src, dst string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	mgr := NewManager(conn, inv, 10*time.Millisecond, 100)

	cfg := &config.Config{
		SourceDir:     src,
		DestDir:       dst,
		EncoderPath:   "sh",
		SourceFormats: []string{".mpg"},
		DestFormat:    ".mp4",
	}
	return NewServer(cfg, conn, mgr)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestStartRunEndpoint(t *testing.T) {
	src := sourceTree(t, "a.mpg")
	s := testServer(t, &stubInvoker{}, src, t.TempDir())

	w, body := doJSON(t, s, http.MethodPost, "/api/runs", "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	id, _ := body["run_id"].(string)
	require.NotEmpty(t, id)

	s.mgr.WaitDone(id)

	w, body = doJSON(t, s, http.MethodGet, "/api/runs/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, batch.StatusCompleted, body["status"])
	assert.Equal(t, float64(1), body["processed"])

	w, body = doJSON(t, s, http.MethodGet, "/api/runs/"+id+"/logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["lines"])

	w, body = doJSON(t, s, http.MethodGet, "/api/runs/"+id+"/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 1)
}

func TestStartRunWithBodyOverrides(t *testing.T) {
	src := sourceTree(t, "clip.avi")
	s := testServer(t, &stubInvoker{}, t.TempDir(), t.TempDir())

	payload := `{"source_dir":` + jsonQuote(src) + `,"source_formats":[".avi"],"dest_format":".webm"}`
	w, body := doJSON(t, s, http.MethodPost, "/api/runs", payload)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	id, _ := body["run_id"].(string)
	s.mgr.WaitDone(id)

	view, ok := s.mgr.Get(id)
	require.True(t, ok)
	assert.Equal(t, batch.StatusCompleted, view.Status)
	assert.Equal(t, 1, view.Total)
}

func TestStartRunValidationFailure(t *testing.T) {
	s := testServer(t, &stubInvoker{}, filepath.Join(t.TempDir(), "missing"), t.TempDir())

	w, body := doJSON(t, s, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "source directory")
}

func TestConcurrentRunConflict(t *testing.T) {
	src := sourceTree(t, "a.mpg", "b.mpg")
	s := testServer(t, &stubInvoker{delay: 300 * time.Millisecond}, src, t.TempDir())

	w, body := doJSON(t, s, http.MethodPost, "/api/runs", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	id, _ := body["run_id"].(string)

	w, _ = doJSON(t, s, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = doJSON(t, s, http.MethodPost, "/api/runs/"+id+"/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	s.mgr.WaitDone(id)

	view, _ := s.mgr.Get(id)
	assert.Equal(t, batch.StatusCancelled, view.Status)
}

func TestRunNotFound(t *testing.T) {
	s := testServer(t, &stubInvoker{}, t.TempDir(), t.TempDir())

	w, _ := doJSON(t, s, http.MethodGet, "/api/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, s, http.MethodPost, "/api/runs/nope/cancel", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	src := sourceTree(t, "a.mpg")
	s := testServer(t, &stubInvoker{}, src, t.TempDir())

	w, body := doJSON(t, s, http.MethodPost, "/api/runs", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	id, _ := body["run_id"].(string)
	s.mgr.WaitDone(id)

	w, body = doJSON(t, s, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total_runs"])
	assert.Equal(t, float64(1), body["success_count"])
}

// jsonQuote quotes a string for embedding in a JSON payload.
func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
