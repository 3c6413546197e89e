package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task-dispatch/internal/domain"
	httpinfra "task-dispatch/internal/infra/http"
	"task-dispatch/internal/infra/memory"
	"task-dispatch/internal/master"
	"task-dispatch/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router   http.Handler
	registry *memory.WorkerRegistry
}

func newTestAPI(t *testing.T, origins ...string) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := memory.NewWorkerRegistry()
	dispatcher := master.NewDispatcher(reg, httpinfra.NewHttpRemoteExecutor(nil), 2*time.Second, logger)
	h := NewHandler(usecase.NewWorkerService(reg, logger), usecase.NewTaskService(dispatcher, logger), logger)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &testAPI{router: h.Router(origins), registry: reg}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func newFakeWorker(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.ExecuteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "taskId": req.TaskID, "created": req.Count})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegisterAndListWorkers(t *testing.T) {
	api := newTestAPI(t)

	rec, body := api.do(t, http.MethodPost, "/api/workers/register", `{"url":"http://10.0.0.5:28080/","id":"w1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	worker := body["worker"].(map[string]any)
	assert.Equal(t, "w1", worker["id"])
	assert.Equal(t, "worker", worker["label"])
	assert.Equal(t, "http://10.0.0.5:28080", worker["url"])
	assert.Equal(t, "register", worker["source"])
	assert.Greater(t, worker["registeredAt"].(float64), float64(0))

	rec, body = api.do(t, http.MethodGet, "/api/workers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	workers := body["workers"].([]any)
	require.Len(t, workers, 1)
	assert.Equal(t, "w1", workers[0].(map[string]any)["id"])
}

func TestRegisterWorkerRejectsBadInput(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "ftp scheme", body: `{"url":"ftp://x"}`},
		{name: "empty url", body: `{"url":""}`},
		{name: "missing url", body: `{"label":"x"}`},
		{name: "bad json", body: `{"url":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := api.do(t, http.MethodPost, "/api/workers/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["ok"])
			assert.NotEmpty(t, body["error"])
		})
	}

	_, body := api.do(t, http.MethodGet, "/api/workers", "")
	assert.Empty(t, body["workers"])
}

func TestCreateTask(t *testing.T) {
	api := newTestAPI(t)
	for _, id := range []string{"a", "b", "c"} {
		rec, _ := api.do(t, http.MethodPost, "/api/workers/register", `{"id":"`+id+`","url":"`+newFakeWorker(t).URL+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := api.do(t, http.MethodPost, "/api/tasks", `{"name":"batch","count":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "task-1", body["taskId"])
	assert.Equal(t, "batch", body["name"])
	assert.EqualValues(t, 10, body["totalCount"])
	assert.EqualValues(t, 3, body["availableServers"])

	assigned := body["perServerAssigned"].([]any)
	require.Len(t, assigned, 3)
	var counts []float64
	for _, a := range assigned {
		counts = append(counts, a.(map[string]any)["assignedCount"].(float64))
	}
	assert.Equal(t, []float64{4, 3, 3}, counts)

	final := body["final"].(map[string]any)
	assert.EqualValues(t, 3, final["successServers"])
	assert.EqualValues(t, 0, final["failedServers"])
	assert.EqualValues(t, 10, final["createdTotal"])
	assert.Len(t, body["perWorker"], 3)
}

func TestCreateTaskAcceptsLongNames(t *testing.T) {
	api := newTestAPI(t)
	label := strings.Repeat("l", 200)
	id := strings.Repeat("i", 200)
	rec, body := api.do(t, http.MethodPost, "/api/workers/register", `{"id":"`+id+`","label":"`+label+`","url":"`+newFakeWorker(t).URL+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, label, body["worker"].(map[string]any)["label"])

	name := strings.Repeat("n", 300)
	rec, body = api.do(t, http.MethodPost, "/api/tasks", `{"name":"`+name+`","count":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, name, body["name"])

	perWorker := body["perWorker"].([]any)
	require.Len(t, perWorker, 1)
	result := perWorker[0].(map[string]any)
	errField, present := result["error"]
	assert.True(t, present)
	assert.Nil(t, errField)
}

func TestCreateTaskValidation(t *testing.T) {
	api := newTestAPI(t)
	_, err := api.registry.Upsert(t.Context(), "a", "", newFakeWorker(t).URL)
	require.NoError(t, err)

	for _, b := range []string{`{"name":"","count":1}`, `{"name":"   ","count":1}`, `{"name":"x","count":0}`, `{"name":"x"}`, `not json`} {
		rec, body := api.do(t, http.MethodPost, "/api/tasks", b)
		assert.Equal(t, http.StatusBadRequest, rec.Code, b)
		assert.Equal(t, false, body["ok"], b)
	}
}

func TestCreateTaskWithoutWorkers(t *testing.T) {
	api := newTestAPI(t)

	rec, body := api.do(t, http.MethodPost, "/api/tasks", `{"name":"x","count":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "no workers available")
}

func TestCORS(t *testing.T) {
	api := newTestAPI(t, "http://ui.test")

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://ui.test")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://ui.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://ui.test")
	req.Header.Set("Access-Control-Request-Headers", "content-type, traceparent, x-custom")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content-type, traceparent, x-custom", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/api/workers", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	wildcard := newTestAPI(t)
	rec = httptest.NewRecorder()
	wildcard.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workers", bytes.NewReader(nil)))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodGet, "/api/workers", "")

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{code="200",method="GET",path="/api/workers"}`)
}
