package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-dispatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutePostsJSON(t *testing.T) {
	var got domain.ExecuteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ExecutePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"created":3}`))
	}))
	defer srv.Close()

	exec := NewHttpRemoteExecutor(nil)
	resp, err := exec.Execute(context.Background(), srv.URL, domain.ExecuteRequest{TaskID: "task-1", Name: "n", Count: 3})
	require.NoError(t, err)

	assert.Equal(t, domain.ExecuteRequest{TaskID: "task-1", Name: "n", Count: 3}, got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, domain.CreatedCount(resp.Payload))
}

func TestExecuteNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	resp, err := NewHttpRemoteExecutor(nil).Execute(context.Background(), srv.URL, domain.ExecuteRequest{Name: "n", Count: 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Nil(t, resp.Payload)
}

func TestExecuteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHttpRemoteExecutor(nil).Execute(context.Background(), url, domain.ExecuteRequest{Name: "n", Count: 1})
	require.Error(t, err)
}

func TestExecuteHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewHttpRemoteExecutor(nil).Execute(ctx, srv.URL, domain.ExecuteRequest{Name: "n", Count: 1})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
