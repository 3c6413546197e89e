package fs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"task-dispatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) (*fileTaskExecutor, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "out")
	e := NewFileTaskExecutor("mac-1", dir, slog.New(slog.NewTextHandler(io.Discard, nil))).(*fileTaskExecutor)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("X", 3600)) }
	return e, dir
}

func TestSafeBaseName(t *testing.T) {
	assert.Equal(t, "task", SafeBaseName("   "))
	assert.Equal(t, "a_b_c_d_e_f_g_h_i_j", SafeBaseName(`a/b\c:d*e?f"g<h>i|j`))
	assert.Equal(t, "report", SafeBaseName("  report "))

	long := strings.Repeat("é", 100)
	assert.Equal(t, strings.Repeat("é", 80), SafeBaseName(long))
}

func TestExecuteWritesFiles(t *testing.T) {
	e, dir := newTestExecutor(t)

	resp, err := e.Execute(context.Background(), domain.ExecuteRequest{TaskID: "task-7", Name: "a/b", Count: 7})
	require.NoError(t, err)

	assert.True(t, resp.OK)
	assert.Equal(t, "mac-1", resp.Worker)
	assert.Equal(t, "task-7", resp.TaskID)
	assert.Equal(t, 7, resp.Created)
	assert.Equal(t, dir, resp.Folder)
	assert.Equal(t, []string{"a_b-1.txt", "a_b-2.txt", "a_b-3.txt", "a_b-4.txt", "a_b-5.txt"}, resp.SampleFiles)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 7)

	content, err := os.ReadFile(filepath.Join(dir, "a_b-3.txt"))
	require.NoError(t, err)
	assert.Equal(t, "worker=mac-1\ntaskId=task-7\nname=a/b\nindex=3\ncreatedAt=2024-05-01T09:00:00Z", string(content))
}

func TestExecuteZeroCount(t *testing.T) {
	e, _ := newTestExecutor(t)

	resp, err := e.Execute(context.Background(), domain.ExecuteRequest{Name: "n", Count: 0})
	require.NoError(t, err)
	assert.Zero(t, resp.Created)
	assert.Empty(t, resp.SampleFiles)
}

func TestExecuteMissingTaskID(t *testing.T) {
	e, dir := newTestExecutor(t)

	_, err := e.Execute(context.Background(), domain.ExecuteRequest{Name: "n", Count: 1})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "n-1.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "taskId=-\n")
}

func TestExecuteRejectsInvalidInput(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.Execute(context.Background(), domain.ExecuteRequest{Name: "  ", Count: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.Execute(context.Background(), domain.ExecuteRequest{Name: "n", Count: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	e, _ := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, domain.ExecuteRequest{Name: "n", Count: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
