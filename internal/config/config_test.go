package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"task-dispatch/internal/domain"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromFile(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HttpListenAddr)
	assert.Equal(t, 60*time.Second, cfg.WorkerTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.Workers)
	assert.Empty(t, cfg.EtcdEndpoints)
	assert.Equal(t, 5*time.Second, cfg.EtcdTimeout)
	assert.Equal(t, ":28080", cfg.WorkerListenAddr)
	assert.Equal(t, "mac-worker", cfg.WorkerLabel)
	assert.NotEmpty(t, cfg.OutputDir)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WORKERS", "http://a:1/, http://b:2")
	t.Setenv("WORKER_TIMEOUT_S", "1.5")
	t.Setenv("CORS_ORIGINS", "http://x.test, http://y.test")
	t.Setenv("ETCD_ENDPOINTS", "127.0.0.1:2379,127.0.0.2:2379")
	t.Setenv("WORKER_LABEL", "   ")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, []domain.WorkerSeed{
		{ID: "env-1", Label: "worker-1", Endpoint: "http://a:1"},
		{ID: "env-2", Label: "worker-2", Endpoint: "http://b:2"},
	}, cfg.Workers)
	assert.Equal(t, 1500*time.Millisecond, cfg.WorkerTimeout)
	assert.Equal(t, []string{"http://x.test", "http://y.test"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"127.0.0.1:2379", "127.0.0.2:2379"}, cfg.EtcdEndpoints)
	assert.Equal(t, "mac-worker", cfg.WorkerLabel)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("WORKER_TIMEOUT_S", "soon")
	_, err := load(viper.New())
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := loadFromFile(t, `
http_listen_addr: ":9090"
worker_timeout: 2s
workers:
  - id: a
    label: Alpha
    url: http://a:1/
  - name: Beta
    url: http://b:2
  - label: no-url
schedules:
  - name: nightly
    cron_expr: "0 0 2 * * *"
    count: 10
`)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HttpListenAddr)
	assert.Equal(t, 2*time.Second, cfg.WorkerTimeout)
	assert.Equal(t, []domain.WorkerSeed{
		{ID: "a", Label: "Alpha", Endpoint: "http://a:1"},
		{ID: "env-2", Label: "Beta", Endpoint: "http://b:2"},
	}, cfg.Workers)
	require.Len(t, cfg.Schedules, 1)
	assert.Equal(t, domain.Schedule{Name: "nightly", CronExpr: "0 0 2 * * *", Count: 10}, cfg.Schedules[0])
}

func TestLoadRejectsInvalidSchedule(t *testing.T) {
	_, err := loadFromFile(t, `
schedules:
  - name: broken
    cron_expr: "every day"
    count: 1
`)
	require.Error(t, err)

	_, err = loadFromFile(t, `
schedules:
  - name: empty
    cron_expr: "@hourly"
    count: 0
`)
	require.Error(t, err)
}

func TestParseWorkerSeeds(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []domain.WorkerSeed
	}{
		{name: "nil", raw: nil, want: nil},
		{name: "blank", raw: "  ", want: nil},
		{
			name: "csv skips empty parts",
			raw:  "http://a:1,, http://b:2/ ,",
			want: []domain.WorkerSeed{
				{ID: "env-1", Label: "worker-1", Endpoint: "http://a:1"},
				{ID: "env-2", Label: "worker-2", Endpoint: "http://b:2"},
			},
		},
		{
			name: "json array",
			raw:  `[{"id":"x","label":"X","url":"http://x:1/"},{"url":"http://y:2"},"junk",{"id":7,"url":"http://z:3"}]`,
			want: []domain.WorkerSeed{
				{ID: "x", Label: "X", Endpoint: "http://x:1"},
				{ID: "env-2", Label: "env-2", Endpoint: "http://y:2"},
				{ID: "7", Label: "7", Endpoint: "http://z:3"},
			},
		},
		{
			name: "json object falls back to csv",
			raw:  `{"url":"http://x:1"}`,
			want: []domain.WorkerSeed{
				{ID: "env-1", Label: "worker-1", Endpoint: `{"url":"http://x:1"}`},
			},
		},
		{
			name: "native list",
			raw:  []any{map[string]any{"name": "N", "url": "http://n:1"}},
			want: []domain.WorkerSeed{
				{ID: "env-1", Label: "N", Endpoint: "http://n:1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWorkerSeeds(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWorkerSeedsRejectsUnknownType(t *testing.T) {
	_, err := ParseWorkerSeeds(42)
	require.Error(t, err)
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, ParseOrigins(""))
	assert.Equal(t, []string{"*"}, ParseOrigins(" * "))
	assert.Equal(t, []string{"http://a", "http://b"}, ParseOrigins("http://a,,http://b "))
}
