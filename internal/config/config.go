// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"task-dispatch/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for both the master and the worker binaries.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	// master
	HttpListenAddr string              `mapstructure:"http_listen_addr"`
	WorkerTimeout  time.Duration       `mapstructure:"worker_timeout"`
	CORSOrigins    []string            `mapstructure:"-"`
	Workers        []domain.WorkerSeed `mapstructure:"-"`
	Schedules      []domain.Schedule   `mapstructure:"schedules" validate:"dive"`

	// discovery, disabled when EtcdEndpoints is empty
	EtcdEndpoints []string      `mapstructure:"etcd_endpoints"`
	EtcdTimeout   time.Duration `mapstructure:"etcd_timeout"`
	EtcdLeaseTTL  time.Duration `mapstructure:"etcd_lease_ttl"`

	TracingEnabled bool `mapstructure:"tracing_enabled"`

	// worker
	WorkerListenAddr string `mapstructure:"worker_listen_addr"`
	WorkerLabel      string `mapstructure:"worker_label"`
	PublicURL        string `mapstructure:"public_url"`
	APIRegisterURL   string `mapstructure:"api_register_url"`
	OutputDir        string `mapstructure:"output_dir"`
}

// Load loads configuration from an optional config file and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Set default values
	v.SetDefault("http_listen_addr", ":8080")
	v.SetDefault("worker_timeout", "60s")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("workers", "")
	v.SetDefault("etcd_endpoints", []string{})
	v.SetDefault("etcd_timeout", "5s")
	v.SetDefault("etcd_lease_ttl", "10s")
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("worker_listen_addr", ":28080")
	v.SetDefault("worker_label", "mac-worker")
	v.SetDefault("public_url", "")
	v.SetDefault("api_register_url", "")
	v.SetDefault("output_dir", defaultOutputDir())

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults and env vars only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// WORKER_TIMEOUT_S (seconds, may be fractional) overrides worker_timeout.
	if raw := strings.TrimSpace(v.GetString("worker_timeout_s")); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid worker_timeout_s %q", raw)
		}
		cfg.WorkerTimeout = time.Duration(secs * float64(time.Second))
	}

	seeds, err := ParseWorkerSeeds(v.Get("workers"))
	if err != nil {
		return nil, err
	}
	cfg.Workers = seeds
	cfg.CORSOrigins = ParseOrigins(v.GetString("cors_origins"))
	cfg.WorkerLabel = strings.TrimSpace(cfg.WorkerLabel)
	if cfg.WorkerLabel == "" {
		cfg.WorkerLabel = "mac-worker"
	}

	if err := newValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ParseOrigins turns "*" or a comma separated list into allowed CORS origins.
func ParseOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "output")
	}
	return filepath.Join(home, "Desktop", "test")
}

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		_, err := parser.Parse(fl.Field().String())
		return err == nil
	})
	return validate
}
