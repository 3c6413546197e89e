package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// RegisterTimeout bounds the one-shot registration call.
const RegisterTimeout = 10 * time.Second

// Registrar announces this worker to the coordinator's register endpoint.
type Registrar struct {
	client      *http.Client
	registerURL string
	publicURL   string
	label       string
	logger      *slog.Logger
}

// NewRegistrar creates a registrar. A nil client uses a default one.
func NewRegistrar(client *http.Client, registerURL, publicURL, label string, logger *slog.Logger) *Registrar {
	if client == nil {
		client = &http.Client{}
	}
	return &Registrar{
		client:      client,
		registerURL: strings.TrimSpace(registerURL),
		publicURL:   strings.TrimSpace(publicURL),
		label:       label,
		logger:      logger.With("component", "worker-registrar"),
	}
}

// Enabled reports whether both the register URL and the public URL are set.
func (r *Registrar) Enabled() bool {
	return r.registerURL != "" && r.publicURL != ""
}

// RegisterOnce posts {url, label} to the coordinator. It does nothing when the
// registrar is not enabled. There is no retry.
func (r *Registrar) RegisterOnce(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, RegisterTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"url": r.publicURL, "label": r.label})
	if err != nil {
		return fmt.Errorf("failed to encode registration: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.registerURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("registration request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("registration rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	r.logger.Info("registered to coordinator", "public_url", r.publicURL, "register_url", r.registerURL)
	return nil
}
