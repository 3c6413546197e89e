package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"task-dispatch/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ExecutePath is appended to a worker endpoint to reach its execute handler.
const ExecutePath = "/execute"

const maxResponseBytes = 1 << 20

type httpRemoteExecutor struct {
	client *http.Client
	tracer trace.Tracer
}

// NewHttpRemoteExecutor returns a RemoteExecutor posting JSON to {endpoint}/execute.
// Deadlines come from the caller's context, so the client should carry no Timeout.
func NewHttpRemoteExecutor(client *http.Client) domain.RemoteExecutor {
	if client == nil {
		client = &http.Client{}
	}
	return &httpRemoteExecutor{
		client: client,
		tracer: otel.Tracer("task-dispatch-http-executor"),
	}
}

// Execute performs a single call. Non-2xx answers are not errors.
func (e *httpRemoteExecutor) Execute(ctx context.Context, endpoint string, req domain.ExecuteRequest) (*domain.RemoteResponse, error) {
	url := endpoint + ExecutePath
	ctx, span := e.tracer.Start(ctx, "executor.http.Execute", trace.WithAttributes(
		attribute.String("task.id", req.TaskID),
		attribute.String("http.url", url),
		attribute.Int("task.count", req.Count),
	))
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request did not complete")
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
	}

	// An unreadable or non-JSON body leaves the payload nil; the status still counts.
	var payload any
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err == nil {
		if jerr := json.Unmarshal(raw, &payload); jerr != nil {
			payload = nil
		}
	}

	return &domain.RemoteResponse{StatusCode: resp.StatusCode, Payload: payload}, nil
}
