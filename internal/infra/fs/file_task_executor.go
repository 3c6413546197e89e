// internal/infra/fs/file_task_executor.go
package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"task-dispatch/internal/domain"
	"task-dispatch/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxBaseNameRunes = 80
	maxSampleFiles   = 5
)

var unsafeNameChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// fileTaskExecutor implements domain.TaskExecutor by writing one small text
// file per unit of work.
type fileTaskExecutor struct {
	label     string
	outputDir string
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewFileTaskExecutor creates an executor writing into outputDir. label is
// recorded in every file and echoed in the response.
func NewFileTaskExecutor(label, outputDir string, logger *slog.Logger) domain.TaskExecutor {
	return &fileTaskExecutor{
		label:     label,
		outputDir: outputDir,
		logger:    logger.With("executor_type", "file"),
		tracer:    otel.Tracer("task-dispatch-file-executor"),
		now:       time.Now,
	}
}

// SafeBaseName replaces path and shell sensitive characters with '_' and
// truncates to 80 runes. An empty name becomes "task".
func SafeBaseName(name string) string {
	s := unsafeNameChars.Replace(strings.TrimSpace(name))
	if s == "" {
		return "task"
	}
	if r := []rune(s); len(r) > maxBaseNameRunes {
		s = string(r[:maxBaseNameRunes])
	}
	return s
}

// Execute writes req.Count files named {base}-{i}.txt, i starting at 1.
// Existing files with the same name are overwritten.
func (e *fileTaskExecutor) Execute(ctx context.Context, req domain.ExecuteRequest) (*domain.ExecuteResponse, error) {
	ctx, span := e.tracer.Start(ctx, "executor.file.Execute",
		trace.WithAttributes(
			attribute.String("task.id", req.TaskID),
			attribute.String("task.name", req.Name),
			attribute.Int("task.count", req.Count),
		))
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrValidation)
	}
	if req.Count < 0 {
		return nil, fmt.Errorf("%w: count must be >= 0, got %d", domain.ErrValidation, req.Count)
	}

	start := time.Now()
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output folder")
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = "-"
	}
	base := SafeBaseName(name)
	resp := &domain.ExecuteResponse{
		OK:          true,
		Worker:      e.label,
		TaskID:      req.TaskID,
		Folder:      e.outputDir,
		SampleFiles: []string{},
	}

	for i := 1; i <= req.Count; i++ {
		if err := ctx.Err(); err != nil {
			metrics.FilesCreatedTotal.Add(float64(resp.Created))
			span.RecordError(err)
			span.SetStatus(codes.Error, "execution cancelled")
			return nil, fmt.Errorf("execution cancelled after %d files: %w", resp.Created, err)
		}
		filename := fmt.Sprintf("%s-%d.txt", base, i)
		content := strings.Join([]string{
			"worker=" + e.label,
			"taskId=" + taskID,
			"name=" + name,
			fmt.Sprintf("index=%d", i),
			"createdAt=" + e.now().UTC().Format(time.RFC3339),
		}, "\n")
		if err := os.WriteFile(filepath.Join(e.outputDir, filename), []byte(content), 0o644); err != nil {
			metrics.FilesCreatedTotal.Add(float64(resp.Created))
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write file")
			return nil, fmt.Errorf("failed to write %s: %w", filename, err)
		}
		resp.Created++
		if len(resp.SampleFiles) < maxSampleFiles {
			resp.SampleFiles = append(resp.SampleFiles, filename)
		}
	}

	resp.ElapsedMs = time.Since(start).Milliseconds()
	metrics.FilesCreatedTotal.Add(float64(resp.Created))
	span.SetAttributes(attribute.Int("files.created", resp.Created))
	e.logger.Info("task executed", "task_id", req.TaskID, "name", name, "created", resp.Created, "folder", e.outputDir)
	return resp, nil
}
