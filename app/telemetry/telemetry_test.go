package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false)

	logger.Debug("hidden")
	logger.Info("Run completed", "run_id", "abc", "attempted", 5)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected only the info line, got %d lines: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", lines[0], err)
	}
	if entry["msg"] != "Run completed" || entry["run_id"] != "abc" || entry["attempted"] != float64(5) {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestNewLoggerDebugText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, true)

	logger.Debug("Scheduled run enqueued", "run_id", "abc")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "run_id=abc") {
		t.Errorf("Expected text debug line, got %q", out)
	}
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	ctx := context.Background()

	tp, err := InitTracer(ctx, "", "test")
	if err != nil {
		t.Fatalf("InitTracer returned error: %v", err)
	}
	defer tp.Shutdown(ctx)

	_, span := otel.Tracer("test").Start(ctx, "pipeline.run")
	if !span.SpanContext().IsValid() {
		t.Error("Expected a recording span context")
	}
	span.End()
}
