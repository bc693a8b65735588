package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"cratesync/internal/logging"
)

func TestConsoleHandlerRendersComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logging.WithComponent(logger, "matcher").Info("resolved records", slog.Int("count", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO matcher: resolved records") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "count=3") {
		t.Fatalf("expected count attribute, got %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("sync", slog.String("name", "Best of 2020"))
	if !strings.Contains(buf.String(), `name="Best of 2020"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn record should be present: %q", out)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
