package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	Get().Info(ctx, "score stored", String("player", "alice"), Int64("score", 95))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["msg"] != "score stored" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["player"] != "alice" {
		t.Errorf("player = %v", line["player"])
	}
	if line["request_id"] != "req-1" {
		t.Errorf("request_id = %v", line["request_id"])
	}
	src, _ := line["source"].(string)
	if !strings.Contains(src, "logger_test.go") {
		t.Errorf("source = %q, want the calling test file", src)
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}
	Get().Info(context.Background(), "hidden")
	Get().Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output for warn level: %q", out)
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jmscore.log")
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf), WithFile(path, 1, 1, 1)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	Named("store").Error(context.Background(), "disk full")
	if err := Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "disk full") || !strings.Contains(buf.String(), "disk full") {
		t.Errorf("line missing from file or stdout: file=%q out=%q", data, buf.String())
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("engine").Info(context.Background(), "test message", String("k", "v"))
	if !strings.Contains(buf.String(), "engine.k=v") {
		t.Errorf("named group missing: %q", buf.String())
	}
}
