package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"ruqsat.org/internal/obs"
)

func TestLogSinkRecord(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := WithRequestID(context.Background(), "req-123")

	e := NewEvent("user-42", "request", "r1", ActionCreateAndSubmit, map[string]any{"routed_to": "USB"})
	LogSink{}.Record(ctx, e)

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["action"] != ActionCreateAndSubmit {
		t.Fatalf("unexpected action: %v", entry["action"])
	}
	if entry["entity"] != "request" || entry["entity_id"] != "r1" {
		t.Fatalf("unexpected entity: %v/%v", entry["entity"], entry["entity_id"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["actor_id"] != "user-42" {
		t.Fatalf("unexpected actor: %v", entry["actor_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["routed_to"] != "USB" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestNewEventFillsIdentity(t *testing.T) {
	a := NewEvent("", "request", "r1", ActionFinalize, nil)
	b := NewEvent("", "request", "r1", ActionFinalize, nil)
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.At.IsZero() {
		t.Fatal("expected timestamp")
	}
}
