package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTraceWriter_WriteOperationStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	op := OperationInfo{Operation: "documents.update", DocumentID: "abc123"}
	w.WriteOperationStart(op)

	output := buf.String()
	if !strings.Contains(output, "Calling documents.update") {
		t.Errorf("expected 'Calling documents.update', got: %s", output)
	}
	if !strings.HasPrefix(output, "[") {
		t.Errorf("expected timestamp prefix, got: %s", output)
	}
}

func TestTraceWriter_WriteOperationEnd(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	op := OperationInfo{Operation: "documents.list"}
	w.WriteOperationEnd(op, nil, 50*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "Completed documents.list") {
		t.Errorf("expected 'Completed documents.list', got: %s", output)
	}
	if !strings.Contains(output, "(50ms)") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestTraceWriter_WriteOperationEnd_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	op := OperationInfo{Operation: "documents.create"}
	w.WriteOperationEnd(op, errors.New("forbidden"), 50*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "Failed documents.create") {
		t.Errorf("expected 'Failed documents.create', got: %s", output)
	}
	if !strings.Contains(output, "forbidden") {
		t.Errorf("expected error message, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	info := RequestInfo{Method: "GET", URL: "/documents/abc123", Attempt: 1}
	w.WriteRequestStart(info)

	output := buf.String()
	if !strings.Contains(output, "-> GET /documents/abc123") {
		t.Errorf("expected request line, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestStart_ScrubsTokens(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	info := RequestInfo{Method: "GET", URL: "https://api.inkwell.app/documents?access_token=s3cret", Attempt: 1}
	w.WriteRequestStart(info)

	output := buf.String()
	if strings.Contains(output, "s3cret") {
		t.Errorf("token leaked into trace output: %s", output)
	}
	if !strings.Contains(output, "REDACTED") {
		t.Errorf("expected redaction marker, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestEnd(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	info := RequestInfo{Method: "GET", URL: "/documents", Attempt: 1}
	result := RequestResult{StatusCode: 200, Duration: 45 * time.Millisecond}
	w.WriteRequestEnd(info, result)

	output := buf.String()
	if !strings.Contains(output, "<- 200") {
		t.Errorf("expected response line, got: %s", output)
	}
	if !strings.Contains(output, "(45ms)") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestEnd_Cached(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	info := RequestInfo{Method: "GET", URL: "/documents", Attempt: 1}
	result := RequestResult{StatusCode: 200, FromCache: true}
	w.WriteRequestEnd(info, result)

	output := buf.String()
	if !strings.Contains(output, "(cached)") {
		t.Errorf("expected cached indicator, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestEnd_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	info := RequestInfo{Method: "POST", URL: "/documents", Attempt: 1}
	result := RequestResult{Error: errors.New("connection refused")}
	w.WriteRequestEnd(info, result)

	output := buf.String()
	if !strings.Contains(output, "ERROR") {
		t.Errorf("expected ERROR, got: %s", output)
	}
	if !strings.Contains(output, "connection refused") {
		t.Errorf("expected error message, got: %s", output)
	}
}

func TestTraceWriter_WriteRetry(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	info := RequestInfo{Method: "GET", URL: "/documents", Attempt: 2}
	w.WriteRetry(info, 2, errors.New("timeout"))

	output := buf.String()
	if !strings.Contains(output, "RETRY #2") {
		t.Errorf("expected 'RETRY #2', got: %s", output)
	}
	if !strings.Contains(output, "timeout") {
		t.Errorf("expected error message, got: %s", output)
	}
}

func TestTraceWriter_WriteSave(t *testing.T) {
	tests := []struct {
		name string
		m    SaveMetrics
		want string
	}{
		{"success", SaveMetrics{DocumentID: "abc123", Duration: 120 * time.Millisecond}, "Saved abc123 (120ms)"},
		{"offline", SaveMetrics{DocumentID: "abc123", Offline: true}, "Save skipped abc123 (offline)"},
		{"conflict", SaveMetrics{DocumentID: "abc123", Conflict: true}, "Save conflict abc123"},
		{"failure", SaveMetrics{DocumentID: "abc123", Error: errors.New("boom")}, "Save failed abc123: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewTraceWriterTo(&buf)
			w.WriteSave(tt.m)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q, got: %s", tt.want, buf.String())
			}
		})
	}
}

func TestTraceWriter_Timestamps(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteOperationStart(OperationInfo{Operation: "documents.get"})
	time.Sleep(10 * time.Millisecond)
	w.WriteOperationStart(OperationInfo{Operation: "documents.list"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	// Parse timestamps and verify second is later
	// Format: [0.123s] ...
	if !strings.HasPrefix(lines[0], "[0.") {
		t.Errorf("expected timestamp prefix on line 1: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[0.") {
		t.Errorf("expected timestamp prefix on line 2: %s", lines[1])
	}
}

func TestTraceWriter_Reset(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	// Write with initial time
	op := OperationInfo{Operation: "documents.get"}
	w.WriteOperationStart(op)
	firstOutput := buf.String()

	time.Sleep(50 * time.Millisecond)
	buf.Reset()
	w.Reset()

	// Write after reset - timestamp should be near zero again
	w.WriteOperationStart(op)
	secondOutput := buf.String()

	// First output should have larger timestamp than second (after reset)
	// This is a basic check - both should start with [0.0
	if !strings.HasPrefix(firstOutput, "[0.0") {
		t.Errorf("first output should start with near-zero timestamp: %s", firstOutput)
	}
	if !strings.HasPrefix(secondOutput, "[0.0") {
		t.Errorf("second output after reset should start with near-zero timestamp: %s", secondOutput)
	}
}

func TestScrubURL_Unparseable(t *testing.T) {
	got := scrubURL("://not a url")
	if got != "[unparseable URL]" {
		t.Errorf("expected placeholder, got %q", got)
	}
}
