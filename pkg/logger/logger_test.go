package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

const (
	testTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	testSpanID  = "00f067aa0ba902b7"
)

func withSpan(ctx context.Context) context.Context {
	traceID, _ := trace.TraceIDFromHex(testTraceID)
	spanID, _ := trace.SpanIDFromHex(testSpanID)
	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	return out
}

func TestWithContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() context.Context
		want map[string]string
	}{
		{
			name: "empty context",
			ctx:  context.Background,
			want: map[string]string{},
		},
		{
			name: "correlation id",
			ctx: func() context.Context {
				return WithCorrelationID(context.Background(), "req-123")
			},
			want: map[string]string{"correlation_id": "req-123"},
		},
		{
			name: "reviewer",
			ctx: func() context.Context {
				return WithUserID(context.Background(), "alice")
			},
			want: map[string]string{"user_id": "alice"},
		},
		{
			name: "span only",
			ctx: func() context.Context {
				return withSpan(context.Background())
			},
			want: map[string]string{"trace_id": testTraceID, "span_id": testSpanID},
		},
		{
			name: "everything",
			ctx: func() context.Context {
				ctx := WithCorrelationID(context.Background(), "req-9")
				return withSpan(WithUserID(ctx, "bob"))
			},
			want: map[string]string{
				"correlation_id": "req-9",
				"user_id":        "bob",
				"trace_id":       testTraceID,
				"span_id":        testSpanID,
			},
		},
	}

	fields := []string{"correlation_id", "user_id", "trace_id", "span_id"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WithContext(tt.ctx(), NewWithWriter("review-service", "info", &buf)).Info("review created")

			out := logLine(t, &buf)
			if out["service"] != "review-service" {
				t.Errorf("service = %v, want review-service", out["service"])
			}
			for _, f := range fields {
				got, present := out[f]
				want, expected := tt.want[f]
				switch {
				case expected && got != want:
					t.Errorf("%s = %v, want %q", f, got, want)
				case !expected && present:
					t.Errorf("%s = %v, want absent", f, got)
				}
			}
		})
	}
}

func TestWithContext_ReturnsSameLoggerWhenNothingToAdd(t *testing.T) {
	l := NewWithWriter("review-service", "info", &bytes.Buffer{})
	if got := WithContext(context.Background(), l); got != l {
		t.Error("expected the logger to be returned unchanged")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected slog.Default() without a stored logger")
	}
	l := NewWithWriter("review-service", "info", &bytes.Buffer{})
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Error("expected the stored logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("review-service", "warn", &buf)
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %s", buf.String())
	}
	l.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn record not written")
	}

	buf.Reset()
	NewWithWriter("review-service", "debug", &buf).Debug("with source")
	if _, ok := logLine(t, &buf)["source"]; !ok {
		t.Error("debug logger should record source locations")
	}
}
