// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewSlogHandlerWithLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(zerolog.New(&buf))

	slogger := slog.New(handler)
	slogger.Info("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("expected 'test message' in output: %s", buf.String())
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	tests := []struct {
		name         string
		zerologLevel zerolog.Level
		slogLevel    slog.Level
		want         bool
	}{
		{"info handler passes info", zerolog.InfoLevel, slog.LevelInfo, true},
		{"info handler passes error", zerolog.InfoLevel, slog.LevelError, true},
		{"info handler blocks debug", zerolog.InfoLevel, slog.LevelDebug, false},
		{"error handler blocks warn", zerolog.ErrorLevel, slog.LevelWarn, false},
		{"debug handler passes debug", zerolog.DebugLevel, slog.LevelDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSlogHandlerWithLogger(zerolog.New(nil).Level(tt.zerologLevel))
			if got := handler.Enabled(context.Background(), tt.slogLevel); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.slogLevel, got, tt.want)
			}
		})
	}
}

func TestSlogHandlerLevelMapping(t *testing.T) {
	// Other tests in this package change zerolog's process-wide level,
	// which would otherwise suppress the debug record below.
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(prev)

	tests := []struct {
		slogLevel slog.Level
		wantLevel string
	}{
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantLevel, func(t *testing.T) {
			var buf bytes.Buffer
			slogger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel)))
			slogger.Log(context.Background(), tt.slogLevel, "msg")

			if !strings.Contains(buf.String(), `"level":"`+tt.wantLevel+`"`) {
				t.Errorf("expected level %q in output: %s", tt.wantLevel, buf.String())
			}
		})
	}
}

func TestSlogHandlerAttrKinds(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf)))

	slogger.Info("attrs",
		slog.String("stream_id", "stream-1"),
		slog.Int64("version", 7),
		slog.Bool("retriable", true),
		slog.Duration("backoff", 100*time.Millisecond),
		slog.Float64("rate", 2.5),
	)

	output := buf.String()
	for _, want := range []string{"stream-1", `"version":7`, `"retriable":true`, `"rate":2.5`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}

func TestSlogHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(zerolog.New(&buf))

	derived := handler.WithAttrs([]slog.Attr{slog.String("component", "flush")})
	slog.New(derived).Info("message")

	if !strings.Contains(buf.String(), `"component":"flush"`) {
		t.Errorf("expected pre-configured attr in output: %s", buf.String())
	}

	// The original handler is unchanged.
	buf.Reset()
	slog.New(handler).Info("message")
	if strings.Contains(buf.String(), "component") {
		t.Errorf("original handler must not carry derived attrs: %s", buf.String())
	}
}

func TestSlogHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(zerolog.New(&buf))

	grouped := handler.WithGroup("store")
	slog.New(grouped).Info("message", slog.String("backend", "sql"))

	if !strings.Contains(buf.String(), `"store.backend":"sql"`) {
		t.Errorf("expected group-prefixed key in output: %s", buf.String())
	}
}

func TestSlogHandlerWithGroupEmptyNameIsNoop(t *testing.T) {
	handler := NewSlogHandlerWithLogger(zerolog.New(nil))
	if handler.WithGroup("") != slog.Handler(handler) {
		t.Error("WithGroup(\"\") must return the receiver unchanged")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		slogLevel slog.Level
		want      zerolog.Level
	}{
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelDebug - 4, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		if got := slogToZerologLevel(tt.slogLevel); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.slogLevel, got, tt.want)
		}
	}
}

func TestNewSlogLoggerRoutesThroughGlobal(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	slogger := NewSlogLogger()
	slogger.Info("supervisor event", slog.String("service", "eventstore-flush-worker"))

	output := buf.String()
	if !strings.Contains(output, "supervisor event") {
		t.Errorf("expected message in output: %s", output)
	}
	if !strings.Contains(output, "eventstore-flush-worker") {
		t.Errorf("expected service attr in output: %s", output)
	}
}
