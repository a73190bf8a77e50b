// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateCorrelationID(t *testing.T) {
	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()

	if id1 == "" {
		t.Error("expected non-empty correlation ID")
	}
	if id1 == id2 {
		t.Error("expected distinct correlation IDs")
	}
}

func TestContextWithCorrelationID(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "corr-1")

	if got := CorrelationIDFromContext(ctx); got != "corr-1" {
		t.Errorf("CorrelationIDFromContext = %q, want %q", got, "corr-1")
	}
}

func TestContextWithNewCorrelationID(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())

	if CorrelationIDFromContext(ctx) == "" {
		t.Error("expected a generated correlation ID in context")
	}
}

func TestCorrelationIDFromContextMissing(t *testing.T) {
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty correlation ID, got %q", got)
	}
}

func TestCtxAttachesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	ctx := ContextWithCorrelationID(context.Background(), "corr-42")
	Ctx(ctx).Info().Msg("append accepted")

	output := buf.String()
	if !strings.Contains(output, "corr-42") {
		t.Errorf("expected correlation_id in output: %s", output)
	}
}

func TestCtxWithoutCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	Ctx(context.Background()).Info().Msg("no correlation")

	output := buf.String()
	if strings.Contains(output, "correlation_id") {
		t.Errorf("expected no correlation_id field in output: %s", output)
	}
}

func TestCtxWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	ctx := ContextWithCorrelationID(context.Background(), "corr-7")
	logger := CtxWith(ctx).Str("stream_id", "stream-1").Logger()
	logger.Info().Msg("batch committed")

	output := buf.String()
	if !strings.Contains(output, "corr-7") {
		t.Errorf("expected correlation_id in output: %s", output)
	}
	if !strings.Contains(output, "stream-1") {
		t.Errorf("expected stream_id in output: %s", output)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	logger := WithComponent("migrator")
	logger.Info().Msg("starting")

	output := buf.String()
	if !strings.Contains(output, "migrator") {
		t.Errorf("expected component field in output: %s", output)
	}
}
