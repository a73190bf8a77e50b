// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*MockService)(nil)

func TestMockServiceRunsUntilContextCanceled(t *testing.T) {
	svc := NewMockService("test")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if svc.StartCount() != 1 {
		t.Errorf("expected 1 start, got %d", svc.StartCount())
	}
	if svc.StopCount() != 1 {
		t.Errorf("expected 1 stop, got %d", svc.StopCount())
	}
}

func TestMockServiceFailsNTimesThenSettles(t *testing.T) {
	svc := NewMockService("retry-test")
	svc.SetFailCount(2)

	if err := svc.Serve(context.Background()); err == nil {
		t.Error("first call should fail")
	}
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("second call should fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("third call should run until timeout, got %v", err)
	}

	if svc.StartCount() != 3 {
		t.Errorf("expected 3 starts, got %d", svc.StartCount())
	}
}

func TestMockServiceConfiguredError(t *testing.T) {
	svc := NewMockService("one-shot")
	svc.SetError(suture.ErrDoNotRestart)

	if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("expected ErrDoNotRestart, got %v", err)
	}
}

func TestMockServiceStringIsName(t *testing.T) {
	svc := NewMockService("flush-worker-double")
	if svc.String() != "flush-worker-double" {
		t.Errorf("expected 'flush-worker-double', got %q", svc.String())
	}
}

func TestSupervisorRestartsCrashedService(t *testing.T) {
	svc := NewMockService("crasher")
	svc.SetFailCount(2)

	sup := suture.New("restart-test", suture.Spec{
		FailureThreshold: 10,
		FailureDecay:     1,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          100 * time.Millisecond,
	})
	sup.Add(svc)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go sup.Serve(ctx)
	time.Sleep(300 * time.Millisecond)

	if svc.StartCount() < 3 {
		t.Errorf("expected at least 3 starts (2 failures + 1 clean run), got %d", svc.StartCount())
	}
}
