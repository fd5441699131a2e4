package timeouts

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigureKeepsZeroFields(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Medium: 3 * time.Second})
	if got := Medium(); got != 3*time.Second {
		t.Errorf("Medium = %v, want 3s", got)
	}
	if got := Long(); got != DefaultLong {
		t.Errorf("Long = %v, want default %v", got, DefaultLong)
	}

	Reset()
	if got := Current(); got != defaults() {
		t.Errorf("Reset left %+v", got)
	}
}

func TestWithTimeoutLogsDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, log, "export all centers")
	<-ctx.Done()
	cancel()

	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("ctx.Err() = %v", ctx.Err())
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	if op := logs.All()[0].ContextMap()["operation"]; op != "export all centers" {
		t.Errorf("operation = %v", op)
	}
}

func TestWithTimeoutQuietOnCancel(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	_, cancel := WithTimeout(context.Background(), time.Hour, zap.New(core), "list")
	cancel()
	if logs.Len() != 0 {
		t.Errorf("unexpected warning on plain cancel")
	}
}
