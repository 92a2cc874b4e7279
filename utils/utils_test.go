package utils

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	}, NewNopLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoffWrapsLastError(t *testing.T) {
	sentinel := errors.New("still down")
	err := RetryWithBackoff(context.Background(), 2, time.Millisecond, func() error { return sentinel }, NewNopLogger())
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("boom")
	}, NewNopLogger())
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRateLimiterFirstCallDoesNotWait(t *testing.T) {
	r := NewRateLimiter(10_000)
	start := time.Now()
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("first call should not wait")
	}
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	r := NewRateLimiter(30)
	ctx := context.Background()
	_ = r.Wait(ctx)
	start := time.Now()
	_ = r.Wait(ctx)
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("expected ~30ms spacing, got %v", elapsed)
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	r := NewRateLimiter(10_000)
	_ = r.Wait(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestKeyTracker(t *testing.T) {
	tr := NewKeyTracker()
	if !tr.Add("a") || tr.Add("a") || !tr.Add("b") {
		t.Fatalf("unexpected Add results")
	}
	if tr.Count() != 2 {
		t.Fatalf("expected 2, got %d", tr.Count())
	}
}

func TestLoggerDebugGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "info")
	l.Debug("hidden")
	l.Info("shown %d", 1)
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug output leaked: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "[INFO]") || !strings.Contains(buf.String(), "shown 1") {
		t.Fatalf("missing info line: %q", buf.String())
	}
}
