package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAdd_Validation(t *testing.T) {
	s := New(zerolog.Nop())
	noop := func(context.Context) error { return nil }

	if err := s.Add("evict", "@every 1m", noop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Add("evict", "@every 1m", noop); err == nil {
		t.Error("expected duplicate name to fail")
	}
	if err := s.Add("bad", "every minute", noop); err == nil {
		t.Error("expected bad spec to fail")
	}
	if err := s.Run("missing"); err == nil {
		t.Error("expected unknown job to fail")
	}
}

func TestRun_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	s := New(zerolog.New(&buf))
	boom := errors.New("boom")
	_ = s.Add("purge", "@daily", func(context.Context) error { return boom })

	if err := s.Run("purge"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.Contains(buf.String(), `"job":"purge"`) {
		t.Errorf("failure should be logged with the job name: %s", buf.String())
	}
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	var runs atomic.Int32
	cancelled := make(chan struct{})
	_ = s.Add("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	s.Start()
	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Fatal("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Error("running job should see its context cancelled")
	}
}
