package scheduler

import (
	"context"
	"testing"
	"time"

	"GenAIMonitor/internal/logging"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"0 9 * * *", "@every 1h", "@daily", "0 9,18 * * 1-5"} {
		if err := Validate(spec); err != nil {
			t.Fatalf("Validate(%q) error: %v", spec, err)
		}
	}
	if err := Validate("every day"); err == nil {
		t.Fatalf("expected invalid spec error")
	}
}

func TestStartRunsJobOnStartAndOnSchedule(t *testing.T) {
	t.Parallel()

	fired := make(chan time.Time, 4)
	s := NewCronScheduler("@every 1s", time.UTC, true, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, func(ts time.Time) { fired <- ts }); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(3 * time.Second):
			t.Fatalf("job fired %d times, want at least 2", i)
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop should be a no-op: %v", err)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a spec", nil, false, logging.Discard())
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected error for bad spec")
	}
}
