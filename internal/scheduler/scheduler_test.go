package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegister_InvalidSpec(t *testing.T) {
	s := New(context.Background(), zap.NewNop())
	if err := s.Register("not a cron", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error")
	}
	// five-field specs need the seconds field
	if err := s.Register("0 * * * *", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for five-field spec")
	}
}

func TestRunNow(t *testing.T) {
	s := New(context.Background(), zap.NewNop())
	if err := s.RunNow(); err == nil {
		t.Fatal("expected error without a task")
	}

	errBoom := errors.New("boom")
	var calls int
	if err := s.Register("@every 1h", func(context.Context) error { calls++; return errBoom }); err != nil {
		t.Fatal(err)
	}
	if err := s.RunNow(); !errors.Is(err, errBoom) {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}

func TestRunNow_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	s := New(ctx, zap.NewNop())
	var got any
	s.Register("@every 1h", func(ctx context.Context) error { got = ctx.Value(key{}); return nil })
	if err := s.RunNow(); err != nil {
		t.Fatal(err)
	}
	if got != "v" {
		t.Errorf("ctx value = %v", got)
	}
}

func TestStart_FiresOnSchedule(t *testing.T) {
	s := New(context.Background(), zap.NewNop())
	var calls atomic.Int32
	fired := make(chan struct{}, 8)
	if err := s.Register("* * * * * *", func(context.Context) error {
		calls.Add(1)
		fired <- struct{}{}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("task never fired")
	}
	if calls.Load() < 1 {
		t.Error("no calls recorded")
	}
}
