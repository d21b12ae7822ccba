package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Call(func() error { return errUpstream }); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: expected upstream error, got %v", i+1, err)
		}
	}

	if b.State() != StateOpen {
		t.Fatalf("expected open state, got %s", b.State())
	}

	if err := b.Call(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen while open, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(3, time.Minute)

	b.Call(func() error { return errUpstream })
	b.Call(func() error { return errUpstream })
	b.Call(func() error { return nil })
	b.Call(func() error { return errUpstream })
	b.Call(func() error { return errUpstream })

	if b.State() != StateClosed {
		t.Errorf("expected closed state after interleaved success, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbeClosesOnSuccess(t *testing.T) {
	b := New(1, 10*time.Millisecond)

	b.Call(func() error { return errUpstream })
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(15 * time.Millisecond)

	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbeReopensOnFailure(t *testing.T) {
	b := New(1, 10*time.Millisecond)

	b.Call(func() error { return errUpstream })
	time.Sleep(15 * time.Millisecond)

	b.Call(func() error { return errUpstream })
	if b.State() != StateOpen {
		t.Errorf("expected reopened state after failed probe, got %s", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := New(1, time.Minute)

	b.Call(func() error { return errUpstream })
	b.Reset()

	if b.State() != StateClosed {
		t.Fatalf("expected closed after reset, got %s", b.State())
	}
	if err := b.Call(func() error { return nil }); err != nil {
		t.Errorf("unexpected error after reset: %v", err)
	}
}
