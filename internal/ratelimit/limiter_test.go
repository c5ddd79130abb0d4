package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAcquireBulkWithinBurst(t *testing.T) {
	l := New(10, 5, 10*time.Millisecond)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := l.AcquireBulk(ctx, "whatsapp"); err != nil {
			t.Fatalf("acquire %d inside burst: %v", i, err)
		}
	}
}

func TestAcquireBulkGivesUpWhenContended(t *testing.T) {
	// 1 rps, burst 1: the second token is a full second away, far past the
	// 5ms bulk timeout.
	l := New(1, 1, 5*time.Millisecond)
	ctx := context.Background()

	if err := l.AcquireBulk(ctx, "whatsapp"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	err := l.AcquireBulk(ctx, "whatsapp")
	if !errors.Is(err, ErrBulkLimited) {
		t.Fatalf("got %v, want ErrBulkLimited", err)
	}

	// the cancelled reservation must not have consumed the budget: an
	// interactive caller still gets the next token
	ctx2, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := l.AcquireInteractive(ctx2, "whatsapp"); err != nil {
		t.Fatalf("interactive acquire after bulk gave up: %v", err)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 1, 5*time.Millisecond)
	ctx := context.Background()

	if err := l.AcquireBulk(ctx, "whatsapp"); err != nil {
		t.Fatalf("whatsapp acquire: %v", err)
	}
	if err := l.AcquireBulk(ctx, "sms"); err != nil {
		t.Fatalf("sms bucket should be untouched: %v", err)
	}
}

func TestAcquireInteractiveRespectsContext(t *testing.T) {
	l := New(1, 1, time.Second)
	ctx := context.Background()
	_ = l.AcquireBulk(ctx, "sms") // drain the bucket

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.AcquireInteractive(cctx, "sms"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
