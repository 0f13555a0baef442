package guard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEnter_RejectsReentry(t *testing.T) {
	g := New()
	ctx, release, err := g.Enter(context.Background())
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	defer release()

	if _, _, err := g.Enter(ctx); !errors.Is(err, ErrReentrant) {
		t.Fatalf("nested Enter err = %v, want ErrReentrant", err)
	}
	child, cancel := context.WithCancel(ctx)
	defer cancel()
	if _, _, err := g.Enter(child); !errors.Is(err, ErrReentrant) {
		t.Fatalf("child ctx Enter err = %v, want ErrReentrant", err)
	}
}

func TestEnter_SerializesIndependentCallers(t *testing.T) {
	g := New()
	_, release, err := g.Enter(context.Background())
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}

	// second caller blocks until the deadline while the guard is held
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := g.Enter(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("blocked Enter err = %v, want deadline exceeded", err)
	}

	release()
	release() // idempotent

	_, release2, err := g.Enter(context.Background())
	if err != nil {
		t.Fatalf("Enter after release: %v", err)
	}
	release2()
}

func TestHeld_DistinguishesGuards(t *testing.T) {
	a, b := New(), New()
	ctx, release, err := a.Enter(context.Background())
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	defer release()
	if !Held(ctx, a) || Held(ctx, b) {
		t.Fatalf("Held mismatch")
	}
	_, releaseB, err := b.Enter(ctx)
	if err != nil {
		t.Fatalf("other guard Enter: %v", err)
	}
	releaseB()
}
