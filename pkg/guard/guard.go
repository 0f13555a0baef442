// Package guard serializes mutating ledger operations and rejects
// re-entrant calls made from inside an operation that already holds it.
package guard

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"
)

// ErrReentrant is returned by Enter when ctx was derived from a context
// that already holds this guard.
var ErrReentrant = errors.New("guard: re-entrant call")

type heldKey struct{ g *Guard }

// Guard is a non-reentrant lock. The zero value is not usable; use New.
type Guard struct {
	sem *semaphore.Weighted
}

func New() *Guard { return &Guard{sem: semaphore.NewWeighted(1)} }

// Enter acquires the guard. The returned context marks the holder; any call
// that reaches Enter again with it (or a child of it) fails with ErrReentrant.
// Waiting honours ctx cancellation. Callers must invoke release exactly once.
func (g *Guard) Enter(ctx context.Context) (context.Context, func(), error) {
	if Held(ctx, g) {
		return ctx, func() {}, ErrReentrant
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return ctx, func() {}, err
	}
	released := false
	release := func() {
		if !released {
			released = true
			g.sem.Release(1)
		}
	}
	return context.WithValue(ctx, heldKey{g: g}, true), release, nil
}

// Held reports whether ctx carries the marker of g.
func Held(ctx context.Context, g *Guard) bool {
	v, _ := ctx.Value(heldKey{g: g}).(bool)
	return v
}
