// Package gate bounds how many verification units run at the same time.
//
// A Gate hands out Tickets. Acquire suspends the caller while the number of
// outstanding tickets is at the ceiling; Release frees one slot and wakes a
// waiter. Waiters are admitted in arrival order, so no caller starves while
// tickets keep being released.
package gate

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the ceiling used when New is given a non-positive limit.
const DefaultLimit = 1000

type Gate struct {
	sem      *semaphore.Weighted
	limit    int64
	inFlight atomic.Int64
}

func New(limit int) *Gate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Gate{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// Acquire blocks until a slot is free or ctx is done. The returned ticket
// must be released exactly once; extra calls to Release are no-ops.
func (g *Gate) Acquire(ctx context.Context) (*Ticket, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	g.inFlight.Add(1)
	return &Ticket{gate: g}, nil
}

// TryAcquire returns a ticket only if a slot is free right now.
func (g *Gate) TryAcquire() (*Ticket, bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	g.inFlight.Add(1)
	return &Ticket{gate: g}, true
}

// InFlight reports the number of tickets currently outstanding.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

func (g *Gate) Limit() int {
	return int(g.limit)
}

// Ticket is one admitted slot.
type Ticket struct {
	gate *Gate
	once sync.Once
}

func (t *Ticket) Release() {
	t.once.Do(func() {
		t.gate.inFlight.Add(-1)
		t.gate.sem.Release(1)
	})
}
