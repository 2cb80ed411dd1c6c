// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only on Advance. Waiters
// registered by After fire in deadline order, ties in registration
// order. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	current time.Time
	waiters waiterQueue
	nextID  uint64
}

// Fake returns a FakeClock frozen at initial.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	fired := make(chan time.Time, 1)
	if d <= 0 {
		fired <- c.current
		return fired
	}
	c.nextID++
	heap.Push(&c.waiters, &waiter{
		deadline: c.current.Add(d),
		id:       c.nextID,
		fired:    fired,
	})
	c.changed.Broadcast()
	return fired
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline has been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current
	var due []*waiter
	for c.waiters.Len() > 0 && !c.waiters[0].deadline.After(now) {
		due = append(due, heap.Pop(&c.waiters).(*waiter))
	}
	c.mu.Unlock()

	for _, w := range due {
		w.fired <- now
	}
}

// WaitForTimers blocks until at least n waiters are pending. Call it
// before Advance so the goroutine under test has reached its wait.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.waiters.Len() < n {
		c.changed.Wait()
	}
}

// Pending returns the number of waiters that have not fired.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters.Len()
}

type waiter struct {
	deadline time.Time
	id       uint64
	fired    chan time.Time
}

// waiterQueue is a min-heap on (deadline, id).
type waiterQueue []*waiter

func (q waiterQueue) Len() int { return len(q) }

func (q waiterQueue) Less(i, j int) bool {
	if q[i].deadline.Equal(q[j].deadline) {
		return q[i].id < q[j].id
	}
	return q[i].deadline.Before(q[j].deadline)
}

func (q waiterQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *waiterQueue) Push(x any) { *q = append(*q, x.(*waiter)) }

func (q *waiterQueue) Pop() any {
	old := *q
	last := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return last
}
