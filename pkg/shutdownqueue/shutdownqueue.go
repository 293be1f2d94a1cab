// Package shutdownqueue is a process-wide LIFO list of cleanup steps that
// main drains once, after its run loop returns:
//
//	defer func() {
//		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
//		defer cancel()
//		_ = shutdownqueue.Shutdown(ctx)
//	}()
//
// Resources register their close right after they are opened, so the server
// stops before the stores it depends on are closed.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task releases one resource. It should give up when ctx is done.
type Task func(ctx context.Context) error

type step struct {
	name string
	run  Task
}

type queue struct {
	mu     sync.Mutex
	steps  []step
	closed bool
}

var q = &queue{}

// Add registers a named step. Steps added after Shutdown started, and nil
// tasks, are ignored.
func Add(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		slog.Warn("shutdown step registered too late", "step", name)
		return
	}

	q.steps = append(q.steps, step{name: name, run: t})
}

// Shutdown runs every step in reverse registration order and closes the
// queue. Later calls return nil. A step that fails or panics does not stop
// the ones after it; ctx expiring does, and the remaining steps are skipped.
func Shutdown(ctx context.Context) error {
	q.mu.Lock()
	steps := q.steps
	q.steps = nil
	q.closed = true
	q.mu.Unlock()

	var errs []error

	for i := len(steps) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("shutdown aborted before %q: %w", steps[i].name, ctx.Err()))
			break
		}

		err := runStep(ctx, steps[i])
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func runStep(ctx context.Context, s step) (err error) {
	start := time.Now()

	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("shutdown %s: panic: %v", s.name, r)
		}

		if err != nil {
			slog.Error("shutdown step failed", "step", s.name, "error", err)
			return
		}

		slog.Info("shutdown step done", "step", s.name, "duration", time.Since(start))
	}()

	err = s.run(ctx)
	if err != nil {
		return fmt.Errorf("shutdown %s: %w", s.name, err)
	}

	return nil
}
