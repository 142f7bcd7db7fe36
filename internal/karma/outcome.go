package karma

import (
	"context"
	"sync"
)

// Outcome is a single-resolution result slot. The first settle wins;
// later attempts are ignored.
type Outcome[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newOutcome[T any]() *Outcome[T] {
	return &Outcome[T]{done: make(chan struct{})}
}

func (o *Outcome[T]) settle(value T, err error) bool {
	settled := false
	o.once.Do(func() {
		o.value = value
		o.err = err
		settled = true
		close(o.done)
	})
	return settled
}

func (o *Outcome[T]) resolve(value T) bool {
	return o.settle(value, nil)
}

func (o *Outcome[T]) cancel(err error) bool {
	var zero T
	return o.settle(zero, err)
}

// Done is closed once the outcome has settled.
func (o *Outcome[T]) Done() <-chan struct{} {
	return o.done
}

// Settled reports whether the outcome has a value or an error.
func (o *Outcome[T]) Settled() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// Result returns the value and error without blocking. ok is false while
// the outcome is pending.
func (o *Outcome[T]) Result() (value T, ok bool, err error) {
	if !o.Settled() {
		return value, false, nil
	}
	return o.value, true, o.err
}

// Wait blocks until the outcome settles or ctx ends. A context error does
// not settle the outcome.
func (o *Outcome[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
