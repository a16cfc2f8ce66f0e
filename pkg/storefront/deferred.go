package storefront

import (
	"context"
	"fmt"
)

// State is the settlement state of a Deferred value.
type State int

const (
	StatePending     State = iota // not settled yet
	StateReady                    // settled with a value
	StateUnavailable              // settled without a value
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = StatePending
	case "ready":
		*s = StateReady
	case "unavailable":
		*s = StateUnavailable
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// Deferred is a value that settles at most once, either ready or
// unavailable. Errors from the producing function never escape a Deferred;
// they only mark it unavailable and are kept for inspection through Err.
type Deferred[T any] struct {
	done   chan struct{}
	value  T
	err    error
	state  State
	cancel context.CancelFunc
}

// Go runs fn in a new goroutine and returns a handle to its result. fn
// receives a context canceled by Cancel or by ctx. A panic in fn settles
// the handle as unavailable.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Deferred[T] {
	ctx, cancel := context.WithCancel(ctx)
	d := &Deferred[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer cancel()
		d.settle(protect(func() (T, error) { return fn(ctx) }))
	}()
	return d
}

// protect calls fn and turns a panic into an error.
func protect[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("deferred: panic: %v", r)
		}
	}()
	return fn()
}

// Resolved returns a handle already settled with v.
func Resolved[T any](v T) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{}), cancel: func() {}}
	d.settle(v, nil)
	return d
}

// Unavailable returns a handle already settled as unavailable.
func Unavailable[T any](err error) *Deferred[T] {
	if err == nil {
		err = ErrDeferredLoadFailed
	}
	d := &Deferred[T]{done: make(chan struct{}), cancel: func() {}}
	var zero T
	d.settle(zero, err)
	return d
}

func (d *Deferred[T]) settle(v T, err error) {
	if err != nil {
		d.err = err
		d.state = StateUnavailable
	} else {
		d.value = v
		d.state = StateReady
	}
	close(d.done)
}

// Done is closed once the handle settles.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Result returns the value and state without blocking.
func (d *Deferred[T]) Result() (T, State) {
	select {
	case <-d.done:
		return d.value, d.state
	default:
		var zero T
		return zero, StatePending
	}
}

// State returns the current state without blocking.
func (d *Deferred[T]) State() State {
	_, s := d.Result()
	return s
}

// Await blocks until the handle settles or ctx is done. It reports true only
// when a value is available.
func (d *Deferred[T]) Await(ctx context.Context) (T, bool) {
	select {
	case <-d.done:
		return d.value, d.state == StateReady
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Err returns the failure that made the handle unavailable, or nil.
func (d *Deferred[T]) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// Cancel stops the producing function. The handle still settles.
func (d *Deferred[T]) Cancel() {
	d.cancel()
}

// Map returns a handle that settles with fn applied to d's value. It is
// unavailable when d is, or when fn fails or panics.
func Map[T, U any](d *Deferred[T], fn func(T) (U, error)) *Deferred[U] {
	out := &Deferred[U]{done: make(chan struct{}), cancel: d.cancel}
	go func() {
		<-d.done
		var zero U
		if d.state != StateReady {
			out.settle(zero, d.err)
			return
		}
		v, err := protect(func() (U, error) { return fn(d.value) })
		if err != nil {
			out.settle(zero, err)
			return
		}
		out.settle(v, nil)
	}()
	return out
}
