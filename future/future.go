// Package future provides single-resolution values with any number of
// dependents.
//
// A Future is resolved exactly once, either with a value or with an error.
// Dependents either block on it (Result, Await) or compose on it (Then, All),
// in which case the dependent work runs in its own goroutine once the
// upstream value is available.
package future

import (
	"context"
	"errors"
	"sync"
)

// Future holds a value that becomes available at most once.
// All methods are safe for concurrent use.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New returns an unresolved Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future already resolved with value.
func Resolved[T any](value T) *Future[T] {
	f := New[T]()
	f.Resolve(value)
	return f
}

// Failed returns a Future already resolved with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Go runs fn in a new goroutine and returns a Future for its outcome.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := New[T]()
	go func() {
		f.complete(fn())
	}()
	return f
}

// Resolve sets the value. It reports whether this call resolved the Future.
func (f *Future[T]) Resolve(value T) bool {
	return f.complete(value, nil)
}

// Reject sets the error. A nil err is replaced by ErrNilRejection.
// It reports whether this call resolved the Future.
func (f *Future[T]) Reject(err error) bool {
	if err == nil {
		err = ErrNilRejection
	}
	var zero T
	return f.complete(zero, err)
}

func (f *Future[T]) complete(value T, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		resolved = true
		close(f.done)
	})
	return resolved
}

// Done returns a channel that is closed once the Future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the Future is resolved, without blocking.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until the Future is resolved and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Await blocks until the Future is resolved or ctx is done.
// Giving up on ctx does not affect the Future.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ErrNilRejection is the error of a Future rejected with a nil error.
var ErrNilRejection = errors.New("future: rejected with nil error")

// Then returns a Future for fn applied to the value of f. fn runs in its own
// goroutine once f resolves successfully; if f fails, fn is never called and
// the returned Future carries f's error.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next := New[U]()
	go func() {
		value, err := f.Result()
		if err != nil {
			next.Reject(err)
			return
		}
		next.complete(fn(value))
	}()
	return next
}

// All returns a Future that resolves once every input has resolved. On
// success the values are in input order. Otherwise the error joins every
// failure in input order; All never resolves before all inputs have.
func All[T any](futures []*Future[T]) *Future[[]T] {
	all := New[[]T]()
	go func() {
		values := make([]T, len(futures))
		var errs []error
		for i, f := range futures {
			value, err := f.Result()
			if err != nil {
				errs = append(errs, err)
				continue
			}
			values[i] = value
		}
		if len(errs) > 0 {
			all.Reject(errors.Join(errs...))
			return
		}
		all.Resolve(values)
	}()
	return all
}
