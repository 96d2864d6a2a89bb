package store

import (
	"context"
	"sync"
)

// Future is the deferred result of a dispatched action. It settles exactly
// once and is safe for concurrent use.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NewPromise returns a pending future with its settle functions. Only the
// first call to either function has an effect.
func NewPromise() (*Future, func(any), func(error)) {
	f := &Future{done: make(chan struct{})}
	resolve := func(value any) { f.settle(value, nil) }
	reject := func(err error) { f.settle(nil, err) }
	return f, resolve, reject
}

// Resolved returns a future already settled with value.
func Resolved(value any) *Future {
	f, resolve, _ := NewPromise()
	resolve(value)
	return f
}

// Rejected returns a future already settled with err.
func Rejected(err error) *Future {
	f, _, reject := NewPromise()
	reject(err)
	return f
}

// Go runs fn on a new goroutine and settles the future with its result.
func Go(fn func() (any, error)) *Future {
	f, resolve, reject := NewPromise()
	go func() {
		value, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(value)
	}()
	return f
}

func (f *Future) settle(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future settles. A nil future is always done.
func (f *Future) Done() <-chan struct{} {
	if f == nil {
		return closedChan
	}
	return f.done
}

// Await blocks until the future settles or ctx is done. A nil future, as
// returned for unknown action types, resolves to nil.
func (f *Future) Await(ctx context.Context) (any, error) {
	if f == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the settled result without blocking. ok is false while the
// future is pending.
func (f *Future) Peek() (value any, ok bool, err error) {
	if f == nil {
		return nil, true, nil
	}
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		return nil, false, nil
	}
}

// All resolves with every value in order once all futures resolve, or
// rejects with the first rejection observed. Nil futures resolve to nil.
func All(futures ...*Future) *Future {
	values := make([]any, len(futures))
	var pending []int
	for i, f := range futures {
		value, ok, err := f.Peek()
		if !ok {
			pending = append(pending, i)
			continue
		}
		if err != nil {
			return Rejected(err)
		}
		values[i] = value
	}
	if len(pending) == 0 {
		return Resolved(values)
	}

	out, resolve, reject := NewPromise()
	var (
		mu        sync.Mutex
		remaining = len(pending)
	)
	for _, i := range pending {
		go func(i int, f *Future) {
			value, err := f.Await(context.Background())
			if err != nil {
				reject(err)
				return
			}
			mu.Lock()
			values[i] = value
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				resolve(values)
			}
		}(i, futures[i])
	}
	return out
}
