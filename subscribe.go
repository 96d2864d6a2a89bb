package store

import "github.com/goliatone/go-store/pkg/reactive"

// MutationSubscriber observes every successful commit.
type MutationSubscriber func(mutation MutationRecord, state *reactive.Object)

// ActionSubscriber observes every dispatch of a registered action before
// its handlers run.
type ActionSubscriber func(action ActionRecord, state *reactive.Object)

type subscription[F any] struct {
	fn F
}

// subscriptionList keeps subscribers in insertion order. Each registration
// gets its own handle, so removal never affects another registration of the
// same function.
type subscriptionList[F any] struct {
	entries []*subscription[F]
}

func (l *subscriptionList[F]) add(fn F) func() {
	sub := &subscription[F]{fn: fn}
	l.entries = append(l.entries, sub)
	return func() {
		l.remove(sub)
	}
}

func (l *subscriptionList[F]) remove(sub *subscription[F]) {
	for i, candidate := range l.entries {
		if candidate == sub {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *subscriptionList[F]) snapshot() []F {
	out := make([]F, len(l.entries))
	for i, sub := range l.entries {
		out[i] = sub.fn
	}
	return out
}

func (l *subscriptionList[F]) len() int {
	return len(l.entries)
}

// Subscribe registers fn to run after every commit, in registration order.
// The returned function removes it; calling it again is a no-op.
func (s *Store) Subscribe(fn MutationSubscriber) func() {
	if fn == nil {
		return func() {}
	}
	return s.subscribers.add(fn)
}

// SubscribeAction registers fn to run before the handlers of every
// dispatched action, in registration order.
func (s *Store) SubscribeAction(fn ActionSubscriber) func() {
	if fn == nil {
		return func() {}
	}
	return s.actionSubscribers.add(fn)
}
