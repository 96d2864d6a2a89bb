// Package reactive provides the observation layer the store builds on: a tree
// of observed objects whose writes bubble up to deep watchers, lazily
// memoized computed values that track the keys they read, and watchers that
// re-run a getter when one of its dependencies changes.
//
// Responsibilities:
//   - Object holds one string-keyed node of the state tree. Set doubles as the
//     reactive property-addition primitive used to graft new keys.
//   - Computed memoizes a function and re-evaluates it only when a recorded
//     dependency (object key or other computed) moved on.
//   - Instance pairs a root state with a set of computed entries; the store
//     swaps instances wholesale when its handlers are reinstalled.
//   - Watcher evaluates a getter and invokes a callback when the result
//     changes.
//
// Dependency tracking is driven by a Tracker shared by every instance built
// for the same store. Reads are only recorded while a Computed or Watcher is
// evaluating on that tracker.
//
// Objects form a tree. Placing one object under two parents is not supported;
// the most recent parent wins for change propagation.
//
// Nothing in this package is safe for concurrent use.
package reactive
