package reactive

// Computed is a lazily evaluated, memoized value. It is re-evaluated on access
// only when an object key or another Computed it read during its last
// evaluation has changed since.
type Computed struct {
	fn         func() any
	tracker    *Tracker
	value      any
	evaluated  bool
	running    bool
	disposed   bool
	generation uint64
	deps       []dependency
	computeds  []computedDependency
}

// NewComputed wraps fn. Reads are tracked through tracker.
func NewComputed(tracker *Tracker, fn func() any) *Computed {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Computed{fn: fn, tracker: tracker}
}

// Get returns the memoized value, re-evaluating it first when stale.
func (c *Computed) Get() any {
	c.refresh()
	c.tracker.recordComputed(c)
	return c.value
}

// Invalidate forces the next Get to re-evaluate.
func (c *Computed) Invalidate() {
	c.evaluated = false
}

// Dispose freezes the computed on its last value.
func (c *Computed) Dispose() {
	c.disposed = true
	c.deps = nil
	c.computeds = nil
}

func (c *Computed) refresh() {
	if c.running || c.fn == nil {
		return
	}
	if c.evaluated && (c.disposed || !c.stale()) {
		return
	}

	c.running = true
	f := c.tracker.push()
	defer func() {
		c.tracker.pop()
		c.running = false
	}()

	c.value = c.fn()
	c.deps = f.deps
	c.computeds = f.computeds
	c.evaluated = true
	c.generation++
}

func (c *Computed) stale() bool {
	if !c.evaluated {
		return true
	}
	for _, dep := range c.deps {
		if dep.object.version(dep.key) != dep.version {
			return true
		}
	}
	for _, dep := range c.computeds {
		dep.computed.refresh()
		if dep.computed.generation != dep.generation {
			return true
		}
	}
	return false
}
