package reactive

// Tracker records the reads performed while a Computed or Watcher evaluates.
// One tracker is shared by every Instance built for the same store so that
// watchers survive instance swaps.
type Tracker struct {
	frames []*frame
}

type frame struct {
	deps      []dependency
	computeds []computedDependency
}

type dependency struct {
	object  *Object
	key     string
	version uint64
}

type computedDependency struct {
	computed   *Computed
	generation uint64
}

// NewTracker constructs an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) push() *frame {
	f := &frame{}
	t.frames = append(t.frames, f)
	return f
}

func (t *Tracker) pop() {
	if len(t.frames) == 0 {
		return
	}
	t.frames[len(t.frames)-1] = nil
	t.frames = t.frames[:len(t.frames)-1]
}

func (t *Tracker) top() *frame {
	if t == nil || len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

func (t *Tracker) record(o *Object, key string) {
	if f := t.top(); f != nil {
		f.deps = append(f.deps, dependency{object: o, key: key, version: o.version(key)})
	}
}

func (t *Tracker) recordComputed(c *Computed) {
	if f := t.top(); f != nil {
		f.computeds = append(f.computeds, computedDependency{computed: c, generation: c.generation})
	}
}
