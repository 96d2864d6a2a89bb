package store

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-store/pkg/reactive"
)

func countGetter(state *reactive.Object, _ Getters) any {
	return state.Value("count")
}

func TestWatchFiresOnceAfterCommit(t *testing.T) {
	s := mustStore(t, &Module{
		State: map[string]any{"count": 0},
		Mutations: map[string]Mutation{
			"bumpTwice": func(state *reactive.Object, _ any) {
				state.Set("count", state.Value("count").(int)+1)
				state.Set("count", state.Value("count").(int)+1)
			},
		},
	})

	var calls [][2]any
	stop, err := s.Watch(countGetter, func(newValue, oldValue any) {
		calls = append(calls, [2]any{newValue, oldValue})
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stop()

	if err := s.Commit("bumpTwice", nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !reflect.DeepEqual(calls, [][2]any{{2, 0}}) {
		t.Fatalf("expected a single flushed callback, got %v", calls)
	}
}

func TestWatchSyncFiresPerChange(t *testing.T) {
	s := mustStore(t, &Module{
		State: map[string]any{"count": 0},
		Mutations: map[string]Mutation{
			"bumpTwice": func(state *reactive.Object, _ any) {
				state.Set("count", state.Value("count").(int)+1)
				state.Set("count", state.Value("count").(int)+1)
			},
		},
	})
	var seen []any
	stop, _ := s.Watch(countGetter, func(newValue, _ any) {
		seen = append(seen, newValue)
	}, Sync())
	defer stop()

	_ = s.Commit("bumpTwice", nil)
	if !reflect.DeepEqual(seen, []any{1, 2}) {
		t.Fatalf("expected sync callbacks per change, got %v", seen)
	}
}

func TestWatchImmediateAndStop(t *testing.T) {
	s := mustStore(t, counterModule())
	var seen []any
	stop, err := s.Watch(countGetter, func(newValue, _ any) {
		seen = append(seen, newValue)
	}, Immediate())
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	_ = s.Commit("increment", nil)
	stop()
	_ = s.Commit("increment", nil)

	if !reflect.DeepEqual(seen, []any{0, 1}) {
		t.Fatalf("unexpected callbacks %v", seen)
	}
}

func TestWatchIgnoresUnrelatedChanges(t *testing.T) {
	s := mustStore(t, &Module{
		State: map[string]any{"count": 0, "other": 0},
		Mutations: map[string]Mutation{
			"other": func(state *reactive.Object, _ any) { state.Set("other", 1) },
		},
	})
	calls := 0
	stop, _ := s.Watch(countGetter, func(any, any) { calls++ })
	defer stop()

	_ = s.Commit("other", nil)
	if calls != 0 {
		t.Fatalf("watcher should not fire for untracked keys, got %d", calls)
	}
}

func TestWatchDeep(t *testing.T) {
	s := mustStore(t, &Module{
		State: map[string]any{"profile": map[string]any{"address": map[string]any{"city": "Oslo"}}},
		Mutations: map[string]Mutation{
			"move": func(state *reactive.Object, payload any) {
				address, _ := state.Lookup("profile", "address")
				address.Set("city", payload)
			},
		},
	})
	profile := func(state *reactive.Object, _ Getters) any {
		value, _ := state.Object("profile")
		return value
	}

	shallow, deep := 0, 0
	stopShallow, _ := s.Watch(profile, func(any, any) { shallow++ })
	stopDeep, _ := s.Watch(profile, func(any, any) { deep++ }, Deep())
	defer stopShallow()
	defer stopDeep()

	_ = s.Commit("move", "Bergen")
	if shallow != 0 {
		t.Fatalf("shallow watcher must ignore nested writes, got %d", shallow)
	}
	if deep != 1 {
		t.Fatalf("deep watcher should fire once, got %d", deep)
	}
}

func TestWatchGetters(t *testing.T) {
	s := mustStore(t, counterModule())
	var seen []any
	stop, _ := s.Watch(func(_ *reactive.Object, getters Getters) any {
		return getters.Value("double")
	}, func(newValue, _ any) { seen = append(seen, newValue) })
	defer stop()

	_ = s.Commit("increment", 2)
	if !reflect.DeepEqual(seen, []any{4}) {
		t.Fatalf("expected getter watcher to fire, got %v", seen)
	}
}

func TestWatchSurvivesModuleRegistration(t *testing.T) {
	s := mustStore(t, &Module{})
	var seen []any
	stop, _ := s.Watch(func(state *reactive.Object, _ Getters) any {
		counter, ok := state.Object("counter")
		if !ok {
			return nil
		}
		return counter.Value("count")
	}, func(newValue, _ any) { seen = append(seen, newValue) })
	defer stop()

	if err := s.RegisterModule([]string{"counter"}, counterModule()); err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = s.Commit("increment", 1)
	if len(seen) == 0 || seen[len(seen)-1] != 1 {
		t.Fatalf("expected watcher to follow registered state, got %v", seen)
	}
}

func TestWatchNilGetter(t *testing.T) {
	s := mustStore(t, &Module{})
	_, err := s.Watch(nil, func(any, any) {})
	if !assertionsEnabled {
		return
	}
	if !errors.Is(err, ErrNilGetter) {
		t.Fatalf("expected ErrNilGetter, got %v", err)
	}
}

func TestWatcherLoopIsBounded(t *testing.T) {
	rec := &diagnosticRecorder{}
	s := mustStore(t, counterModule(), WithLogger(rec.logger()))
	stop, _ := s.Watch(countGetter, func(any, any) {
		_ = s.Commit("increment", nil)
	})
	defer stop()

	_ = s.Commit("increment", nil)
	if !rec.has(CodeWatcherLoop) {
		t.Fatalf("expected watcher loop diagnostic, got %v", rec.codes())
	}
}

func TestStrictModeReportsOutsideWrites(t *testing.T) {
	if !assertionsEnabled {
		t.Skip("strict mode checks are compiled out")
	}
	var violations []error
	rec := &diagnosticRecorder{}
	s := mustStore(t, &Module{
		State:     map[string]any{"count": 0, "nested": map[string]any{"flag": false}},
		Mutations: map[string]Mutation{"increment": increment},
	}, WithStrict(true), WithLogger(rec.logger()), WithViolationHandler(func(err error) {
		violations = append(violations, err)
	}))

	if !s.Strict() {
		t.Fatalf("expected strict store")
	}
	_ = s.Commit("increment", nil)
	if len(violations) != 0 {
		t.Fatalf("commits must not violate strict mode, got %v", violations)
	}

	nested, _ := s.State().Object("nested")
	nested.Set("flag", true)
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %d", len(violations))
	}
	var assertErr *AssertionError
	if !errors.As(violations[0], &assertErr) || !strings.Contains(assertErr.Message, "nested.flag") {
		t.Fatalf("unexpected violation %v", violations[0])
	}
	if !rec.has(CodeStrictViolation) {
		t.Fatalf("expected strict violation diagnostic")
	}
	if err := s.ReplaceState(map[string]any{"count": 1}); err != nil || len(violations) != 1 {
		t.Fatalf("replace state is an authorized write, got %v / %d", err, len(violations))
	}
}

func TestStrictModePanicsByDefault(t *testing.T) {
	if !assertionsEnabled {
		t.Skip("strict mode checks are compiled out")
	}
	s := mustStore(t, counterModule(), WithStrict(true))
	defer func() {
		recovered := recover()
		if _, ok := recovered.(*AssertionError); !ok {
			t.Fatalf("expected *AssertionError panic, got %v", recovered)
		}
	}()
	s.State().Set("count", 99)
}

func TestNonStrictAllowsOutsideWrites(t *testing.T) {
	s := mustStore(t, counterModule())
	s.State().Set("count", 5)
	if got := s.Getters().Value("double"); got != 10 {
		t.Fatalf("expected getter to observe write, got %v", got)
	}
}
