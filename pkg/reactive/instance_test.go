package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceComputedAndKeys(t *testing.T) {
	tr := NewTracker()
	state := NewObject()
	state.Set("n", 3)

	var inst *Instance
	inst = NewInstance(tr, state, map[string]func() any{
		"double": func() any { return inst.State().Value("n").(int) * 2 },
		"square": func() any { return inst.State().Value("n").(int) * inst.State().Value("n").(int) },
	})

	assert.Equal(t, []string{"double", "square"}, inst.Keys())
	v, ok := inst.Computed("double")
	require.True(t, ok)
	assert.Equal(t, 6, v)

	_, ok = inst.Computed("missing")
	assert.False(t, ok)
}

func TestInstanceWatchStateSeesReplacement(t *testing.T) {
	tr := NewTracker()
	inst := NewInstance(tr, NewObject(), nil)

	var paths [][]string
	inst.WatchState(func(c Change) { paths = append(paths, c.Path) })

	inst.State().Set("a", 1)
	inst.SetState(NewObject())
	inst.State().Set("b", 2)

	assert.Equal(t, [][]string{{"a"}, {}, {"b"}}, paths)
}

func TestInstanceDestroy(t *testing.T) {
	tr := NewTracker()
	state := NewObject()
	state.Set("n", 1)

	var inst *Instance
	inst = NewInstance(tr, state, map[string]func() any{
		"n": func() any { return inst.State().Value("n") },
	})

	fired := 0
	inst.WatchState(func(Change) { fired++ })
	v, _ := inst.Computed("n")
	assert.Equal(t, 1, v)

	inst.Destroy()
	inst.Destroy()
	assert.True(t, inst.Destroyed())

	state.Set("n", 2)
	assert.Zero(t, fired)
	v, _ = inst.Computed("n")
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, state.Value("n"))
}
