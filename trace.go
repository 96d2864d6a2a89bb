package store

import (
	"encoding/json"
)

// Handler kinds reported in a Trace.
const (
	KindMutation = "mutation"
	KindAction   = "action"
	KindGetter   = "getter"
)

// Trace lists every handler registered under a qualified type, in the
// order they run.
type Trace struct {
	Type     string       `json:"type"`
	Handlers []Provenance `json:"handlers"`
}

// Provenance identifies the module a handler was declared in.
type Provenance struct {
	Kind      string   `json:"kind"`
	Path      []string `json:"path"`
	Namespace string   `json:"namespace,omitempty"`
	Key       string   `json:"key"`
	Root      bool     `json:"root,omitempty"`
}

// Found reports whether any handler is registered under the traced type.
func (t Trace) Found() bool {
	return len(t.Handlers) > 0
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Trace reports which modules handle typ: mutation handlers first, then
// action handlers, then the getter.
func (s *Store) Trace(typ string) Trace {
	trace := Trace{Type: typ, Handlers: []Provenance{}}
	for _, entry := range s.registry.mutations[typ] {
		trace.Handlers = append(trace.Handlers, entry.origin.provenance(KindMutation))
	}
	for _, entry := range s.registry.actions[typ] {
		trace.Handlers = append(trace.Handlers, entry.origin.provenance(KindAction))
	}
	if entry, ok := s.registry.getters[typ]; ok {
		trace.Handlers = append(trace.Handlers, entry.origin.provenance(KindGetter))
	}
	return trace
}

func (o handlerOrigin) provenance(kind string) Provenance {
	path := append([]string{}, o.path...)
	return Provenance{
		Kind:      kind,
		Path:      path,
		Namespace: o.namespace,
		Key:       o.key,
		Root:      o.root,
	}
}
