package store

// Typed is implemented by object-style commits and dispatches: the value
// carries its own type and is forwarded to handlers as the payload.
type Typed interface {
	Type() string
}

// Message is a map-shaped Typed value whose "type" entry names the handler.
type Message map[string]any

// Type returns the "type" entry, or an empty string when it is missing or
// not a string.
func (m Message) Type() string {
	typ, _ := m["type"].(string)
	return typ
}

// CallOption tunes a local commit or dispatch.
type CallOption func(*callConfig)

type callConfig struct {
	root bool
}

// Root resolves the type against the global registry instead of the
// calling module's namespace.
func Root() CallOption {
	return func(cfg *callConfig) {
		cfg.root = true
	}
}

func applyCallOptions(opts []CallOption) callConfig {
	cfg := callConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// MutationRecord is passed to mutation subscribers after a commit.
type MutationRecord struct {
	Type    string
	Payload any
}

// ActionRecord is passed to action subscribers before handlers run.
type ActionRecord struct {
	Type    string
	Payload any
}

func messageType(msg Typed) string {
	if msg == nil {
		return ""
	}
	return msg.Type()
}
