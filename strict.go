package store

import (
	"strings"

	"github.com/goliatone/go-store/pkg/reactive"
)

func (s *Store) reportViolation(change reactive.Change) {
	path := strings.Join(change.Path, ".")
	err := &AssertionError{Message: "do not mutate store state outside mutation handlers (" + path + ")"}
	s.diagnose(Diagnostic{
		Level:   LevelError,
		Code:    CodeStrictViolation,
		Path:    change.Path,
		Message: err.Message,
		Err:     err,
	})
	if s.cfg.violation != nil {
		s.cfg.violation(err)
		return
	}
	panic(err)
}
