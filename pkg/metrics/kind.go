package metrics

import (
	"errors"

	"github.com/openmol/molscript/pkg/eval"
)

// errorKind labels err by its script error kind.
func errorKind(err error) string {
	switch {
	case errors.Is(err, eval.ErrStale):
		return "stale"
	case errors.Is(err, eval.ErrExternal):
		return "external"
	case errors.Is(err, eval.ErrInterrupted):
		return "interrupted"
	case errors.Is(err, eval.ErrInvalidArgument):
		return "invalid_argument"
	}
	return "other"
}
