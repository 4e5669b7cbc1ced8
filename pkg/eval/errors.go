package eval

import (
	"errors"
	"fmt"
)

// ErrorKind classifies script-level failures.
type ErrorKind int

const (
	KindInvalidArgument ErrorKind = iota + 1 // wrong argument count or kind
	KindExternal                             // matcher, symmetry table or file failure
	KindStale                                // atom set from an older model generation
	KindInterrupted                          // stop requested
)

// Sentinels matched by errors.Is against a *ScriptError of the same kind.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrExternal        = errors.New("external failure")
	ErrStale           = errors.New("stale atom set")
	ErrInterrupted     = errors.New("interrupted")
	ErrStackUnderflow  = errors.New("stack underflow")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindExternal:
		return ErrExternal
	case KindStale:
		return ErrStale
	case KindInterrupted:
		return ErrInterrupted
	}
	return nil
}

// ScriptError is the error every handler, operator and command reports.
type ScriptError struct {
	Kind ErrorKind
	Func string // function, operator or command name
	Msg  string
	Line int
	Err  error // underlying cause
}

func (e *ScriptError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Func != "" {
		msg += ": " + e.Func
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil && e.Err.Error() != e.Msg {
		msg += ": " + e.Err.Error()
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	return msg
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *ScriptError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// InvalidArg reports a wrong argument count or kind.
func InvalidArg(fn string, format string, args ...any) *ScriptError {
	return &ScriptError{Kind: KindInvalidArgument, Func: fn, Msg: fmt.Sprintf(format, args...)}
}

// External wraps a failure from a collaborator such as the matcher.
func External(fn string, err error) *ScriptError {
	return &ScriptError{Kind: KindExternal, Func: fn, Err: err}
}

// Stale reports an atom set captured at generation gen used against a model
// now at generation now.
func Stale(fn string, gen, now uint64) *ScriptError {
	return &ScriptError{Kind: KindStale, Func: fn, Msg: fmt.Sprintf("set from model generation %d used at generation %d", gen, now)}
}

// Interrupted reports that a stop was requested.
func Interrupted(fn string) *ScriptError {
	return &ScriptError{Kind: KindInterrupted, Func: fn, Msg: "stop requested"}
}

// atLine converts err into a *ScriptError carrying line when it has none.
// Errors that are not ScriptErrors become invalid-argument errors.
func atLine(err error, line int) error {
	if err == nil {
		return nil
	}
	var se *ScriptError
	if !errors.As(err, &se) {
		return &ScriptError{Kind: KindInvalidArgument, Msg: err.Error(), Line: line, Err: err}
	}
	if se.Line == 0 {
		se.Line = line
	}
	return se
}
