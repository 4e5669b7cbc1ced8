package eval

import (
	"time"

	"github.com/google/uuid"

	"github.com/openmol/molscript/pkg/value"
)

// Status is the outcome of running a statement or a script.
type Status int

const (
	Done Status = iota
	Failed
	Suspended
)

func (s Status) String() string {
	switch s {
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Suspended:
		return "suspended"
	}
	return "unknown"
}

// Result is what a statement, command or script run produces. Exactly one
// of Value (Done), Err (Failed) or Cont (Suspended) is meaningful.
type Result struct {
	Status Status
	Value  value.Value
	Err    error
	Cont   *Continuation
}

// Continuation records where a suspended script resumes.
type Continuation struct {
	ID        string
	Statement int           // index of the next statement to run
	Delay     time.Duration // how long the caller should wait before resuming
	Line      int
}

// DoneWith returns a Done result carrying v.
func DoneWith(v value.Value) Result { return Result{Status: Done, Value: v} }

// Fail returns a Failed result. A nil err yields Done.
func Fail(err error) Result {
	if err == nil {
		return Result{Status: Done}
	}
	return Result{Status: Failed, Err: err}
}

// Suspend returns a Suspended result whose continuation resumes after the
// current statement once d has elapsed.
func Suspend(d time.Duration) Result {
	return Result{Status: Suspended, Cont: &Continuation{ID: uuid.NewString(), Delay: d}}
}
