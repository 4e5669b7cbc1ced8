package commands

import (
	"errors"
	"time"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/value"
)

// print [expr]
func cmdPrint(x *Exec) eval.Result {
	v := value.String("")
	if !x.done() {
		var err error
		if v, err = x.expr(); err != nil {
			return eval.Fail(err)
		}
	}
	if err := x.end(); err != nil {
		return eval.Fail(err)
	}
	x.emit(events.EvPrint, v.AsString(), nil)
	return eval.DoneWith(value.Nil())
}

// echo text: the rest of the line, verbatim.
func cmdEcho(x *Exec) eval.Result {
	x.emit(events.EvEcho, x.rest(), nil)
	return eval.DoneWith(value.Nil())
}

// delay [seconds]; one second by default.
func cmdDelay(x *Exec) eval.Result {
	secs := 1.0
	if !x.done() {
		var err error
		if secs, err = x.number(); err != nil {
			return eval.Fail(err)
		}
	}
	if err := x.end(); err != nil {
		return eval.Fail(err)
	}
	if secs < 0 {
		return eval.Fail(x.errorf("negative delay %g", secs))
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	if x.Ctx.StopRequested() {
		return eval.Fail(eval.Interrupted(x.Name))
	}
	return eval.Suspend(time.Duration(secs * float64(time.Second)))
}

// select [set]; all atoms without an argument.
func cmdSelect(x *Exec) eval.Result {
	var bs *bitset.BS
	var err error
	if x.done() {
		bs = bitset.Range(0, x.Ctx.Model.AtomCount())
	} else if bs, err = x.atoms(); err != nil {
		return eval.Fail(err)
	}
	if err := x.end(); err != nil {
		return eval.Fail(err)
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	x.Ctx.Mutator.Select(bs)
	x.messagef("%d atoms selected", bs.Cardinality())
	return eval.DoneWith(value.Nil())
}

func cmdUndo(x *Exec) eval.Result {
	return history(x, x.Ctx.Mutator.Undo)
}

func cmdRedo(x *Exec) eval.Result {
	return history(x, x.Ctx.Mutator.Redo)
}

func history(x *Exec, step func() error) eval.Result {
	if err := x.end(); err != nil {
		return eval.Fail(err)
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	if err := step(); err != nil {
		if errors.Is(err, model.ErrNothingToUndo) {
			return eval.Fail(x.errorf("nothing to %s", x.Name))
		}
		return eval.Fail(eval.External(x.Name, err))
	}
	x.modelChanged(x.Name)
	return eval.DoneWith(value.Nil())
}
