package eval

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/smiles"
	"github.com/openmol/molscript/pkg/symmetry"
	"github.com/openmol/molscript/pkg/value"
)

// Settings are the numeric knobs the algorithms read.
type Settings struct {
	MeanTolerance      float64 // quaternion sphere-mean convergence
	MeanIterations     int     // sphere-mean iteration bound
	InvariantTolerance float64 // symop invariant-point test
	FileAccess         bool    // write may touch the filesystem
	OutputDir          string  // base directory for relative write targets
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		MeanTolerance:      geom.DefaultMeanTolerance,
		MeanIterations:     geom.DefaultMeanIterations,
		InvariantTolerance: symmetry.Tolerance,
		FileAccess:         true,
		OutputDir:          ".",
	}
}

// Observer is told about every function and command invocation.
type Observer interface {
	ObserveFunction(name string, d time.Duration, err error)
	ObserveCommand(name string, d time.Duration, err error)
}

// EvalContext is the execution context shared by the expression processor,
// function handlers and command handlers of one session.
type EvalContext struct {
	// Model collaborators
	Model   model.Model
	Mutator model.Mutator // nil for a read-only model
	Matcher smiles.Matcher

	// Output channel
	Bus       *events.Bus
	SessionID string

	// Session variables, keyed by lower-case name
	Vars map[string]value.Value

	// Built-in function and operator registries
	Functions map[string]*Function
	Operators map[string]*Function

	Settings Settings
	Observer Observer

	// Function call tracking
	FuncInvkCtr int

	stop *atomic.Bool
}

// FnHandler is the signature for built-in function and operator handlers.
type FnHandler func(ctx *EvalContext, call Call) (value.Value, error)

// Function is a registered built-in function or operator.
type Function struct {
	Name    string
	Handler FnHandler
	MinArgs int
	MaxArgs int // -1 for no upper bound
	Flags   int
}

// Function flags
const (
	FnProperty = 0x0001 // Reachable only as receiver.name
	FnNoChk    = 0x0002 // Skipped in check mode; returns Nil
)

// Call is the immutable per-invocation context handed to a handler. For
// receiver.name(a, b) Args is [receiver, a, b] and Method is set.
type Call struct {
	Name   string
	Args   []value.Value
	Method bool
	Chk    bool
	Line   int
}

// N returns the argument count.
func (c Call) N() int { return len(c.Args) }

// Arg returns argument i, or Nil when absent.
func (c Call) Arg(i int) value.Value {
	if i < 0 || i >= len(c.Args) {
		return value.Nil()
	}
	return c.Args[i]
}

// Errorf builds an invalid-argument error naming this call.
func (c Call) Errorf(format string, args ...any) *ScriptError {
	e := InvalidArg(c.Name, format, args...)
	e.Line = c.Line
	return e
}

// NewEvalContext creates an EvalContext over m with empty registries.
// When m also implements model.Mutator it is used for commands.
func NewEvalContext(m model.Model) *EvalContext {
	ctx := &EvalContext{
		Model:     m,
		Matcher:   smiles.Default,
		Vars:      make(map[string]value.Value),
		Functions: make(map[string]*Function),
		Operators: make(map[string]*Function),
		Settings:  DefaultSettings(),
		stop:      new(atomic.Bool),
	}
	if mu, ok := m.(model.Mutator); ok {
		ctx.Mutator = mu
	}
	return ctx
}

// RegisterFunction adds a built-in function to the registry.
func (ctx *EvalContext) RegisterFunction(name string, handler FnHandler, minArgs, maxArgs int, flags int) {
	name = strings.ToLower(name)
	ctx.Functions[name] = &Function{
		Name:    name,
		Handler: handler,
		MinArgs: minArgs,
		MaxArgs: maxArgs,
		Flags:   flags,
	}
}

// RegisterOperator adds an operator. Unary minus is registered as "neg".
func (ctx *EvalContext) RegisterOperator(symbol string, handler FnHandler, arity int) {
	ctx.Operators[symbol] = &Function{
		Name:    symbol,
		Handler: handler,
		MinArgs: arity,
		MaxArgs: arity,
	}
}

// AliasFunction creates an alias for an existing function.
func (ctx *EvalContext) AliasFunction(alias, target string) {
	if fn, ok := ctx.Functions[strings.ToLower(target)]; ok {
		ctx.Functions[strings.ToLower(alias)] = fn
	}
}

// Lookup resolves a bare identifier: session variables first, then the
// model's named atom sets.
func (ctx *EvalContext) Lookup(name string) (value.Value, bool) {
	if v, ok := ctx.Vars[strings.ToLower(name)]; ok {
		return v, true
	}
	if ctx.Model != nil {
		if bs, ok := ctx.Model.Named(name); ok {
			return ctx.NewAtoms(bs), true
		}
	}
	return value.Nil(), false
}

// SetVar assigns a session variable.
func (ctx *EvalContext) SetVar(name string, v value.Value) {
	ctx.Vars[strings.ToLower(name)] = v
}

// forCheck returns a copy of ctx whose variable writes do not reach ctx.
func (ctx *EvalContext) forCheck() *EvalContext {
	c := *ctx
	c.Vars = make(map[string]value.Value, len(ctx.Vars))
	for k, v := range ctx.Vars {
		c.Vars[k] = v
	}
	return &c
}

// RequestStop asks the running script to stop at the next check.
func (ctx *EvalContext) RequestStop() { ctx.stop.Store(true) }

// StopRequested reports whether a stop is pending.
func (ctx *EvalContext) StopRequested() bool { return ctx.stop.Load() }

// ClearStop resets the stop flag.
func (ctx *EvalContext) ClearStop() { ctx.stop.Store(false) }

// Emit sends an event on the session's bus, if any.
func (ctx *EvalContext) Emit(t events.EventType, line int, text string, data map[string]any) {
	if ctx.Bus == nil {
		return
	}
	ctx.Bus.Emit(events.Event{Type: t, Session: ctx.SessionID, Line: line, Text: text, Data: data})
}
