// Package commands implements the script commands. Each command reads its
// own arguments from the statement's tokens and, in check mode, validates
// them without touching the model or producing output.
package commands

import (
	"sort"
	"strings"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/script"
	"github.com/openmol/molscript/pkg/store"
)

// CommandHandler is the signature for command implementations.
type CommandHandler func(x *Exec) eval.Result

// Command represents a registered script command.
type Command struct {
	Name    string
	Handler CommandHandler
	Mutates bool // needs a writable model
}

// Set is the command table of a session. It implements eval.Dispatcher.
type Set struct {
	cmds  map[string]*Command
	store *store.Store // nil keeps saved items in memory

	states     map[string]model.Snapshot
	selections map[string][]int
	vars       map[string]map[string]string
}

// New registers all commands. st persists save and restore; it may be nil.
func New(st *store.Store) *Set {
	s := &Set{
		cmds:       make(map[string]*Command),
		store:      st,
		states:     make(map[string]model.Snapshot),
		selections: make(map[string][]int),
		vars:       make(map[string]map[string]string),
	}

	register := func(name string, handler CommandHandler) {
		s.cmds[strings.ToLower(name)] = &Command{Name: name, Handler: handler}
	}
	registerM := func(name string, handler CommandHandler) {
		s.cmds[strings.ToLower(name)] = &Command{Name: name, Handler: handler, Mutates: true}
	}

	// Output
	register("print", cmdPrint)
	register("echo", cmdEcho)
	register("show", s.cmdShow)
	register("write", cmdWrite)

	// Flow
	register("delay", cmdDelay)

	// Model edits
	registerM("select", cmdSelect)
	registerM("connect", cmdConnect)
	registerM("measure", cmdMeasure)
	registerM("polyhedra", cmdPolyhedra)
	registerM("undo", cmdUndo)
	registerM("redo", cmdRedo)

	// Saved items
	registerM("save", s.cmdSave)
	registerM("restore", s.cmdRestore)

	return s
}

// Has implements eval.Dispatcher.
func (s *Set) Has(name string) bool {
	_, ok := s.cmds[strings.ToLower(name)]
	return ok
}

// Names lists the registered commands, sorted.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.cmds))
	for k := range s.cmds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dispatch implements eval.Dispatcher.
func (s *Set) Dispatch(ctx *eval.EvalContext, st script.Statement, chk bool) eval.Result {
	name := strings.ToLower(st.Tokens[0].Text)
	cmd, ok := s.cmds[name]
	if !ok {
		return eval.Fail(eval.InvalidArg(name, "unknown command"))
	}
	x := &Exec{Ctx: ctx, Name: name, Chk: chk, Line: st.Line, stmt: st, toks: st.Tokens, pos: 1}
	if cmd.Mutates && ctx.Mutator == nil {
		return eval.Fail(x.errorf("model is read-only"))
	}
	return cmd.Handler(x)
}
