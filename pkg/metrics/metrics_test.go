package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/eval/functions"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
)

// counter returns the value of the counter family name whose labels
// include all of want.
func counter(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()
	fams, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range fams {
		if f.GetName() != name {
			continue
		}
	next:
		for _, mt := range f.GetMetric() {
			labels := map[string]string{}
			for _, lp := range mt.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			return mt.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserverCounts(t *testing.T) {
	s := model.NewStore()
	s.AddAtom(model.Atom{Element: "C", Pos: geom.P3{}})
	ctx := eval.NewEvalContext(s)
	functions.RegisterAll(ctx)
	m := New(s, time.Now())
	ctx.Observer = m

	sess := eval.NewSession(ctx, nil)
	sess.Run("a = sqrt(4) + sqrt(9)")
	sess.Run("b = nosuch(1)")
	sess.Run(`c = spacegroup("Q99")`)

	if got := counter(t, m, "molscript_function_calls_total", map[string]string{"function": "sqrt"}); got != 2 {
		t.Errorf("sqrt calls = %v, want 2", got)
	}
	if got := counter(t, m, "molscript_function_failures_total", map[string]string{"function": "spacegroup", "kind": "external"}); got != 1 {
		t.Errorf("spacegroup failures = %v, want 1", got)
	}

	m.ObserveCommand("measure", time.Millisecond, nil)
	m.ObserveCommand("measure", time.Millisecond, eval.InvalidArg("measure", "bad"))
	if got := counter(t, m, "molscript_commands_total", map[string]string{"command": "measure"}); got != 2 {
		t.Errorf("measure commands = %v, want 2", got)
	}
	if got := counter(t, m, "molscript_command_failures_total", map[string]string{"kind": "invalid_argument"}); got != 1 {
		t.Errorf("measure failures = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	s := model.NewStore()
	s.AddAtom(model.Atom{Element: "O"})
	s.AddAtom(model.Atom{Element: "H", Pos: geom.P3{X: 1}})
	m := New(s, time.Now())

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "molscript_model_atoms 2") {
		t.Errorf("atom gauge missing from:\n%s", body)
	}
}
