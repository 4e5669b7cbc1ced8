package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openmol/molscript/pkg/eval"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "molscript.yaml", `
file_access: false
output_dir: out
mean_tolerance: 0.001
scripts:
  - setup.spt
`)
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.FileAccess {
		t.Error("file_access should be false")
	}
	if c.OutputDir != filepath.Join(dir, "out") {
		t.Errorf("output_dir = %q", c.OutputDir)
	}
	if c.MeanTolerance != 0.001 {
		t.Errorf("mean_tolerance = %g", c.MeanTolerance)
	}
	if c.MeanIterations != Default().MeanIterations {
		t.Errorf("mean_iterations lost its default: %d", c.MeanIterations)
	}
	if len(c.Scripts) != 1 || c.Scripts[0] != filepath.Join(dir, "setup.spt") {
		t.Errorf("scripts = %v", c.Scripts)
	}
}

func TestLoadTextWithInclude(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "common.conf", "invariant_tolerance 0.01\nmetrics_addr :9100\n")
	p := write(t, dir, "molscript.conf", `# session settings
include common.conf
file_access no
mean_iterations 50
bogus_key 1
`)
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.FileAccess || c.MeanIterations != 50 || c.InvariantTolerance != 0.01 || c.MetricsAddr != ":9100" {
		t.Errorf("got %+v", c)
	}
}

func TestCircularInclude(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "a.conf", "include a.conf\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected include depth error")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "bad.yaml", "mean_iterations: 0\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestApply(t *testing.T) {
	c := Default()
	c.FileAccess = false
	c.InvariantTolerance = 0.5
	s := eval.DefaultSettings()
	c.Apply(&s)
	if s.FileAccess || s.InvariantTolerance != 0.5 {
		t.Errorf("settings = %+v", s)
	}
}
