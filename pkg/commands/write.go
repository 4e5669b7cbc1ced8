package commands

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/value"
)

var writeTypes = []string{"xyz", "pdb", "json", "spt", "state", "var", "measurements",
	"zip", "png", "jpg", "jpeg", "gif", "image"}

// stateTypes render measurements and other state only a writable model has.
var stateTypes = map[string]bool{"spt": true, "measurements": true, "zip": true}

var imageTypes = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "image": true}

var extTypes = map[string]string{
	".xyz":  "xyz",
	".pdb":  "pdb",
	".json": "json",
	".spt":  "spt",
	".zip":  "zip",
	".png":  "png",
	".jpg":  "jpg",
	".jpeg": "jpeg",
	".gif":  "gif",
}

type writeArgs struct {
	typ     string // explicit type keyword
	as      string // AS clause
	varName string
	target  string
}

// write [type] [var name] [target] [AS type]
//
// The output type is the explicit keyword, else the AS clause, else the
// target's extension. A target ending in .xz or .lz4 is compressed. With
// no target, or when file access is off, the output goes to the print
// channel.
func cmdWrite(x *Exec) eval.Result {
	a, err := parseWrite(x)
	if err != nil {
		return eval.Fail(err)
	}
	typ, compress, err := resolveWriteType(x, a)
	if err != nil {
		return eval.Fail(err)
	}
	if stateTypes[typ] && x.Ctx.Mutator == nil {
		return eval.Fail(x.errorf("%s output needs a writable model", typ))
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	data, err := render(x, typ, a.varName)
	if err != nil {
		return eval.Fail(err)
	}

	if a.target == "" || !x.Ctx.Settings.FileAccess {
		text := string(data)
		if typ == "zip" {
			text = fmt.Sprintf("zip bundle, %s", units.HumanSize(float64(len(data))))
		}
		x.emit(events.EvWrite, text, map[string]any{"type": typ, "name": a.target, "bytes": data})
		return eval.DoneWith(value.Int(len(data)))
	}

	path := a.target
	if !filepath.IsAbs(path) && x.Ctx.Settings.OutputDir != "" {
		path = filepath.Join(x.Ctx.Settings.OutputDir, path)
	}
	n, err := writeFile(path, data, compress)
	if err != nil {
		return eval.Fail(eval.External(x.Name, err))
	}
	log.Printf("commands: wrote %s %s (%s)", typ, path, units.HumanSize(float64(n)))
	x.messagef("%s written to %s (%s)", typ, a.target, units.HumanSize(float64(n)))
	return eval.DoneWith(value.Int(int(n)))
}

func parseWrite(x *Exec) (writeArgs, error) {
	var a writeArgs
	if w, ok := x.word(writeTypes...); ok {
		a.typ = w
		if w == "state" {
			a.typ = "spt"
		}
	}
	if a.typ == "var" {
		name, err := x.ident("a variable name")
		if err != nil {
			return a, err
		}
		a.varName = name
	}
	if !x.done() && !x.isWord("as") {
		t, err := x.str()
		if err != nil {
			return a, err
		}
		a.target = strings.TrimSpace(t)
	}
	if _, ok := x.word("as"); ok {
		w, err := x.ident("a file type")
		if err != nil {
			return a, err
		}
		a.as = strings.ToLower(w)
		if a.as == "state" {
			a.as = "spt"
		}
	}
	return a, x.end()
}

// resolveWriteType picks the output type and the compression suffix.
func resolveWriteType(x *Exec, a writeArgs) (typ, compress string, err error) {
	base := a.target
	for _, ext := range []string{".xz", ".lz4"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			compress = ext
			base = base[:len(base)-len(ext)]
		}
	}
	typ = a.typ
	if typ == "" {
		typ = a.as
	}
	if typ == "" {
		typ = extTypes[strings.ToLower(filepath.Ext(base))]
	}
	switch {
	case typ == "":
		if a.target == "" {
			return "", "", x.errorf("write what? (%s)", strings.Join(writeTypes, ", "))
		}
		return "", "", x.errorf("cannot tell the file type of %q", a.target)
	case imageTypes[typ]:
		return "", "", x.errorf("image output (%s) is not supported", typ)
	case !containsString(writeTypes, typ):
		return "", "", x.errorf("unknown file type %q", typ)
	case typ == "var" && a.varName == "":
		return "", "", x.errorf("write var needs a variable name")
	}
	return typ, compress, nil
}

func render(x *Exec, typ, varName string) ([]byte, error) {
	ctx := x.Ctx
	if typ == "var" {
		v, ok := ctx.Lookup(varName)
		if !ok {
			return nil, x.errorf("undefined variable %s", varName)
		}
		if b, ok := v.Bytes(); ok {
			return b, nil
		}
		return []byte(v.AsString() + "\n"), nil
	}
	m, err := ctx.RequireModel(x.Name)
	if err != nil {
		return nil, err
	}
	switch typ {
	case "xyz":
		return renderXYZ(m)
	case "pdb":
		return renderPDB(m), nil
	case "json":
		return renderJSON(m)
	}
	switch typ {
	case "spt":
		return []byte(StateScript(ctx.Mutator)), nil
	case "measurements":
		return []byte(measureList(ctx.Mutator) + "\n"), nil
	case "zip":
		data, err := renderZip(ctx.Mutator, time.Now())
		if err != nil {
			return nil, eval.External(x.Name, err)
		}
		return data, nil
	}
	return nil, x.errorf("unknown file type %q", typ)
}

// writeFile writes data to path through the compressor named by
// compress and returns the bytes written to disk.
func writeFile(path string, data []byte, compress string) (int64, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	var w io.WriteCloser
	switch compress {
	case ".xz":
		xw, err := xz.NewWriter(f)
		if err != nil {
			return 0, fmt.Errorf("xz %s: %w", path, err)
		}
		w = xw
	case ".lz4":
		w = lz4.NewWriter(f)
	}
	if w != nil {
		if _, err := w.Write(data); err != nil {
			return 0, fmt.Errorf("write %s: %w", path, err)
		}
		if err := w.Close(); err != nil {
			return 0, fmt.Errorf("close %s: %w", path, err)
		}
	} else if _, err := f.Write(data); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), f.Close()
}

func containsString(xs []string, s string) bool {
	for _, v := range xs {
		if v == s {
			return true
		}
	}
	return false
}
