package functions

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/value"
)

func registerStrings(ctx *eval.EvalContext) {
	ctx.RegisterFunction("format", fnFormat, 1, anyArgs, 0)
	ctx.RegisterFunction("trim", fnTrim, 1, 2, 0)
	ctx.RegisterFunction("replace", fnReplace, 3, 3, 0)
	ctx.RegisterFunction("lc", stringMap(strings.ToLower), 1, 1, 0)
	ctx.RegisterFunction("uc", stringMap(strings.ToUpper), 1, 1, 0)
}

func stringMap(f func(string) string) eval.FnHandler {
	return func(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
		return each(call.Args[0], func(v value.Value) (value.Value, error) {
			return value.String(f(v.AsString())), nil
		})
	}
}

// format(fmt, v...) or v.format(fmt). The format is printf-like with the
// verbs d i f e s p (p prints a point) and %%, or one of the keywords
// "json" (escaped form) and "base64". A list formats element by element.
func fnFormat(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	var layout string
	var args []value.Value
	if call.Method {
		if call.N() != 2 {
			return value.Nil(), call.Errorf("x.format takes one format string")
		}
		layout, args = call.Args[1].AsString(), call.Args[:1]
	} else {
		layout, args = call.Args[0].AsString(), call.Args[1:]
	}
	switch strings.ToLower(layout) {
	case "json":
		if len(args) != 1 {
			return value.Nil(), call.Errorf("json format takes one value")
		}
		return value.String(args[0].Escape()), nil
	case "base64":
		if len(args) != 1 {
			return value.Nil(), call.Errorf("base64 format takes one value")
		}
		b, ok := args[0].Bytes()
		if !ok {
			b = []byte(args[0].AsString())
		}
		return value.String(base64.StdEncoding.EncodeToString(b)), nil
	}
	if len(args) == 1 && args[0].Kind() == value.KindList {
		return each(args[0], func(v value.Value) (value.Value, error) {
			return value.String(sprintf(layout, []value.Value{v})), nil
		})
	}
	return value.String(sprintf(layout, args)), nil
}

// sprintf expands layout against args. Missing arguments print as empty;
// unknown verbs are copied through.
func sprintf(layout string, args []value.Value) string {
	var sb strings.Builder
	next := 0
	arg := func() value.Value {
		if next >= len(args) {
			return value.Nil()
		}
		next++
		return args[next-1]
	}
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(layout) && strings.IndexByte("-+ 0#.123456789", layout[j]) >= 0 {
			j++
		}
		if j >= len(layout) {
			sb.WriteString(layout[i:])
			break
		}
		flags := layout[i+1 : j]
		switch verb := layout[j]; verb {
		case '%':
			sb.WriteByte('%')
		case 'd', 'i':
			fmt.Fprintf(&sb, "%"+flags+"d", arg().AsInt())
		case 'f', 'e':
			fmt.Fprintf(&sb, "%"+flags+string(verb), arg().AsDouble())
		case 's':
			fmt.Fprintf(&sb, "%"+flags+"s", arg().AsString())
		case 'p':
			v := arg()
			p, ok := v.Point3()
			if !ok {
				sb.WriteString(v.AsString())
				break
			}
			f := "%" + flags + "f"
			if flags == "" {
				sb.WriteString(p.String())
				break
			}
			fmt.Fprintf(&sb, "{"+f+" "+f+" "+f+"}", p.X, p.Y, p.Z)
		default:
			sb.WriteString(layout[i : j+1])
		}
		i = j
	}
	return sb.String()
}

// trim(s) strips white space; trim(s, chars) strips the given characters
// from both ends. Lists trim each element.
func fnTrim(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	return each(call.Args[0], func(v value.Value) (value.Value, error) {
		if call.N() == 2 {
			return value.String(strings.Trim(v.AsString(), call.Args[1].AsString())), nil
		}
		return value.String(strings.TrimSpace(v.AsString())), nil
	})
}

// replace(s, old, new) replaces every occurrence. Lists replace in each
// element.
func fnReplace(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	old, repl := call.Args[1].AsString(), call.Args[2].AsString()
	return each(call.Args[0], func(v value.Value) (value.Value, error) {
		return value.String(strings.ReplaceAll(v.AsString(), old, repl)), nil
	})
}
