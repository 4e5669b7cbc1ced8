package value

import (
	"encoding/base64"
	"strings"
)

// Escape renders v as script source: strings are quoted, lists use
// [a, b], maps use { "k": v }.
func (v Value) Escape() string {
	var sb strings.Builder
	v.escapeTo(&sb)
	return sb.String()
}

func (v Value) escapeTo(sb *strings.Builder) {
	switch v.kind {
	case KindString:
		quote(sb, v.s)
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.ref.([]Value) {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.escapeTo(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		m := v.ref.(*Map)
		if m.Len() == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{ ")
		for i, k := range m.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			quote(sb, k)
			sb.WriteString(": ")
			m.vals[k].escapeTo(sb)
		}
		sb.WriteString(" }")
	case KindBlob:
		sb.WriteString("\"base64,")
		sb.WriteString(base64.StdEncoding.EncodeToString(v.ref.([]byte)))
		sb.WriteByte('"')
	case KindPattern, KindSearchTarget:
		quote(sb, v.ref.(Compiled).Source)
	case KindNil:
		sb.WriteString("\"\"")
	default:
		sb.WriteString(v.AsString())
	}
}

func quote(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// Unquote reverses the escaping done for string literals.
func Unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		s = s[1 : len(s)-1]
	}
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
