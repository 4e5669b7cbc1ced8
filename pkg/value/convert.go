package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/openmol/molscript/pkg/geom"
)

// AsInt converts any value to an integer. Doubles truncate toward zero with
// NaN and infinities giving 0; strings parse their leading number.
func (v Value) AsInt() int {
	switch v.kind {
	case KindBoolean, KindInteger:
		return v.i
	case KindDouble:
		return truncate(v.f)
	case KindString:
		f, ok := leadingNumber(v.s)
		if !ok {
			return 0
		}
		return truncate(f)
	case KindPoint3, KindPoint4:
		return truncate(v.AsDouble())
	case KindAtomSet, KindBondSet, KindList, KindMap, KindBlob:
		return v.Len()
	}
	return 0
}

func truncate(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0
	}
	return int(f)
}

// AsDouble converts any value to a float64. Strings that do not start with a
// number give NaN; points give their length.
func (v Value) AsDouble() float64 {
	switch v.kind {
	case KindBoolean, KindInteger:
		return float64(v.i)
	case KindDouble:
		return v.f
	case KindString:
		f, ok := leadingNumber(v.s)
		if !ok {
			return math.NaN()
		}
		return f
	case KindPoint3:
		return v.ref.(geom.P3).Length()
	case KindPoint4:
		return v.ref.(geom.P4).Length()
	case KindAtomSet, KindBondSet, KindList, KindMap, KindBlob:
		return float64(v.Len())
	}
	return 0
}

// AsBoolean converts any value to a truth value.
func (v Value) AsBoolean() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBoolean, KindInteger:
		return v.i != 0
	case KindDouble:
		return v.f != 0 && !math.IsNaN(v.f)
	case KindString:
		s := strings.TrimSpace(v.s)
		return s != "" && !equalFold(s, "false") && s != "0"
	case KindPoint3, KindPoint4:
		return v.AsDouble() != 0
	case KindAtomSet, KindBondSet, KindList, KindMap, KindBlob:
		return v.Len() > 0
	}
	return true
}

// AsString renders v for printing. Lists print one element per line; maps
// print in escaped form.
func (v Value) AsString() string {
	switch v.kind {
	case KindNil:
		return ""
	case KindBoolean:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case KindInteger:
		return strconv.Itoa(v.i)
	case KindDouble:
		return geom.FormatFloat(v.f)
	case KindString, KindKeyword:
		return v.s
	case KindPoint3:
		return v.ref.(geom.P3).String()
	case KindPoint4:
		return v.ref.(geom.P4).String()
	case KindMatrix3:
		return v.ref.(geom.M3).String()
	case KindMatrix4:
		return v.ref.(geom.M4).String()
	case KindAtomSet:
		return v.ref.(Set).Bits.String()
	case KindBondSet:
		return "[" + v.ref.(Set).Bits.Escape('{', '}') + "]"
	case KindList:
		vs := v.ref.([]Value)
		parts := make([]string, len(vs))
		for i, e := range vs {
			parts[i] = e.AsString()
		}
		return strings.Join(parts, "\n")
	case KindMap:
		return v.Escape()
	case KindBlob:
		return blobString(v.ref.([]byte))
	case KindPattern, KindSearchTarget:
		return v.ref.(Compiled).Source
	}
	return ""
}

// ToNumber returns v as an Integer or Double value: integers and booleans
// stay integral, strings become whichever their text denotes.
func (v Value) ToNumber() Value {
	switch v.kind {
	case KindInteger:
		return v
	case KindBoolean:
		return Int(v.i)
	case KindDouble:
		return v
	case KindString:
		if n, ok := ParseNumber(v.s); ok {
			return n
		}
		return Double(v.AsDouble())
	}
	return Double(v.AsDouble())
}

// ParseNumber strictly parses a whole string as an Integer or Double.
func ParseNumber(s string) (Value, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Nil(), false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return Int(i), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Double(f), true
	}
	switch strings.ToLower(s) {
	case "nan":
		return Double(math.NaN()), true
	case "infinity", "+infinity":
		return Double(math.Inf(1)), true
	case "-infinity":
		return Double(math.Inf(-1)), true
	}
	return Nil(), false
}

// leadingNumber parses the longest numeric prefix of s, the way C atof does.
func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, ok := ParseNumber(s); ok {
		return v.AsDouble(), true
	}
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := 0
	sawDot := false
	for end < len(s) {
		c := s[end]
		if c == '.' && !sawDot {
			sawDot = true
		} else if c >= '0' && c <= '9' {
			digits++
		} else {
			break
		}
		end++
	}
	if digits == 0 {
		return 0, false
	}
	// optional exponent
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		j := end + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			end = k
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Lines splits a string into its newline-delimited pseudo-list.
func Lines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// ParseLiteral turns a token of script text into the most specific value it
// denotes: a number, a point literal, or else a String.
func ParseLiteral(s string) Value {
	if n, ok := ParseNumber(s); ok {
		return n
	}
	if c, ok := geom.ParsePoint(s); ok {
		if len(c) == 3 {
			return Point(geom.P3{X: c[0], Y: c[1], Z: c[2]})
		}
		return Point4(geom.P4{X: c[0], Y: c[1], Z: c[2], W: c[3]})
	}
	return String(s)
}

func equalFold(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

func blobString(b []byte) string {
	return "#BYTES " + strconv.Itoa(len(b))
}
