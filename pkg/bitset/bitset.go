package bitset

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// BS is a growable set of non-negative indices into the model's atom or bond
// arrays. The zero value is an empty set ready to use.
type BS struct {
	words []uint64
}

// New returns an empty set.
func New() *BS {
	return &BS{}
}

// Of returns a set holding the given indices. Negative indices are ignored.
func Of(indices ...int) *BS {
	bs := New()
	for _, i := range indices {
		if i >= 0 {
			bs.Set(i)
		}
	}
	return bs
}

// Range returns the set {from, from+1, ..., to-1}.
func Range(from, to int) *BS {
	bs := New()
	for i := from; i < to; i++ {
		bs.Set(i)
	}
	return bs
}

func (b *BS) grow(word int) {
	if word < len(b.words) {
		return
	}
	nw := make([]uint64, word+1)
	copy(nw, b.words)
	b.words = nw
}

// Set adds i to the set.
func (b *BS) Set(i int) {
	if i < 0 {
		return
	}
	w := i >> 6
	b.grow(w)
	b.words[w] |= 1 << uint(i&63)
}

// Clear removes i from the set.
func (b *BS) Clear(i int) {
	if i < 0 {
		return
	}
	w := i >> 6
	if w >= len(b.words) {
		return
	}
	b.words[w] &^= 1 << uint(i&63)
}

// Get reports whether i is in the set.
func (b *BS) Get(i int) bool {
	if b == nil || i < 0 {
		return false
	}
	w := i >> 6
	if w >= len(b.words) {
		return false
	}
	return b.words[w]&(1<<uint(i&63)) != 0
}

// Cardinality returns the number of members.
func (b *BS) Cardinality() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether the set has no members.
func (b *BS) IsEmpty() bool {
	if b == nil {
		return true
	}
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Length returns one more than the highest member, or 0 for an empty set.
func (b *BS) Length() int {
	if b == nil {
		return 0
	}
	for w := len(b.words) - 1; w >= 0; w-- {
		if b.words[w] != 0 {
			return w*64 + 64 - bits.LeadingZeros64(b.words[w])
		}
	}
	return 0
}

// NextSetBit returns the first member >= from, or -1.
func (b *BS) NextSetBit(from int) int {
	if b == nil {
		return -1
	}
	if from < 0 {
		from = 0
	}
	w := from >> 6
	if w >= len(b.words) {
		return -1
	}
	word := b.words[w] & (^uint64(0) << uint(from&63))
	for {
		if word != 0 {
			return w*64 + bits.TrailingZeros64(word)
		}
		w++
		if w >= len(b.words) {
			return -1
		}
		word = b.words[w]
	}
}

// Indices returns the members in ascending order.
func (b *BS) Indices() []int {
	out := make([]int, 0, b.Cardinality())
	for i := b.NextSetBit(0); i >= 0; i = b.NextSetBit(i + 1) {
		out = append(out, i)
	}
	return out
}

// Copy returns an independent copy. Callers copy before mutating a set they
// did not create.
func (b *BS) Copy() *BS {
	if b == nil {
		return New()
	}
	nb := &BS{words: make([]uint64, len(b.words))}
	copy(nb.words, b.words)
	return nb
}

// Or adds every member of o.
func (b *BS) Or(o *BS) {
	if o == nil {
		return
	}
	b.grow(len(o.words) - 1)
	for i, w := range o.words {
		b.words[i] |= w
	}
}

// And keeps only members also in o.
func (b *BS) And(o *BS) {
	for i := range b.words {
		if o == nil || i >= len(o.words) {
			b.words[i] = 0
			continue
		}
		b.words[i] &= o.words[i]
	}
}

// AndNot removes every member of o.
func (b *BS) AndNot(o *BS) {
	if o == nil {
		return
	}
	for i := range b.words {
		if i >= len(o.words) {
			break
		}
		b.words[i] &^= o.words[i]
	}
}

// Xor toggles every member of o.
func (b *BS) Xor(o *BS) {
	if o == nil {
		return
	}
	b.grow(len(o.words) - 1)
	for i, w := range o.words {
		b.words[i] ^= w
	}
}

// Intersects reports whether the two sets share a member.
func (b *BS) Intersects(o *BS) bool {
	if b == nil || o == nil {
		return false
	}
	n := min(len(b.words), len(o.words))
	for i := 0; i < n; i++ {
		if b.words[i]&o.words[i] != 0 {
			return true
		}
	}
	return false
}

// ContainsAll reports whether o is a subset of b.
func (b *BS) ContainsAll(o *BS) bool {
	if o == nil {
		return true
	}
	for i, w := range o.words {
		var bw uint64
		if b != nil && i < len(b.words) {
			bw = b.words[i]
		}
		if w&^bw != 0 {
			return false
		}
	}
	return true
}

// Equals reports whether both sets have the same members.
func (b *BS) Equals(o *BS) bool {
	return b.ContainsAll(o) && o.ContainsAll(b)
}

// Truncate removes every member >= n.
func (b *BS) Truncate(n int) {
	for i := b.NextSetBit(n); i >= 0; i = b.NextSetBit(i + 1) {
		b.Clear(i)
	}
}

// String returns the escaped form used by the script language,
// for example ({0:3 5 7:8}).
func (b *BS) String() string {
	return "(" + b.Escape('{', '}') + ")"
}

// Escape writes the member ranges between the given brackets.
func (b *BS) Escape(open, close byte) string {
	var sb strings.Builder
	sb.WriteByte(open)
	first := true
	for i := b.NextSetBit(0); i >= 0; {
		j := i
		for b.Get(j + 1) {
			j++
		}
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(strconv.Itoa(i))
		if j > i {
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(j))
		}
		i = b.NextSetBit(j + 1)
	}
	sb.WriteByte(close)
	return sb.String()
}

// Parse reads the escaped form written by String or Escape. Both ({...})
// and [{...}] wrappers are accepted, as is a bare {...}.
func Parse(s string) (*BS, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("bitset: malformed set %q", s)
	}
	bs := New()
	for _, f := range strings.Fields(s[1 : len(s)-1]) {
		lo, hi := f, f
		if k := strings.IndexByte(f, ':'); k >= 0 {
			lo, hi = f[:k], f[k+1:]
		}
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bitset: bad index %q: %w", lo, err)
		}
		z, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("bitset: bad index %q: %w", hi, err)
		}
		if a < 0 || z < a {
			return nil, fmt.Errorf("bitset: bad range %q", f)
		}
		for i := a; i <= z; i++ {
			bs.Set(i)
		}
	}
	return bs, nil
}
