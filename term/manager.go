package term

import (
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/mbranch/nesymex/errors"
)

// Manager mints, hash-conses and constant-folds every Term used by this
// module. It is the exclusive allocator for terms; nothing outside this
// package constructs a *Term directly. Safe for concurrent use, though the
// engine itself only ever has one Manager active at a time (§5).
type Manager struct {
	mu         sync.Mutex
	table      map[uint64][]*Term
	varCounter uint64
}

// NewManager returns a fresh, empty Manager.
func NewManager() *Manager {
	return &Manager{table: make(map[uint64][]*Term)}
}

// --- hash-consing plumbing ---------------------------------------------

func (m *Manager) shapeHash(kind Kind, op Op, width uint8, boolVal bool, bvVal uint32, name string, a, b *Term, hi, lo uint8) uint64 {
	d := xxhash.New()
	var buf [1]byte

	buf[0] = byte(kind)
	d.Write(buf[:])
	buf[0] = byte(op)
	d.Write(buf[:])
	buf[0] = width
	d.Write(buf[:])
	if boolVal {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	d.Write(buf[:])
	d.Write([]byte{byte(bvVal), byte(bvVal >> 8), byte(bvVal >> 16), byte(bvVal >> 24)})
	d.Write([]byte(name))
	if a != nil {
		d.Write([]byte{byte(a.hash), byte(a.hash >> 8), byte(a.hash >> 16), byte(a.hash >> 24),
			byte(a.hash >> 32), byte(a.hash >> 40), byte(a.hash >> 48), byte(a.hash >> 56)})
	}
	if b != nil {
		d.Write([]byte{byte(b.hash), byte(b.hash >> 8), byte(b.hash >> 16), byte(b.hash >> 24),
			byte(b.hash >> 32), byte(b.hash >> 40), byte(b.hash >> 48), byte(b.hash >> 56)})
	}
	buf[0] = hi
	d.Write(buf[:])
	buf[0] = lo
	d.Write(buf[:])
	return d.Sum64()
}

// intern finds or mints the canonical Term for the given shape.
func (m *Manager) intern(kind Kind, op Op, width uint8, isConcrete, boolVal bool, bvVal uint32, name string, a, b *Term, hi, lo uint8, text string) *Term {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.shapeHash(kind, op, width, boolVal, bvVal, name, a, b, hi, lo)
	for _, cand := range m.table[h] {
		if cand.collision(kind, op, width, boolVal, bvVal, name, a, b, hi, lo) {
			return cand
		}
	}

	t := &Term{
		kind: kind, op: op, width: width, isConcrete: isConcrete,
		boolVal: boolVal, bvVal: bvVal, name: name,
		a: a, b: b, hi: hi, lo: lo, text: text, hash: h,
	}
	m.table[h] = append(m.table[h], t)
	return t
}

// --- leaf constructors ---------------------------------------------------

func bitstring(v uint32, bits int) string {
	s := strings.Builder{}
	s.WriteString("#b")
	for i := bits - 1; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			s.WriteByte('1')
		} else {
			s.WriteByte('0')
		}
	}
	return s.String()
}

// bvConst mints (or returns the interned) concrete bitvector constant of
// the given width. width must be 8, 16 or 32.
func (m *Manager) bvConst(width uint8, val uint32) *Term {
	val &= mask(width)
	var text string
	switch width {
	case 8:
		text = bitstring(val, 8)
	case 16:
		text = bitstring(val, 16)
	default:
		text = strconv.FormatUint(uint64(val), 10)
	}
	return m.intern(KindBVConst, OpNone, width, true, false, val, "", nil, nil, 0, 0, text)
}

// Byte mints an 8-bit concrete constant.
func (m *Manager) Byte(v uint8) *Term { return m.bvConst(8, uint32(v)) }

// Halfword mints a 16-bit concrete constant.
func (m *Manager) Halfword(v uint16) *Term { return m.bvConst(16, uint32(v)) }

// Int mints a 32-bit concrete constant. Per spec, the stored value is the
// raw bits of v reinterpreted as unsigned; callers needing the signed
// interpretation must cast explicitly.
func (m *Manager) Int(v int32) *Term { return m.bvConst(32, uint32(v)) }

// Bool mints a concrete boolean constant.
func (m *Manager) Bool(v bool) *Term {
	text := "false"
	if v {
		text = "true"
	}
	return m.intern(KindBoolConst, OpNone, 0, true, v, 0, "", nil, nil, 0, 0, text)
}

// Var mints a named bitvector variable of the given width.
func (m *Manager) Var(name string, width uint8) *Term {
	return m.intern(KindVar, OpNone, width, false, false, 0, name, nil, nil, 0, 0, name)
}

// AnonVar mints a fresh, uniquely named bitvector variable, per the
// anonymous-variable rule: var("v" + counter, n) with a monotonically
// increasing per-manager counter.
func (m *Manager) AnonVar(width uint8) *Term {
	m.mu.Lock()
	id := m.varCounter
	m.varCounter++
	m.mu.Unlock()
	return m.Var("v"+strconv.FormatUint(id, 10), width)
}

// --- boolean operators -----------------------------------------------------

func illTyped(detail string) error {
	return errors.New(errors.IllTypedTerm, detail)
}

// And builds the conjunction of two boolean terms.
func (m *Manager) And(a, b *Term) (*Term, error) {
	if !a.IsBool() || !b.IsBool() {
		return nil, illTyped("and requires boolean operands")
	}
	if a.IsConcrete() && b.IsConcrete() {
		return m.Bool(a.BoolValue() && b.BoolValue()), nil
	}
	text := "(and " + a.String() + " " + b.String() + ")"
	return m.intern(KindBinary, OpAnd, 0, false, false, 0, "", a, b, 0, 0, text), nil
}

// Or builds the disjunction of two boolean terms. Renders as "(or a b)",
// correcting the suspected source bug where this was serialized as "=".
func (m *Manager) Or(a, b *Term) (*Term, error) {
	if !a.IsBool() || !b.IsBool() {
		return nil, illTyped("or requires boolean operands")
	}
	if a.IsConcrete() && b.IsConcrete() {
		return m.Bool(a.BoolValue() || b.BoolValue()), nil
	}
	text := "(or " + a.String() + " " + b.String() + ")"
	return m.intern(KindBinary, OpOr, 0, false, false, 0, "", a, b, 0, 0, text), nil
}

// Not builds the negation of a boolean term.
func (m *Manager) Not(a *Term) (*Term, error) {
	if !a.IsBool() {
		return nil, illTyped("not requires a boolean operand")
	}
	if a.IsConcrete() {
		return m.Bool(!a.BoolValue()), nil
	}
	text := "(not " + a.String() + ")"
	return m.intern(KindUnary, OpNot, 0, false, false, 0, "", a, nil, 0, 0, text), nil
}

// Eq builds equality between two terms of the same shape (both boolean, or
// both bitvector of equal width).
func (m *Manager) Eq(a, b *Term) (*Term, error) {
	if a.IsBool() != b.IsBool() || (!a.IsBool() && a.Width() != b.Width()) {
		return nil, illTyped("eq requires operands of the same type and width")
	}
	if a.IsConcrete() && b.IsConcrete() {
		return m.Bool(a.Value() == b.Value()), nil
	}
	text := "(= " + a.String() + " " + b.String() + ")"
	return m.intern(KindBinary, OpEq, 0, false, false, 0, "", a, b, 0, 0, text), nil
}

// Assert marks a boolean term for inclusion in a solver query. It is an
// identity operation at the term level: the "(assert e)" wrapping happens
// when the solver driver serializes the assertion list, not here.
func (m *Manager) Assert(a *Term) (*Term, error) {
	if !a.IsBool() {
		return nil, illTyped("assert requires a boolean operand")
	}
	return a, nil
}

// --- bitvector bitwise / arithmetic operators ------------------------------

func (m *Manager) bvBinary(op Op, a, b *Term, fold func(v0, v1 uint32) uint32) (*Term, error) {
	if a.IsBool() || b.IsBool() || a.Width() != b.Width() || a.Width() == 0 {
		return nil, illTyped("binary bitvector op requires equal-width bitvector operands")
	}
	if a.IsConcrete() && b.IsConcrete() {
		return m.bvConst(a.Width(), fold(a.Value(), b.Value())), nil
	}
	text := "(" + opName(op) + " " + a.String() + " " + b.String() + ")"
	return m.intern(KindBinary, op, a.Width(), false, false, 0, "", a, b, 0, 0, text), nil
}

func (m *Manager) bvUnary(op Op, a *Term, fold func(v uint32) uint32) (*Term, error) {
	if a.IsBool() || a.Width() == 0 {
		return nil, illTyped("unary bitvector op requires a bitvector operand")
	}
	if a.IsConcrete() {
		return m.bvConst(a.Width(), fold(a.Value())), nil
	}
	text := "(" + opName(op) + " " + a.String() + ")"
	return m.intern(KindUnary, op, a.Width(), false, false, 0, "", a, nil, 0, 0, text), nil
}

// BVAnd computes bitwise AND mod 2^w.
func (m *Manager) BVAnd(a, b *Term) (*Term, error) {
	return m.bvBinary(OpBVAnd, a, b, func(v0, v1 uint32) uint32 { return v0 & v1 })
}

// BVOr computes bitwise OR mod 2^w.
func (m *Manager) BVOr(a, b *Term) (*Term, error) {
	return m.bvBinary(OpBVOr, a, b, func(v0, v1 uint32) uint32 { return v0 | v1 })
}

// BVXor computes bitwise XOR mod 2^w.
func (m *Manager) BVXor(a, b *Term) (*Term, error) {
	return m.bvBinary(OpBVXor, a, b, func(v0, v1 uint32) uint32 { return v0 ^ v1 })
}

// BVNot computes bitwise complement mod 2^w.
func (m *Manager) BVNot(a *Term) (*Term, error) {
	return m.bvUnary(OpBVNot, a, func(v uint32) uint32 { return ^v })
}

// BVNeg computes two's-complement negation mod 2^w, correcting the
// suspected source bug where this was serialized as "bvnot".
func (m *Manager) BVNeg(a *Term) (*Term, error) {
	return m.bvUnary(OpBVNeg, a, func(v uint32) uint32 { return uint32(-int64(v)) })
}

// BVAdd computes addition mod 2^w.
func (m *Manager) BVAdd(a, b *Term) (*Term, error) {
	return m.bvBinary(OpBVAdd, a, b, func(v0, v1 uint32) uint32 { return v0 + v1 })
}

// BVSub computes subtraction mod 2^w.
func (m *Manager) BVSub(a, b *Term) (*Term, error) {
	return m.bvBinary(OpBVSub, a, b, func(v0, v1 uint32) uint32 { return v0 - v1 })
}

// BVMul computes multiplication mod 2^w.
func (m *Manager) BVMul(a, b *Term) (*Term, error) {
	return m.bvBinary(OpBVMul, a, b, func(v0, v1 uint32) uint32 { return v0 * v1 })
}

// BVShl computes a logical left shift; operand widths must match.
func (m *Manager) BVShl(a, b *Term) (*Term, error) {
	return m.bvBinary(OpBVShl, a, b, func(v0, v1 uint32) uint32 { return v0 << v1 })
}

// BVLshr computes a logical right shift; operand widths must match.
func (m *Manager) BVLshr(a, b *Term) (*Term, error) {
	return m.bvBinary(OpBVLshr, a, b, func(v0, v1 uint32) uint32 { return v0 >> v1 })
}

// BVConcat concatenates a (high bits) with b (low bits): (a << b.width) | b.
func (m *Manager) BVConcat(a, b *Term) (*Term, error) {
	if a.IsBool() || b.IsBool() {
		return nil, illTyped("concat requires bitvector operands")
	}
	width := a.Width() + b.Width()
	if width > 32 {
		return nil, illTyped("concat result width exceeds 32 bits")
	}
	if a.IsConcrete() && b.IsConcrete() {
		return m.bvConst(width, (a.Value()<<b.Width())|b.Value()), nil
	}
	text := "(concat " + a.String() + " " + b.String() + ")"
	return m.intern(KindBinary, OpBVConcat, width, false, false, 0, "", a, b, 0, 0, text), nil
}

// BVExtract extracts bits [hi:lo] of e. Requires 0 <= lo <= hi < width(e).
// Per spec, extract folds into a first-class constant only when the
// resulting slice is exactly 8 bits wide; other concrete slices remain a
// structural Extract node whose value can still be read via Value().
// Extracting exactly the low operand's bits of a concat returns that
// operand, so extract(concat(x, b), w(b)-1, 0) is b itself.
func (m *Manager) BVExtract(e *Term, hi, lo uint8) (*Term, error) {
	if e.IsBool() {
		return nil, illTyped("extract requires a bitvector operand")
	}
	if lo > hi || hi >= e.Width() {
		return nil, illTyped("extract bounds out of range")
	}
	width := hi - lo + 1

	if e.kind == KindBinary && e.op == OpBVConcat && lo == 0 && width == e.b.Width() {
		return e.b, nil
	}

	if e.IsConcrete() {
		val := (e.Value() >> lo) & mask(width)
		if width == 8 {
			return m.bvConst(8, val), nil
		}
		text := extractText(e, hi, lo)
		return m.intern(KindExtract, OpNone, width, true, false, val, "", e, nil, hi, lo, text), nil
	}

	text := extractText(e, hi, lo)
	return m.intern(KindExtract, OpNone, width, false, false, 0, "", e, nil, hi, lo, text), nil
}

func extractText(e *Term, hi, lo uint8) string {
	return "((_ extract " + strconv.Itoa(int(hi)) + " " + strconv.Itoa(int(lo)) + ") " + e.String() + ")"
}

// --- comparisons (result is boolean) ---------------------------------------

func (m *Manager) bvCompare(op Op, a, b *Term, fold func(v0, v1 uint32) bool) (*Term, error) {
	if a.IsBool() || b.IsBool() || a.Width() != b.Width() || a.Width() == 0 {
		return nil, illTyped("comparison requires equal-width bitvector operands")
	}
	if a.IsConcrete() && b.IsConcrete() {
		return m.Bool(fold(a.Value(), b.Value())), nil
	}
	text := "(" + opName(op) + " " + a.String() + " " + b.String() + ")"
	return m.intern(KindBinary, op, 0, false, false, 0, "", a, b, 0, 0, text), nil
}

func (m *Manager) BVUlt(a, b *Term) (*Term, error) {
	return m.bvCompare(OpBVUlt, a, b, func(v0, v1 uint32) bool { return v0 < v1 })
}
func (m *Manager) BVUle(a, b *Term) (*Term, error) {
	return m.bvCompare(OpBVUle, a, b, func(v0, v1 uint32) bool { return v0 <= v1 })
}
func (m *Manager) BVUgt(a, b *Term) (*Term, error) {
	return m.bvCompare(OpBVUgt, a, b, func(v0, v1 uint32) bool { return v0 > v1 })
}
func (m *Manager) BVUge(a, b *Term) (*Term, error) {
	return m.bvCompare(OpBVUge, a, b, func(v0, v1 uint32) bool { return v0 >= v1 })
}

func (m *Manager) bvSignedCompare(op Op, a, b *Term, fold func(v0, v1 int64) bool) (*Term, error) {
	width := a.Width()
	return m.bvCompare(op, a, b, func(v0, v1 uint32) bool {
		return fold(signExtend(v0, width), signExtend(v1, width))
	})
}

func (m *Manager) BVSlt(a, b *Term) (*Term, error) {
	return m.bvSignedCompare(OpBVSlt, a, b, func(v0, v1 int64) bool { return v0 < v1 })
}
func (m *Manager) BVSle(a, b *Term) (*Term, error) {
	return m.bvSignedCompare(OpBVSle, a, b, func(v0, v1 int64) bool { return v0 <= v1 })
}
func (m *Manager) BVSgt(a, b *Term) (*Term, error) {
	return m.bvSignedCompare(OpBVSgt, a, b, func(v0, v1 int64) bool { return v0 > v1 })
}
func (m *Manager) BVSge(a, b *Term) (*Term, error) {
	return m.bvSignedCompare(OpBVSge, a, b, func(v0, v1 int64) bool { return v0 >= v1 })
}
