// Package term implements the bitvector/boolean expression layer: a
// hash-consable AST with concrete-constant folding and a deterministic
// SMT-LIB2 rendering, as specified by the AST Manager component.
//
// Grounded on original_source/include/expression.h and
// ast_manager_smt2.cpp's term shapes (collapsed from a two-class hierarchy
// into one tagged sum type per the "cyclic / dual-class AST" design note),
// with hash-consing borrowed from other_examples/borzacchiello-gosmt.
package term

import "fmt"

// Kind distinguishes the shape of a Term node.
type Kind uint8

const (
	KindBoolConst Kind = iota
	KindBVConst
	KindVar
	KindUnary
	KindBinary
	KindExtract
)

// Op identifies the operator carried by a Unary, Binary or boolean Term.
type Op uint8

const (
	OpNone Op = iota

	// boolean
	OpAnd
	OpOr
	OpNot
	OpEq
	OpAssert

	// bitvector bitwise/arithmetic
	OpBVAnd
	OpBVOr
	OpBVXor
	OpBVNot
	OpBVNeg
	OpBVAdd
	OpBVSub
	OpBVMul
	OpBVConcat
	OpBVShl
	OpBVLshr

	// bitvector comparisons (result is boolean)
	OpBVUlt
	OpBVUle
	OpBVUgt
	OpBVUge
	OpBVSlt
	OpBVSle
	OpBVSgt
	OpBVSge
)

// Term is a persistent, hash-consed node in the expression AST. Terms are
// minted exclusively by a Manager; two calls that construct the same shape
// always return the same *Term (structural sharing), so *Term can be
// compared by pointer identity.
type Term struct {
	kind Kind
	op   Op

	// width is meaningful only for bitvector-producing terms; 0 means
	// "non-bitvector op result" (booleans, comparisons, Assert).
	width uint8

	// isConcrete is true iff every leaf beneath this term is a constant.
	isConcrete bool

	// boolVal / bvVal hold the folded/constant value for concrete leaves
	// and folded operator results. boolVal is meaningful when the term is
	// boolean-shaped (KindBoolConst, or a folded And/Or/Not/Eq/comparison);
	// bvVal is meaningful when the term is bitvector-shaped and concrete.
	boolVal bool
	bvVal   uint32

	name string // KindVar only

	a, b   *Term // children; b is nil for KindUnary, both nil for leaves
	hi, lo uint8 // KindExtract only

	text string // cached deterministic SMT-LIB2 rendering
	hash uint64 // cached structural hash, used for hash-consing
}

// IsConcrete reports whether every leaf beneath t is a constant.
func (t *Term) IsConcrete() bool { return t.isConcrete }

// Width returns the bitvector width of t, or 0 if t is not a bitvector
// (a boolean, comparison result, or Assert wrapper).
func (t *Term) Width() uint8 { return t.width }

// IsBool reports whether t is boolean-shaped (as opposed to bitvector).
func (t *Term) IsBool() bool { return t.width == 0 }

// Value returns the concrete value of t. The result is undefined if
// !t.IsConcrete(). For boolean terms, a 0/1 encoding of BoolValue is
// returned instead; callers working with booleans should prefer BoolValue.
func (t *Term) Value() uint32 {
	if t.IsBool() {
		if t.boolVal {
			return 1
		}
		return 0
	}
	return t.bvVal
}

// BoolValue returns the concrete boolean value of t. The result is
// undefined if !t.IsConcrete() or !t.IsBool().
func (t *Term) BoolValue() bool { return t.boolVal }

// Name returns the variable name of t. Empty for non-KindVar terms.
func (t *Term) Name() string { return t.name }

// Kind exposes the node shape, mostly useful for diagnostics/tests.
func (t *Term) Kind() Kind { return t.kind }

// Op exposes the operator carried by a unary/binary/boolean term.
func (t *Term) Op() Op { return t.op }

// String returns the deterministic SMT-LIB2 textual form of t.
func (t *Term) String() string { return t.text }

// mask returns the smallest all-ones bitmask covering w bits (w in 1..32).
func mask(w uint8) uint32 {
	if w >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << w) - 1
}

// signExtend reinterprets the low w bits of v as a signed value, widened
// to int64 for comparison purposes.
func signExtend(v uint32, w uint8) int64 {
	v &= mask(w)
	signBit := uint32(1) << (w - 1)
	if v&signBit != 0 {
		return int64(v) - int64(uint64(signBit)<<1)
	}
	return int64(v)
}

func (t *Term) collision(kind Kind, op Op, width uint8, boolVal bool, bvVal uint32, name string, a, b *Term, hi, lo uint8) bool {
	return t.kind == kind && t.op == op && t.width == width &&
		t.boolVal == boolVal && t.bvVal == bvVal && t.name == name &&
		t.a == a && t.b == b && t.hi == hi && t.lo == lo
}

func opName(op Op) string {
	switch op {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpNot:
		return "not"
	case OpEq:
		return "="
	case OpBVAnd:
		return "bvand"
	case OpBVOr:
		return "bvor"
	case OpBVXor:
		return "bvxor"
	case OpBVNot:
		return "bvnot"
	case OpBVNeg:
		return "bvneg"
	case OpBVAdd:
		return "bvadd"
	case OpBVSub:
		return "bvsub"
	case OpBVMul:
		return "bvmul"
	case OpBVConcat:
		return "concat"
	case OpBVShl:
		return "bvshl"
	case OpBVLshr:
		return "bvlshr"
	case OpBVUlt:
		return "bvult"
	case OpBVUle:
		return "bvule"
	case OpBVUgt:
		return "bvugt"
	case OpBVUge:
		return "bvuge"
	case OpBVSlt:
		return "bvslt"
	case OpBVSle:
		return "bvsle"
	case OpBVSgt:
		return "bvsgt"
	case OpBVSge:
		return "bvsge"
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}
