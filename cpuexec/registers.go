package cpuexec

import "github.com/mbranch/nesymex/term"

// Registers holds the CPU's architectural state as symbolic terms, per
// spec.md §3. Flags are individuated into six separate boolean terms
// (width 0 in the term package) rather than packed into one status byte, since each flag must
// independently be concrete or symbolic.
type Registers struct {
	A  *term.Term // 8-bit
	X  *term.Term // 8-bit
	Y  *term.Term // 8-bit
	SP *term.Term // 8-bit
	PC *term.Term // 16-bit

	FC *term.Term // carry
	FZ *term.Term // zero
	FI *term.Term // interrupt disable
	FD *term.Term // decimal
	FV *term.Term // overflow
	FN *term.Term // negative (sign)
}

// Zero returns a Registers with every field concretely 0/false, the
// state of a freshly constructed root context prior to reset stepping.
func Zero(m *term.Manager) Registers {
	zero8 := m.Byte(0)
	return Registers{
		A: zero8, X: zero8, Y: zero8, SP: zero8,
		PC: m.Halfword(0),
		FC: m.Bool(false), FZ: m.Bool(false), FI: m.Bool(false),
		FD: m.Bool(false), FV: m.Bool(false), FN: m.Bool(false),
	}
}
