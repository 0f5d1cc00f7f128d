// Package cpuexec implements the cycle-accurate 6502 microstate machine:
// one Step() call advances the CPU by exactly one cycle, split into a
// memory-completion phase and an FSM-advance phase, operating over
// symbolic bitvector registers from the term package.
//
// Grounded on the teacher's hardware/cpu/cpu.go cycle-accounting pattern
// (a LastResult/cycleCallback style bookkeeping loop) and on
// original_source/include/context.h's ECPUState enum, adapted to this
// system's smaller opcode/addressing-mode subset and *term.Term register
// values in place of concrete uint8/uint16.
package cpuexec

// CpuState is the CPU's coarse microstate, matching original_source's
// ECPUState enum (CPU_Reset1..CPU_Reset7, CPU_Decode, ...).
type CpuState uint8

const (
	Reset1 CpuState = iota
	Reset2
	Reset3
	Reset4
	Reset5
	Reset6
	Reset7
	Decode
	AddressingMode
	Execute
)

func (s CpuState) String() string {
	switch s {
	case Reset1:
		return "Reset1"
	case Reset2:
		return "Reset2"
	case Reset3:
		return "Reset3"
	case Reset4:
		return "Reset4"
	case Reset5:
		return "Reset5"
	case Reset6:
		return "Reset6"
	case Reset7:
		return "Reset7"
	case Decode:
		return "Decode"
	case AddressingMode:
		return "AddressingMode"
	case Execute:
		return "Execute"
	default:
		return "unknown"
	}
}

// AddressingModeKind enumerates every 6502 addressing mode known to the
// state type. Only IMM, ABS, REL and ABX have execution clauses; the rest
// are decoded (for faithfulness to the opcode table) but raise
// UnimplementedAddressingMode if a tick is ever attempted against them.
type AddressingModeKind uint8

const (
	ModeNone AddressingModeKind = iota
	IMM
	ABS
	REL
	ABX
	ABY
	ABXW
	ABYW
	ZPG
	ZPX
	ZPY
	INX
	INY
	INYW
)

func (k AddressingModeKind) String() string {
	switch k {
	case IMM:
		return "IMM"
	case ABS:
		return "ABS"
	case REL:
		return "REL"
	case ABX:
		return "ABX"
	case ABY:
		return "ABY"
	case ABXW:
		return "ABXW"
	case ABYW:
		return "ABYW"
	case ZPG:
		return "ZPG"
	case ZPX:
		return "ZPX"
	case ZPY:
		return "ZPY"
	case INX:
		return "INX"
	case INY:
		return "INY"
	case INYW:
		return "INYW"
	default:
		return "NON"
	}
}

// implemented reports whether this package has an execution clause for
// the addressing mode; see the "Other modes" note in the addressing-mode
// table.
func (k AddressingModeKind) implemented() bool {
	switch k {
	case IMM, ABS, REL, ABX:
		return true
	default:
		return false
	}
}
