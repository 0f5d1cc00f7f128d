package cpuexec

import (
	"github.com/mbranch/nesymex/errors"
	"github.com/mbranch/nesymex/term"
)

// CPU is the cycle-stepped 6502 microstate machine. It owns no memory of
// its own; every access is dispatched through a Bus supplied to Step.
type CPU struct {
	Regs Registers

	State    CpuState
	AddrMode AddressingModeKind

	AddressingCycle int
	ExecuteCycle    int

	CurrentOpcode uint8
	CalcAddr      *term.Term // 16-bit
	BranchOffset  *term.Term // 8-bit

	MemoryPhasePending bool

	// Bus-facing latches. Shared by reference across a fork per spec.md
	// §4.5, so they live as *term.Term rather than plain machine words.
	Address     *term.Term // 16-bit
	WriteEnable bool
	DataOut     *term.Term // 8-bit
	LastRead    *term.Term // 8-bit

	CycleCount uint64

	// addrLow/addrHigh/addrLowFixed hold the bytes fetched by an
	// in-progress ABS/ABX addressing-mode tick, pending assembly of
	// CalcAddr (and, for ABX, the page-cross high-byte fixup).
	addrLow      *term.Term
	addrHigh     *term.Term
	addrLowFixed *term.Term

	// pendingBranchOffset retains the signed branch displacement between
	// the page-cross detection at Execute cycle 1 and the high-byte
	// fixup at Execute cycle 2.
	pendingBranchOffset int8
}

// NewCPU returns a CPU parked at Reset1 with all registers zeroed,
// matching a freshly constructed root context (spec.md §3, "Created").
func NewCPU(m *term.Manager) *CPU {
	return &CPU{Regs: Zero(m), State: Reset1}
}

// Step advances the CPU by exactly one cycle: first completing any
// memory access armed on the previous cycle, then advancing the FSM.
func (c *CPU) Step(m *term.Manager, bus Bus) error {
	if c.MemoryPhasePending {
		if err := c.completeMemoryPhase(m, bus); err != nil {
			return err
		}
	}
	if err := c.advance(m, bus); err != nil {
		return err
	}
	c.CycleCount++
	return nil
}

// --- Phase 1: memory completion -----------------------------------------

func (c *CPU) completeMemoryPhase(m *term.Manager, bus Bus) error {
	if !c.Address.IsConcrete() {
		return errors.New(errors.SymbolicAddress, c.Address.String())
	}
	addr := uint16(c.Address.Value())

	if c.WriteEnable {
		if err := bus.Write(addr, c.DataOut); err != nil {
			return err
		}
	} else {
		v, err := bus.Read(addr)
		if err != nil {
			return err
		}
		if v == nil {
			v = m.Byte(0xFF)
		}
		c.LastRead = v
	}

	c.MemoryPhasePending = false
	return nil
}

func (c *CPU) armRead(addr *term.Term) {
	c.Address = addr
	c.WriteEnable = false
	c.MemoryPhasePending = true
}

func (c *CPU) armWrite(addr, data *term.Term) {
	c.Address = addr
	c.WriteEnable = true
	c.DataOut = data
	c.MemoryPhasePending = true
}

// --- Phase 2: FSM advance ------------------------------------------------

func (c *CPU) advance(m *term.Manager, bus Bus) error {
	switch c.State {
	case Reset1:
		c.armRead(c.Regs.PC)
		c.State = Reset2
		return nil

	case Reset2:
		addr, err := m.BVConcat(m.Byte(0x01), c.Regs.SP)
		if err != nil {
			return err
		}
		c.armRead(addr)
		c.State = Reset3
		return nil

	case Reset3, Reset4:
		sp, err := m.BVSub(c.Regs.SP, m.Byte(1))
		if err != nil {
			return err
		}
		c.Regs.SP = sp
		addr, err := m.BVConcat(m.Byte(0x01), c.Regs.SP)
		if err != nil {
			return err
		}
		c.armRead(addr)
		if c.State == Reset3 {
			c.State = Reset4
		} else {
			c.State = Reset5
		}
		return nil

	case Reset5:
		sp, err := m.BVSub(c.Regs.SP, m.Byte(1))
		if err != nil {
			return err
		}
		c.Regs.SP = sp
		c.Regs.FI = m.Bool(true)
		c.armRead(m.Halfword(0xFFFC))
		c.State = Reset6
		return nil

	case Reset6:
		hi, err := m.BVExtract(c.Regs.PC, 15, 8)
		if err != nil {
			return err
		}
		pc, err := m.BVConcat(hi, c.LastRead)
		if err != nil {
			return err
		}
		c.Regs.PC = pc
		c.armRead(m.Halfword(0xFFFD))
		c.State = Reset7
		return nil

	case Reset7:
		lo, err := m.BVExtract(c.Regs.PC, 7, 0)
		if err != nil {
			return err
		}
		pc, err := m.BVConcat(c.LastRead, lo)
		if err != nil {
			return err
		}
		c.Regs.PC = pc
		return c.instructionFetch(m)

	case Decode:
		return c.decode(m, bus)

	case AddressingMode:
		return c.tickAddressingMode(m)

	case Execute:
		return c.tickExecute(m, bus)
	}
	return nil
}

func (c *CPU) instructionFetch(m *term.Manager) error {
	c.armRead(c.Regs.PC)
	c.State = Decode
	return nil
}

// --- Decode ----------------------------------------------------------------

func (c *CPU) decode(m *term.Manager, bus Bus) error {
	if !c.LastRead.IsConcrete() {
		return errors.New(errors.SymbolicOpcode, c.LastRead.String())
	}
	c.CurrentOpcode = uint8(c.LastRead.Value())

	pc, err := m.BVAdd(c.Regs.PC, m.Halfword(1))
	if err != nil {
		return err
	}
	c.Regs.PC = pc

	c.AddressingCycle = 0
	c.ExecuteCycle = 0

	mode, ok := addressingModeByOpcode[c.CurrentOpcode]
	if !ok {
		if _, famOK := opcodeFamily[c.CurrentOpcode]; !famOK {
			return errors.New(errors.UnimplementedOpcode, c.CurrentOpcode)
		}
		mode = ModeNone
	}
	c.AddrMode = mode
	c.State = AddressingMode

	if mode == IMM || mode == ModeNone {
		if err := c.tickAddressingMode(m); err != nil {
			return err
		}
		return c.tickExecute(m, bus)
	}
	return nil
}

// --- AddressingMode ----------------------------------------------------------

func (c *CPU) tickAddressingMode(m *term.Manager) error {
	if !c.AddrMode.implemented() {
		return errors.New(errors.UnimplementedAddressingMode, c.AddrMode.String())
	}

	switch c.AddrMode {
	case IMM:
		c.CalcAddr = c.Regs.PC
		pc, err := m.BVAdd(c.Regs.PC, m.Halfword(1))
		if err != nil {
			return err
		}
		c.Regs.PC = pc
		c.State = Execute
		return nil

	case REL:
		return c.tickRelAddressing(m)

	case ABS:
		return c.tickAbsAddressing(m)

	case ABX:
		return c.tickAbxAddressing(m)
	}
	return errors.New(errors.UnimplementedAddressingMode, c.AddrMode.String())
}

func (c *CPU) bumpPC(m *term.Manager) error {
	pc, err := m.BVAdd(c.Regs.PC, m.Halfword(1))
	if err != nil {
		return err
	}
	c.Regs.PC = pc
	return nil
}

func (c *CPU) tickRelAddressing(m *term.Manager) error {
	switch c.AddressingCycle {
	case 0:
		c.armRead(c.Regs.PC)
		if err := c.bumpPC(m); err != nil {
			return err
		}
		c.AddressingCycle = 1
		return nil
	case 1:
		c.BranchOffset = c.LastRead
		c.State = Execute
		return nil
	}
	return nil
}

func (c *CPU) tickAbsAddressing(m *term.Manager) error {
	switch c.AddressingCycle {
	case 0:
		c.armRead(c.Regs.PC)
		if err := c.bumpPC(m); err != nil {
			return err
		}
		c.AddressingCycle = 1
		return nil
	case 1:
		c.addrLow = c.LastRead
		c.armRead(c.Regs.PC)
		if err := c.bumpPC(m); err != nil {
			return err
		}
		c.AddressingCycle = 2
		return nil
	case 2:
		addr, err := m.BVConcat(c.LastRead, c.addrLow)
		if err != nil {
			return err
		}
		c.CalcAddr = addr
		c.State = Execute
		return nil
	}
	return nil
}

func (c *CPU) tickAbxAddressing(m *term.Manager) error {
	switch c.AddressingCycle {
	case 0:
		c.armRead(c.Regs.PC)
		if err := c.bumpPC(m); err != nil {
			return err
		}
		c.AddressingCycle = 1
		return nil
	case 1:
		c.addrLow = c.LastRead
		c.armRead(c.Regs.PC)
		if err := c.bumpPC(m); err != nil {
			return err
		}
		c.AddressingCycle = 2
		return nil
	case 2:
		c.addrHigh = c.LastRead
		if !c.addrLow.IsConcrete() || !c.Regs.X.IsConcrete() {
			return errors.New(errors.SymbolicAddress, "ABX indexing requires concrete low byte and X")
		}
		sum := int(c.addrLow.Value()) + int(c.Regs.X.Value())
		crossed := sum > 0xFF
		low := m.Byte(uint8(sum))
		addr, err := m.BVConcat(c.addrHigh, low)
		if err != nil {
			return err
		}
		if !crossed {
			c.CalcAddr = addr
			c.State = Execute
			return nil
		}
		c.addrLowFixed = low
		c.armRead(addr)
		c.AddressingCycle = 3
		return nil
	case 3:
		hiFixed, err := m.BVAdd(c.addrHigh, m.Byte(1))
		if err != nil {
			return err
		}
		addr, err := m.BVConcat(hiFixed, c.addrLowFixed)
		if err != nil {
			return err
		}
		c.CalcAddr = addr
		c.State = Execute
		return nil
	}
	return nil
}

// --- Execute -----------------------------------------------------------

func (c *CPU) tickExecute(m *term.Manager, bus Bus) error {
	fam, ok := opcodeFamily[c.CurrentOpcode]
	if !ok {
		return errors.New(errors.UnimplementedOpcode, c.CurrentOpcode)
	}
	if fam == famBranch {
		return c.tickBranch(m)
	}

	switch c.ExecuteCycle {
	case 0:
		switch fam {
		case famSTA:
			c.armWrite(c.CalcAddr, c.Regs.A)
		case famSTX:
			c.armWrite(c.CalcAddr, c.Regs.X)
		case famSTY:
			c.armWrite(c.CalcAddr, c.Regs.Y)
		default:
			c.armRead(c.CalcAddr)
		}
		c.ExecuteCycle = 1
		return nil

	case 1:
		switch fam {
		case famAND:
			r, err := m.BVAnd(c.Regs.A, c.LastRead)
			if err != nil {
				return err
			}
			c.Regs.A = r
			if err := c.setZN(m, r); err != nil {
				return err
			}
		case famCMP:
			r, err := m.BVSub(c.Regs.A, c.LastRead)
			if err != nil {
				return err
			}
			if err := c.setCZN(m, r); err != nil {
				return err
			}
		case famLDA:
			c.Regs.A = c.LastRead
			if err := c.setZN(m, c.LastRead); err != nil {
				return err
			}
		case famLDX:
			c.Regs.X = c.LastRead
			if err := c.setZN(m, c.LastRead); err != nil {
				return err
			}
		case famLDY:
			c.Regs.Y = c.LastRead
			if err := c.setZN(m, c.LastRead); err != nil {
				return err
			}
		case famSTA, famSTX, famSTY:
			// write already committed by this cycle's memory-completion phase
		}
		return c.instructionFetch(m)
	}
	return nil
}

// branchCondition returns the 1-bit boolean term selecting whether the
// decoded branch opcode is taken, per the standard 6502 flag-to-opcode
// mapping.
func (c *CPU) branchCondition(m *term.Manager) (*term.Term, error) {
	switch c.CurrentOpcode {
	case 0x10: // BPL
		return m.Not(c.Regs.FN)
	case 0x30: // BMI
		return c.Regs.FN, nil
	case 0x50: // BVC
		return m.Not(c.Regs.FV)
	case 0x70: // BVS
		return c.Regs.FV, nil
	case 0x90: // BCC
		return m.Not(c.Regs.FC)
	case 0xB0: // BCS
		return c.Regs.FC, nil
	case 0xD0: // BNE
		return m.Not(c.Regs.FZ)
	case 0xF0: // BEQ
		return c.Regs.FZ, nil
	}
	return nil, errors.New(errors.UnimplementedOpcode, c.CurrentOpcode)
}

// tickBranch implements the branch protocol of spec.md §4.2: a symbolic
// condition is the documented future fork point (§9), raised today as
// SymbolicAddress since taking it would otherwise yield a symbolic PC.
func (c *CPU) tickBranch(m *term.Manager) error {
	switch c.ExecuteCycle {
	case 0:
		cond, err := c.branchCondition(m)
		if err != nil {
			return err
		}
		if !cond.IsConcrete() {
			return errors.New(errors.SymbolicAddress, "branch condition is symbolic")
		}
		if !cond.BoolValue() {
			return c.instructionFetch(m)
		}
		c.armRead(c.Regs.PC) // dummy
		c.ExecuteCycle = 1
		return nil

	case 1:
		if !c.BranchOffset.IsConcrete() {
			return errors.New(errors.SymbolicBranchOffset, c.BranchOffset.String())
		}
		if !c.Regs.PC.IsConcrete() {
			return errors.New(errors.SymbolicAddress, c.Regs.PC.String())
		}
		offset := int8(c.BranchOffset.Value())
		oldVal := uint16(c.Regs.PC.Value())
		lowSum := int(oldVal&0xFF) + int(offset)
		newLow := uint8(lowSum)
		pageCross := lowSum < 0 || lowSum > 0xFF
		c.Regs.PC = m.Halfword((oldVal &^ 0xFF) | uint16(newLow))
		if pageCross {
			c.pendingBranchOffset = offset
			c.armRead(c.Regs.PC) // dummy
			c.ExecuteCycle = 2
			return nil
		}
		return c.instructionFetch(m)

	case 2:
		cur := uint16(c.Regs.PC.Value())
		if c.pendingBranchOffset < 0 {
			cur -= 0x0100
		} else {
			cur += 0x0100
		}
		c.Regs.PC = m.Halfword(cur)
		return c.instructionFetch(m)
	}
	return nil
}

// --- Flag setters --------------------------------------------------------

// setZN sets FZ/FN from an 8-bit result, per spec.md §4.2:
// FZ := (test == 0); FN := ((test >> 7) == 1).
func (c *CPU) setZN(m *term.Manager, test *term.Term) error {
	fz, err := m.Eq(test, m.Byte(0))
	if err != nil {
		return err
	}
	fn, err := m.BVUge(test, m.Byte(0x80))
	if err != nil {
		return err
	}
	c.Regs.FZ = fz
	c.Regs.FN = fn
	return nil
}

// setCZN additionally sets FC := (test >=_s 0), used by CMP-family
// subtraction results.
func (c *CPU) setCZN(m *term.Manager, test *term.Term) error {
	if err := c.setZN(m, test); err != nil {
		return err
	}
	fc, err := m.BVSge(test, m.Byte(0))
	if err != nil {
		return err
	}
	c.Regs.FC = fc
	return nil
}
