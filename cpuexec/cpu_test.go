package cpuexec

import (
	"testing"

	"github.com/mbranch/nesymex/term"
)

// fakeBus is a flat 64 KiB RAM image of concrete terms, used to drive the
// CPU microstate machine in isolation from the bank-dispatch / mapper
// machinery in the bus and sched packages.
type fakeBus struct {
	m   *term.Manager
	mem map[uint16]*term.Term
}

func newFakeBus(m *term.Manager) *fakeBus {
	return &fakeBus{m: m, mem: make(map[uint16]*term.Term)}
}

func (b *fakeBus) Read(addr uint16) (*term.Term, error) {
	if v, ok := b.mem[addr]; ok {
		return v, nil
	}
	return b.m.Byte(0), nil
}

func (b *fakeBus) Write(addr uint16, data *term.Term) error {
	b.mem[addr] = data
	return nil
}

func (b *fakeBus) poke(addr uint16, v uint8) {
	b.mem[addr] = b.m.Byte(v)
}

// setResetVector writes the two-byte reset vector at 0xFFFC/0xFFFD.
func (b *fakeBus) setResetVector(pc uint16) {
	b.poke(0xFFFC, uint8(pc))
	b.poke(0xFFFD, uint8(pc>>8))
}

func runReset(t *testing.T, m *term.Manager, c *CPU, bus Bus) {
	t.Helper()
	for i := 0; i < 7; i++ {
		if err := c.Step(m, bus); err != nil {
			t.Fatalf("reset step %d: %v", i, err)
		}
	}
}

func TestResetInvariant(t *testing.T) {
	m := term.NewManager()
	bus := newFakeBus(m)
	bus.setResetVector(0xC000)

	c := NewCPU(m)
	runReset(t, m, c, bus)

	if !c.Regs.PC.IsConcrete() || c.Regs.PC.Value() != 0xC000 {
		t.Fatalf("expected PC == 0xC000 after reset, got %s", c.Regs.PC)
	}
	if !c.Regs.FI.IsConcrete() || !c.Regs.FI.BoolValue() {
		t.Fatalf("expected FI == true after reset")
	}
	if c.CycleCount != 7 {
		t.Fatalf("expected cycle count 7 after reset, got %d", c.CycleCount)
	}
}

func TestScenarioA_ResetVectorHandoffThenImmediateLDA(t *testing.T) {
	m := term.NewManager()
	bus := newFakeBus(m)
	bus.setResetVector(0xC000)
	bus.poke(0xC000, 0xA9) // LDA #imm
	bus.poke(0xC001, 0x01)

	c := NewCPU(m)
	runReset(t, m, c, bus)

	for i := 0; i < 2; i++ {
		if err := c.Step(m, bus); err != nil {
			t.Fatalf("LDA step %d: %v", i, err)
		}
	}

	if c.Regs.A.Value() != 0x01 {
		t.Fatalf("expected A == 0x01, got %#x", c.Regs.A.Value())
	}
	if c.Regs.PC.Value() != 0xC002 {
		t.Fatalf("expected PC == 0xC002, got %#x", c.Regs.PC.Value())
	}
	if c.Regs.FZ.BoolValue() {
		t.Fatalf("expected FZ == false")
	}
	if c.Regs.FN.BoolValue() {
		t.Fatalf("expected FN == false")
	}
}

func TestScenarioB_ImmediateCompare(t *testing.T) {
	m := term.NewManager()
	bus := newFakeBus(m)
	bus.setResetVector(0xC000)
	bus.poke(0xC000, 0xA9) // LDA #0x0C
	bus.poke(0xC001, 0x0C)
	bus.poke(0xC002, 0xC9) // CMP #0x07
	bus.poke(0xC003, 0x07)

	c := NewCPU(m)
	runReset(t, m, c, bus)

	for i := 0; i < 4; i++ {
		if err := c.Step(m, bus); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if c.Regs.A.Value() != 0x0C {
		t.Fatalf("expected A == 0x0C, got %#x", c.Regs.A.Value())
	}
	if !c.Regs.FC.BoolValue() {
		t.Fatalf("expected FC == true")
	}
	if c.Regs.FZ.BoolValue() {
		t.Fatalf("expected FZ == false")
	}
	if c.Regs.FN.BoolValue() {
		t.Fatalf("expected FN == false")
	}
}

func TestBranchTakenSkipsTrap(t *testing.T) {
	// LDA #0 sets FZ; BEQ (F0) is then taken over a byte that would
	// otherwise decode as an unimplemented opcode, proving the branch
	// was taken rather than falling through into it.
	m := term.NewManager()
	bus := newFakeBus(m)
	bus.setResetVector(0xC000)
	bus.poke(0xC000, 0xA9) // LDA #0
	bus.poke(0xC001, 0x00)
	bus.poke(0xC002, 0xF0) // BEQ +2
	bus.poke(0xC003, 0x02)
	bus.poke(0xC004, 0xFF) // unimplemented opcode, must be skipped
	bus.poke(0xC005, 0xFF)
	bus.poke(0xC006, 0xA9) // LDA #0x2A (42)
	bus.poke(0xC007, 0x2A)

	c := NewCPU(m)
	runReset(t, m, c, bus)

	for i := 0; i < 2; i++ { // LDA #0
		if err := c.Step(m, bus); err != nil {
			t.Fatalf("LDA step %d: %v", i, err)
		}
	}
	if !c.Regs.FZ.BoolValue() {
		t.Fatalf("expected FZ == true after LDA #0")
	}

	// BEQ: Decode(1) + REL(2) + branch-taken execute(2) = 5 steps.
	for i := 0; i < 5; i++ {
		if err := c.Step(m, bus); err != nil {
			t.Fatalf("BEQ step %d: %v", i, err)
		}
	}
	if c.Regs.PC.Value() != 0xC006 {
		t.Fatalf("expected branch to land PC at 0xC006, got %#x", c.Regs.PC.Value())
	}

	for i := 0; i < 2; i++ { // LDA #0x2A
		if err := c.Step(m, bus); err != nil {
			t.Fatalf("post-branch LDA step %d: %v", i, err)
		}
	}
	if c.Regs.A.Value() != 0x2A {
		t.Fatalf("expected A == 0x2A, got %#x", c.Regs.A.Value())
	}
}

func TestCycleMonotonicity(t *testing.T) {
	m := term.NewManager()
	bus := newFakeBus(m)
	bus.setResetVector(0xC000)
	bus.poke(0xC000, 0xA9)
	bus.poke(0xC001, 0x01)

	c := NewCPU(m)
	var last uint64
	for i := 0; i < 9; i++ {
		if err := c.Step(m, bus); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if c.CycleCount != last+1 {
			t.Fatalf("expected cycle count to increase by exactly 1, went %d -> %d", last, c.CycleCount)
		}
		last = c.CycleCount
	}
}

func TestSymbolicAddressIsFatal(t *testing.T) {
	m := term.NewManager()
	bus := newFakeBus(m)
	c := NewCPU(m)
	c.Address = m.Var("sym_addr", 16)
	c.MemoryPhasePending = true
	c.WriteEnable = false

	if err := c.Step(m, bus); err == nil {
		t.Fatalf("expected SymbolicAddress error for a symbolic bus address")
	}
}

func TestUnimplementedAddressingModeIsFatal(t *testing.T) {
	m := term.NewManager()
	bus := newFakeBus(m)
	bus.setResetVector(0xC000)
	bus.poke(0xC000, 0x21) // AND (zp,X) — indexed-indirect, not implemented

	c := NewCPU(m)
	runReset(t, m, c, bus)

	if err := c.Step(m, bus); err != nil {
		t.Fatalf("decode step: %v", err)
	}
	if err := c.Step(m, bus); err == nil {
		t.Fatalf("expected UnimplementedAddressingMode error")
	}
}

func TestAbsoluteAddressing(t *testing.T) {
	m := term.NewManager()
	bus := newFakeBus(m)
	bus.setResetVector(0xC000)
	bus.poke(0xC000, 0xAD) // LDA abs
	bus.poke(0xC001, 0x00) // low
	bus.poke(0xC002, 0xD0) // high -> 0xD000
	bus.poke(0xD000, 0x99)

	c := NewCPU(m)
	runReset(t, m, c, bus)

	// Decode(1) + ABS(3) + Execute(2) = 6 steps.
	for i := 0; i < 6; i++ {
		if err := c.Step(m, bus); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if c.Regs.A.Value() != 0x99 {
		t.Fatalf("expected A == 0x99, got %#x", c.Regs.A.Value())
	}
	if c.Regs.PC.Value() != 0xC003 {
		t.Fatalf("expected PC == 0xC003, got %#x", c.Regs.PC.Value())
	}
}
