// Package bus implements the 16-entry bank-dispatch address bus of
// spec.md §4.3: a flat table of handlers indexed by the address's high
// nibble, RAM with a copy-on-write overlay for forked contexts, and the
// stub PPU/APU register banks that host the controller ports.
package bus

import (
	"github.com/mbranch/nesymex/controller"
	"github.com/mbranch/nesymex/term"
)

const numBanks = 16

// BankKind names what a bank dispatches to, mirroring the small
// enum-of-handler-kinds spec.md §9 recommends in place of per-bank
// function pointers.
type BankKind uint8

const (
	BankRAM BankKind = iota
	BankPPU
	BankAPU
	BankPRG
)

// Bank is one entry of the 16-bank dispatch table: a kind selector plus
// the PRG-specific readable/writable/pointer fields spec.md §4.7's
// set_prg_rom_N helper mutates.
type Bank struct {
	Kind BankKind

	// PRG-only fields, meaningful when Kind == BankPRG. PRGPage is the
	// 4 KiB ROM page this bank currently maps; set_prg_rom_N (see the
	// mapper package) reassigns it per spec.md §4.7.
	Readable bool
	Writable bool
	PRGPage  []*term.Term
}

// Bus is the Context's address bus: bank dispatch over RAM, PPU/APU
// stubs, the controller ports, and PRG ROM, implementing
// cpuexec.Bus.
type Bus struct {
	m *term.Manager

	Banks [numBanks]Bank

	RAM [0x800]*term.Term

	// overlay and Parent implement the COW RAM scheme of spec.md §4.3.
	// A root context has Parent == nil and writes straight into RAM.
	overlay map[uint16]*term.Term
	Parent  *Bus

	PRGROM [][]*term.Term // 4 KiB pages
	CHRROM [][]*term.Term // 1 KiB pages

	Controller1 *controller.Controller
	Controller2 *controller.Controller

	lastRead *term.Term
}

// New returns a root bus with RAM zeroed, banks 0/1 -> RAM, 2/3 -> PPU
// stub, 4 -> APU/controller, 5-F -> PRG (unmapped until the mapper runs).
func New(m *term.Manager) *Bus {
	b := &Bus{
		m:           m,
		Controller1: controller.New(m, 1),
		Controller2: controller.New(m, 2),
		lastRead:    m.Byte(0),
	}
	zero := m.Byte(0)
	for i := range b.RAM {
		b.RAM[i] = zero
	}
	b.Banks[0] = Bank{Kind: BankRAM}
	b.Banks[1] = Bank{Kind: BankRAM}
	b.Banks[2] = Bank{Kind: BankPPU}
	b.Banks[3] = Bank{Kind: BankPPU}
	b.Banks[4] = Bank{Kind: BankAPU}
	for i := 5; i < numBanks; i++ {
		b.Banks[i] = Bank{Kind: BankPRG}
	}
	return b
}

// Fork returns a child bus sharing PRG/CHR ROM, with the mapper-maintained
// bank table copied by value and each controller cloned, per spec.md §4.5:
// RAM becomes nil + an empty overlay, so child writes never touch the
// parent's RAM and child reads fall through to it.
func (b *Bus) Fork() *Bus {
	child := &Bus{
		m:           b.m,
		Banks:       b.Banks,
		overlay:     make(map[uint16]*term.Term),
		Parent:      b,
		PRGROM:      b.PRGROM,
		CHRROM:      b.CHRROM,
		Controller1: b.Controller1.Clone(),
		Controller2: b.Controller2.Clone(),
		lastRead:    b.lastRead,
	}
	return child
}

func bank(addr uint16) int { return int(addr>>12) & 0xF }

// Read dispatches a bus read by bank, implementing cpuexec.Bus. last_read
// is a single Bus-level byte updated on every read regardless of bank
// (spec.md §3/§4.2), so every branch below refreshes b.lastRead before
// returning.
func (b *Bus) Read(addr uint16) (*term.Term, error) {
	bk := b.Banks[bank(addr)]
	var v *term.Term
	var err error
	switch bk.Kind {
	case BankRAM:
		v = b.readRAM(addr & 0x7FF)
	case BankPPU:
		v = b.m.Byte(0xFF)
	case BankAPU:
		v, err = b.readAPU(addr)
	case BankPRG:
		v, err = b.readPRG(bk, addr)
	default:
		v = b.m.Byte(0xFF)
	}
	if err != nil {
		return nil, err
	}
	b.lastRead = v
	return v, nil
}

// Write dispatches a bus write by bank, implementing cpuexec.Bus.
func (b *Bus) Write(addr uint16, data *term.Term) error {
	bk := b.Banks[bank(addr)]
	switch bk.Kind {
	case BankRAM:
		b.writeRAM(addr&0x7FF, data)
		return nil
	case BankPPU:
		return nil
	case BankAPU:
		return b.writeAPU(addr, data)
	case BankPRG:
		if !bk.Writable {
			return nil
		}
		off := int(addr & 0xFFF)
		if off < len(bk.PRGPage) {
			bk.PRGPage[off] = data
		}
		return nil
	}
	return nil
}

// readRAM implements the COW read rule of spec.md §4.3: a root returns
// ram[addr] directly; a forked child checks its overlay first, then
// recurses to the parent.
func (b *Bus) readRAM(addr uint16) *term.Term {
	if b.Parent == nil {
		return b.RAM[addr]
	}
	if v, ok := b.overlay[addr]; ok {
		return v
	}
	return b.Parent.readRAM(addr)
}

// writeRAM implements the COW write rule: a root writes ram[addr]
// directly; a forked child writes its overlay only, never the parent.
func (b *Bus) writeRAM(addr uint16, v *term.Term) {
	if b.Parent == nil {
		b.RAM[addr] = v
		return
	}
	b.overlay[addr] = v
}

func (b *Bus) readAPU(addr uint16) (*term.Term, error) {
	switch addr {
	case 0x4016:
		return b.combineControllerBit(b.Controller1.Read())
	case 0x4017:
		return b.combineControllerBit(b.Controller2.Read())
	default:
		return b.m.Byte(0xFF), nil
	}
}

// combineControllerBit folds a controller read's 1-bit result into the
// full byte spec.md §4.3 mandates: (last_read & 0xC0) | (controller_bits
// & 0x19).
func (b *Bus) combineControllerBit(bit *term.Term, err error) (*term.Term, error) {
	if err != nil {
		return nil, err
	}
	high, err := b.m.BVAnd(b.lastRead, b.m.Byte(0xC0))
	if err != nil {
		return nil, err
	}
	low, err := b.m.BVAnd(bit, b.m.Byte(0x19))
	if err != nil {
		return nil, err
	}
	return b.m.BVOr(high, low)
}

func (b *Bus) writeAPU(addr uint16, data *term.Term) error {
	switch addr {
	case 0x4016:
		if err := b.Controller1.Write(data); err != nil {
			return err
		}
		return b.Controller2.Write(data)
	default:
		return nil
	}
}

func (b *Bus) readPRG(bk Bank, addr uint16) (*term.Term, error) {
	off := int(addr & 0xFFF)
	if !bk.Readable || off >= len(bk.PRGPage) {
		return b.m.Byte(0xFF), nil
	}
	return bk.PRGPage[off], nil
}
