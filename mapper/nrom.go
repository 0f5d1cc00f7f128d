package mapper

import (
	"github.com/mbranch/nesymex/bus"
	"github.com/mbranch/nesymex/term"
)

// NROM is mapper 0: a fixed 32 KiB PRG window with no bank switching.
// CHR and PRG RAM handling is a stub, per spec.md §4.7.
type NROM struct {
	prgROM [][]*term.Term
	chrROM [][]*term.Term
}

func (n *NROM) Load(b *bus.Bus, prgROM, chrROM [][]*term.Term) error {
	n.prgROM = prgROM
	n.chrROM = chrROM
	return nil
}

// Reset maps the entire 32 KiB PRG window (banks 0x8-0xF) onto ROM page
// 0 forward, per spec.md §4.7: set_prg_rom_32(ctx, 0x8, 0).
func (n *NROM) Reset(b *bus.Bus) error {
	setPRGROM(b, n.prgROM, 0x8, 0, 32)
	return nil
}

func (n *NROM) Unload(b *bus.Bus) error {
	n.prgROM = nil
	n.chrROM = nil
	return nil
}

// CPUCycle and PPUCycle are no-ops for NROM: it has no internal state
// that advances with the clock (no IRQ counter, no bank-switch latch).
func (n *NROM) CPUCycle(b *bus.Bus) error { return nil }
func (n *NROM) PPUCycle(b *bus.Bus) error { return nil }
