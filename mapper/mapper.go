// Package mapper implements the cartridge mapper interface and the
// mapper-0 (NROM) implementation of spec.md §4.7.
//
// The interface is trimmed from the teacher's cartMapper
// (hardware/memory/cartridge/cartmapper.go: initialise/read/write/
// numBanks/getBank/setBank/saveState/restoreState/listen/poke/patch/
// getRAMinfo) down to the five methods spec.md names; nothing in this
// engine needs bank save-states or a debugger poke/patch path.
package mapper

import (
	"github.com/mbranch/nesymex/bus"
	"github.com/mbranch/nesymex/errors"
	"github.com/mbranch/nesymex/term"
)

// Mapper is the cartridge-to-bus binding: it owns PRG/CHR ROM and
// decides how the bus's PRG banks map onto it.
type Mapper interface {
	Load(b *bus.Bus, prgROM, chrROM [][]*term.Term) error
	Reset(b *bus.Bus) error
	Unload(b *bus.Bus) error
	CPUCycle(b *bus.Bus) error
	PPUCycle(b *bus.Bus) error
}

// New constructs the mapper for the given iNES mapper id, per spec.md
// §4.6 step 5 ("mapper 0 = NROM"). Only mapper 0 is implemented.
func New(id uint8) (Mapper, error) {
	switch id {
	case 0:
		return &NROM{}, nil
	default:
		return nil, errors.New(errors.UnknownMapper, int(id))
	}
}

// bankSize4K is the 4 KiB unit set_prg_rom_N operates in, matching the
// bus package's per-bank 4 KiB page granularity.
const bankSize4K = 0x1000

// maxPRGROMSize bounds prg_mask_rom per spec.md §4.7; NROM's largest ROM
// is 32 KiB, so 8 banks of 4 KiB is a generous ceiling for this engine's
// scope.
const maxPRGROMSize = 8

// mask returns the smallest all-ones bitmask >= n, per spec.md §4.7's
// prg_mask_rom definition.
func mask(n int) int {
	if n <= 0 {
		return 0
	}
	v := 1
	for v < n {
		v = v<<1 | 1
	}
	return v
}

// prgMaskROM implements spec.md §4.7's prg_mask_rom formula.
func prgMaskROM(prgPages int) int {
	return mask(prgPages-1) & (maxPRGROMSize - 1)
}

// setPRGROM implements the set_prg_rom_N helper (N in {4,8,16,32} KiB):
// it writes contiguous 4 KiB-aligned PRGPage entries starting at bus
// bank `bank`, each pointing at ROM page (value*N/4 + k) & prg_mask_rom,
// and marks those banks readable, not writable.
func setPRGROM(b *bus.Bus, prgROM [][]*term.Term, bankStart int, value int, n int) {
	numPages := n / 4
	m := prgMaskROM(len(prgROM))
	for k := 0; k < numPages; k++ {
		page := (value*numPages + k) & m
		if page >= len(prgROM) {
			page = page % len(prgROM)
		}
		b.Banks[bankStart+k] = bus.Bank{
			Kind:     bus.BankPRG,
			Readable: true,
			Writable: false,
			PRGPage:  prgROM[page],
		}
	}
}
