// Package cartridge implements the iNES ROM loader of spec.md §4.6:
// header validation, PRG/CHR ROM allocation as banked constant terms,
// and mapper construction.
//
// Header field layout cross-checked against
// other_examples/BrianWill-nes__nes_types.go's iNESFileHeader struct
// (magic/NumPRG/NumCHR/Control1/Control2/NumRAM), though validation
// rules follow spec.md §4.6 directly since that file trusts its input
// and performs no rejection of malformed headers.
package cartridge

import (
	"github.com/mbranch/nesymex/bus"
	"github.com/mbranch/nesymex/errors"
	"github.com/mbranch/nesymex/mapper"
	"github.com/mbranch/nesymex/term"
)

const (
	headerSize  = 16
	prgPageSize = 0x4000 // 16 KiB
	chrPageSize = 0x2000 // 8 KiB
	prgBankSize = 0x1000 // 4 KiB banks of constant terms
	chrBankSize = 0x0400 // 1 KiB banks of constant terms
)

var magic = [4]byte{'N', 'E', 'S', 0x1A}

// ROM is a loaded cartridge image: PRG/CHR ROM as 4 KiB / 1 KiB banks
// of constant 8-bit terms, plus the mapper constructed for it.
type ROM struct {
	PRGROM   [][]*term.Term
	CHRROM   [][]*term.Term
	MapperID uint8
	Flags    uint8
	Mapper   mapper.Mapper
}

// Load implements load_iNES: parses the header, allocates PRG/CHR ROM,
// constructs the mapper by id, and runs Load then Reset on it against b.
func Load(data []byte, m *term.Manager, b *bus.Bus) (*ROM, error) {
	if len(data) < headerSize {
		return nil, errors.New(errors.UnsupportedHeader, "file shorter than the 16-byte iNES header")
	}
	header := data[:headerSize]

	for i, c := range magic {
		if header[i] != c {
			return nil, errors.New(errors.UnsupportedHeader, "missing NES\\x1A magic")
		}
	}
	if header[7]&0x0C == 0x04 {
		return nil, errors.New(errors.UnsupportedHeader, "DiskDude! corrupted header")
	}
	if header[7]&0x0C == 0x0C {
		return nil, errors.New(errors.UnsupportedHeader, "unrecognised header layout")
	}
	if header[7]&0x0C == 0x08 {
		return nil, errors.New(errors.UnsupportedHeader, "NES 2.0 headers are not supported")
	}
	for i := 8; i < headerSize; i++ {
		if header[i] != 0 {
			return nil, errors.New(errors.UnsupportedHeader, "reserved header bytes 8-15 must be zero")
		}
	}

	prgPages := int(header[4])
	chrPages := int(header[5])
	mapperID := ((header[6] >> 4) & 0xF) | (header[7] & 0xF0)
	flags := (header[6] & 0x0F) | ((header[7] & 0x0F) << 4)

	if flags&0x04 != 0 {
		return nil, errors.New(errors.UnsupportedHeader, "trained ROMs are not supported")
	}

	offset := headerSize
	prgROM, offset, err := readBanks(data, offset, prgPages, prgPageSize, prgBankSize, m)
	if err != nil {
		return nil, err
	}
	chrROM, _, err := readBanks(data, offset, chrPages, chrPageSize, chrBankSize, m)
	if err != nil {
		return nil, err
	}

	mp, err := mapper.New(mapperID)
	if err != nil {
		return nil, err
	}
	if err := mp.Load(b, prgROM, chrROM); err != nil {
		return nil, err
	}
	if err := mp.Reset(b); err != nil {
		return nil, err
	}

	return &ROM{
		PRGROM:   prgROM,
		CHRROM:   chrROM,
		MapperID: mapperID,
		Flags:    flags,
		Mapper:   mp,
	}, nil
}

// readBanks reads `pages` pages of pageSize bytes starting at offset,
// re-chunked into bankSize-byte banks of constant terms, per spec.md
// §4.6 step 4 ("allocate PRG/CHR ROM as arrays of 4 KiB / 1 KiB banks").
func readBanks(data []byte, offset, pages, pageSize, bankSize int, m *term.Manager) ([][]*term.Term, int, error) {
	total := pages * pageSize
	if offset+total > len(data) {
		return nil, offset, errors.New(errors.UnsupportedHeader, "ROM data shorter than header page counts claim")
	}
	var banks [][]*term.Term
	for b := 0; b < total; b += bankSize {
		bank := make([]*term.Term, bankSize)
		for i := 0; i < bankSize; i++ {
			bank[i] = m.Byte(data[offset+b+i])
		}
		banks = append(banks, bank)
	}
	return banks, offset + total, nil
}
