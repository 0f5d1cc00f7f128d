package cartridge

import (
	"testing"

	"github.com/mbranch/nesymex/bus"
	"github.com/mbranch/nesymex/term"
)

// buildROM assembles a minimal valid iNES image: prgPages x 16 KiB PRG,
// chrPages x 8 KiB CHR, mapper 0, no trainer, no reserved bytes set.
func buildROM(prgPages, chrPages int) []byte {
	header := make([]byte, headerSize)
	copy(header, magic[:])
	header[4] = byte(prgPages)
	header[5] = byte(chrPages)
	header[6] = 0x00
	header[7] = 0x00

	data := append([]byte{}, header...)
	for i := 0; i < prgPages*prgPageSize; i++ {
		data = append(data, byte(i))
	}
	for i := 0; i < chrPages*chrPageSize; i++ {
		data = append(data, byte(i))
	}
	return data
}

func TestLoadValidNROMImage(t *testing.T) {
	m := term.NewManager()
	b := bus.New(m)
	data := buildROM(2, 1) // 32 KiB PRG, 8 KiB CHR

	rom, err := Load(data, m, b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rom.MapperID != 0 {
		t.Fatalf("expected mapper id 0, got %d", rom.MapperID)
	}
	if len(rom.PRGROM) != 8 {
		t.Fatalf("expected 8 x 4KiB PRG banks for 32KiB PRG, got %d", len(rom.PRGROM))
	}
	if len(rom.CHRROM) != 8 {
		t.Fatalf("expected 8 x 1KiB CHR banks for 8KiB CHR, got %d", len(rom.CHRROM))
	}

	got, err := b.Read(0x8000)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Value() != 0x00 {
		t.Fatalf("expected first mapped PRG byte 0x00, got %#x", got.Value())
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	m := term.NewManager()
	b := bus.New(m)
	data := buildROM(1, 1)
	data[0] = 'X'

	if _, err := Load(data, m, b); err == nil {
		t.Fatalf("expected an error for bad magic")
	}
}

func TestLoadRejectsDiskDudeHeader(t *testing.T) {
	m := term.NewManager()
	b := bus.New(m)
	data := buildROM(1, 1)
	data[7] = 0x04

	if _, err := Load(data, m, b); err == nil {
		t.Fatalf("expected an error for a DiskDude-corrupted header")
	}
}

func TestLoadRejectsNES20Header(t *testing.T) {
	m := term.NewManager()
	b := bus.New(m)
	data := buildROM(1, 1)
	data[7] = 0x08

	if _, err := Load(data, m, b); err == nil {
		t.Fatalf("expected an error for a NES 2.0 header")
	}
}

func TestLoadRejectsTrainedROM(t *testing.T) {
	m := term.NewManager()
	b := bus.New(m)
	data := buildROM(1, 1)
	data[6] |= 0x04 // trainer-present flag, low nibble of ines_flags

	if _, err := Load(data, m, b); err == nil {
		t.Fatalf("expected an error for a trained ROM")
	}
}

func TestLoadRejectsNonZeroReservedBytes(t *testing.T) {
	m := term.NewManager()
	b := bus.New(m)
	data := buildROM(1, 1)
	data[10] = 0xFF

	if _, err := Load(data, m, b); err == nil {
		t.Fatalf("expected an error for non-zero reserved header bytes")
	}
}

func TestLoadRejectsTruncatedData(t *testing.T) {
	m := term.NewManager()
	b := bus.New(m)
	data := buildROM(2, 1)
	data = data[:len(data)-100]

	if _, err := Load(data, m, b); err == nil {
		t.Fatalf("expected an error for truncated ROM data")
	}
}
