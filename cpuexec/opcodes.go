package cpuexec

// family names the execute-phase micro-sequence an opcode belongs to,
// per the Execute table in spec.md §4.2.
type family uint8

const (
	famNone family = iota
	famAND
	famCMP
	famLDA
	famLDX
	famLDY
	famSTA
	famSTX
	famSTY
	famBranch
)

// opcodeFamily maps every opcode this engine executes to its family.
// Opcodes absent from this table are UnimplementedOpcode.
var opcodeFamily = map[uint8]family{
	0x21: famAND, 0x31: famAND, 0x29: famAND, 0x39: famAND,
	0x25: famAND, 0x35: famAND, 0x2D: famAND, 0x3D: famAND,

	0xC1: famCMP, 0xD1: famCMP, 0xC9: famCMP, 0xD9: famCMP,
	0xC5: famCMP, 0xD5: famCMP, 0xCD: famCMP, 0xDD: famCMP,

	0xA1: famLDA, 0xB1: famLDA, 0xA9: famLDA, 0xB9: famLDA,
	0xA5: famLDA, 0xB5: famLDA, 0xAD: famLDA, 0xBD: famLDA,

	0xA2: famLDX, 0xA6: famLDX, 0xB6: famLDX, 0xAE: famLDX, 0xBE: famLDX,

	0xA0: famLDY, 0xA4: famLDY, 0xB4: famLDY, 0xAC: famLDY, 0xBC: famLDY,

	0x81: famSTA, 0x91: famSTA, 0x99: famSTA, 0x85: famSTA,
	0x95: famSTA, 0x8D: famSTA, 0x9D: famSTA,

	0x86: famSTX, 0x96: famSTX, 0x8E: famSTX,

	0x84: famSTY, 0x94: famSTY, 0x8C: famSTY,

	0x10: famBranch, 0x30: famBranch, 0x50: famBranch, 0x70: famBranch,
	0x90: famBranch, 0xB0: famBranch, 0xD0: famBranch, 0xF0: famBranch,
}

// addressingModeByOpcode maps each covered opcode to its real 6502
// addressing mode. Every mode named here is decoded faithfully even
// though only IMM/ABS/REL/ABX have execution clauses (see
// AddressingModeKind.implemented); the rest surface
// UnimplementedAddressingMode if actually ticked.
var addressingModeByOpcode = map[uint8]AddressingModeKind{
	0x21: INX, 0x31: INY, 0x29: IMM, 0x39: ABY, 0x25: ZPG, 0x35: ZPX, 0x2D: ABS, 0x3D: ABX,
	0xC1: INX, 0xD1: INY, 0xC9: IMM, 0xD9: ABY, 0xC5: ZPG, 0xD5: ZPX, 0xCD: ABS, 0xDD: ABX,
	0xA1: INX, 0xB1: INY, 0xA9: IMM, 0xB9: ABY, 0xA5: ZPG, 0xB5: ZPX, 0xAD: ABS, 0xBD: ABX,
	0xA2: IMM, 0xA6: ZPG, 0xB6: ZPY, 0xAE: ABS, 0xBE: ABY,
	0xA0: IMM, 0xA4: ZPG, 0xB4: ZPX, 0xAC: ABS, 0xBC: ABX,
	0x81: INX, 0x91: INY, 0x99: ABY, 0x85: ZPG, 0x95: ZPX, 0x8D: ABS, 0x9D: ABX,
	0x86: ZPG, 0x96: ZPY, 0x8E: ABS,
	0x84: ZPG, 0x94: ZPX, 0x8C: ABS,
	0x10: REL, 0x30: REL, 0x50: REL, 0x70: REL, 0x90: REL, 0xB0: REL, 0xD0: REL, 0xF0: REL,
}
