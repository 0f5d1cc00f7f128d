package errors

var messages = map[Errno]string{
	IllTypedTerm: "ill-typed term: %s",

	SymbolicAddress:             "cpu: memory phase observed a symbolic bus address (%s)",
	SymbolicOpcode:              "cpu: decode observed a symbolic opcode byte (%s)",
	SymbolicBranchOffset:        "cpu: relative addressing yielded a symbolic branch offset (%s)",
	UnimplementedOpcode:         "cpu: unimplemented opcode (%#02x)",
	UnimplementedAddressingMode: "cpu: unimplemented addressing mode (%s)",

	UnsupportedHeader: "cartridge: unsupported iNES header (%s)",
	UnknownMapper:     "cartridge: no implementation for mapper id %d",

	SolverError: "solver: %s: %s",

	RomFileCannotOpen: "cannot open rom file (%s)",
	RomFileError:      "error reading rom file (%s)",
}
