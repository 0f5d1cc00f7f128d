package cpuexec

import "github.com/mbranch/nesymex/term"

// Bus is the CPU's view of the address space: a concrete 16-bit address
// in, a term out (or in, for writes). Bank dispatch, RAM/ROM/controller
// routing and the copy-on-write RAM overlay are the concern of the bus
// and sched packages; the CPU only ever sees this narrow interface.
type Bus interface {
	Read(addr uint16) (*term.Term, error)
	Write(addr uint16, data *term.Term) error
}
