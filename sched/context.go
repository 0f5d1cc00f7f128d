// Package sched implements the Context (machine snapshot) and
// Scheduler of spec.md §4.5/§4.8: a priority queue of speculative
// execution paths, each a full CPU+bus+controller snapshot, advanced
// one cycle at a time until it forks or exhausts its cycle budget.
package sched

import (
	"github.com/mbranch/nesymex/bus"
	"github.com/mbranch/nesymex/cartridge"
	"github.com/mbranch/nesymex/cpuexec"
	"github.com/mbranch/nesymex/logger"
	"github.com/mbranch/nesymex/term"
)

// Context owns all mutable state for one speculative execution path,
// per spec.md §3.
type Context struct {
	CPU *cpuexec.CPU
	Bus *bus.Bus
	ROM *cartridge.ROM

	StepCount     uint64
	CPUCycleCount uint64
	FrameNumber   int
	HasForked     bool
	Priority      int

	Parent *Context

	// PathConstraints accumulates the condition (or its negation) that
	// produced this context at a fork, per spec.md §4.5. Empty for a
	// root context.
	PathConstraints []*term.Term
}

// NewRoot returns a freshly constructed root context: CPU parked at
// Reset1, bus zeroed, no ROM loaded yet (the caller loads one via
// cartridge.Load(..., m, ctx.Bus) before stepping).
func NewRoot(m *term.Manager) *Context {
	return &Context{
		CPU: cpuexec.NewCPU(m),
		Bus: bus.New(m),
	}
}

// Step advances the context by exactly one CPU cycle.
func (c *Context) Step(m *term.Manager) error {
	if err := c.CPU.Step(m, c.Bus); err != nil {
		return err
	}
	c.StepCount++
	c.CPUCycleCount = c.CPU.CycleCount
	if err := c.ROM.Mapper.CPUCycle(c.Bus); err != nil {
		return err
	}
	return nil
}

// Fork constructs the two children of a speculative branch, per spec.md
// §4.5: both share every term by reference with the parent (registers,
// flags, address/data_out/last_read, calc_addr/branch_offset), the RAM
// array becomes nil plus an empty COW overlay, handler/bank tables are
// copied by value, and ROM/mapper pointers are shared. Step and cycle
// counts, frame number and controller state are copied rather than
// reset. The parent is marked forked and must not be stepped again.
func (c *Context) Fork(condition, negated *term.Term) (trueChild, falseChild *Context) {
	c.HasForked = true

	mk := func(cond *term.Term) *Context {
		cpuCopy := *c.CPU // shallow: every *term.Term field is shared by reference
		child := &Context{
			CPU:             &cpuCopy,
			Bus:             c.Bus.Fork(),
			ROM:             c.ROM,
			StepCount:       c.StepCount,
			CPUCycleCount:   c.CPUCycleCount,
			FrameNumber:     c.FrameNumber,
			Priority:        c.Priority,
			Parent:          c,
			PathConstraints: append(append([]*term.Term(nil), c.PathConstraints...), cond),
		}
		return child
	}

	logger.Logf("sched", "context forked at pc=%s", c.CPU.Regs.PC)
	return mk(condition), mk(negated)
}
