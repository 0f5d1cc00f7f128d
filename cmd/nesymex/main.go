// Command nesymex is the host test harness for the symbolic 6502/NES
// execution engine. It loads an iNES ROM, seeds a root context into the
// scheduler, runs it to cycle-budget exhaustion, and prints the final
// register file and any symbolic controller inputs recorded along the
// way.
//
// Flag parsing follows the struct-tag registration pattern of
// github.com/grimdork/climate, the flag library already present in the
// corpus's go.mod set (Urethramancer-m68k).
package main

import (
	"fmt"
	"os"

	"github.com/grimdork/climate"
	"github.com/mbranch/nesymex/cartridge"
	"github.com/mbranch/nesymex/errors"
	"github.com/mbranch/nesymex/logger"
	"github.com/mbranch/nesymex/sched"
	"github.com/mbranch/nesymex/term"
)

// Options is climate's struct-tag option set for this harness.
type Options struct {
	Rom       string `flag:"rom" description:"path to an iNES ROM image"`
	Solver    string `flag:"solver" default:"z3" description:"solver binary name (parsed; this harness makes no solver call)"`
	MaxCycles uint64 `flag:"max-cycles" default:"0" description:"stop a context after this many CPU cycles (0 = unbounded)"`
	DumpGraph string `flag:"dump-graph" description:"write a Graphviz dump of the completed context tree to this path"`
}

func main() {
	var opts Options
	if err := climate.Parse(&opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	if opts.Rom == "" {
		return fmt.Errorf("--rom is required")
	}

	data, err := os.ReadFile(opts.Rom)
	if err != nil {
		return errors.New(errors.RomFileCannotOpen, opts.Rom)
	}

	m := term.NewManager()
	ctx := sched.NewRoot(m)

	rom, err := cartridge.Load(data, m, ctx.Bus)
	if err != nil {
		return err
	}
	ctx.ROM = rom

	s := sched.New(sched.DeepestPC)
	s.MaximumCPUCycles = opts.MaxCycles
	s.AddContext(ctx)

	for s.HaveContexts() {
		if err := s.RunNextContext(m); err != nil {
			return err
		}
	}

	for _, c := range s.Completed {
		printContext(c)
	}

	if opts.DumpGraph != "" {
		f, err := os.Create(opts.DumpGraph)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := s.DumpGraph(f); err != nil {
			return err
		}
	}

	logger.Logf("cmd", "ran %d completed context(s) against %s", len(s.Completed), opts.Rom)
	return nil
}

func printContext(c *sched.Context) {
	r := c.CPU.Regs
	fmt.Printf("cycles=%d pc=%s a=%s x=%s y=%s sp=%s fc=%s fz=%s fi=%s fd=%s fv=%s fn=%s\n",
		c.CPUCycleCount, r.PC, r.A, r.X, r.Y, r.SP, r.FC, r.FZ, r.FI, r.FD, r.FV, r.FN)

	inputs := append(append([]*term.Term(nil), c.Bus.Controller1.Inputs...), c.Bus.Controller2.Inputs...)
	for _, v := range inputs {
		fmt.Printf("  input: %s\n", v)
	}
}
