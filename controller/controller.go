// Package controller implements the standard NES controller shift
// register protocol of spec.md §4.4. Unlike a concrete emulator's
// Controller (buttons []bool, index byte, strobe byte —
// other_examples/BrianWill-nes__nes_types.go), button state here is a
// single symbolic 8-bit term the solver is free to assign: every strobe
// transition mints a fresh input variable rather than sampling a fixed
// button array.
package controller

import (
	"fmt"

	"github.com/mbranch/nesymex/errors"
	"github.com/mbranch/nesymex/term"
)

// Controller is one of the two NES controller ports. Each port mints
// its own sequence of symbolic variables, named
// "controllerK_frameN_seqM" where K distinguishes port 1 from port 2.
type Controller struct {
	m      *term.Manager
	port   int
	frame  int
	seq    int
	strobe bool
	bits   *term.Term // current 8-bit symbolic button state
	bitPtr int

	// Inputs collects every symbolic variable minted by this
	// controller, the knobs call_solver turns per spec.md §4.4.
	Inputs []*term.Term
}

// New returns a controller for the given port (1 or 2) and mints its
// first bits variable (seq 0) immediately; later strobes mint fresh ones.
func New(m *term.Manager, port int) *Controller {
	c := &Controller{m: m, port: port}
	c.mint()
	return c
}

// Clone returns a copy sharing the manager and minted-variable history,
// used when a Context forks (spec.md §4.5 "controller state... copied").
func (c *Controller) Clone() *Controller {
	cp := *c
	cp.Inputs = append([]*term.Term(nil), c.Inputs...)
	return &cp
}

func (c *Controller) mint() {
	name := fmt.Sprintf("controller%d_frame%d_seq%d", c.port, c.frame, c.seq)
	c.seq++
	c.bits = c.m.Var(name, 8)
	c.Inputs = append(c.Inputs, c.bits)
}

// NextFrame resets the sequence counter for a new controller-poll
// frame, keeping variable names reproducible across runs.
func (c *Controller) NextFrame() {
	c.frame++
	c.seq = 0
}

// Write implements controller_write: v must be concrete. A strobe
// transition (prior or new strobe true) mints a fresh bits variable and
// resets bit_ptr.
func (c *Controller) Write(v *term.Term) error {
	if !v.IsConcrete() {
		// Reuses SymbolicAddress: spec.md §7 closes the error taxonomy
		// over CPU/cartridge/solver concerns, and a non-concrete strobe
		// value is the same "needed a concrete value, got a symbol"
		// shape as a symbolic bus address.
		return errors.New(errors.SymbolicAddress, v.String())
	}
	newStrobe := v.Value()&1 != 0
	if c.strobe || newStrobe {
		c.mint()
		c.bitPtr = 0
	}
	c.strobe = newStrobe
	return nil
}

// Read implements controller_read1/controller_read2: while strobed, every
// read mints a fresh bits variable and returns bit 0; otherwise the
// shift register advances one bit per read, returning the constant 1
// "no further data" value once exhausted.
func (c *Controller) Read() (*term.Term, error) {
	if c.strobe {
		c.mint()
		return c.bit(0)
	}
	if c.bitPtr < 8 {
		v, err := c.bit(c.bitPtr)
		if err != nil {
			return nil, err
		}
		c.bitPtr++
		return v, nil
	}
	return c.m.Byte(1), nil
}

func (c *Controller) bit(i int) (*term.Term, error) {
	shifted, err := c.m.BVLshr(c.bits, c.m.Byte(uint8(i)))
	if err != nil {
		return nil, err
	}
	return c.m.BVAnd(shifted, c.m.Byte(1))
}
