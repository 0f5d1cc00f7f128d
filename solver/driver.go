package solver

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbranch/nesymex/errors"
	"github.com/mbranch/nesymex/logger"
	"github.com/mbranch/nesymex/term"
)

// DefaultBinary is the solver binary name used when a Driver is built with
// NewDriver(""). The engine targets an STP-compatible solver by default.
const DefaultBinary = "stp"

// Driver spawns the configured solver binary per call, pipes it an
// SMT-LIB2 query, and parses its response. No persistent solver session is
// kept between calls — each Solve is an independent subprocess invocation,
// matching spec.md §5's "Shared resources" note on the solver subprocess.
type Driver struct {
	// Binary is the solver executable name or path.
	Binary string

	// Args are additional flags passed to Binary requesting SMT-LIB2 input
	// and counterexample printing. The exact invocation is a configurable
	// implementation detail per spec.md §6.
	Args []string
}

// NewDriver returns a Driver targeting binary, or DefaultBinary if empty.
func NewDriver(binary string, args ...string) *Driver {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Driver{Binary: binary, Args: args}
}

// Solve discharges assertions to the solver and returns its verdict, along
// with a populated Model when the verdict is Sat.
func (d *Driver) Solve(ctx context.Context, assertions []*term.Term) (Status, Model, error) {
	query := Render(assertions)

	cmd := exec.CommandContext(ctx, d.Binary, d.Args...)
	cmd.Stdin = strings.NewReader(query)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Logf("solver", "invoking %s with %d assertion(s)", d.Binary, len(assertions))

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			// the process could not even be started (binary missing, pipe
			// setup failure, etc) -- exit errors are still valid solver
			// responses and are handled by parsing stdout below.
			return Unknown, nil, errors.New(errors.SolverError, "exec", err.Error())
		}
	}

	return Parse(stdout.String())
}

// Render emits the SMT-LIB2 text buffer for assertions, per spec.md §4.1:
// a QF_BV logic declaration, one declare-fun per free variable in name
// order, one assert per input assertion in input order, then check-sat.
func Render(assertions []*term.Term) string {
	var b strings.Builder
	b.WriteString("(set-logic QF_BV)\n")

	for _, v := range term.CollectVars(assertions) {
		b.WriteString("(declare-fun ")
		b.WriteString(v.Name())
		b.WriteString(" () (_ BitVec ")
		b.WriteString(strconv.Itoa(int(v.Width())))
		b.WriteString("))\n")
	}

	for _, a := range assertions {
		b.WriteString("(assert ")
		b.WriteString(a.String())
		b.WriteString(")\n")
	}

	b.WriteString("(check-sat)\n(exit)\n")
	return b.String()
}

var modelLineRE = regexp.MustCompile(`^ASSERT\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([0-9A-Za-z]+)\s*\);?\s*$`)

// Parse reads a solver response line by line. The final non-empty line
// must be "sat", "unsat" or "unknown"; on "sat" every preceding
// "ASSERT( name = value );" line is decoded into the returned Model.
func Parse(output string) (Status, Model, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Unknown, nil, errors.New(errors.SolverError, "read", err.Error())
	}
	if len(lines) == 0 {
		return Unknown, nil, errors.New(errors.SolverError, "parse", "empty solver response")
	}

	final := lines[len(lines)-1]
	var status Status
	switch final {
	case "sat":
		status = Sat
	case "unsat":
		return Unsat, nil, nil
	case "unknown":
		return Unknown, nil, nil
	default:
		return Unknown, nil, errors.New(errors.SolverError, "parse", "final line is not sat/unsat/unknown: "+final)
	}

	model := make(Model)
	for _, line := range lines[:len(lines)-1] {
		m := modelLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, literal := m[1], m[2]
		value, width, err := decodeLiteral(literal)
		if err != nil {
			return Unknown, nil, err
		}
		model[name] = ModelEntry{Value: value, Width: width}
	}

	return status, model, nil
}

func decodeLiteral(literal string) (uint32, uint8, error) {
	switch {
	case strings.HasPrefix(literal, "0x") || strings.HasPrefix(literal, "0X"):
		digits := literal[2:]
		v, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return 0, 0, errors.New(errors.SolverError, "parse", "malformed hex literal: "+literal)
		}
		return uint32(v), uint8(4 * len(digits)), nil
	case strings.HasPrefix(literal, "0b") || strings.HasPrefix(literal, "0B"):
		digits := literal[2:]
		v, err := strconv.ParseUint(digits, 2, 32)
		if err != nil {
			return 0, 0, errors.New(errors.SolverError, "parse", "malformed binary literal: "+literal)
		}
		return uint32(v), uint8(len(digits)), nil
	default:
		return 0, 0, errors.New(errors.SolverError, "parse", "unknown value encoding: "+literal)
	}
}
