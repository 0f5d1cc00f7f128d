package solver

import (
	"strings"
	"testing"

	"github.com/mbranch/nesymex/term"
)

func TestRenderDeclaresVarsAndAssertions(t *testing.T) {
	m := term.NewManager()
	x := m.Var("controller1_frame0_0", 8)
	eq, err := m.Eq(x, m.Byte(0x41))
	if err != nil {
		t.Fatal(err)
	}

	out := Render([]*term.Term{eq})
	if !strings.Contains(out, "(set-logic QF_BV)") {
		t.Fatalf("missing logic declaration:\n%s", out)
	}
	if !strings.Contains(out, "(declare-fun controller1_frame0_0 () (_ BitVec 8))") {
		t.Fatalf("missing variable declaration:\n%s", out)
	}
	if !strings.Contains(out, "(assert (= controller1_frame0_0 #b01000001))") {
		t.Fatalf("missing assertion:\n%s", out)
	}
	if !strings.HasSuffix(out, "(check-sat)\n(exit)\n") {
		t.Fatalf("missing check-sat/exit tail:\n%s", out)
	}
}

func TestParseSatWithModel(t *testing.T) {
	response := "ASSERT( controller1_frame0_0 = 0x41 );\nsat\n"
	status, model, err := Parse(response)
	if err != nil {
		t.Fatal(err)
	}
	if status != Sat {
		t.Fatalf("expected Sat, got %v", status)
	}
	entry, ok := model["controller1_frame0_0"]
	if !ok {
		t.Fatalf("expected model entry for controller1_frame0_0")
	}
	if entry.Value != 0x41 || entry.Width != 8 {
		t.Fatalf("unexpected model entry: %+v", entry)
	}
}

func TestParseSatWithBinaryLiteral(t *testing.T) {
	response := "ASSERT( v0 = 0b00000001 );\nsat\n"
	_, model, err := Parse(response)
	if err != nil {
		t.Fatal(err)
	}
	if model["v0"].Value&1 != 1 {
		t.Fatalf("expected low bit set, got %+v", model["v0"])
	}
}

func TestParseUnsat(t *testing.T) {
	status, model, err := Parse("unsat\n")
	if err != nil {
		t.Fatal(err)
	}
	if status != Unsat || model != nil {
		t.Fatalf("expected Unsat/nil model, got %v/%v", status, model)
	}
}

func TestParseMalformedFinalLine(t *testing.T) {
	if _, _, err := Parse("garbage\n"); err == nil {
		t.Fatalf("expected error for malformed final line")
	}
}

func TestParseUnknownLiteralEncoding(t *testing.T) {
	if _, _, err := Parse("ASSERT( v0 = 41 );\nsat\n"); err == nil {
		t.Fatalf("expected error for unknown literal encoding")
	}
}
