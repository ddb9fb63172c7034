package trace

import (
	"path/filepath"
	"testing"

	"github.com/chazu/teenyjvm/internal/vm"
)

func TestRecorderRecordsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	rec, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer rec.Close()

	rec.TraceCall("factorial", "(I)I", []int32{5}, 1)
	rec.TraceReturn("factorial", true, 120, 1)
	rec.TracePrint(42, 2)
	rec.TraceInstruction(vm.OpIreturn, 7, 1)

	var callCount int
	if err := rec.db.QueryRow(`SELECT COUNT(*) FROM calls`).Scan(&callCount); err != nil {
		t.Fatalf("querying calls: %v", err)
	}
	if callCount != 1 {
		t.Errorf("calls count = %d, want 1", callCount)
	}

	var method string
	var hasValue int
	var value int
	if err := rec.db.QueryRow(`SELECT method, has_value, value FROM returns`).Scan(&method, &hasValue, &value); err != nil {
		t.Fatalf("querying returns: %v", err)
	}
	if method != "factorial" || hasValue != 1 || value != 120 {
		t.Errorf("returns row = (%q, %d, %d), want (factorial, 1, 120)", method, hasValue, value)
	}

	var printValue, printDepth int
	if err := rec.db.QueryRow(`SELECT value, depth FROM prints`).Scan(&printValue, &printDepth); err != nil {
		t.Fatalf("querying prints: %v", err)
	}
	if printValue != 42 || printDepth != 2 {
		t.Errorf("prints row = (%d, %d), want (42, 2)", printValue, printDepth)
	}

	var pc int
	var opcode string
	if err := rec.db.QueryRow(`SELECT pc, opcode FROM instructions`).Scan(&pc, &opcode); err != nil {
		t.Fatalf("querying instructions: %v", err)
	}
	if pc != 7 || opcode != vm.OpIreturn.String() {
		t.Errorf("instructions row = (%d, %q), want (7, %q)", pc, opcode, vm.OpIreturn.String())
	}
}

func TestOpenCreatesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	rec, err := Open(path)
	if err != nil {
		t.Fatalf("first Open returned error: %v", err)
	}
	rec.Close()

	rec2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open returned error: %v", err)
	}
	defer rec2.Close()
}
