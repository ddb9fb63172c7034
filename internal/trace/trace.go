// Package trace records an execution trace to a sqlite database, purely for
// after-the-fact inspection — it never changes interpreter behavior. Wired
// in only when [trace] db_path is set in the config.
package trace

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chazu/teenyjvm/internal/vm"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	method     TEXT NOT NULL,
	descriptor TEXT NOT NULL,
	args       TEXT NOT NULL,
	depth      INTEGER NOT NULL,
	at         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS returns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	method     TEXT NOT NULL,
	has_value  INTEGER NOT NULL,
	value      INTEGER NOT NULL,
	depth      INTEGER NOT NULL,
	at         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS prints (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	value INTEGER NOT NULL,
	depth INTEGER NOT NULL,
	at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS instructions (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	pc     INTEGER NOT NULL,
	opcode TEXT NOT NULL,
	depth  INTEGER NOT NULL,
	at     TEXT NOT NULL
);
`

// Recorder writes call, return and print events to a sqlite database at
// dbPath. It satisfies vm.Tracer.
type Recorder struct {
	db *sql.DB
}

// Open creates (or reuses) the trace database at dbPath and prepares its
// schema.
func Open(dbPath string) (*Recorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening trace db %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing trace schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Close flushes and closes the underlying database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// TraceCall implements vm.Tracer.
func (r *Recorder) TraceCall(methodName, descriptor string, args []int32, depth int) {
	_, err := r.db.Exec(
		`INSERT INTO calls (method, descriptor, args, depth, at) VALUES (?, ?, ?, ?, ?)`,
		methodName, descriptor, formatArgs(args), depth, now(),
	)
	if err != nil {
		// Tracing is observational; a write failure must never abort the run.
		fmt.Printf("trace: recording call to %s failed: %v\n", methodName, err)
	}
}

// TraceReturn implements vm.Tracer.
func (r *Recorder) TraceReturn(methodName string, hasValue bool, value int32, depth int) {
	hv := 0
	if hasValue {
		hv = 1
	}
	if _, err := r.db.Exec(
		`INSERT INTO returns (method, has_value, value, depth, at) VALUES (?, ?, ?, ?, ?)`,
		methodName, hv, value, depth, now(),
	); err != nil {
		fmt.Printf("trace: recording return from %s failed: %v\n", methodName, err)
	}
}

// TracePrint implements vm.Tracer.
func (r *Recorder) TracePrint(value int32, depth int) {
	if _, err := r.db.Exec(
		`INSERT INTO prints (value, depth, at) VALUES (?, ?, ?)`,
		value, depth, now(),
	); err != nil {
		fmt.Printf("trace: recording print failed: %v\n", err)
	}
}

// TraceInstruction implements vm.Tracer.
func (r *Recorder) TraceInstruction(op vm.Opcode, pc int, depth int) {
	if _, err := r.db.Exec(
		`INSERT INTO instructions (pc, opcode, depth, at) VALUES (?, ?, ?, ?)`,
		pc, op.String(), depth, now(),
	); err != nil {
		fmt.Printf("trace: recording instruction at pc=%d failed: %v\n", pc, err)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func formatArgs(args []int32) string {
	s := "["
	for i, a := range args {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", a)
	}
	return s + "]"
}
