package vm

import "fmt"

// ExecutionError reports a structural or programmatic-precondition failure
// detected while running bytecode: division by zero, a negative array size,
// or call depth exceeding the configured ceiling (spec.md §7). All of these
// are fatal — the interpreter does not synthesize a runtime exception to
// catch, it unwinds and the process reports the failure and exits non-zero,
// matching original_source/jvm.c's assert-and-abort treatment of the same
// conditions.
type ExecutionError struct {
	Op  Opcode
	Msg string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func errDivisionByZero(op Opcode) error {
	return &ExecutionError{Op: op, Msg: "division by zero"}
}

func errNegativeArraySize(n int32) error {
	return &ExecutionError{Op: OpNewarray, Msg: fmt.Sprintf("negative array size: %d", n)}
}

func errArrayIndexOutOfBounds(op Opcode, index, length int32) error {
	return &ExecutionError{Op: op, Msg: fmt.Sprintf("array index out of bounds: index=%d length=%d", index, length)}
}

func errCallDepthExceeded(max int) error {
	return &ExecutionError{Op: OpInvokestatic, Msg: fmt.Sprintf("call depth exceeded max_call_depth=%d", max)}
}

func errUnimplementedOpcode(op Opcode) error {
	return &ExecutionError{Op: op, Msg: "unimplemented opcode"}
}
