package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/teenyjvm/internal/classfile"
)

// Tracer receives observational events as the interpreter runs. It never
// influences execution; a nil Tracer (the default) means no observation.
// internal/trace implements this against a sqlite-backed recorder, and
// internal/snapshot has no need for it (it inspects the Heap after the run
// completes instead).
type Tracer interface {
	TraceCall(methodName, descriptor string, args []int32, depth int)
	TraceReturn(methodName string, hasValue bool, value int32, depth int)
	TracePrint(value int32, depth int)
	TraceInstruction(op Opcode, pc int, depth int)
}

// Interpreter runs the Code of a single loaded class (spec.md §1: multi-class
// loading and linking are explicitly out of scope). It owns the heap and the
// standard-output sink and is not safe for concurrent use — spec.md §5
// specifies single-threaded, synchronous execution, and nothing here
// disagrees.
type Interpreter struct {
	class            *classfile.Class
	heap             *Heap
	maxCallDepth     int
	out              io.Writer
	tracer           Tracer
	instructionTrace bool
}

// Option configures an Interpreter at construction time.
type Option func(*Interpreter)

// WithMaxCallDepth overrides the default recursion ceiling (spec.md §5:
// unbounded native recursion is a resource-exhaustion risk, so the CORE
// enforces a configurable limit rather than trusting the host stack).
func WithMaxCallDepth(depth int) Option {
	return func(i *Interpreter) { i.maxCallDepth = depth }
}

// WithOutput redirects the print emulation's target (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithTracer attaches an observer for calls, returns and prints.
func WithTracer(t Tracer) Option {
	return func(i *Interpreter) { i.tracer = t }
}

// WithInstructionTrace enables a TraceInstruction call before every
// instruction the dispatcher executes (the [run] trace config knob). It has
// no effect without a Tracer attached via WithTracer.
func WithInstructionTrace(enabled bool) Option {
	return func(i *Interpreter) { i.instructionTrace = enabled }
}

const defaultMaxCallDepth = 4096

// New builds an Interpreter over class, backed by heap.
func New(class *classfile.Class, heap *Heap, opts ...Option) *Interpreter {
	i := &Interpreter{
		class:        class,
		heap:         heap,
		maxCallDepth: defaultMaxCallDepth,
		out:          os.Stdout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run invokes method with the given argument locals at call depth 1. It
// returns the method's return value and whether it returned one (a void
// method has hasValue == false), mirroring original_source/jvm.c's
// evalue_t { has_value, value } result.
func (in *Interpreter) Run(method *classfile.Method, args []int32) (value int32, hasValue bool, err error) {
	return in.execute(method, args, 1)
}

func (in *Interpreter) execute(method *classfile.Method, args []int32, depth int) (int32, bool, error) {
	if depth > in.maxCallDepth {
		return 0, false, errCallDepthExceeded(in.maxCallDepth)
	}
	if in.tracer != nil {
		in.tracer.TraceCall(method.Name, method.Descriptor, args, depth)
	}

	frame := NewFrame(method.MaxLocals, method.MaxStack)
	for i, v := range args {
		frame.SetLocal(i, v)
	}

	code := method.Code
	pc := 0

	for {
		// Falling off the end of the code block without an explicit return
		// is not a failure (spec.md §4.4 "Termination", §7 "End-of-method
		// without return"): it yields no value, same as an explicit `return`.
		// This also covers the trivial empty-code-block method.
		if pc >= len(code) {
			if in.tracer != nil {
				in.tracer.TraceReturn(method.Name, false, 0, depth)
			}
			return 0, false, nil
		}

		op := Opcode(decodeU1(code, pc))
		if in.instructionTrace && in.tracer != nil {
			in.tracer.TraceInstruction(op, pc, depth)
		}

		switch op {
		case OpNop:
			pc++

		case OpIconstM1:
			frame.Push(-1)
			pc++
		case OpIconst0:
			frame.Push(0)
			pc++
		case OpIconst1:
			frame.Push(1)
			pc++
		case OpIconst2:
			frame.Push(2)
			pc++
		case OpIconst3:
			frame.Push(3)
			pc++
		case OpIconst4:
			frame.Push(4)
			pc++
		case OpIconst5:
			frame.Push(5)
			pc++

		case OpBipush:
			frame.Push(int32(decodeS1(code, pc+1)))
			pc += 2
		case OpSipush:
			frame.Push(int32(decodeS2(code, pc+1)))
			pc += 3
		case OpLdc:
			idx := decodeU1(code, pc+1)
			v, err := in.class.ConstantInt(uint16(idx))
			if err != nil {
				return 0, false, err
			}
			frame.Push(v)
			pc += 2

		case OpIload, OpAload:
			n := decodeU1(code, pc+1)
			frame.Push(frame.Local(int(n)))
			pc += 2
		case OpIload0, OpAload0:
			frame.Push(frame.Local(0))
			pc++
		case OpIload1, OpAload1:
			frame.Push(frame.Local(1))
			pc++
		case OpIload2, OpAload2:
			frame.Push(frame.Local(2))
			pc++
		case OpIload3, OpAload3:
			frame.Push(frame.Local(3))
			pc++

		case OpIaload:
			index := frame.Pop()
			handle := frame.Pop()
			arr := in.heap.Get(handle)
			if index < 0 || index >= arr[0] {
				return 0, false, errArrayIndexOutOfBounds(op, index, arr[0])
			}
			frame.Push(arr[index+1])
			pc++

		case OpIstore, OpAstore:
			n := decodeU1(code, pc+1)
			frame.SetLocal(int(n), frame.Pop())
			pc += 2
		case OpIstore0, OpAstore0:
			frame.SetLocal(0, frame.Pop())
			pc++
		case OpIstore1, OpAstore1:
			frame.SetLocal(1, frame.Pop())
			pc++
		case OpIstore2, OpAstore2:
			frame.SetLocal(2, frame.Pop())
			pc++
		case OpIstore3, OpAstore3:
			frame.SetLocal(3, frame.Pop())
			pc++

		case OpIastore:
			value := frame.Pop()
			index := frame.Pop()
			handle := frame.Pop()
			arr := in.heap.Get(handle)
			if index < 0 || index >= arr[0] {
				return 0, false, errArrayIndexOutOfBounds(op, index, arr[0])
			}
			arr[index+1] = value
			pc++

		case OpDup:
			frame.Push(frame.Top())
			pc++

		case OpIadd:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(a + b)
			pc++
		case OpIsub:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(a - b)
			pc++
		case OpImul:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(a * b)
			pc++
		case OpIdiv:
			b, a := frame.Pop(), frame.Pop()
			if b == 0 {
				return 0, false, errDivisionByZero(op)
			}
			frame.Push(a / b)
			pc++
		case OpIrem:
			b, a := frame.Pop(), frame.Pop()
			if b == 0 {
				return 0, false, errDivisionByZero(op)
			}
			frame.Push(a % b)
			pc++
		case OpIneg:
			frame.Push(-frame.Pop())
			pc++

		case OpIshl:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(a << (uint32(b) & 0x1f))
			pc++
		case OpIshr:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(a >> (uint32(b) & 0x1f))
			pc++
		case OpIushr:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(int32(uint32(a) >> (uint32(b) & 0x1f)))
			pc++
		case OpIand:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(a & b)
			pc++
		case OpIor:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(a | b)
			pc++
		case OpIxor:
			b, a := frame.Pop(), frame.Pop()
			frame.Push(a ^ b)
			pc++
		case OpIinc:
			n := decodeU1(code, pc+1)
			delta := decodeS1(code, pc+2)
			frame.SetLocal(int(n), frame.Local(int(n))+int32(delta))
			pc += 3

		case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle:
			v := frame.Pop()
			if branchTaken(op, v, 0) {
				pc += int(decodeS2(code, pc+1))
			} else {
				pc += 3
			}
		case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple:
			b, a := frame.Pop(), frame.Pop()
			if branchTaken(op, a, b) {
				pc += int(decodeS2(code, pc+1))
			} else {
				pc += 3
			}
		case OpGoto:
			pc += int(decodeS2(code, pc+1))

		case OpIreturn, OpAreturn:
			v := frame.Pop()
			if in.tracer != nil {
				in.tracer.TraceReturn(method.Name, true, v, depth)
			}
			return v, true, nil
		case OpReturn:
			if in.tracer != nil {
				in.tracer.TraceReturn(method.Name, false, 0, depth)
			}
			return 0, false, nil

		case OpGetstatic:
			// Stands in for resolving System.out: a 3-byte no-op that leaves
			// the stack untouched. Field access proper is out of scope
			// (spec.md Non-goals); together with OpInvokevirtual it exists
			// solely to let println-style calls appear in test classes.
			pc += 3
		case OpInvokevirtual:
			arg := frame.Pop()
			if in.out != nil {
				fmt.Fprintln(in.out, arg)
			}
			if in.tracer != nil {
				in.tracer.TracePrint(arg, depth)
			}
			pc += 3

		case OpInvokestatic:
			idx := decodeU2(code, pc+1)
			callee, err := in.class.FindMethodFromIndex(idx)
			if err != nil {
				return 0, false, err
			}
			paramCount := classfile.ParameterCount(callee.Descriptor)
			args := make([]int32, paramCount)
			for p := paramCount - 1; p >= 0; p-- {
				args[p] = frame.Pop()
			}
			result, hasValue, err := in.execute(callee, args, depth+1)
			if err != nil {
				return 0, false, err
			}
			if hasValue {
				frame.Push(result)
			}
			pc += 3

		case OpNewarray:
			n := frame.Pop()
			if n < 0 {
				return 0, false, errNegativeArraySize(n)
			}
			handle := in.heap.Add(NewIntArray(n))
			frame.Push(handle)
			pc += 2
		case OpArraylength:
			handle := frame.Pop()
			frame.Push(in.heap.Get(handle)[0])
			pc++

		default:
			return 0, false, errUnimplementedOpcode(op)
		}
	}
}

// branchTaken evaluates a comparison opcode's condition. eq/ne/lt/ge/gt/le
// share this table for both the zero-comparing and two-operand forms; a is
// the left operand pushed first (or the sole operand for the zero forms) and
// b is either 0 or the second operand.
func branchTaken(op Opcode, a, b int32) bool {
	switch op {
	case OpIfeq, OpIfIcmpeq:
		return a == b
	case OpIfne, OpIfIcmpne:
		return a != b
	case OpIflt, OpIfIcmplt:
		return a < b
	case OpIfge, OpIfIcmpge:
		return a >= b
	case OpIfgt, OpIfIcmpgt:
		return a > b
	case OpIfle, OpIfIcmple:
		return a <= b
	default:
		return false
	}
}
