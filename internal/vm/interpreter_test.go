package vm

import (
	"testing"

	"github.com/chazu/teenyjvm/internal/classfile"
)

func runMethod(t *testing.T, code []byte, maxLocals, maxStack int, args []int32) (int32, bool) {
	t.Helper()
	method := &classfile.Method{
		Name:       "test",
		Descriptor: "(I)I",
		MaxLocals:  maxLocals,
		MaxStack:   maxStack,
		Code:       code,
	}
	class := classfile.NewBuilder().Build()
	class.Methods = []*classfile.Method{method}

	interp := New(class, NewHeap())
	value, hasValue, err := interp.Run(method, args)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return value, hasValue
}

func TestAddTwoBipush(t *testing.T) {
	code := []byte{byte(OpBipush), 5, byte(OpBipush), 7, byte(OpIadd), byte(OpIreturn)}
	got, hasValue := runMethod(t, code, 0, 2, nil)
	if !hasValue || got != 12 {
		t.Errorf("got %d, hasValue=%v; want 12, true", got, hasValue)
	}
}

func TestMulTwoSipush(t *testing.T) {
	code := []byte{
		byte(OpSipush), 0x03, 0xe8, // 1000
		byte(OpSipush), 0x03, 0xe8, // 1000
		byte(OpImul),
		byte(OpIreturn),
	}
	got, hasValue := runMethod(t, code, 0, 2, nil)
	if !hasValue || got != 1000000 {
		t.Errorf("got %d, hasValue=%v; want 1000000, true", got, hasValue)
	}
}

func TestShiftLeftNegative(t *testing.T) {
	code := []byte{byte(OpIconstM1), byte(OpBipush), 3, byte(OpIshl), byte(OpIreturn)}
	got, hasValue := runMethod(t, code, 0, 2, nil)
	if !hasValue || got != -8 {
		t.Errorf("got %d, hasValue=%v; want -8, true", got, hasValue)
	}
}

func TestUnsignedShiftRightNegative(t *testing.T) {
	code := []byte{byte(OpIconstM1), byte(OpBipush), 1, byte(OpIushr), byte(OpIreturn)}
	got, hasValue := runMethod(t, code, 0, 2, nil)
	if !hasValue || got != 2147483647 {
		t.Errorf("got %d, hasValue=%v; want 2147483647, true", got, hasValue)
	}
}

func TestDivisionByZeroIsFatal(t *testing.T) {
	code := []byte{byte(OpBipush), 1, byte(OpIconst0), byte(OpIdiv), byte(OpIreturn)}
	method := &classfile.Method{Name: "test", Descriptor: "()I", MaxLocals: 0, MaxStack: 2, Code: code}
	class := classfile.NewBuilder().Build()
	class.Methods = []*classfile.Method{method}
	interp := New(class, NewHeap())
	_, _, err := interp.Run(method, nil)
	if err == nil {
		t.Fatal("expected a division-by-zero error, got nil")
	}
}

// TestLoopSum mirrors the classic `for (i=0;i<10;i++) sum += i;` shape:
// local 0 is the running sum, local 1 is the loop counter.
func TestLoopSum(t *testing.T) {
	code := []byte{
		/* 0  */ byte(OpIload1),
		/* 1  */ byte(OpBipush), 10,
		/* 3  */ byte(OpIfIcmpge), 0x00, 0x0d, // -> 16
		/* 6  */ byte(OpIload0),
		/* 7  */ byte(OpIload1),
		/* 8  */ byte(OpIadd),
		/* 9  */ byte(OpIstore0),
		/* 10 */ byte(OpIinc), 1, 1,
		/* 13 */ byte(OpGoto), 0xff, 0xf3, // -> 0
		/* 16 */ byte(OpIload0),
		/* 17 */ byte(OpIreturn),
	}
	got, hasValue := runMethod(t, code, 2, 4, nil)
	if !hasValue || got != 45 {
		t.Errorf("got %d, hasValue=%v; want 45, true", got, hasValue)
	}
}

// TestFactorial builds a self-recursive factorial(I)I and runs factorial(5).
func TestFactorial(t *testing.T) {
	b := classfile.NewBuilder()
	methodrefIdx := b.AddMethodrefForMethod("factorial", "(I)I")

	code := []byte{
		/* 0  */ byte(OpIload0),
		/* 1  */ byte(OpIconst1),
		/* 2  */ byte(OpIfIcmple), 0x00, 0x0c, // -> 14
		/* 5  */ byte(OpIload0),
		/* 6  */ byte(OpIload0),
		/* 7  */ byte(OpIconst1),
		/* 8  */ byte(OpIsub),
		/* 9  */ byte(OpInvokestatic), byte(methodrefIdx >> 8), byte(methodrefIdx),
		/* 12 */ byte(OpImul),
		/* 13 */ byte(OpIreturn),
		/* 14 */ byte(OpIconst1),
		/* 15 */ byte(OpIreturn),
	}
	method := &classfile.Method{Name: "factorial", Descriptor: "(I)I", MaxLocals: 1, MaxStack: 4, Code: code}
	b.AddMethod(method)
	class := b.Build()

	interp := New(class, NewHeap())
	got, hasValue, err := interp.Run(method, []int32{5})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !hasValue || got != 120 {
		t.Errorf("factorial(5) = %d, hasValue=%v; want 120, true", got, hasValue)
	}
}

// TestIntArrayStoreLoad allocates an int array, stores a value, and reads it
// back through the same handle.
func TestIntArrayStoreLoad(t *testing.T) {
	code := []byte{
		/* 0  */ byte(OpBipush), 5,
		/* 2  */ byte(OpNewarray), 10, // T_INT
		/* 4  */ byte(OpAstore0),
		/* 5  */ byte(OpAload0),
		/* 6  */ byte(OpBipush), 2,
		/* 8  */ byte(OpBipush), 20,
		/* 10 */ byte(OpIastore),
		/* 11 */ byte(OpAload0),
		/* 12 */ byte(OpBipush), 2,
		/* 14 */ byte(OpIaload),
		/* 15 */ byte(OpIreturn),
	}
	got, hasValue := runMethod(t, code, 1, 4, nil)
	if !hasValue || got != 20 {
		t.Errorf("got %d, hasValue=%v; want 20, true", got, hasValue)
	}
}

// TestFallOffEndYieldsNoValue covers a method whose code block ends without
// an explicit return opcode: it must yield (0, false, nil), not panic.
func TestFallOffEndYieldsNoValue(t *testing.T) {
	code := []byte{byte(OpBipush), 5, byte(OpNop)}
	got, hasValue := runMethod(t, code, 0, 2, nil)
	if hasValue || got != 0 {
		t.Errorf("got %d, hasValue=%v; want 0, false", got, hasValue)
	}
}

// TestEmptyCodeBlockYieldsNoValue is the trivial case of falling off the end:
// a method whose Code is empty.
func TestEmptyCodeBlockYieldsNoValue(t *testing.T) {
	got, hasValue := runMethod(t, nil, 0, 0, nil)
	if hasValue || got != 0 {
		t.Errorf("got %d, hasValue=%v; want 0, false", got, hasValue)
	}
}

func TestArrayIndexOutOfBoundsIsFatal(t *testing.T) {
	code := []byte{
		byte(OpBipush), 2,
		byte(OpNewarray), 10,
		byte(OpBipush), 5, // out of range: array has 2 elements
		byte(OpIaload),
		byte(OpIreturn),
	}
	method := &classfile.Method{Name: "test", Descriptor: "()I", MaxLocals: 0, MaxStack: 4, Code: code}
	class := classfile.NewBuilder().Build()
	class.Methods = []*classfile.Method{method}
	interp := New(class, NewHeap())
	if _, _, err := interp.Run(method, nil); err == nil {
		t.Fatal("expected an out-of-bounds error, got nil")
	}
}
