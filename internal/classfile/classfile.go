// Package classfile parses the class-file binary format down to the subset
// the bytecode interpreter needs: the constant pool, and each method's Code
// attribute (spec.md §6 lists this as an external collaborator of the CORE;
// this package is the concrete implementation behind that interface).
package classfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const magic = 0xCAFEBABE

// Constant pool tags (JVMS §4.4).
const (
	tagUtf8              = 1
	tagInteger           = 3
	tagFloat             = 4
	tagLong              = 5
	tagDouble            = 6
	tagClass             = 7
	tagString            = 8
	tagFieldref          = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType       = 12
	tagMethodHandle      = 15
	tagMethodType        = 16
	tagDynamic           = 17
	tagInvokeDynamic     = 18
	tagModule            = 19
	tagPackage           = 20
)

// Access flags relevant to methods.
const (
	AccStatic = 0x0008
)

// ConstantPoolEntry is one entry of the class's constant pool. Concrete
// types are the *Constant structs below; unsupported tags (MethodHandle,
// InvokeDynamic, ...) are parsed far enough to preserve pool indices but
// surface as unsupportedConstant if ever resolved.
type ConstantPoolEntry interface {
	constantPoolEntry()
}

type Utf8Constant struct{ Value string }
type IntegerConstant struct{ Value int32 }
type FloatConstant struct{ Value float32 }
type LongConstant struct{ Value int64 }
type DoubleConstant struct{ Value float64 }
type ClassConstant struct{ NameIndex uint16 }
type StringConstant struct{ StringIndex uint16 }
type FieldrefConstant struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}
type MethodrefConstant struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}
type InterfaceMethodrefConstant struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}
type NameAndTypeConstant struct {
	NameIndex       uint16
	DescriptorIndex uint16
}
type unsupportedConstant struct{ tag byte }

func (Utf8Constant) constantPoolEntry()               {}
func (IntegerConstant) constantPoolEntry()            {}
func (FloatConstant) constantPoolEntry()              {}
func (LongConstant) constantPoolEntry()               {}
func (DoubleConstant) constantPoolEntry()             {}
func (ClassConstant) constantPoolEntry()              {}
func (StringConstant) constantPoolEntry()             {}
func (FieldrefConstant) constantPoolEntry()           {}
func (MethodrefConstant) constantPoolEntry()          {}
func (InterfaceMethodrefConstant) constantPoolEntry() {}
func (NameAndTypeConstant) constantPoolEntry()        {}
func (unsupportedConstant) constantPoolEntry()        {}

// Method is a parsed method: its signature and, when present, its Code
// attribute. Methods without a Code attribute (abstract/native) carry a nil
// Code slice; the CORE never invokes those.
type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string

	MaxStack  int
	MaxLocals int
	Code      []byte
}

// IsStatic reports whether the method was declared static.
func (m *Method) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

// Class is the in-memory class image spec.md §3 describes: constant pool
// plus the method table. Fields and interfaces are consumed during parsing
// (to keep section offsets correct) but not retained — this subset never
// references instance state.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16

	// pool is 0-indexed internally; wire indices are 1-based, so
	// pool[i] holds the entry for wire index i+1 (spec.md §6).
	pool []ConstantPoolEntry

	AccessFlags uint16
	ThisClass   uint16
	SuperClass  uint16

	Methods []*Method
}

type parser struct {
	r *bufio.Reader
}

// Parse reads the full binary format from r and returns the resulting class
// image, or a descriptive error for a malformed or truncated file.
func Parse(r io.Reader) (*Class, error) {
	p := &parser{r: bufio.NewReader(r)}

	magicWord, err := p.u4()
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if magicWord != magic {
		return nil, fmt.Errorf("not a class file: magic = %#08x, want %#08x", magicWord, magic)
	}

	minor, err := p.u2()
	if err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	major, err := p.u2()
	if err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}

	pool, err := p.readConstantPool()
	if err != nil {
		return nil, fmt.Errorf("reading constant pool: %w", err)
	}

	c := &Class{MinorVersion: minor, MajorVersion: major, pool: pool}

	if c.AccessFlags, err = p.u2(); err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	if c.ThisClass, err = p.u2(); err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	if c.SuperClass, err = p.u2(); err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}

	ifaceCount, err := p.u2()
	if err != nil {
		return nil, fmt.Errorf("reading interfaces_count: %w", err)
	}
	for i := 0; i < int(ifaceCount); i++ {
		if _, err := p.u2(); err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
	}

	if err := p.skipFields(); err != nil {
		return nil, fmt.Errorf("reading fields: %w", err)
	}

	methods, err := p.readMethods(c)
	if err != nil {
		return nil, fmt.Errorf("reading methods: %w", err)
	}
	c.Methods = methods

	// Class-level attributes (SourceFile, etc.) are not needed; skip them.
	if err := p.skipAttributes(); err != nil {
		return nil, fmt.Errorf("reading class attributes: %w", err)
	}

	return c, nil
}

func (p *parser) u1() (uint8, error) {
	return p.r.ReadByte()
}

func (p *parser) u2() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(p.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (p *parser) u4() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(p.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (p *parser) u8() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(p.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (p *parser) bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// readConstantPool reads constant_pool_count-1 entries. Long and Double
// entries occupy two pool slots per JVMS §4.4.5 ("the next usable item"
// quirk); this loop accounts for that by inserting a placeholder nil at the
// skipped index.
func (p *parser) readConstantPool() ([]ConstantPoolEntry, error) {
	count, err := p.u2()
	if err != nil {
		return nil, err
	}
	pool := make([]ConstantPoolEntry, count-1)
	for i := 0; i < int(count)-1; i++ {
		tag, err := p.u1()
		if err != nil {
			return nil, fmt.Errorf("entry %d: reading tag: %w", i+1, err)
		}
		entry, wide, err := p.readConstant(tag)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		pool[i] = entry
		if wide {
			i++ // next index is unusable; leave it nil and advance past it
		}
	}
	return pool, nil
}

func (p *parser) readConstant(tag uint8) (entry ConstantPoolEntry, wide bool, err error) {
	switch tag {
	case tagUtf8:
		n, err := p.u2()
		if err != nil {
			return nil, false, err
		}
		b, err := p.bytes(int(n))
		if err != nil {
			return nil, false, err
		}
		return Utf8Constant{Value: string(b)}, false, nil
	case tagInteger:
		v, err := p.u4()
		if err != nil {
			return nil, false, err
		}
		return IntegerConstant{Value: int32(v)}, false, nil
	case tagFloat:
		v, err := p.u4()
		if err != nil {
			return nil, false, err
		}
		return FloatConstant{Value: math.Float32frombits(v)}, false, nil
	case tagLong:
		v, err := p.u8()
		if err != nil {
			return nil, false, err
		}
		return LongConstant{Value: int64(v)}, true, nil
	case tagDouble:
		v, err := p.u8()
		if err != nil {
			return nil, false, err
		}
		return DoubleConstant{Value: math.Float64frombits(v)}, true, nil
	case tagClass:
		idx, err := p.u2()
		if err != nil {
			return nil, false, err
		}
		return ClassConstant{NameIndex: idx}, false, nil
	case tagString:
		idx, err := p.u2()
		if err != nil {
			return nil, false, err
		}
		return StringConstant{StringIndex: idx}, false, nil
	case tagFieldref:
		cls, nt, err := p.readRefPair()
		if err != nil {
			return nil, false, err
		}
		return FieldrefConstant{ClassIndex: cls, NameAndTypeIndex: nt}, false, nil
	case tagMethodref:
		cls, nt, err := p.readRefPair()
		if err != nil {
			return nil, false, err
		}
		return MethodrefConstant{ClassIndex: cls, NameAndTypeIndex: nt}, false, nil
	case tagInterfaceMethodref:
		cls, nt, err := p.readRefPair()
		if err != nil {
			return nil, false, err
		}
		return InterfaceMethodrefConstant{ClassIndex: cls, NameAndTypeIndex: nt}, false, nil
	case tagNameAndType:
		name, desc, err := p.readRefPair()
		if err != nil {
			return nil, false, err
		}
		return NameAndTypeConstant{NameIndex: name, DescriptorIndex: desc}, false, nil
	case tagMethodHandle:
		if _, err := p.u1(); err != nil {
			return nil, false, err
		}
		if _, err := p.u2(); err != nil {
			return nil, false, err
		}
		return unsupportedConstant{tag: tag}, false, nil
	case tagMethodType:
		if _, err := p.u2(); err != nil {
			return nil, false, err
		}
		return unsupportedConstant{tag: tag}, false, nil
	case tagDynamic, tagInvokeDynamic:
		if _, err := p.u2(); err != nil {
			return nil, false, err
		}
		if _, err := p.u2(); err != nil {
			return nil, false, err
		}
		return unsupportedConstant{tag: tag}, false, nil
	case tagModule, tagPackage:
		if _, err := p.u2(); err != nil {
			return nil, false, err
		}
		return unsupportedConstant{tag: tag}, false, nil
	default:
		return nil, false, fmt.Errorf("unknown constant pool tag %d", tag)
	}
}

func (p *parser) readRefPair() (uint16, uint16, error) {
	a, err := p.u2()
	if err != nil {
		return 0, 0, err
	}
	b, err := p.u2()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (p *parser) skipFields() error {
	count, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err := p.u2(); err != nil { // access_flags
			return err
		}
		if _, err := p.u2(); err != nil { // name_index
			return err
		}
		if _, err := p.u2(); err != nil { // descriptor_index
			return err
		}
		if err := p.skipAttributes(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) readMethods(c *Class) ([]*Method, error) {
	count, err := p.u2()
	if err != nil {
		return nil, err
	}
	methods := make([]*Method, 0, count)
	for i := 0; i < int(count); i++ {
		m := &Method{}
		if m.AccessFlags, err = p.u2(); err != nil {
			return nil, err
		}
		nameIdx, err := p.u2()
		if err != nil {
			return nil, err
		}
		descIdx, err := p.u2()
		if err != nil {
			return nil, err
		}
		m.Name, err = c.utf8(nameIdx)
		if err != nil {
			return nil, fmt.Errorf("method %d name: %w", i, err)
		}
		m.Descriptor, err = c.utf8(descIdx)
		if err != nil {
			return nil, fmt.Errorf("method %d descriptor: %w", i, err)
		}

		attrCount, err := p.u2()
		if err != nil {
			return nil, err
		}
		for a := 0; a < int(attrCount); a++ {
			nameIdx, err := p.u2()
			if err != nil {
				return nil, err
			}
			length, err := p.u4()
			if err != nil {
				return nil, err
			}
			attrName, err := c.utf8(nameIdx)
			if err != nil {
				return nil, err
			}
			if attrName == "Code" {
				if err := p.readCodeInto(m); err != nil {
					return nil, fmt.Errorf("method %d Code attribute: %w", i, err)
				}
				continue
			}
			if _, err := p.bytes(int(length)); err != nil {
				return nil, err
			}
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// readCodeInto reads a Code attribute's body (the attribute's name_index and
// length have already been consumed by the caller).
func (p *parser) readCodeInto(m *Method) error {
	maxStack, err := p.u2()
	if err != nil {
		return err
	}
	maxLocals, err := p.u2()
	if err != nil {
		return err
	}
	codeLength, err := p.u4()
	if err != nil {
		return err
	}
	code, err := p.bytes(int(codeLength))
	if err != nil {
		return err
	}
	m.MaxStack = int(maxStack)
	m.MaxLocals = int(maxLocals)
	m.Code = code

	excCount, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(excCount); i++ {
		if _, err := p.bytes(8); err != nil { // start_pc,end_pc,handler_pc,catch_type
			return err
		}
	}
	return p.skipAttributes()
}

func (p *parser) skipAttributes() error {
	count, err := p.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err := p.u2(); err != nil { // attribute_name_index
			return err
		}
		length, err := p.u4()
		if err != nil {
			return err
		}
		if _, err := p.bytes(int(length)); err != nil {
			return err
		}
	}
	return nil
}

// utf8 resolves a 1-indexed constant-pool reference that must name a Utf8
// entry.
func (c *Class) utf8(index uint16) (string, error) {
	entry, err := c.constant(index)
	if err != nil {
		return "", err
	}
	u, ok := entry.(Utf8Constant)
	if !ok {
		return "", fmt.Errorf("constant %d is not Utf8", index)
	}
	return u.Value, nil
}

func (c *Class) constant(index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) > len(c.pool) {
		return nil, fmt.Errorf("constant pool index %d out of range", index)
	}
	entry := c.pool[index-1]
	if entry == nil {
		return nil, fmt.Errorf("constant pool index %d is the unusable half of a wide entry", index)
	}
	return entry, nil
}

// ConstantInt resolves a 1-indexed Integer constant-pool entry (used by ldc,
// spec.md §4.4 "push a 32-bit integer literal").
func (c *Class) ConstantInt(index uint16) (int32, error) {
	entry, err := c.constant(index)
	if err != nil {
		return 0, err
	}
	i, ok := entry.(IntegerConstant)
	if !ok {
		return 0, fmt.Errorf("constant %d is not an Integer", index)
	}
	return i.Value, nil
}

// FindMethod scans the method table for a name+descriptor match.
func (c *Class) FindMethod(name, descriptor string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return nil, false
}

// FindMethodFromIndex resolves a Methodref constant-pool entry to the
// method it names, within this same class (spec.md §1 Non-goals: class
// loading of multiple classes is out of scope). The Methodref's class_index
// is not checked: the lookup uses only its name and descriptor, so a
// reference to another class resolves to this class's method of the same
// name and descriptor if there is one, and is a "not found" error otherwise.
func (c *Class) FindMethodFromIndex(poolIndex uint16) (*Method, error) {
	entry, err := c.constant(poolIndex)
	if err != nil {
		return nil, err
	}
	ref, ok := entry.(MethodrefConstant)
	if !ok {
		return nil, fmt.Errorf("constant %d is not a Methodref", poolIndex)
	}
	ntEntry, err := c.constant(ref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	nt, ok := ntEntry.(NameAndTypeConstant)
	if !ok {
		return nil, fmt.Errorf("constant %d is not a NameAndType", ref.NameAndTypeIndex)
	}
	name, err := c.utf8(nt.NameIndex)
	if err != nil {
		return nil, err
	}
	descriptor, err := c.utf8(nt.DescriptorIndex)
	if err != nil {
		return nil, err
	}
	m, ok := c.FindMethod(name, descriptor)
	if !ok {
		return nil, fmt.Errorf("method %s%s not found in class", name, descriptor)
	}
	return m, nil
}
