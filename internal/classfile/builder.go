package classfile

// Builder assembles a Class programmatically, mirroring chazu-maggie's
// CompiledMethodBuilder fluent-builder shape. It exists so tests (and any
// future bytecode assembler) can construct a Class without round-tripping
// through the binary format.
type Builder struct {
	class *Class
}

// NewBuilder starts an empty class with no constant pool entries and no
// methods.
func NewBuilder() *Builder {
	return &Builder{class: &Class{}}
}

// AddUtf8 appends a Utf8 constant and returns its 1-indexed pool index.
func (b *Builder) AddUtf8(s string) uint16 {
	b.class.pool = append(b.class.pool, Utf8Constant{Value: s})
	return uint16(len(b.class.pool))
}

// AddInteger appends an Integer constant and returns its 1-indexed pool
// index (used to build ldc operands).
func (b *Builder) AddInteger(v int32) uint16 {
	b.class.pool = append(b.class.pool, IntegerConstant{Value: v})
	return uint16(len(b.class.pool))
}

// AddClass appends a Class constant referencing nameIndex.
func (b *Builder) AddClass(nameIndex uint16) uint16 {
	b.class.pool = append(b.class.pool, ClassConstant{NameIndex: nameIndex})
	return uint16(len(b.class.pool))
}

// AddNameAndType appends a NameAndType constant.
func (b *Builder) AddNameAndType(nameIndex, descriptorIndex uint16) uint16 {
	b.class.pool = append(b.class.pool, NameAndTypeConstant{NameIndex: nameIndex, DescriptorIndex: descriptorIndex})
	return uint16(len(b.class.pool))
}

// AddMethodref appends a Methodref constant.
func (b *Builder) AddMethodref(classIndex, nameAndTypeIndex uint16) uint16 {
	b.class.pool = append(b.class.pool, MethodrefConstant{ClassIndex: classIndex, NameAndTypeIndex: nameAndTypeIndex})
	return uint16(len(b.class.pool))
}

// AddMethodrefForMethod is a convenience wrapper over AddUtf8 + AddNameAndType
// + AddMethodref for the common case of building an invokestatic operand.
func (b *Builder) AddMethodrefForMethod(name, descriptor string) uint16 {
	nameIdx := b.AddUtf8(name)
	descIdx := b.AddUtf8(descriptor)
	ntIdx := b.AddNameAndType(nameIdx, descIdx)
	return b.AddMethodref(0, ntIdx)
}

// AddMethod registers a fully formed method (including its Code, if any).
func (b *Builder) AddMethod(m *Method) {
	b.class.Methods = append(b.class.Methods, m)
}

// Build returns the assembled class.
func (b *Builder) Build() *Class {
	return b.class
}
