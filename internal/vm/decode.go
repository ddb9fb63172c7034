package vm

// decodeU1 reads an unsigned 8-bit immediate at code[pc].
func decodeU1(code []byte, pc int) uint8 {
	return code[pc]
}

// decodeS1 reads a signed 8-bit immediate at code[pc] (push-byte, iinc delta).
func decodeS1(code []byte, pc int) int8 {
	return int8(code[pc])
}

// decodeU2 reads a big-endian unsigned 16-bit immediate (constant-pool and
// method-ref indices).
func decodeU2(code []byte, pc int) uint16 {
	return uint16(code[pc])<<8 | uint16(code[pc+1])
}

// decodeS2 reads a big-endian signed 16-bit immediate (push-short, branch
// offsets), formed as (hi<<8)|lo reinterpreted as signed (spec.md §4.3).
func decodeS2(code []byte, pc int) int16 {
	return int16(decodeU2(code, pc))
}
