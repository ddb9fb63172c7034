package vm

import "testing"

func TestDecodeU1(t *testing.T) {
	code := []byte{0x00, 0xff, 0x00}
	if got := decodeU1(code, 1); got != 0xff {
		t.Errorf("decodeU1 = %#02x, want 0xff", got)
	}
}

func TestDecodeS1(t *testing.T) {
	code := []byte{0xff}
	if got := decodeS1(code, 0); got != -1 {
		t.Errorf("decodeS1 = %d, want -1", got)
	}
}

func TestDecodeU2BigEndian(t *testing.T) {
	code := []byte{0x01, 0x02}
	if got := decodeU2(code, 0); got != 0x0102 {
		t.Errorf("decodeU2 = %#04x, want 0x0102", got)
	}
}

func TestDecodeS2Negative(t *testing.T) {
	code := []byte{0xff, 0xfe} // -2 as big-endian two's complement
	if got := decodeS2(code, 0); got != -2 {
		t.Errorf("decodeS2 = %d, want -2", got)
	}
}
