package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

type fakeHeap struct {
	arrays [][]int32
}

func (f *fakeHeap) Snapshot() [][]int32 {
	return f.arrays
}

func TestDumpWritesDecodableCBOR(t *testing.T) {
	heap := &fakeHeap{arrays: [][]int32{{3, 10, 20, 30}, {0}}}
	path := filepath.Join(t.TempDir(), "heap.cbor")

	if err := Dump(heap, path); err != nil {
		t.Fatalf("Dump returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}

	var got [][]int32
	if err := cbor.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding dump: %v", err)
	}
	if len(got) != 2 || got[0][0] != 3 || got[0][1] != 10 {
		t.Errorf("decoded snapshot = %v, want [[3 10 20 30] [0]]", got)
	}
}
