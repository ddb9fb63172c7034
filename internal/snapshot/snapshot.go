// Package snapshot dumps the heap's int-array table to a CBOR-encoded file.
// The heap is append-only and never freed mid-run (spec.md §3), so a
// snapshot is always write-only: there is no restore path, nothing to
// reconcile against a live heap.
package snapshot

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Heap is the read side of internal/vm.Heap this package depends on,
// kept narrow to avoid importing internal/vm just for a dump helper.
type Heap interface {
	Snapshot() [][]int32
}

// Dump encodes every array currently on h and writes it to path.
func Dump(h Heap, path string) error {
	data, err := cbor.Marshal(h.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding heap snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing heap snapshot to %s: %w", path, err)
	}
	return nil
}
