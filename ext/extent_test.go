package ext

import "testing"

// buildExtentLeafNode returns a 12-byte header plus n leaf entries.
func buildExtentLeafNode(entries []Extent) []byte {
	b := make([]byte, extentHeaderLen+len(entries)*extentEntryLen)
	putU16(b, 0, extentSignature)
	putU16(b, 2, uint16(len(entries)))
	putU16(b, 4, uint16(len(entries)+1))
	putU16(b, 6, 0) // depth 0: leaf

	for idx, e := range entries {
		off := extentHeaderLen + idx*extentEntryLen
		putU32(b, off, e.LogicalBlock)
		length := uint16(e.Length)
		if e.Sparse {
			length += extentSparseBias
		}
		putU16(b, off+4, length)
		putU16(b, off+6, uint16(e.PhysicalBlock>>32))
		putU32(b, off+8, uint32(e.PhysicalBlock))
	}
	return b
}

func TestWalkExtentNodeLeaf(t *testing.T) {
	node := buildExtentLeafNode([]Extent{
		{LogicalBlock: 0, PhysicalBlock: 100, Length: 4},
		{LogicalBlock: 4, PhysicalBlock: 200, Length: 2},
	})
	ctx := newTestContext(newMemSource(4096), 1024)

	leaves, err := walkExtentNode(node, ctx, 0, -1)
	if err != nil {
		t.Fatalf("walkExtentNode: %v", err)
	}
	if len(leaves) != 2 {
		t.Fatalf("got %d leaves, want 2", len(leaves))
	}
	if leaves[0].PhysicalBlock != 100 || leaves[1].PhysicalBlock != 200 {
		t.Errorf("unexpected leaves: %+v", leaves)
	}
}

func TestWalkExtentNodeSparseBias(t *testing.T) {
	node := buildExtentLeafNode([]Extent{{LogicalBlock: 0, PhysicalBlock: 0, Length: 5, Sparse: true}})
	ctx := newTestContext(newMemSource(4096), 1024)

	leaves, err := walkExtentNode(node, ctx, 0, -1)
	if err != nil {
		t.Fatalf("walkExtentNode: %v", err)
	}
	if !leaves[0].Sparse || leaves[0].Length != 5 {
		t.Errorf("unexpected sparse leaf: %+v", leaves[0])
	}
}

func TestWalkExtentNodeRejectsBadSignature(t *testing.T) {
	node := buildExtentLeafNode([]Extent{{LogicalBlock: 0, PhysicalBlock: 1, Length: 1}})
	putU16(node, 0, 0xdead)
	ctx := newTestContext(newMemSource(4096), 1024)
	if _, err := walkExtentNode(node, ctx, 0, -1); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestWalkExtentNodeRejectsNonDecreasingDepth(t *testing.T) {
	node := buildExtentLeafNode([]Extent{{LogicalBlock: 0, PhysicalBlock: 1, Length: 1}})
	putU16(node, 6, 2) // depth 2, but parent is also depth 2
	ctx := newTestContext(newMemSource(4096), 1024)
	if _, err := walkExtentNode(node, ctx, 1, 2); err == nil {
		t.Fatal("expected rejection of non-strictly-decreasing depth")
	}
}

func TestFillSparseGaps(t *testing.T) {
	leaves := []Extent{
		{LogicalBlock: 2, PhysicalBlock: 50, Length: 3},
	}
	out := fillSparseGaps(leaves, 10)
	if len(out) != 3 {
		t.Fatalf("got %d extents, want 3 (leading gap, data, trailing gap): %+v", len(out), out)
	}
	if !out[0].Sparse || out[0].LogicalBlock != 0 || out[0].Length != 2 {
		t.Errorf("leading gap = %+v", out[0])
	}
	if out[1].PhysicalBlock != 50 {
		t.Errorf("data extent = %+v", out[1])
	}
	if !out[2].Sparse || out[2].LogicalBlock != 5 || out[2].Length != 5 {
		t.Errorf("trailing gap = %+v", out[2])
	}
}
