package ext

import "testing"

func TestResolveIndirectTreeDirectBlocks(t *testing.T) {
	ref := make([]byte, 60)
	putU32(ref, 0, 10)
	putU32(ref, 4, 11)
	putU32(ref, 8, 0) // sparse hole
	putU32(ref, 12, 12)

	ctx := newTestContext(newMemSource(4096), 1024)
	extents, err := resolveIndirectTree(ref, ctx, 4)
	if err != nil {
		t.Fatalf("resolveIndirectTree: %v", err)
	}

	if len(extents) != 3 {
		t.Fatalf("got %d extents, want 3 (merged run, hole, run): %+v", len(extents), extents)
	}
	if extents[0].PhysicalBlock != 10 || extents[0].Length != 2 {
		t.Errorf("first run = %+v", extents[0])
	}
	if !extents[1].Sparse || extents[1].Length != 1 {
		t.Errorf("hole = %+v", extents[1])
	}
	if extents[2].PhysicalBlock != 12 || extents[2].Length != 1 {
		t.Errorf("last run = %+v", extents[2])
	}
}

func TestResolveIndirectTreeZeroSingleIndirectIsSparse(t *testing.T) {
	ref := make([]byte, 60)
	// no direct blocks; single-indirect pointer is zero
	ctx := newTestContext(newMemSource(4096), 1024)
	pointersPerBlock := uint32(1024 / 4)

	extents, err := resolveIndirectTree(ref, ctx, 12+pointersPerBlock)
	if err != nil {
		t.Fatalf("resolveIndirectTree: %v", err)
	}
	if len(extents) != 1 || !extents[0].Sparse {
		t.Fatalf("expected a single sparse run, got %+v", extents)
	}
	if extents[0].Length != 12+uint64(pointersPerBlock) {
		t.Errorf("sparse run length = %d, want %d", extents[0].Length, 12+pointersPerBlock)
	}
}

func TestWalkPointerBlockSelfReferenceDetected(t *testing.T) {
	src := newMemSource(8192)
	// block 5's own pointer table contains a pointer back to block 5.
	putU32(src.buf, 5*1024, 5)
	ctx := newTestContext(src, 1024)

	w := &indirectWalker{ctx: ctx, remaining: 1024 / 4, pointersPerBlock: 1024 / 4}
	if err := w.walkPointerBlock(5, 1, 0); err == nil {
		t.Fatal("expected a self-reference cycle error")
	}
}

func TestAppendRunMergesContiguousPhysicalBlocks(t *testing.T) {
	w := &indirectWalker{}
	w.appendRun(100, 1)
	w.logical++
	w.appendRun(101, 1)
	if len(w.out) != 1 || w.out[0].Length != 2 {
		t.Errorf("expected one merged extent of length 2, got %+v", w.out)
	}
}
