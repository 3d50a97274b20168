package ext

import "testing"

func TestInodeCloneIsIndependent(t *testing.T) {
	orig := &Inode{Number: 1, extents: []Extent{{LogicalBlock: 0, Length: 1}}}
	clone := orig.clone()
	clone.extents[0].Length = 99
	if orig.extents[0].Length == 99 {
		t.Error("mutating a clone's extents should not affect the original")
	}
	clone.Number = 2
	if orig.Number == 2 {
		t.Error("mutating a clone's scalar fields should not affect the original")
	}
}

func TestFindExtentForBlock(t *testing.T) {
	extents := []Extent{
		{LogicalBlock: 0, PhysicalBlock: 10, Length: 2},
		{LogicalBlock: 2, PhysicalBlock: 0, Length: 3, Sparse: true},
		{LogicalBlock: 5, PhysicalBlock: 20, Length: 1},
	}
	if e, ok := findExtentForBlock(extents, 1); !ok || e.PhysicalBlock != 10 {
		t.Errorf("block 1: got %+v, %v", e, ok)
	}
	if e, ok := findExtentForBlock(extents, 3); !ok || !e.Sparse {
		t.Errorf("block 3: got %+v, %v", e, ok)
	}
	if _, ok := findExtentForBlock(extents, 99); ok {
		t.Error("block 99: expected no covering extent")
	}
}

func TestFileEntryReadAtOutOfRange(t *testing.T) {
	f := &FileEntry{
		vol:   &Volume{ctx: newTestContext(newMemSource(4096), 1024)},
		inode: &Inode{FileType: FileTypeRegular, Size: 5},
	}
	if _, err := f.ReadAt(make([]byte, 1), -1); err == nil {
		t.Error("expected an error for a negative offset")
	}
	if _, err := f.ReadAt(make([]byte, 1), 5); err == nil {
		t.Error("expected io.EOF for an offset at end-of-file")
	}
}

func TestFileEntryReadAtRejectsDirectory(t *testing.T) {
	f := &FileEntry{inode: &Inode{FileType: FileTypeDirectory}}
	if _, err := f.ReadAt(make([]byte, 1), 0); err == nil {
		t.Error("expected an error reading a directory as a byte stream")
	}
}

func TestFileEntryInlineData(t *testing.T) {
	f := &FileEntry{inode: &Inode{layout: layoutInlineData, Size: 3, DataReference: [60]byte{'a', 'b', 'c'}}}
	if got := string(f.InlineData()); got != "abc" {
		t.Errorf("InlineData() = %q, want %q", got, "abc")
	}

	notInline := &FileEntry{inode: &Inode{layout: layoutExtents}}
	if notInline.InlineData() != nil {
		t.Error("InlineData() should be nil for a non-inline-data layout")
	}
}
