package ext

import "testing"

func TestIsEmptyRecord(t *testing.T) {
	if !isEmptyRecord(make([]byte, 128)) {
		t.Error("all-zero record should be empty")
	}
	nonEmpty := make([]byte, 128)
	nonEmpty[40] = 1
	if isEmptyRecord(nonEmpty) {
		t.Error("record with a set byte should not be empty")
	}
}

func TestDecodeTimestamp(t *testing.T) {
	nanos, err := decodeTimestamp(100, 0)
	if err != nil {
		t.Fatalf("decodeTimestamp: %v", err)
	}
	if nanos != 100_000_000_000 {
		t.Errorf("nanos = %d, want %d", nanos, 100_000_000_000)
	}

	// extra's low 2 bits widen seconds into the 33rd/34th bit; extra>>2
	// is additional nanoseconds.
	nanos, err = decodeTimestamp(0, 1|(500<<2))
	if err != nil {
		t.Fatalf("decodeTimestamp: %v", err)
	}
	want := (int64(1) << 32) * 1_000_000_000 + 500
	if nanos != want {
		t.Errorf("nanos = %d, want %d", nanos, want)
	}
}

func TestDecodeTimestampRejectsOutOfRangeNanoseconds(t *testing.T) {
	if _, err := decodeTimestamp(0, 1_000_000_000<<2); err == nil {
		t.Fatal("expected rejection of a nanoseconds field >= 1e9")
	}
}

func buildInodeRecord(size int) []byte {
	return make([]byte, size)
}

func TestDecodeInodeEmptyRecord(t *testing.T) {
	b := buildInodeRecord(128)
	ctx := newTestContext(newMemSource(4096), 1024)
	inode, err := decodeInode(b, 7, ctx, false)
	if err != nil {
		t.Fatalf("decodeInode: %v", err)
	}
	if !inode.Empty {
		t.Error("expected Empty == true for an all-zero record")
	}
	if inode.Number != 7 {
		t.Errorf("Number = %d, want 7", inode.Number)
	}
}

func TestDecodeInodeSymlinkInline(t *testing.T) {
	b := buildInodeRecord(128)
	target := "/bin/bash"
	putU16(b, 0x0, uint16(FileTypeSymlink)|0o777)
	putU32(b, 0x4, uint32(len(target)))
	copy(b[0x28:], target)

	ctx := newTestContext(newMemSource(4096), 1024)
	inode, err := decodeInode(b, 2, ctx, false)
	if err != nil {
		t.Fatalf("decodeInode: %v", err)
	}
	if inode.LinkTarget() != target {
		t.Errorf("LinkTarget() = %q, want %q", inode.LinkTarget(), target)
	}
	if len(inode.Extents()) != 0 {
		t.Errorf("expected no extents for an inline symlink, got %d", len(inode.Extents()))
	}
}

func TestDecodeInodeRejectsUnsupportedFlags(t *testing.T) {
	b := buildInodeRecord(128)
	putU16(b, 0x0, uint16(FileTypeRegular)|0o644)
	putU32(b, 0x20, 0x4) // the compressed-file flag, deliberately unsupported
	ctx := newTestContext(newMemSource(4096), 1024)
	if _, err := decodeInode(b, 2, ctx, false); err == nil {
		t.Fatal("expected rejection of an unsupported inode flag")
	}
}

func TestDecodeInodeDeviceNumbersOldEncoding(t *testing.T) {
	b := buildInodeRecord(128)
	putU16(b, 0x0, uint16(FileTypeCharacterDevice)|0o644)
	putU32(b, 0x28, (8<<8)|1) // major 8, minor 1, old encoding
	ctx := newTestContext(newMemSource(4096), 1024)
	inode, err := decodeInode(b, 2, ctx, false)
	if err != nil {
		t.Fatalf("decodeInode: %v", err)
	}
	major, minor, ok := inode.DeviceNumbers()
	if !ok {
		t.Fatal("expected DeviceNumbers ok == true for a character device")
	}
	if major != 8 || minor != 1 {
		t.Errorf("DeviceNumbers() = (%d, %d), want (8, 1)", major, minor)
	}
}

func TestDecodeInodeExtendedAttributeFlagSkipsTimestamps(t *testing.T) {
	b := buildInodeRecord(128)
	putU16(b, 0x0, uint16(FileTypeRegular)|0o644)
	putU32(b, 0x20, inodeFlagExtendedAttributes)
	putU32(b, 0x8, 0xffffffff) // would otherwise decode as a timestamp
	ctx := newTestContext(newMemSource(4096), 1024)
	inode, err := decodeInode(b, 2, ctx, false)
	if err != nil {
		t.Fatalf("decodeInode: %v", err)
	}
	if inode.AccessTimeNanos != 0 {
		t.Errorf("AccessTimeNanos = %d, want 0 (repurposed field, not a timestamp)", inode.AccessTimeNanos)
	}
}
