package ext

import (
	"encoding/binary"
	"io"
)

// FileEntry is the per-inode view exposed to callers: metadata, file
// content reads by extent, and, for directories, the list of children. Per
// spec.md §4.7's contract, it bundles the io-context, inode table, inode
// number, a cloned inode and the cloned directory entry that named it.
type FileEntry struct {
	vol    *Volume
	inode  *Inode
	name   string
	number uint32
}

// clone returns a shallow copy of i, deep-copying only the owned extent
// slice, per spec.md §9's "ownership of clones" design note: file entries
// clone their inode rather than borrow from the cache because cache
// entries may be evicted.
func (i *Inode) clone() *Inode {
	c := *i
	if i.extents != nil {
		c.extents = make([]Extent, len(i.extents))
		copy(c.extents, i.extents)
	}
	return &c
}

// Name returns the entry's name as given by its parent directory record;
// empty for the root directory.
func (f *FileEntry) Name() string { return f.name }

// NameUTF16 transcodes Name to UTF-16 code units.
func (f *FileEntry) NameUTF16() []uint16 { return utf16FromString(f.name) }

// InodeNumber returns the 1-based inode number backing this entry.
func (f *FileEntry) InodeNumber() uint32 { return f.number }

// Inode returns the decoded inode metadata.
func (f *FileEntry) Inode() *Inode { return f.inode }

// IsDir reports whether this entry is a directory.
func (f *FileEntry) IsDir() bool { return f.inode.FileType == FileTypeDirectory }

// Size returns the data size in bytes, as recorded in the inode.
func (f *FileEntry) Size() uint64 { return f.inode.Size }

// NumExtents returns the number of resolved extents backing this file's
// data, per spec.md §6's "number of extents" metadata field.
func (f *FileEntry) NumExtents() int { return len(f.inode.extents) }

// ReadAt reads up to len(p) bytes of file content starting at byte offset
// off, resolving through the inode's already-materialised extents, per
// spec.md §4.5/§4.7. Sparse regions read as zero bytes, matching the
// glossary's definition of Sparse. ReadAt is safe for concurrent use
// because FileEntry carries no read cursor; random access is the only mode
// offered, consistent with this being a read-only library with no
// mount-like open-file-descriptor state to maintain.
func (f *FileEntry) ReadAt(p []byte, off int64) (int, error) {
	if f.inode.FileType == FileTypeDirectory {
		return 0, newErr(KindArguments, "cannot read directory content as bytes")
	}
	size := int64(f.inode.Size)
	if off < 0 {
		return 0, newErr(KindArguments, "negative read offset")
	}
	if off >= size {
		return 0, io.EOF
	}

	toRead := int64(len(p))
	if off+toRead > size {
		toRead = size - off
	}
	want := p[:toRead]

	blockSize := int64(f.vol.ctx.blockSize)
	read := int64(0)
	for read < toRead {
		fileOffset := off + read
		blockIndex := uint64(fileOffset / blockSize)
		inBlock := fileOffset % blockSize

		ext, ok := findExtentForBlock(f.inode.extents, blockIndex)
		if !ok {
			// no extent (and no synthesised trailing sparse extent)
			// covers this region: treat as a hole.
			n := fillZero(want[read:], blockSize-inBlock)
			read += n
			continue
		}

		if ext.Sparse {
			n := fillZero(want[read:], (ext.Length-(blockIndex-uint64(ext.LogicalBlock)))*uint64(blockSize)-uint64(inBlock))
			read += n
			continue
		}

		physBlock := ext.PhysicalBlock + (blockIndex - uint64(ext.LogicalBlock))
		diskOffset := int64(physBlock)*blockSize + inBlock
		avail := blockSize - inBlock
		n := toRead - read
		if n > avail {
			n = avail
		}
		if err := f.vol.ctx.readAt(want[read:read+n], diskOffset); err != nil {
			return int(read), err
		}
		read += n
	}

	if off+read >= size {
		return int(read), io.EOF
	}
	return int(read), nil
}

func fillZero(p []byte, maxLen uint64) int64 {
	n := int64(len(p))
	if uint64(n) > maxLen {
		n = int64(maxLen)
	}
	for i := int64(0); i < n; i++ {
		p[i] = 0
	}
	return n
}

func findExtentForBlock(extents []Extent, block uint64) (Extent, bool) {
	for _, e := range extents {
		start := uint64(e.LogicalBlock)
		if block >= start && block < start+e.Length {
			return e, true
		}
	}
	return Extent{}, false
}

// InlineData returns the file's content when it is stored inline in the
// inode's data reference, per spec.md §4.5 case 3: at most the first 60
// bytes. Bytes of a larger inline file kept in the inode's extended area
// are not returned. It returns nil unless the inode has the inline-data
// flag set.
func (f *FileEntry) InlineData() []byte {
	if f.inode.layout != layoutInlineData {
		return nil
	}
	n := f.inode.Size
	if n > 60 {
		n = 60
	}
	return f.inode.DataReference[:n]
}

// DeviceNumbers returns the major/minor pair for character and block
// device entries.
func (f *FileEntry) DeviceNumbers() (major, minor uint32, ok bool) {
	return f.inode.DeviceNumbers()
}

// LinkTarget returns the symbolic link target in UTF-8; see
// Inode.LinkTarget (only inline targets, Size < 60, are returned).
func (f *FileEntry) LinkTarget() string { return f.inode.LinkTarget() }

// LinkTargetUTF16 returns the symbolic link target transcoded to UTF-16.
func (f *FileEntry) LinkTargetUTF16() []uint16 { return f.inode.LinkTargetUTF16() }

// ReadDir lists this directory's children in on-disk order, per spec.md
// §5's ordering guarantee.
func (f *FileEntry) ReadDir() ([]DirectoryEntry, error) {
	if !f.IsDir() {
		return nil, newErr(KindArguments, "not a directory")
	}
	dir, err := readDirectory(f.inode, f.vol.ctx)
	if err != nil {
		return nil, err
	}
	return dir.Entries, nil
}

// ExtendedAttributeNames enumerates the recognised extended-attribute entry
// names stored in the inode's external file-ACL block (FileACLBlock),
// without decoding values, per SPEC_FULL.md §4.10's supplement. Attributes
// kept in the inode's own extended area are not listed. A block that cannot
// be read, or that does not begin with the 0xEA020000 signature, yields no
// names.
func (f *FileEntry) ExtendedAttributeNames() []string {
	if f.inode.FileACLBlock == 0 && f.inode.Flags&inodeFlagExtendedAttributes == 0 {
		return nil
	}
	raw, err := f.vol.ctx.readBlock(f.inode.FileACLBlock)
	if err != nil {
		f.vol.ctx.log.WithError(err).Warn("failed to read extended-attribute block")
		return nil
	}
	if len(raw) < 4 || binary.LittleEndian.Uint32(raw[0:4]) != xattrInlineSignature {
		return nil
	}
	return parseXattrNames(raw)
}
