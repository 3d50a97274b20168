package ext

import "encoding/binary"

// Recognised directory-entry file-type byte values, used when the
// incompatible filetype feature flag is set.
const (
	dirFileTypeUnknown  uint8 = 0
	dirFileTypeRegular  uint8 = 1
	dirFileTypeDir      uint8 = 2
	dirFileTypeCharDev  uint8 = 3
	dirFileTypeBlockDev uint8 = 4
	dirFileTypeFIFO     uint8 = 5
	dirFileTypeSocket   uint8 = 6
	dirFileTypeSymlink  uint8 = 7
)

// DirectoryEntry is the decoded variable-length directory record, per
// spec.md §3 and §4.6.
type DirectoryEntry struct {
	Inode       uint32
	Name        string
	RawFileType uint8
}

// NameUTF16 transcodes Name to UTF-16 code units.
func (e DirectoryEntry) NameUTF16() []uint16 { return utf16FromString(e.Name) }

// Directory is the ordered vector of named entries decoded from a
// directory inode's data stream, per spec.md §4.6.
type Directory struct {
	Entries []DirectoryEntry
}

// readDirectory implements spec.md §4.6's contract: decode a directory
// inode's data stream into an ordered vector of named entries. Stream
// acquisition walks the inode's already-resolved extents (spec.md §4.5);
// each physical block is read and parsed independently, since directory
// records never straddle block boundaries (spec.md §9, design note 4).
func readDirectory(inode *Inode, ctx *Context) (*Directory, error) {
	dir := &Directory{}
	for _, ext := range inode.Extents() {
		if err := ctx.checkAbort(); err != nil {
			return nil, err
		}
		if ext.Sparse {
			continue
		}
		for i := uint64(0); i < ext.Length; i++ {
			block, err := ctx.readBlock(ext.PhysicalBlock + i)
			if err != nil {
				return nil, err
			}
			if err := parseDirectoryBlock(block, dir); err != nil {
				return nil, err
			}
		}
	}
	return dir, nil
}

func parseDirectoryBlock(b []byte, dir *Directory) error {
	offset := 0
	for offset < len(b) {
		if offset+8 > len(b) {
			return newErr(KindInput, "directory record header runs past block end")
		}
		inodeNum := binary.LittleEndian.Uint32(b[offset : offset+4])
		recLen := binary.LittleEndian.Uint16(b[offset+4 : offset+6])
		nameLen := b[offset+6]
		fileType := b[offset+7]

		remaining := len(b) - offset
		if recLen < 8 {
			return newErr(KindInput, "directory record length %d below minimum 8", recLen)
		}
		if int(recLen) > remaining {
			return newErr(KindInput, "directory record length %d exceeds remaining block bytes %d", recLen, remaining)
		}
		if int(nameLen) > int(recLen)-8 {
			return newErr(KindInput, "directory record name length %d exceeds record capacity", nameLen)
		}

		if inodeNum != 0 {
			name := string(b[offset+8 : offset+8+int(nameLen)])
			dir.Entries = append(dir.Entries, DirectoryEntry{
				Inode:       inodeNum,
				Name:        name,
				RawFileType: fileType,
			})
		}

		offset += int(recLen)
	}
	return nil
}

// find implements spec.md §4.6's lookup contract: linear scan, comparison
// byte-exact after encoding the query to UTF-8.
func (d *Directory) find(name string) (*DirectoryEntry, error) {
	for i := range d.Entries {
		if d.Entries[i].Name == name {
			return &d.Entries[i], nil
		}
	}
	return nil, errNotFound
}

// findUTF16 transcodes name to UTF-8 before delegating to find, per
// spec.md §4.6's "callers requesting UTF-16 lookup trigger an on-the-fly
// transcode" rule.
func (d *Directory) findUTF16(name []uint16) (*DirectoryEntry, error) {
	return d.find(utf8FromUTF16(name))
}
