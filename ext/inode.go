package ext

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"time"
)

// Inode flag bits, per spec.md §3 and §4.4.
const (
	inodeFlagSecureDeletion        uint32 = 0x1
	inodeFlagPreserveForUndeletion uint32 = 0x2
	inodeFlagSynchronous           uint32 = 0x8
	inodeFlagImmutable             uint32 = 0x10
	inodeFlagAppendOnly            uint32 = 0x20
	inodeFlagNoDump                uint32 = 0x40
	inodeFlagNoAccessTimeUpdate    uint32 = 0x80
	inodeFlagHashedDirectoryIndex  uint32 = 0x1000
	inodeFlagAFSMagicDirectory     uint32 = 0x4000
	inodeFlagNoMergeTail           uint32 = 0x8000
	inodeFlagSyncDirectoryData     uint32 = 0x10000
	inodeFlagUsesExtents           uint32 = 0x80000
	inodeFlagExtendedAttributes    uint32 = 0x200000
	inodeFlagInlineData            uint32 = 0x10000000

	// supportedInodeFlagMask is the bitwise OR of the flags spec.md §3
	// lists as supported; any other bit rejects the image. See
	// DESIGN.md "Dropped teacher dependencies" for why the compressed-file
	// flag (0x4) stays outside this mask.
	supportedInodeFlagMask = inodeFlagSecureDeletion | inodeFlagPreserveForUndeletion |
		inodeFlagSynchronous | inodeFlagImmutable | inodeFlagAppendOnly | inodeFlagNoDump |
		inodeFlagNoAccessTimeUpdate | inodeFlagHashedDirectoryIndex | inodeFlagAFSMagicDirectory |
		inodeFlagNoMergeTail | inodeFlagSyncDirectoryData | inodeFlagUsesExtents |
		inodeFlagExtendedAttributes | inodeFlagInlineData
)

// File type bits occupying the high 4 bits of the on-disk mode field, per
// spec.md §3.
type FileType uint16

const (
	FileTypeFIFO            FileType = 0x1000
	FileTypeCharacterDevice FileType = 0x2000
	FileTypeDirectory       FileType = 0x4000
	FileTypeBlockDevice     FileType = 0x6000
	FileTypeRegular         FileType = 0x8000
	FileTypeSymlink         FileType = 0xA000
	FileTypeSocket          FileType = 0xC000
)

const fileTypeMask = 0xF000

const (
	ext2InodeSize         uint16 = 128
	minExtendedInodeSize  uint16 = 160 // 128 + the 2-byte extended_inode_size field's own bounding requirement
	xattrInlineSignature  uint32 = 0xEA020000
)

// Inode is the decoded fixed-size inode record, per spec.md §3 and §4.4.
type Inode struct {
	Number uint32
	Empty  bool

	Mode     uint16
	FileType FileType

	Owner uint32
	Group uint32

	Size  uint64
	Links uint16

	Blocks           uint64
	FilesystemBlocks bool

	Flags uint32

	AccessTimeNanos   int64
	ChangeTimeNanos   int64
	ModifyTimeNanos   int64
	CreateTimeNanos   int64
	HasCreateTime     bool
	DeletionTime      uint32

	DataReference [60]byte

	NFSGeneration          uint32
	FileACLBlock           uint64
	ExtendedInodeSize      uint16

	// layout is the tagged variant selected for this inode's data
	// reference, per spec.md §9's "tagged union" note.
	layout dataLayout

	extents []Extent
	linkTarget string
	deviceMajor, deviceMinor uint32
}

// dataLayout tags which of the five cases in spec.md §4.5 applies.
type dataLayout int

const (
	layoutNone dataLayout = iota
	layoutDevice
	layoutInlineSymlink
	layoutInlineData
	layoutExtents
	layoutIndirect
)

// AccessTime, ChangeTime, ModifyTime and CreateTime return the decoded
// timestamps as time.Time. CreateTime is only valid (HasCreateTime true) on
// ext4 images with an extended inode tail.
func (i *Inode) AccessTime() time.Time { return time.Unix(0, i.AccessTimeNanos).UTC() }
func (i *Inode) ChangeTime() time.Time { return time.Unix(0, i.ChangeTimeNanos).UTC() }
func (i *Inode) ModifyTime() time.Time { return time.Unix(0, i.ModifyTimeNanos).UTC() }
func (i *Inode) CreateTime() time.Time { return time.Unix(0, i.CreateTimeNanos).UTC() }

// Extents returns the resolved, ordered list of extents covering this
// inode's data, per spec.md §4.5. For devices, inline symlinks and inline
// data this is empty; see LinkTarget and InlineData.
func (i *Inode) Extents() []Extent { return i.extents }

// LinkTarget returns the symbolic link target, in UTF-8, for symlinks whose
// target is stored inline in the data reference (Size < 60). For longer
// targets, which live in data blocks, and for other file types it returns
// the empty string.
func (i *Inode) LinkTarget() string { return i.linkTarget }

// LinkTargetUTF16 transcodes LinkTarget to UTF-16 code units.
func (i *Inode) LinkTargetUTF16() []uint16 { return utf16FromString(i.linkTarget) }

// DeviceNumbers returns the major/minor pair for character and block device
// inodes, decoded per the old/new encoding switch spec.md §4.5 case 1
// describes and original_source/libfsext uses for
// libfsext_inode_get_device_identifier.
func (i *Inode) DeviceNumbers() (major, minor uint32, ok bool) {
	if i.layout != layoutDevice {
		return 0, 0, false
	}
	return i.deviceMajor, i.deviceMinor, true
}

// FileMode returns the combined POSIX permission bits and type as os.FileMode.
func (i *Inode) FileMode() os.FileMode {
	mode := os.FileMode(i.Mode & 0o7777)
	switch i.FileType {
	case FileTypeDirectory:
		mode |= os.ModeDir
	case FileTypeSymlink:
		mode |= os.ModeSymlink
	case FileTypeCharacterDevice:
		mode |= os.ModeDevice | os.ModeCharDevice
	case FileTypeBlockDevice:
		mode |= os.ModeDevice
	case FileTypeFIFO:
		mode |= os.ModeNamedPipe
	case FileTypeSocket:
		mode |= os.ModeSocket
	}
	return mode
}

// isEmptyRecord implements spec.md §4.4's cheap empty-inode test: compare
// bytes[0..n-1] to bytes[1..n]; equal to all-zero means every byte in the
// record is zero.
func isEmptyRecord(b []byte) bool {
	if len(b) < 2 {
		return allZero(b)
	}
	return bytes.Equal(b[:len(b)-1], b[1:]) && b[0] == 0
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// decodeInode implements spec.md §4.4: decode(bytes, io_context) → Inode.
func decodeInode(b []byte, number uint32, ctx *Context, hugeFile bool) (*Inode, error) {
	if len(b) < int(ext2InodeSize) {
		return nil, newErr(KindInput, "inode record too short: %d bytes", len(b))
	}

	if isEmptyRecord(b) {
		return &Inode{Number: number, Empty: true}, nil
	}

	mode := binary.LittleEndian.Uint16(b[0x0:0x2])
	flags := binary.LittleEndian.Uint32(b[0x20:0x24])
	if flags&^uint32(supportedInodeFlagMask) != 0 {
		return nil, errUnsupportedValue("inode flags", flags)
	}

	var extendedSize uint16
	if len(b) >= int(minExtendedInodeSize) {
		extendedSize = binary.LittleEndian.Uint16(b[0x80:0x82])
	}

	owner := uint32(binary.LittleEndian.Uint16(b[0x2:0x4])) | uint32(binary.LittleEndian.Uint16(b[0x78:0x7a]))<<16
	group := uint32(binary.LittleEndian.Uint16(b[0x18:0x1a])) | uint32(binary.LittleEndian.Uint16(b[0x7a:0x7c]))<<16

	sizeLo := binary.LittleEndian.Uint32(b[0x4:0x8])
	var size uint64
	if extendedSize >= 28 && len(b) >= int(minExtendedInodeSize) {
		size = uint64(binary.LittleEndian.Uint32(b[0x6c:0x70]))<<32 | uint64(sizeLo)
	} else {
		size = uint64(sizeLo)
	}

	blocksLo := binary.LittleEndian.Uint32(b[0x1c:0x20])
	blocksHi := uint16(0)
	if len(b) >= int(minExtendedInodeSize) {
		blocksHi = binary.LittleEndian.Uint16(b[0x74:0x76])
	}
	var blocks uint64
	var filesystemBlocks bool
	switch {
	case !hugeFile:
		blocks = uint64(blocksLo)
	case hugeFile && flags&0x40000 == 0:
		blocks = uint64(blocksHi)<<32 | uint64(blocksLo)
	default:
		blocks = uint64(blocksHi)<<32 | uint64(blocksLo)
		filesystemBlocks = true
	}

	fileACL := uint64(binary.LittleEndian.Uint32(b[0x68:0x6c]))
	nfsGen := binary.LittleEndian.Uint32(b[0x64:0x68])

	ft := FileType(mode & fileTypeMask)

	i := &Inode{
		Number:            number,
		Mode:              mode,
		FileType:          ft,
		Owner:             owner,
		Group:             group,
		Size:              size,
		Links:             binary.LittleEndian.Uint16(b[0x1a:0x1c]),
		Blocks:            blocks,
		FilesystemBlocks:  filesystemBlocks,
		Flags:             flags,
		DeletionTime:      binary.LittleEndian.Uint32(b[0x14:0x18]),
		FileACLBlock:      fileACL,
		NFSGeneration:     nfsGen,
		ExtendedInodeSize: extendedSize,
	}
	if len(b) >= int(minExtendedInodeSize) {
		i.FileACLBlock |= uint64(binary.LittleEndian.Uint16(b[0x76:0x78])) << 32
	}
	copy(i.DataReference[:], b[0x28:0x64])

	extra := func(off int) uint32 {
		if len(b) < off+4 {
			return 0
		}
		return binary.LittleEndian.Uint32(b[off : off+4])
	}

	if flags&inodeFlagExtendedAttributes != 0 {
		// spec.md §4.4: these three base timestamp slots are
		// repurposed as extended-attribute checksum/reference fields
		// and must not be decoded as times.
	} else {
		var err error
		i.AccessTimeNanos, err = decodeTimestamp(int32(binary.LittleEndian.Uint32(b[0x8:0xc])), extra(0x8c))
		if err != nil {
			return nil, err
		}
		i.ChangeTimeNanos, err = decodeTimestamp(int32(binary.LittleEndian.Uint32(b[0xc:0x10])), extra(0x84))
		if err != nil {
			return nil, err
		}
		i.ModifyTimeNanos, err = decodeTimestamp(int32(binary.LittleEndian.Uint32(b[0x10:0x14])), extra(0x88))
		if err != nil {
			return nil, err
		}
		if extendedSize >= 24 && len(b) >= int(minExtendedInodeSize) {
			i.CreateTimeNanos, err = decodeTimestamp(int32(binary.LittleEndian.Uint32(b[0x90:0x94])), extra(0x94))
			if err != nil {
				return nil, err
			}
			i.HasCreateTime = true
		}
	}

	if err := resolveDataLayout(i, ctx); err != nil {
		return nil, err
	}

	return i, nil
}

// decodeTimestamp implements spec.md §4.4's ext4 extended-timestamp
// formula: the low 2 bits of extra widen seconds to 34 bits, the high 30
// bits are nanoseconds, and the result is expressed as signed nanoseconds
// since the epoch.
func decodeTimestamp(seconds int32, extra uint32) (int64, error) {
	sec := int64(seconds) + int64(extra&0x3)<<32
	nano := int64(extra >> 2)
	if nano >= 1_000_000_000 {
		return 0, errValueOutOfBounds("timestamp nanoseconds field")
	}
	// guard sec*1e9 + nano against signed 64-bit overflow before
	// computing it.
	const nanosPerSec = 1_000_000_000
	if sec > 0 && sec > (math.MaxInt64-nano)/nanosPerSec {
		return 0, errValueOutOfBounds("timestamp exceeds representable range")
	}
	if sec < 0 && sec < (math.MinInt64-nano)/nanosPerSec {
		return 0, errValueOutOfBounds("timestamp exceeds representable range")
	}
	return sec*nanosPerSec + nano, nil
}

// resolveDataLayout implements the branching policy of spec.md §4.5,
// selecting exactly one of the five cases and, for the extents and
// indirect-block cases, fully resolving the inode's extent list. This must
// be called exactly once per inode, during materialisation, per spec.md
// §4.5's contract.
func resolveDataLayout(i *Inode, ctx *Context) error {
	switch i.FileType {
	case FileTypeCharacterDevice, FileTypeBlockDevice:
		i.layout = layoutDevice
		i.deviceMinor, i.deviceMajor = decodeDeviceNumbers(i.DataReference[:])
		return nil
	case FileTypeSymlink:
		if i.Size < 60 {
			i.layout = layoutInlineSymlink
			i.linkTarget = string(i.DataReference[:i.Size])
			return nil
		}
	}

	if i.Flags&inodeFlagInlineData != 0 {
		i.layout = layoutInlineData
		return nil
	}

	numBlocks := uint32(0)
	if ctx.blockSize > 0 {
		numBlocks = uint32((i.Size + uint64(ctx.blockSize) - 1) / uint64(ctx.blockSize))
	}

	if i.Flags&inodeFlagUsesExtents != 0 {
		i.layout = layoutExtents
		extents, err := resolveExtentTree(i.DataReference[:], ctx, numBlocks)
		if err != nil {
			return err
		}
		i.extents = extents
		return nil
	}

	i.layout = layoutIndirect
	extents, err := resolveIndirectTree(i.DataReference[:], ctx, numBlocks)
	if err != nil {
		return err
	}
	i.extents = extents
	return nil
}

// decodeDeviceNumbers decodes the major/minor pair libfsext's
// libfsext_inode_get_device_identifier uses: the "old" 16-bit encoding when
// only the first two bytes are populated, otherwise the newer split
// encoding of the same first 32-bit word of the data reference.
func decodeDeviceNumbers(ref []byte) (minor, major uint32) {
	raw := binary.LittleEndian.Uint32(ref[0:4])
	if raw&0xffff0000 == 0 {
		// old encoding: major in the high byte, minor in the low byte
		return raw & 0xff, (raw >> 8) & 0xff
	}
	minor = (raw & 0xff) | ((raw >> 12) & 0xfff00)
	major = (raw >> 8) & 0xfff
	return minor, major
}
