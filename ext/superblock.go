package ext

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
)

// superblockOffset is the fixed absolute byte offset of the primary
// superblock, per spec.md §3.
const superblockOffset int64 = 1024

// superblockSize is the fixed on-disk record length.
const superblockSize = 1024

const superblockMagic uint16 = 0xef53

// Feature flag bits recognised at minimum, per spec.md §6.
const (
	compatDirPrealloc uint32 = 0x01
	compatHasJournal  uint32 = 0x04
	compatImpliesExt4 uint32 = 0x200

	incompatFileType       uint32 = 0x02
	incompatJournalDev     uint32 = 0x04
	incompatNeedsRecovery  uint32 = 0x08
	incompatExtents        uint32 = 0x40
	incompat64Bit          uint32 = 0x80
	incompatFlexBlockGroup uint32 = 0x100
	incompatMetaBlockGroup uint32 = 0x10

	roCompatSparseSuper uint32 = 0x01
	roCompatHugeFile    uint32 = 0x08
)

// supportedCompatMask, supportedIncompatMask and supportedROCompatMask are
// the bits this decoder accepts; anything outside them rejects the volume
// with UnsupportedValue, per spec.md §4.1 and §8 invariant 8. These are
// the bits of the table in spec.md §6 plus meta_bg (incompat 0x10) and
// huge_file (ro_compat 0x08) (see DESIGN.md, "Open Question 1" and the
// superblock.go ledger entry), rather than the larger mask a production
// ext4 driver would need.
const (
	supportedCompatMask    = compatDirPrealloc | compatHasJournal | compatImpliesExt4
	supportedIncompatMask  = incompatFileType | incompatJournalDev | incompatNeedsRecovery | incompatExtents | incompat64Bit | incompatFlexBlockGroup | incompatMetaBlockGroup
	supportedROCompatMask  = roCompatSparseSuper | roCompatHugeFile
	formatV4CompatMask     = compatImpliesExt4
	formatV4IncompatMask   = 0x1F7C0
	formatV4ROCompatMask   = 0x378
	formatV3CompatMask     = compatHasJournal
	formatV3IncompatMask   = incompatJournalDev | incompatNeedsRecovery
)

// Superblock is the decoded fixed-size header at offset 1024, per
// spec.md §3.
type Superblock struct {
	InodesCount      uint32
	BlocksCountLo    uint32
	BlocksCountHi    uint32
	FreeBlocksCount  uint64
	FreeInodesCount  uint32
	FirstDataBlock   uint32
	LogBlockSize     uint32
	BlocksPerGroup   uint32
	InodesPerGroup   uint32
	MountTime        uint32
	WriteTime        uint32
	MountCount       uint16
	MaxMountCount    uint16
	State            uint16
	Errors           uint16
	MinorRevLevel    uint16
	CreatorOS        uint32
	RevLevel         uint32
	FirstInode       uint32
	InodeSizeRaw     uint16
	BlockGroupNr     uint16
	FeatureCompat    uint32
	FeatureIncompat  uint32
	FeatureROCompat  uint32
	id               [16]byte
	label            [16]byte
	LastMounted      [64]byte
	ReservedGDTBlocks uint16
	FirstMetaBlockGroup uint32
	CreationTime     uint32
	GroupDescriptorSizeRaw uint16
	LogGroupsPerFlex uint8
	ChecksumSeed     uint32
	Checksum         uint32

	// Derived fields, computed once at decode time.
	FormatVersion        int
	BlockSize            uint32
	BlockGroupSize       uint64
	FlexGroupSize        uint64
	NumberOfBlockGroups  uint32
	GroupDescriptorSize  uint16
	InodeSize            uint16
}

// TotalBlocks returns the combined 64-bit block count.
func (sb *Superblock) TotalBlocks() uint64 {
	return uint64(sb.BlocksCountHi)<<32 | uint64(sb.BlocksCountLo)
}

// ID returns the filesystem's 16-byte identifier as a UUID.
func (sb *Superblock) ID() uuid.UUID {
	id, _ := uuid.FromBytes(sb.id[:])
	return id
}

// Label returns the volume label with trailing NUL padding trimmed.
func (sb *Superblock) Label() string {
	return string(bytes.TrimRight(sb.label[:], "\x00"))
}

// RawLabel returns the 16-byte label field verbatim.
func (sb *Superblock) RawLabel() [16]byte {
	return sb.label
}

func (sb *Superblock) hasIncompat(mask uint32) bool {
	return sb.FeatureIncompat&mask == mask
}

func (sb *Superblock) hasCompat(mask uint32) bool {
	return sb.FeatureCompat&mask == mask
}

func (sb *Superblock) hasROCompat(mask uint32) bool {
	return sb.FeatureROCompat&mask == mask
}

// hugeFile reports whether the huge_file ro_compat feature is in effect,
// meaning an inode's block count may combine a 16-bit high half with the
// 32-bit low half rather than standing alone, per spec.md §4.4.
func (sb *Superblock) hugeFile() bool {
	return sb.hasROCompat(roCompatHugeFile)
}

// readSuperblock decodes a Superblock from a 1024-byte record, per
// spec.md §4.1.
func readSuperblock(b []byte) (*Superblock, error) {
	if len(b) < superblockSize {
		return nil, wrapErr(KindInput, nil, "superblock record too short: %d bytes", len(b))
	}

	magic := binary.LittleEndian.Uint16(b[0x38:0x3a])
	if magic != superblockMagic {
		return nil, errSignatureMismatch(magic)
	}

	sb := &Superblock{
		InodesCount:            binary.LittleEndian.Uint32(b[0x00:0x04]),
		BlocksCountLo:          binary.LittleEndian.Uint32(b[0x04:0x08]),
		FreeInodesCount:        binary.LittleEndian.Uint32(b[0x10:0x14]),
		FirstDataBlock:         binary.LittleEndian.Uint32(b[0x14:0x18]),
		LogBlockSize:           binary.LittleEndian.Uint32(b[0x18:0x1c]),
		BlocksPerGroup:         binary.LittleEndian.Uint32(b[0x20:0x24]),
		InodesPerGroup:         binary.LittleEndian.Uint32(b[0x28:0x2c]),
		MountTime:              binary.LittleEndian.Uint32(b[0x2c:0x30]),
		WriteTime:              binary.LittleEndian.Uint32(b[0x30:0x34]),
		MountCount:             binary.LittleEndian.Uint16(b[0x34:0x36]),
		MaxMountCount:          binary.LittleEndian.Uint16(b[0x36:0x38]),
		State:                  binary.LittleEndian.Uint16(b[0x3a:0x3c]),
		Errors:                 binary.LittleEndian.Uint16(b[0x3c:0x3e]),
		MinorRevLevel:          binary.LittleEndian.Uint16(b[0x3e:0x40]),
		CreatorOS:              binary.LittleEndian.Uint32(b[0x48:0x4c]),
		RevLevel:               binary.LittleEndian.Uint32(b[0x4c:0x50]),
		FirstInode:             binary.LittleEndian.Uint32(b[0x54:0x58]),
		InodeSizeRaw:           binary.LittleEndian.Uint16(b[0x58:0x5a]),
		BlockGroupNr:           binary.LittleEndian.Uint16(b[0x5a:0x5c]),
		FeatureCompat:          binary.LittleEndian.Uint32(b[0x5c:0x60]),
		FeatureIncompat:        binary.LittleEndian.Uint32(b[0x60:0x64]),
		FeatureROCompat:        binary.LittleEndian.Uint32(b[0x64:0x68]),
		ReservedGDTBlocks:      binary.LittleEndian.Uint16(b[0xce:0xd0]),
		FirstMetaBlockGroup:    binary.LittleEndian.Uint32(b[0x104:0x108]),
		CreationTime:           binary.LittleEndian.Uint32(b[0x108:0x10c]),
		GroupDescriptorSizeRaw: binary.LittleEndian.Uint16(b[0xfe:0x100]),
		BlocksCountHi:          binary.LittleEndian.Uint32(b[0x150:0x154]),
		LogGroupsPerFlex:       b[0x174],
		ChecksumSeed:           binary.LittleEndian.Uint32(b[0x270:0x274]),
		Checksum:               binary.LittleEndian.Uint32(b[0x3fc:0x400]),
	}
	copy(sb.id[:], b[0x68:0x78])
	copy(sb.label[:], b[0x78:0x88])
	copy(sb.LastMounted[:], b[0x88:0xc8])

	if sb.RevLevel > 1 {
		return nil, errUnsupportedValue("superblock revision level", sb.RevLevel)
	}

	if sb.FeatureCompat&^supportedCompatMask != 0 {
		return nil, errUnsupportedValue("compatible feature flags", sb.FeatureCompat)
	}
	if sb.FeatureIncompat&^supportedIncompatMask != 0 {
		return nil, errUnsupportedValue("incompatible feature flags", sb.FeatureIncompat)
	}
	if sb.FeatureROCompat&^supportedROCompatMask != 0 {
		return nil, errUnsupportedValue("read-only-compatible feature flags", sb.FeatureROCompat)
	}

	if sb.TotalBlocks() == 0 {
		return nil, newErr(KindInput, "superblock reports zero blocks")
	}
	if sb.BlocksPerGroup == 0 {
		return nil, newErr(KindInput, "superblock reports zero blocks per group")
	}
	if sb.LogBlockSize > 21 {
		return nil, errValueOutOfBounds("block size exponent")
	}

	sb.BlockSize = 1024 << sb.LogBlockSize
	sb.FreeBlocksCount = uint64(binary.LittleEndian.Uint32(b[0x0c:0x10]))
	if hi := binary.LittleEndian.Uint32(b[0x158:0x15c]); sb.hasIncompat(incompat64Bit) {
		sb.FreeBlocksCount |= uint64(hi) << 32
	}

	sb.FormatVersion = deriveFormatVersion(sb.FeatureCompat, sb.FeatureIncompat, sb.FeatureROCompat)

	sb.InodeSize = sb.InodeSizeRaw
	if sb.InodeSize == 0 {
		sb.InodeSize = ext2InodeSize
	}

	sb.GroupDescriptorSize = 32
	if sb.hasIncompat(incompat64Bit) && sb.GroupDescriptorSizeRaw > 0 {
		sb.GroupDescriptorSize = sb.GroupDescriptorSizeRaw
	}

	sb.BlockGroupSize = uint64(sb.BlocksPerGroup) * uint64(sb.BlockSize)
	sb.NumberOfBlockGroups = uint32((sb.TotalBlocks() + uint64(sb.BlocksPerGroup) - 1) / uint64(sb.BlocksPerGroup))

	if sb.hasIncompat(incompatFlexBlockGroup) {
		sb.FlexGroupSize = (uint64(1) << sb.LogGroupsPerFlex) * sb.BlockGroupSize
	}

	return sb, nil
}

// deriveFormatVersion implements spec.md §3's format-version rule: version
// is derived, never stored.
func deriveFormatVersion(compat, incompat, roCompat uint32) int {
	if compat&formatV4CompatMask != 0 || incompat&formatV4IncompatMask != 0 || roCompat&formatV4ROCompatMask != 0 {
		return 4
	}
	if compat&formatV3CompatMask != 0 || incompat&formatV3IncompatMask != 0 {
		return 3
	}
	return 2
}

// sparseSuperGroup reports whether block group g carries a backup
// superblock, per spec.md §4.2's placement rules.
func (sb *Superblock) sparseSuperGroup(g uint32) bool {
	if g == 0 || g == 1 {
		return true
	}
	if !sb.hasROCompat(roCompatSparseSuper) {
		return false
	}
	return isPowerOf(g, 3) || isPowerOf(g, 5) || isPowerOf(g, 7)
}

func isPowerOf(n, base uint32) bool {
	if n < 1 {
		return false
	}
	for n%base == 0 {
		n /= base
	}
	return n == 1
}
