package ext

import "encoding/binary"

// GroupDescriptor is the per-block-group record giving inode-table
// location and accounting counts, per spec.md §3 and §4.2.
type GroupDescriptor struct {
	Number              uint32
	BlockBitmapBlock    uint64
	InodeBitmapBlock    uint64
	InodeTableBlock     uint64
	FreeBlocksCount     uint32
	FreeInodesCount     uint32
	UsedDirsCount       uint32
}

// groupDescriptorFromBytes decodes one group descriptor of either the
// 32-byte classic or 64-byte ext4 64-bit variant, per spec.md §3.
func groupDescriptorFromBytes(b []byte, size uint16, number uint32) (*GroupDescriptor, error) {
	if len(b) < int(size) {
		return nil, newErr(KindInput, "group descriptor record too short: %d bytes, need %d", len(b), size)
	}

	gd := &GroupDescriptor{
		Number:           number,
		BlockBitmapBlock: uint64(binary.LittleEndian.Uint32(b[0x0:0x4])),
		InodeBitmapBlock: uint64(binary.LittleEndian.Uint32(b[0x4:0x8])),
		InodeTableBlock:  uint64(binary.LittleEndian.Uint32(b[0x8:0xc])),
		FreeBlocksCount:  uint32(binary.LittleEndian.Uint16(b[0xc:0xe])),
		FreeInodesCount:  uint32(binary.LittleEndian.Uint16(b[0xe:0x10])),
		UsedDirsCount:    uint32(binary.LittleEndian.Uint16(b[0x10:0x12])),
	}

	if size >= 64 {
		gd.BlockBitmapBlock |= uint64(binary.LittleEndian.Uint32(b[0x20:0x24])) << 32
		gd.InodeBitmapBlock |= uint64(binary.LittleEndian.Uint32(b[0x24:0x28])) << 32
		gd.InodeTableBlock |= uint64(binary.LittleEndian.Uint32(b[0x28:0x2c])) << 32
		gd.FreeBlocksCount |= uint32(binary.LittleEndian.Uint16(b[0x2c:0x2e])) << 16
		gd.FreeInodesCount |= uint32(binary.LittleEndian.Uint16(b[0x2e:0x30])) << 16
		gd.UsedDirsCount |= uint32(binary.LittleEndian.Uint16(b[0x30:0x32])) << 16
	}

	return gd, nil
}

// descriptorsPerBlock returns how many group-descriptor records of the
// volume's size fit in one block, used by the meta-block-group placement
// rule in spec.md §4.2.
func descriptorsPerBlock(blockSize uint32, descriptorSize uint16) uint32 {
	return blockSize / uint32(descriptorSize)
}

// gdtMetaGroupOf returns the meta-group index a given block group g belongs
// to, and the first/second/last group indices within that meta-group, used
// when the meta-block-groups feature is in effect.
func gdtMetaGroupOf(g uint32, groupsPerMeta uint32) (metaGroup, first, second, last uint32) {
	metaGroup = g / groupsPerMeta
	first = metaGroup * groupsPerMeta
	second = first + 1
	last = first + groupsPerMeta - 1
	return
}

// groupStartOffset returns g*BlockGroupSize. When the first data block is 0
// (block sizes above 1024) this is the offset of group g's first block; on
// volumes whose first data block is 1 (1024-byte blocks) the group's first
// block lies one block further in, and callers add that themselves.
func groupStartOffset(sb *Superblock, g uint32) uint64 {
	return uint64(g) * sb.BlockGroupSize
}

// readGroupDescriptors enumerates the group-descriptor table, per spec.md
// §4.2. Groups below the meta-block-group threshold (or all groups, when the
// feature is off) are read from the contiguous primary table that follows
// the superblock. Groups at or beyond the threshold use the meta-
// block-group layout instead: each meta group of descriptorsPerBlock
// consecutive groups keeps its descriptors in the first block of the first
// group in that meta group (the primary copy; the second and last groups'
// copies are backups and are not consulted, mirroring the tolerant handling
// of backup superblocks). Scenario E in spec.md §7 exercises this path.
func readGroupDescriptors(sb *Superblock, ctx *Context) ([]*GroupDescriptor, error) {
	n := sb.NumberOfBlockGroups
	out := make([]*GroupDescriptor, 0, n)
	descSize := uint64(sb.GroupDescriptorSize)

	groupsPerMeta := descriptorsPerBlock(sb.BlockSize, sb.GroupDescriptorSize)
	metaBgThreshold := n
	if sb.hasIncompat(incompatMetaBlockGroup) && groupsPerMeta > 0 {
		metaBgThreshold = sb.FirstMetaBlockGroup * groupsPerMeta
	}
	if metaBgThreshold > n {
		metaBgThreshold = n
	}

	if metaBgThreshold > 0 {
		primaryOffset, err := gdtPrimaryOffset(sb)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, uint64(metaBgThreshold)*descSize)
		if err := ctx.readAt(buf, int64(primaryOffset)); err != nil {
			return nil, wrapErr(KindIO, err, "reading group descriptor table at offset %d", primaryOffset)
		}
		for g := uint32(0); g < metaBgThreshold; g++ {
			if err := ctx.checkAbort(); err != nil {
				return nil, err
			}
			start := uint64(g) * descSize
			gd, err := groupDescriptorFromBytes(buf[start:start+descSize], sb.GroupDescriptorSize, g)
			if err != nil {
				return nil, err
			}
			out = append(out, gd)
		}
	}

	for g := metaBgThreshold; g < n; {
		if err := ctx.checkAbort(); err != nil {
			return nil, err
		}
		_, first, _, _ := gdtMetaGroupOf(g, groupsPerMeta)
		blockOffset := groupStartOffset(sb, first) + uint64(sb.FirstDataBlock)*uint64(sb.BlockSize)

		buf := make([]byte, uint64(groupsPerMeta)*descSize)
		if err := ctx.readAt(buf, int64(blockOffset)); err != nil {
			return nil, wrapErr(KindIO, err, "reading meta-block-group descriptor block for group %d at offset %d", g, blockOffset)
		}
		for i := uint32(0); i < groupsPerMeta && g < n; i++ {
			start := uint64(i) * descSize
			gd, err := groupDescriptorFromBytes(buf[start:start+descSize], sb.GroupDescriptorSize, g)
			if err != nil {
				return nil, err
			}
			out = append(out, gd)
			g++
		}
	}

	return out, nil
}

// gdtPrimaryOffset computes the absolute byte offset of the primary
// group-descriptor table: the block after the one holding the superblock.
// For block_size=1024 the superblock fills block 1 (offset 1024), so the
// GDT follows at 2048; for larger block sizes the superblock sits inside
// block 0, so the GDT follows at 1*block_size, per spec.md §4.2.
func gdtPrimaryOffset(sb *Superblock) (uint64, error) {
	if sb.BlockSize == 1024 {
		return 2048, nil
	}
	return uint64(sb.BlockSize), nil
}
