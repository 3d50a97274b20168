package ext

// inodeTable is the random-access cache over all inodes described in
// spec.md §4.3. Index derivation: inode n (1-based) lives in block group
// (n-1)/inodesPerGroup; within that group its byte offset from the
// inode-table block start is ((n-1) mod inodesPerGroup) * inodeSize.
type inodeTable struct {
	ctx         *Context
	sb          *Superblock
	descriptors []*GroupDescriptor
	cache       *inodeLRU
}

func newInodeTable(ctx *Context, sb *Superblock, descriptors []*GroupDescriptor, cacheCapacity int) *inodeTable {
	return &inodeTable{
		ctx:         ctx,
		sb:          sb,
		descriptors: descriptors,
		cache:       newInodeLRU(cacheCapacity),
	}
}

// get implements spec.md §4.3's contract: get(inode_number) -> &Inode.
// Cache misses read exactly one inode record, decode it (which also
// resolves its extent list, per spec.md §4.5's "exactly once per inode,
// during materialisation" rule), and insert it.
func (t *inodeTable) get(number uint32) (*Inode, error) {
	if number == 0 {
		return nil, newErr(KindArguments, "inode number must be >= 1")
	}
	return t.cache.get(number, func() (*Inode, error) {
		return t.readInode(number)
	})
}

func (t *inodeTable) readInode(number uint32) (*Inode, error) {
	group := (number - 1) / t.sb.InodesPerGroup
	if int(group) >= len(t.descriptors) {
		return nil, errValueOutOfBounds("inode number exceeds block group table")
	}
	gd := t.descriptors[group]

	indexInGroup := uint64((number - 1) % t.sb.InodesPerGroup)
	offset := gd.InodeTableBlock*uint64(t.sb.BlockSize) + indexInGroup*uint64(t.sb.InodeSize)

	buf := make([]byte, t.sb.InodeSize)
	if err := t.ctx.readAt(buf, int64(offset)); err != nil {
		return nil, wrapErr(KindIO, err, "reading inode %d at offset %d", number, offset)
	}

	return decodeInode(buf, number, t.ctx, t.sb.hugeFile())
}
