// Package ext implements a read-only interpreter for ext2, ext3 and ext4
// volume images: superblock and block-group topology, a cached inode
// table, ext4-extent and classical indirect-block data resolution, and
// directory/path traversal, per spec.md.
package ext

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/extfsro/ext/source"
)

// RootInodeNumber is the fixed root-directory inode number across
// ext2/3/4, per spec.md §4.7.
const RootInodeNumber uint32 = 2

// Volume is the façade owning the superblock, group-descriptor table and
// inode cache for one open image, per spec.md §4.7. It is safe for
// concurrent use by multiple goroutines: Superblock and GroupDescriptors
// take a shared lock, every inode-cache access and Close take the exclusive
// lock. File-content and directory-block reads go to the byte source
// without holding the lock, so the source itself must allow concurrent
// ReadAt calls.
type Volume struct {
	mu sync.RWMutex

	src         source.Source
	ctx         *Context
	superblock  *Superblock
	descriptors []*GroupDescriptor
	inodes      *inodeTable

	closed bool
}

// Open reads the superblock and group-descriptor table from src and
// returns a ready-to-use Volume, per spec.md §2's "control flow on open".
func Open(src source.Source, opts OpenOptions) (*Volume, error) {
	sbBytes := make([]byte, superblockSize)
	if _, err := src.ReadAt(sbBytes, superblockOffset); err != nil {
		return nil, wrapErr(KindIO, err, "reading primary superblock")
	}
	sb, err := readSuperblock(sbBytes)
	if err != nil {
		return nil, err
	}

	ctx := opts.Context
	if ctx == nil {
		ctx = newContext(src, sb.BlockSize, sb.FormatVersion, opts.Log)
	} else {
		ctx.src = src
		ctx.blockSize = sb.BlockSize
		ctx.formatVersion = sb.FormatVersion
		if ctx.log == nil {
			ctx.log = opts.Log
		}
		if ctx.log == nil {
			ctx.log = logrus.StandardLogger()
		}
	}

	if err := compareBackupSuperblocks(src, sb, ctx); err != nil {
		return nil, err
	}

	descriptors, err := readGroupDescriptors(sb, ctx)
	if err != nil {
		return nil, err
	}

	v := &Volume{
		src:         src,
		ctx:         ctx,
		superblock:  sb,
		descriptors: descriptors,
		inodes:      newInodeTable(ctx, sb, descriptors, opts.cacheCapacity()),
	}
	return v, nil
}

// compareBackupSuperblocks reads every backup superblock location implied
// by spec.md §4.2's placement rules and logs (does not fail on) a
// mismatch against the primary's core fields, per spec.md §4.1's tolerant
// "matching the source's tolerant behaviour" rule and §8 invariant 1.
func compareBackupSuperblocks(src source.Source, primary *Superblock, ctx *Context) error {
	for g := uint32(1); g < primary.NumberOfBlockGroups; g++ {
		if err := ctx.checkAbort(); err != nil {
			return err
		}
		if !primary.sparseSuperGroup(g) {
			continue
		}
		groupOffset := groupStartOffset(primary, g)
		sbOffset := groupOffset + 1024
		if primary.BlockSize != 1024 {
			sbOffset = groupOffset
		}

		buf := make([]byte, superblockSize)
		if _, err := src.ReadAt(buf, int64(sbOffset)); err != nil {
			ctx.log.WithError(err).WithField("group", g).Warn("failed to read backup superblock")
			continue
		}
		backup, err := readSuperblock(buf)
		if err != nil {
			ctx.log.WithError(err).WithField("group", g).Warn("backup superblock failed to decode")
			continue
		}
		if backup.BlockSize != primary.BlockSize || backup.InodeSize != primary.InodeSize ||
			backup.FeatureCompat != primary.FeatureCompat || backup.FeatureIncompat != primary.FeatureIncompat ||
			backup.FeatureROCompat != primary.FeatureROCompat || backup.ID() != primary.ID() ||
			backup.Label() != primary.Label() {
			ctx.log.WithField("group", g).Warn("backup superblock does not match primary; continuing with primary values")
		}
	}
	return nil
}

// Close releases the Volume's hold on its byte source. Per spec.md §5,
// this takes the exclusive lock.
func (v *Volume) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	return v.src.Close()
}

// Superblock returns the volume's decoded superblock.
func (v *Volume) Superblock() *Superblock {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.superblock
}

// GroupDescriptors returns the primary group-descriptor table.
func (v *Volume) GroupDescriptors() []*GroupDescriptor {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.descriptors
}

// Abort requests cancellation of any in-progress long-running operation on
// this volume, per spec.md §4.7/§5.
func (v *Volume) Abort() {
	v.ctx.Abort()
}

// fileEntryForInode builds a FileEntry for an already-resolved inode
// number and name, cloning the cached inode per spec.md §9.
func (v *Volume) fileEntryForInode(number uint32, name string) (*FileEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	inode, err := v.inodes.get(number)
	if err != nil {
		return nil, err
	}
	if inode.Empty {
		return nil, errNotFound
	}
	return &FileEntry{vol: v, inode: inode.clone(), name: name, number: number}, nil
}

// RootDirectory returns the volume's root directory entry.
func (v *Volume) RootDirectory() (*FileEntry, error) {
	return v.fileEntryForInode(RootInodeNumber, "")
}

// FileEntryByInode returns the file entry for a specific inode number.
func (v *Volume) FileEntryByInode(number uint32) (*FileEntry, error) {
	return v.fileEntryForInode(number, "")
}

// FileEntryByPath walks a UTF-8 path from the root inode, per spec.md
// §4.7. A leading '/' is ignored; an empty or "/" path yields the root
// directory. Returns errNotFound (checkable with IsNotFound) rather than
// an error when no entry exists at the given path.
func (v *Volume) FileEntryByPath(path string) (*FileEntry, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return v.RootDirectory()
	}

	components := strings.Split(path, "/")
	currentNumber := RootInodeNumber
	var currentName string

	for _, comp := range components {
		if err := v.ctx.checkAbort(); err != nil {
			return nil, err
		}
		if comp == "" {
			return nil, errNotFound
		}

		entry, err := v.fileEntryForInode(currentNumber, currentName)
		if err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			return nil, errNotFound
		}
		dir, err := readDirectory(entry.inode, v.ctx)
		if err != nil {
			return nil, err
		}
		found, err := dir.find(comp)
		if err != nil {
			return nil, err
		}
		currentNumber = found.Inode
		currentName = found.Name
	}

	return v.fileEntryForInode(currentNumber, currentName)
}

// FileEntryByPathUTF16 is FileEntryByPath with a UTF-16-encoded path.
func (v *Volume) FileEntryByPathUTF16(path []uint16) (*FileEntry, error) {
	return v.FileEntryByPath(utf8FromUTF16(path))
}

// EntryFileType resolves a DirectoryEntry's type, falling back to the
// referenced inode's mode when the incompatible filetype feature flag is
// not set, per SPEC_FULL.md §4.10's directory-entry cross-check supplement.
func (v *Volume) EntryFileType(e DirectoryEntry) (FileType, error) {
	if v.superblock.hasIncompat(incompatFileType) {
		return dirFileTypeToFileType(e.RawFileType), nil
	}
	entry, err := v.fileEntryForInode(e.Inode, e.Name)
	if err != nil {
		return 0, err
	}
	return entry.inode.FileType, nil
}

func dirFileTypeToFileType(t uint8) FileType {
	switch t {
	case dirFileTypeRegular:
		return FileTypeRegular
	case dirFileTypeDir:
		return FileTypeDirectory
	case dirFileTypeCharDev:
		return FileTypeCharacterDevice
	case dirFileTypeBlockDev:
		return FileTypeBlockDevice
	case dirFileTypeFIFO:
		return FileTypeFIFO
	case dirFileTypeSocket:
		return FileTypeSocket
	case dirFileTypeSymlink:
		return FileTypeSymlink
	default:
		return 0
	}
}
