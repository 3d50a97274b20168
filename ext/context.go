package ext

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/extfsro/ext/source"
)

// Context carries the per-open state that the pure decoders in this package
// need beyond the raw bytes in front of them: block size, format version,
// the backing byte source, and the cooperative abort flag described in
// spec.md §4.7 and §5.
type Context struct {
	blockSize     uint32
	formatVersion int
	src           source.Source

	aborted int32
	log     *logrus.Logger
}

// newContext builds the io-context shared by a volume and everything it
// materialises from it.
func newContext(src source.Source, blockSize uint32, formatVersion int, log *logrus.Logger) *Context {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Context{src: src, blockSize: blockSize, formatVersion: formatVersion, log: log}
}

// readAt is the positioned read, relative to the start of the image, used
// by group-descriptor, inode and file-content reading.
func (c *Context) readAt(p []byte, off int64) error {
	n, err := c.src.ReadAt(p, off)
	if err != nil && n < len(p) {
		return wrapErr(KindIO, err, "reading %d bytes at offset %d", len(p), off)
	}
	return nil
}

// readBlock reads exactly one filesystem block of the context's block size
// at the given block number.
func (c *Context) readBlock(blockNum uint64) ([]byte, error) {
	buf := make([]byte, c.blockSize)
	if err := c.readAt(buf, int64(blockNum)*int64(c.blockSize)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Abort requests cancellation of any in-progress long-running operation on
// this context. It is safe to call from any goroutine at any time.
func (c *Context) Abort() {
	atomic.StoreInt32(&c.aborted, 1)
}

// Aborted reports whether Abort has been called.
func (c *Context) Aborted() bool {
	return atomic.LoadInt32(&c.aborted) != 0
}

// checkAbort polls the abort flag at a loop boundary, per spec.md §5's
// "suspension points" rule: block-group enumeration, directory walks, and
// each recursive descent of the extent resolver.
func (c *Context) checkAbort() error {
	if c.Aborted() {
		return errAbortRequested()
	}
	return nil
}

// OpenOptions configures Open. The zero value is a valid set of defaults.
type OpenOptions struct {
	// CacheCapacity is the inode LRU cache size; spec.md §4.3 suggests a
	// minimum of 8, independent of volume size.
	CacheCapacity int
	// Log receives soft-fail diagnostics (backup-superblock mismatches,
	// extended-attribute decode failures). Defaults to
	// logrus.StandardLogger().
	Log *logrus.Logger
	// Context, if non-nil, is used instead of allocating a fresh one,
	// allowing a caller to hold a reference for calling Abort before or
	// during Open.
	Context *Context
}

const defaultCacheCapacity = 64
const minCacheCapacity = 8

func (o OpenOptions) cacheCapacity() int {
	if o.CacheCapacity <= 0 {
		return defaultCacheCapacity
	}
	if o.CacheCapacity < minCacheCapacity {
		return minCacheCapacity
	}
	return o.CacheCapacity
}
