package ext

import (
	"encoding/binary"
	"io"

	"github.com/sirupsen/logrus"
)

// memSource is a minimal in-memory source.Source used across this
// package's tests, avoiding any dependency on real disk images.
type memSource struct {
	buf []byte
}

func newMemSource(size int) *memSource {
	return &memSource{buf: make([]byte, size)}
}

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memSource) writeAt(p []byte, off int64) {
	copy(m.buf[off:], p)
}

func (m *memSource) Close() error { return nil }

func (m *memSource) Size() (int64, error) { return int64(len(m.buf)), nil }

func putU16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:off+2], v) }
func putU32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }

// testLogger returns a logger that discards output, so tests don't spam
// stderr with expected soft-fail warnings.
func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestContext builds a Context over src with the given block size.
func newTestContext(src *memSource, blockSize uint32) *Context {
	return newContext(src, blockSize, 4, testLogger())
}
